package store

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned for an absent record or batch.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when Remove finds no equal record.
	ErrNotFound = errors.New("record not found")
	// ErrNotPermitted is returned by every write against a replica.
	ErrNotPermitted = errors.New("operation not permitted in replica mode")
)

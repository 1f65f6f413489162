// Package store holds the in-memory record collection in its two roles:
// the writable master and the read-only replica.
package store

import "github.com/alpacahq/recordstore/models"

// Service is the API exposed to the driving application regardless of role.
type Service interface {
	// Add assigns a fresh id to r (in place) and appends it.
	Add(r *models.Record) error
	// AddBatch assigns ids to every record in order and appends them as one mutation.
	AddBatch(rs ...*models.Record) error
	// Remove deletes the first record structurally equal to r.
	Remove(r *models.Record) error
	// SearchByID returns the first record with the id. A miss is not an error.
	SearchByID(id int) (models.Record, bool)
	// Records enumerates the store in insertion order.
	Records() []models.Record
	Save() error
}

// Broadcaster receives every mutation committed on the master.
type Broadcaster interface {
	BroadcastAdd(records []models.Record)
	BroadcastDelete(record models.Record)
}

// NopBroadcaster drops every mutation. Used when no slaves are configured.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastAdd([]models.Record) {}

func (NopBroadcaster) BroadcastDelete(models.Record) {}

func searchByID(records []models.Record, id int) (models.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return models.Record{}, false
}

// removeFirst drops the first element equal to target and reports whether one was found.
func removeFirst(records []models.Record, target models.Record) ([]models.Record, bool) {
	for i, r := range records {
		if r.Equal(target) {
			return append(records[:i], records[i+1:]...), true
		}
	}
	return records, false
}

func clone(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	return out
}

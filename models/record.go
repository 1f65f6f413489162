package models

import "fmt"

// Record is the replicated entity. Two records are the same record when all
// fields, including ID, are equal.
type Record struct {
	ID        int    `msgpack:"id" yaml:"id" csv:"id"`
	FirstName string `msgpack:"first_name" yaml:"first_name" csv:"first_name"`
	LastName  string `msgpack:"last_name" yaml:"last_name" csv:"last_name"`
	Age       int    `msgpack:"age" yaml:"age" csv:"age"`
}

// Equal reports structural equality.
func (r Record) Equal(o Record) bool {
	return r == o
}

func (r Record) String() string {
	return fmt.Sprintf("Record{id=%d, name=%q %q, age=%d}", r.ID, r.FirstName, r.LastName, r.Age)
}

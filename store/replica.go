package store

import (
	"sync"

	"github.com/alpacahq/recordstore/metrics"
	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/utils/log"
)

const replicaRole = "replica"

// ReplicaStore is a read-only copy fed by the replication receiver. Reads keep
// answering from the last known contents while the receiver reconnects.
type ReplicaStore struct {
	mu      sync.RWMutex
	records []models.Record
	logger  *log.Logger
}

func NewReplicaStore(logger *log.Logger) *ReplicaStore {
	if logger == nil {
		logger = log.Nop()
	}
	return &ReplicaStore{
		records: []models.Record{},
		logger:  logger.Named("store.replica"),
	}
}

func (s *ReplicaStore) Add(*models.Record) error {
	return ErrNotPermitted
}

func (s *ReplicaStore) AddBatch(...*models.Record) error {
	return ErrNotPermitted
}

func (s *ReplicaStore) Remove(*models.Record) error {
	return ErrNotPermitted
}

func (s *ReplicaStore) Save() error {
	return ErrNotPermitted
}

func (s *ReplicaStore) SearchByID(id int) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchByID(s.records, id)
}

func (s *ReplicaStore) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.records)
}

// Replace swaps the whole contents for a seed snapshot.
func (s *ReplicaStore) Replace(records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = clone(records)
	s.updateGauge()
	s.logger.Debug("seeded with %d records", len(records))
}

func (s *ReplicaStore) Append(records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.updateGauge()
}

// Delete removes the first structurally equal record and reports whether one existed.
func (s *ReplicaStore) Delete(record models.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := removeFirst(s.records, record)
	s.records = records
	s.updateGauge()
	return ok
}

func (s *ReplicaStore) updateGauge() {
	metrics.StoredRecords.WithLabelValues(replicaRole).Set(float64(len(s.records)))
}

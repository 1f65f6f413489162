package store

import (
	"sync"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"

	"github.com/alpacahq/recordstore/metrics"
	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/utils/log"
)

const masterRole = "master"

// MasterStore is the single writable copy of the records. Every committed
// mutation is handed to the Broadcaster while the write lock is still held,
// so replicas observe mutations in commit order.
type MasterStore struct {
	mu          sync.RWMutex
	records     []models.Record
	ids         IDAllocator
	path        string
	broadcaster Broadcaster
	logger      *log.Logger
}

// NewMasterStore returns an empty master store persisting to path.
// A nil allocator defaults to an Incrementer starting at 0 and a nil
// broadcaster to NopBroadcaster.
func NewMasterStore(path string, ids IDAllocator, b Broadcaster, logger *log.Logger) (*MasterStore, error) {
	if path == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "empty data path")
	}
	if ids == nil {
		ids = NewIncrementer(0)
	}
	if b == nil {
		b = NopBroadcaster{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &MasterStore{
		records:     []models.Record{},
		ids:         ids,
		path:        path,
		broadcaster: b,
		logger:      logger.Named("store.master"),
	}, nil
}

func (s *MasterStore) Add(r *models.Record) error {
	if r == nil {
		return errors.Wrap(ErrInvalidArgument, "nil record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.ids.NextID()
	s.records = append(s.records, *r)
	s.broadcaster.BroadcastAdd([]models.Record{*r})
	s.updateGauge()

	s.logger.Debug("record id=%d added", r.ID)
	return nil
}

// AddBatch adds rs as one mutation. An empty batch is rejected like a nil one,
// so no empty Add frame ever reaches the slaves.
func (s *MasterStore) AddBatch(rs ...*models.Record) error {
	if len(rs) == 0 {
		return errors.Wrap(ErrInvalidArgument, "empty batch")
	}
	for i, r := range rs {
		if r == nil {
			return errors.Wrapf(ErrInvalidArgument, "nil record at index %d", i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]models.Record, len(rs))
	for i, r := range rs {
		r.ID = s.ids.NextID()
		batch[i] = *r
	}
	s.records = append(s.records, batch...)
	s.broadcaster.BroadcastAdd(batch)
	s.updateGauge()

	s.logger.Debug("%d records added", len(batch))
	return nil
}

func (s *MasterStore) Remove(r *models.Record) error {
	if r == nil {
		return errors.Wrap(ErrInvalidArgument, "nil record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := removeFirst(s.records, *r)
	if !ok {
		return errors.Wrapf(ErrNotFound, "id=%d", r.ID)
	}
	s.records = records
	s.broadcaster.BroadcastDelete(*r)
	s.updateGauge()

	s.logger.Debug("record id=%d removed", r.ID)
	return nil
}

func (s *MasterStore) SearchByID(id int) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchByID(s.records, id)
}

func (s *MasterStore) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.records)
}

// Subscribe calls fn with the current contents while writes are held off.
// A connector uses it to send the seed and join the broadcast set in one
// step, so no mutation falls between the two.
func (s *MasterStore) Subscribe(fn func(snapshot []models.Record) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(clone(s.records))
}

// Save overwrites the snapshot file with the current records and id counter.
func (s *MasterStore) Save() error {
	s.mu.RLock()
	snap := &snapshot{
		IDAlgorithm: algorithmName(s.ids),
		CurrentID:   s.ids.CurrentID(),
		Records:     clone(s.records),
	}
	s.mu.RUnlock()

	size, err := writeSnapshot(s.path, snap)
	if err != nil {
		return err
	}
	s.logger.Info("saved %d records to %s (%s, next id=%d)", len(snap.Records), s.path,
		bytefmt.ByteSize(uint64(size)), snap.CurrentID)
	return nil
}

// Load replaces the contents with the persisted snapshot. A missing file
// leaves the store empty. It is meant to run once, before any connector starts.
func (s *MasterStore) Load() error {
	snap, found, err := readSnapshot(s.path)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Info("no snapshot at %s, starting empty", s.path)
		return nil
	}

	for _, r := range snap.Records {
		if r.ID >= snap.CurrentID {
			return errors.Errorf("malformed snapshot %s: record id=%d is not below current_id=%d",
				s.path, r.ID, snap.CurrentID)
		}
	}
	if name := algorithmName(s.ids); snap.IDAlgorithm != "" && snap.IDAlgorithm != name {
		s.logger.Warn("snapshot was written with id algorithm %q, continuing with %q", snap.IDAlgorithm, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids.SetStartID(snap.CurrentID)
	s.records = append([]models.Record{}, snap.Records...)
	s.updateGauge()

	s.logger.Info("loaded %d records from %s (next id=%d)", len(s.records), s.path, snap.CurrentID)
	return nil
}

func (s *MasterStore) updateGauge() {
	metrics.StoredRecords.WithLabelValues(masterRole).Set(float64(len(s.records)))
}

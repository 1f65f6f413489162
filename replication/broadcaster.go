package replication

import (
	"sync"
	"time"

	"github.com/alpacahq/recordstore/metrics"
	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/utils/log"
)

// Broadcaster writes every committed mutation to the links that are live at
// the time of the call. A link whose write fails is marked broken and left to
// its connector to tear down; delivery to the other links goes on.
type Broadcaster struct {
	mu           sync.Mutex
	links        []*Link
	writeTimeout time.Duration
	logger       *log.Logger
}

func NewBroadcaster(writeTimeout time.Duration, logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.Nop()
	}
	return &Broadcaster{
		writeTimeout: writeTimeout,
		logger:       logger.Named("replication.broadcaster"),
	}
}

// Join adds l to the broadcast set.
func (b *Broadcaster) Join(l *Link) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.links = append(b.links, l)
	metrics.ReplicationLinksActive.Set(float64(len(b.links)))
	b.logger.Info("slave %s joined the broadcast set", l.Addr())
}

// Leave removes l from the broadcast set and reports whether it was a member.
func (b *Broadcaster) Leave(l *Link) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, member := range b.links {
		if member == l {
			b.links = append(b.links[:i], b.links[i+1:]...)
			metrics.ReplicationLinksActive.Set(float64(len(b.links)))
			b.logger.Info("slave %s left the broadcast set", l.Addr())
			return true
		}
	}
	return false
}

// Len is the number of links currently in the broadcast set.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.links)
}

func (b *Broadcaster) BroadcastAdd(records []models.Record) {
	frame, err := EncodeAdd(records)
	if err != nil {
		b.logger.Error("dropping add of %d records: %v", len(records), err)
		return
	}
	b.broadcast(ActionAdd, frame)
}

func (b *Broadcaster) BroadcastDelete(record models.Record) {
	frame, err := EncodeDelete(record)
	if err != nil {
		b.logger.Error("dropping delete of id=%d: %v", record.ID, err)
		return
	}
	b.broadcast(ActionDelete, frame)
}

func (b *Broadcaster) broadcast(a Action, frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.links {
		if l.isBroken() {
			continue
		}
		if err := l.write(frame, b.writeTimeout); err != nil {
			metrics.ReplicationWriteErrorsTotal.Inc()
			b.logger.Warn("failed to send %s frame to slave %s: %v", a, l.Addr(), err)
			l.markBroken(err)
			continue
		}
		metrics.ReplicationFramesSentTotal.WithLabelValues(a.String()).Inc()
	}
}

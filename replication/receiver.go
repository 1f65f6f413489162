package replication

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/alpacahq/recordstore/metrics"
	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/utils/log"
)

// ReceiverState is the lifecycle of the slave-side receiver.
type ReceiverState int32

const (
	ReceiverListening ReceiverState = iota
	ReceiverSeeding
	ReceiverStreaming
	ReceiverUnhealthy
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverListening:
		return "listening"
	case ReceiverSeeding:
		return "seeding"
	case ReceiverStreaming:
		return "streaming"
	case ReceiverUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Applier is the replica store as seen by the receiver.
type Applier interface {
	// Replace swaps the whole contents for a seed.
	Replace(records []models.Record)
	Append(records []models.Record)
	// Delete removes the first structurally equal record.
	Delete(record models.Record) bool
}

type ReceiverConfig struct {
	RetryInterval     time.Duration
	RetryMaxInterval  time.Duration
	RetryBackoffCoeff int
}

// session is one listen/accept cycle. It ends only through teardown.
type session struct {
	listener net.Listener

	mu   sync.Mutex
	conn net.Conn

	streamDone chan struct{}
	closed     chan struct{}
	once       sync.Once
}

func newSession(ln net.Listener) *session {
	return &session{
		listener:   ln,
		streamDone: make(chan struct{}),
		closed:     make(chan struct{}),
	}
}

// attach stores the accepted connection. It reports false when the session
// was torn down while accepting, in which case conn is closed.
func (s *session) attach(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		conn.Close()
		return false
	default:
		s.conn = conn
		return true
	}
}

func (s *session) endpoints() (local, remote net.Addr, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, nil, false
	}
	return s.conn.LocalAddr(), s.conn.RemoteAddr(), true
}

func (s *session) teardown() {
	s.once.Do(func() {
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
		s.listener.Close()
		close(s.closed)
	})
}

func (s *session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *session) streamEnded() bool {
	select {
	case <-s.streamDone:
		return true
	default:
		return false
	}
}

// Receiver accepts a single master connection, seeds the local store from the
// first frame and then applies mutations. It does not decide on its own that
// the master is gone: the Monitor tears the session down and Run starts over.
type Receiver struct {
	mu      sync.Mutex
	addr    string
	current *session

	store  Applier
	cfg    ReceiverConfig
	state  atomic.Int32
	logger *log.Logger
}

func NewReceiver(addr string, store Applier, cfg ReceiverConfig, logger *log.Logger) *Receiver {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &Receiver{
		addr:   addr,
		store:  store,
		cfg:    cfg,
		logger: logger.Named("replication.receiver"),
	}
}

// Addr is the listen address. After the first bind a zero port is replaced by
// the port actually bound so that reinitialization listens on the same one.
func (r *Receiver) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

func (r *Receiver) State() ReceiverState {
	return ReceiverState(r.state.Load())
}

// Run blocks until ctx is canceled.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		r.state.Store(int32(ReceiverListening))
		sess, err := r.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("shutdown replication receiver")
				return nil
			}
			r.logger.Warn("failed to accept a master connection: %v", err)
			continue
		}

		r.serve(sess)
		<-sess.closed

		if ctx.Err() != nil {
			r.logger.Info("shutdown replication receiver")
			return nil
		}
		r.logger.Info("reinitializing replication receiver")
	}
}

func (r *Receiver) listen(ctx context.Context) (net.Listener, error) {
	var ln net.Listener
	bind := func(ctx context.Context) error {
		var err error
		ln, err = net.Listen("tcp", r.Addr())
		if err != nil {
			return errors.Wrapf(ErrRetryable, "listen %s: %v", r.Addr(), err)
		}
		return nil
	}
	err := NewRetryer(bind, r.cfg.RetryInterval, r.cfg.RetryBackoffCoeff).
		WithMaxInterval(r.cfg.RetryMaxInterval).
		WithLogger(r.logger).
		Run(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.addr = ln.Addr().String()
	r.mu.Unlock()
	return ln, nil
}

func (r *Receiver) open(ctx context.Context) (*session, error) {
	ln, err := r.listen(ctx)
	if err != nil {
		return nil, err
	}
	sess := newSession(ln)
	go func() {
		select {
		case <-ctx.Done():
			sess.teardown()
		case <-sess.closed:
		}
	}()

	r.mu.Lock()
	r.current = sess
	r.mu.Unlock()
	r.logger.Info("waiting for the master on %s", ln.Addr())

	conn, err := ln.Accept()
	if err != nil {
		r.reinit(sess, "accept failed")
		return nil, errors.Wrap(err, "accept")
	}
	if !sess.attach(conn) {
		return nil, errors.New("session closed while accepting")
	}
	r.logger.Info("master connected from %s", conn.RemoteAddr())
	return sess, nil
}

func (r *Receiver) serve(sess *session) {
	defer close(sess.streamDone)

	fr := NewFrameReader(sess.conn)

	r.state.Store(int32(ReceiverSeeding))
	seed, err := fr.ReadFrame()
	if err != nil {
		r.drop(sess, errors.Wrap(err, "failed to read seed"))
		return
	}
	if seed.Action != ActionAdd {
		r.drop(sess, errors.Errorf("expected an add frame as seed, got %s", seed.Action))
		return
	}
	r.store.Replace(seed.Records)
	metrics.ReplicationFramesAppliedTotal.WithLabelValues("seed").Inc()
	r.logger.Info("seeded with %d records", len(seed.Records))

	r.state.Store(int32(ReceiverStreaming))
	for {
		f, err := fr.ReadFrame()
		if err != nil {
			r.drop(sess, err)
			return
		}
		r.apply(f)
	}
}

func (r *Receiver) apply(f Frame) {
	switch f.Action {
	case ActionAdd:
		r.store.Append(f.Records)
	case ActionDelete:
		if !r.store.Delete(f.Records[0]) {
			r.logger.Warn("delete of %v did not match any local record", f.Records[0])
		}
	}
	metrics.ReplicationFramesAppliedTotal.WithLabelValues(f.Action.String()).Inc()
}

// drop closes the connection after a read failure. The session itself stays
// until the monitor notices the connection is no longer established.
func (r *Receiver) drop(sess *session, err error) {
	if sess.isClosed() {
		r.logger.Debug("stream stopped by teardown: %v", err)
		return
	}
	r.logger.Warn("stream stopped: %v", err)
	sess.mu.Lock()
	sess.conn.Close()
	sess.mu.Unlock()
}

func (r *Receiver) active() *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// reinit tears sess down if it is still the active session; Run then listens again.
func (r *Receiver) reinit(sess *session, reason string) {
	r.mu.Lock()
	if r.current == sess {
		r.current = nil
	}
	r.mu.Unlock()

	if sess.isClosed() {
		return
	}
	r.state.Store(int32(ReceiverUnhealthy))
	metrics.ReplicaReinitsTotal.Inc()
	r.logger.Warn("dropping master connection: %s", reason)
	sess.teardown()
}

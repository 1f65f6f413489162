package replication

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/alpacahq/recordstore/metrics"
	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/utils/log"
)

const (
	// pollTimeout bounds the liveness read so that the poll never really blocks.
	pollTimeout = time.Millisecond

	defaultRetryInterval = 100 * time.Millisecond
	defaultPollInterval  = 200 * time.Millisecond
)

// SnapshotSource hands out a consistent view of the master's records with
// writes held off for the duration of fn.
type SnapshotSource interface {
	Subscribe(fn func(snapshot []models.Record) error) error
}

// Dialer opens the outbound connection to a slave.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type ConnectorConfig struct {
	RetryInterval     time.Duration
	RetryMaxInterval  time.Duration
	RetryBackoffCoeff int
	PollInterval      time.Duration
	WriteTimeout      time.Duration
}

func (cfg ConnectorConfig) withDefaults() ConnectorConfig {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return cfg
}

// Connector owns the link to one slave address and runs its lifecycle
// connecting -> streaming -> closed -> connecting for as long as ctx lives.
type Connector struct {
	addr        string
	source      SnapshotSource
	broadcaster *Broadcaster
	dialer      Dialer
	cfg         ConnectorConfig
	state       atomic.Int32
	logger      *log.Logger
}

func NewConnector(addr string, source SnapshotSource, b *Broadcaster, cfg ConnectorConfig,
	logger *log.Logger,
) *Connector {
	if logger == nil {
		logger = log.Nop()
	}
	return &Connector{
		addr:        addr,
		source:      source,
		broadcaster: b,
		dialer:      &net.Dialer{},
		cfg:         cfg.withDefaults(),
		logger:      logger.Named("replication.connector").With("slave", addr),
	}
}

// WithDialer replaces the default net.Dialer.
func (c *Connector) WithDialer(d Dialer) *Connector {
	c.dialer = d
	return c
}

func (c *Connector) Addr() string {
	return c.addr
}

func (c *Connector) State() LinkState {
	return LinkState(c.state.Load())
}

// Run blocks until ctx is canceled.
func (c *Connector) Run(ctx context.Context) {
	for ctx.Err() == nil {
		c.state.Store(int32(LinkConnecting))
		conn, err := c.connect(ctx)
		if err != nil {
			break
		}
		c.serve(ctx, newLink(c.addr, conn))
		c.state.Store(int32(LinkClosed))
	}
	c.logger.Info("shutdown replication connector")
}

func (c *Connector) connect(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	dial := func(ctx context.Context) error {
		var err error
		conn, err = c.dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return errors.Wrapf(ErrRetryable, "dial %s: %v", c.addr, err)
		}
		return nil
	}

	err := NewRetryer(dial, c.cfg.RetryInterval, c.cfg.RetryBackoffCoeff).
		WithMaxInterval(c.cfg.RetryMaxInterval).
		WithLogger(c.logger).
		Run(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ReplicationConnectsTotal.WithLabelValues(c.addr).Inc()
	c.logger.Info("connected to slave")
	return conn, nil
}

func (c *Connector) serve(ctx context.Context, l *Link) {
	defer l.conn.Close()

	err := c.source.Subscribe(func(snapshot []models.Record) error {
		frame, err := EncodeAdd(snapshot)
		if err != nil {
			return err
		}
		if err = l.write(frame, c.cfg.WriteTimeout); err != nil {
			return errors.Wrap(err, "failed to send seed")
		}
		c.broadcaster.Join(l)
		c.logger.Info("seeded slave with %d records", len(snapshot))
		return nil
	})
	if err != nil {
		c.logger.Warn("%v", err)
		return
	}
	c.state.Store(int32(LinkStreaming))

	c.watch(ctx, l)
	c.broadcaster.Leave(l)
}

// watch returns once the slave is gone, a broadcast to it failed, or ctx is done.
func (c *Connector) watch(ctx context.Context, l *Link) {
	t := time.NewTicker(c.cfg.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Broken():
			c.logger.Warn("link broken: %v", l.brokenErr)
			return
		case <-t.C:
			closed, err := l.peerClosed(pollTimeout)
			if closed {
				c.logger.Info("slave closed the connection: %v", err)
				// the broadcaster skips a broken link until Leave runs
				l.markBroken(errors.Wrap(err, "slave closed the connection"))
				return
			}
		}
	}
}

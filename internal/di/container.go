package di

import (
	"github.com/pkg/errors"

	"github.com/alpacahq/recordstore/replication"
	"github.com/alpacahq/recordstore/store"
	"github.com/alpacahq/recordstore/utils"
	"github.com/alpacahq/recordstore/utils/log"
)

// ErrUnknownRole is returned when the configured role is neither master nor slave.
var ErrUnknownRole = errors.New("unknown role")

// Container builds the components of a node lazily and hands out the same
// instance on every call.
type Container struct {
	cfg          *utils.Config
	logger       *log.Logger
	ids          store.IDAllocator
	connTable    replication.ConnTable
	broadcaster  *replication.Broadcaster
	masterStore  *store.MasterStore
	replicaStore *store.ReplicaStore
	connectors   []*replication.Connector
	receiver     *replication.Receiver
	monitor      *replication.Monitor
}

func NewContainer(cfg *utils.Config) *Container {
	return &Container{cfg: cfg}
}

// WithLogger overrides the process-wide logger.
func (c *Container) WithLogger(l *log.Logger) *Container {
	c.logger = l
	return c
}

// WithIDAllocator overrides the default incrementer of the master store.
func (c *Container) WithIDAllocator(ids store.IDAllocator) *Container {
	c.ids = ids
	return c
}

// WithConnTable overrides the host connection table read by the monitor.
func (c *Container) WithConnTable(t replication.ConnTable) *Container {
	c.connTable = t
	return c
}

func (c *Container) GetConfig() *utils.Config {
	return c.cfg
}

func (c *Container) GetLogger() *log.Logger {
	if c.logger != nil {
		return c.logger
	}
	c.logger = log.Default()
	c.logger.SetLevel(c.cfg.LogLevel)
	return c.logger
}

func (c *Container) GetIDAllocator() store.IDAllocator {
	if c.ids != nil {
		return c.ids
	}
	c.ids = store.NewIncrementer(0)
	return c.ids
}

// GetService returns the store for the configured role.
func (c *Container) GetService() (store.Service, error) {
	switch c.cfg.Role {
	case utils.RoleMaster:
		return c.GetMasterStore()
	case utils.RoleSlave:
		return c.GetReplicaStore(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownRole, "%q", c.cfg.Role)
	}
}

package di

import (
	"github.com/pkg/errors"

	"github.com/alpacahq/recordstore/replication"
	"github.com/alpacahq/recordstore/store"
)

func (c *Container) GetBroadcaster() *replication.Broadcaster {
	if c.broadcaster != nil {
		return c.broadcaster
	}
	c.broadcaster = replication.NewBroadcaster(c.cfg.Replication.WriteTimeout, c.GetLogger())
	return c.broadcaster
}

// GetMasterStore builds the master store and restores its snapshot.
func (c *Container) GetMasterStore() (*store.MasterStore, error) {
	if c.masterStore != nil {
		return c.masterStore, nil
	}

	var b store.Broadcaster = store.NopBroadcaster{}
	if len(c.cfg.Slaves) > 0 {
		b = c.GetBroadcaster()
	}
	s, err := store.NewMasterStore(c.cfg.DataPath, c.GetIDAllocator(), b, c.GetLogger())
	if err != nil {
		return nil, err
	}
	if err = s.Load(); err != nil {
		return nil, errors.Wrap(err, "failed to restore the master store")
	}
	c.masterStore = s
	return c.masterStore, nil
}

func (c *Container) GetReplicaStore() *store.ReplicaStore {
	if c.replicaStore != nil {
		return c.replicaStore
	}
	c.replicaStore = store.NewReplicaStore(c.GetLogger())
	return c.replicaStore
}

// GetConnectors returns one connector per configured slave. The master store
// is restored first so that the first seed carries the persisted records.
func (c *Container) GetConnectors() ([]*replication.Connector, error) {
	if c.connectors != nil {
		return c.connectors, nil
	}
	master, err := c.GetMasterStore()
	if err != nil {
		return nil, err
	}

	r := c.cfg.Replication
	cfg := replication.ConnectorConfig{
		RetryInterval:     r.RetryInterval,
		RetryMaxInterval:  r.RetryMaxInterval,
		RetryBackoffCoeff: r.RetryBackoffCoeff,
		PollInterval:      r.PollInterval,
		WriteTimeout:      r.WriteTimeout,
	}
	connectors := make([]*replication.Connector, 0, len(c.cfg.Slaves))
	for _, addr := range c.cfg.Slaves {
		connectors = append(connectors,
			replication.NewConnector(addr, master, c.GetBroadcaster(), cfg, c.GetLogger()))
	}
	c.connectors = connectors
	return c.connectors, nil
}

func (c *Container) GetReceiver() *replication.Receiver {
	if c.receiver != nil {
		return c.receiver
	}
	r := c.cfg.Replication
	c.receiver = replication.NewReceiver(c.cfg.ListenAddress, c.GetReplicaStore(),
		replication.ReceiverConfig{
			RetryInterval:     r.RetryInterval,
			RetryMaxInterval:  r.RetryMaxInterval,
			RetryBackoffCoeff: r.RetryBackoffCoeff,
		}, c.GetLogger())
	return c.receiver
}

func (c *Container) GetMonitor() *replication.Monitor {
	if c.monitor != nil {
		return c.monitor
	}
	c.monitor = replication.NewMonitor(c.GetReceiver(), c.connTable,
		c.cfg.Replication.MonitorInterval, c.GetLogger())
	return c.monitor
}

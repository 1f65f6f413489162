package di

import (
	"context"
	"sync"

	"github.com/alpacahq/recordstore/utils"
)

// Run starts the replication side of the configured role and blocks until
// ctx is canceled and every background loop has returned.
func (c *Container) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	logger := c.GetLogger()

	switch c.cfg.Role {
	case utils.RoleMaster:
		connectors, err := c.GetConnectors()
		if err != nil {
			return err
		}
		for _, conn := range connectors {
			conn := conn
			wg.Add(1)
			go func() {
				defer wg.Done()
				conn.Run(ctx)
			}()
		}
		logger.Info("master started with %d slave(s)", len(connectors))
	case utils.RoleSlave:
		receiver, monitor := c.GetReceiver(), c.GetMonitor()
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := receiver.Run(ctx); err != nil {
				logger.Error("replication receiver stopped: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			monitor.Run(ctx)
		}()
		logger.Info("slave started on %s", c.cfg.ListenAddress)
	default:
		_, err := c.GetService()
		return err
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

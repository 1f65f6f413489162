package replication

import (
	"context"
	"net"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/alpacahq/recordstore/utils/log"
)

// StateEstablished is the only TCP state the monitor considers healthy.
const StateEstablished = "ESTABLISHED"

const defaultMonitorInterval = time.Second

// ConnTable looks up a TCP connection in the host's connection table.
type ConnTable interface {
	// State returns the TCP state (e.g. "ESTABLISHED", "CLOSE_WAIT") of the
	// local/remote pair. found is false when the pair is not in the table.
	State(ctx context.Context, local, remote net.Addr) (state string, found bool, err error)
}

// ConnTableFunc adapts a function to ConnTable.
type ConnTableFunc func(ctx context.Context, local, remote net.Addr) (string, bool, error)

func (f ConnTableFunc) State(ctx context.Context, local, remote net.Addr) (string, bool, error) {
	return f(ctx, local, remote)
}

// HostConnTable reads the operating system's TCP table through gopsutil.
type HostConnTable struct{}

func (HostConnTable) State(ctx context.Context, local, remote net.Addr) (string, bool, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return "", false, err
	}
	for _, c := range conns {
		if addrEqual(c.Laddr, local) && addrEqual(c.Raddr, remote) {
			return c.Status, true, nil
		}
	}
	return "", false, nil
}

func addrEqual(a gnet.Addr, b net.Addr) bool {
	tcp, ok := b.(*net.TCPAddr)
	if !ok {
		return false
	}
	// net.IP.Equal treats an IPv4 address and its IPv4-mapped IPv6 form as equal
	return a.Port == uint32(tcp.Port) && net.ParseIP(a.IP).Equal(tcp.IP)
}

// Monitor periodically checks the receiver's master connection in the host
// connection table and forces a full reinitialization when the entry is gone
// or has left the ESTABLISHED state.
type Monitor struct {
	receiver *Receiver
	table    ConnTable
	interval time.Duration
	logger   *log.Logger
}

func NewMonitor(r *Receiver, table ConnTable, interval time.Duration, logger *log.Logger) *Monitor {
	if table == nil {
		table = HostConnTable{}
	}
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Monitor{
		receiver: r,
		table:    table,
		interval: interval,
		logger:   logger.Named("replication.monitor"),
	}
}

// Run blocks until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}

// Check inspects the active connection once.
func (m *Monitor) Check(ctx context.Context) {
	sess := m.receiver.active()
	if sess == nil {
		return
	}
	local, remote, ok := sess.endpoints()
	if !ok {
		// still waiting for the master
		return
	}

	state, found, err := m.table.State(ctx, local, remote)
	switch {
	case err != nil:
		// without a connection table, fall back on the read loop having stopped
		if sess.streamEnded() {
			m.receiver.reinit(sess, "stream ended and connection table unavailable: "+err.Error())
			return
		}
		m.logger.Warn("failed to read the connection table: %v", err)
	case !found:
		m.receiver.reinit(sess, "connection "+local.String()+" <- "+remote.String()+" not found")
	case state != StateEstablished:
		m.receiver.reinit(sess, "connection state is "+state)
	}
}

package replication

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// LinkState is the lifecycle of a master-side connector.
type LinkState int32

const (
	LinkConnecting LinkState = iota
	LinkStreaming
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkConnecting:
		return "connecting"
	case LinkStreaming:
		return "streaming"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Link is the master's outbound connection to one slave. The master only
// writes to it; reads are used to detect that the peer went away.
type Link struct {
	addr string
	conn net.Conn

	brokenOnce sync.Once
	broken     chan struct{}
	brokenErr  error

	pollBuf [1]byte
}

func newLink(addr string, conn net.Conn) *Link {
	return &Link{
		addr:   addr,
		conn:   conn,
		broken: make(chan struct{}),
	}
}

// Addr is the configured slave address.
func (l *Link) Addr() string {
	return l.addr
}

func (l *Link) write(frame []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return errors.Wrap(err, "failed to set write deadline")
		}
	}
	_, err := l.conn.Write(frame)
	return err
}

// markBroken records the first write failure and wakes the owning connector.
func (l *Link) markBroken(err error) {
	l.brokenOnce.Do(func() {
		l.brokenErr = err
		close(l.broken)
	})
}

// Broken is closed once a write on the link failed.
func (l *Link) Broken() <-chan struct{} {
	return l.broken
}

func (l *Link) isBroken() bool {
	select {
	case <-l.broken:
		return true
	default:
		return false
	}
}

// peerClosed waits at most timeout for the connection to become readable.
// Readable with no data (EOF) or a reset means the slave is gone; a timeout
// means the connection is still up. Stray bytes from the slave are dropped.
func (l *Link) peerClosed(timeout time.Duration) (bool, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return true, err
	}
	n, err := l.conn.Read(l.pollBuf[:])
	if n > 0 || err == nil {
		return false, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false, nil
	}
	return true, err
}

package replication

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alpacahq/recordstore/models"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err2 := ln.Accept()
		if err2 == nil {
			accepted <- conn
		}
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	require.Nil(t, err)
	select {
	case server = <-accepted:
	case <-time.After(waitFor):
		t.Fatal("accept timed out")
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// readFrame reads one frame from conn or fails the test.
func readFrame(t *testing.T, fr *FrameReader, conn net.Conn) Frame {
	t.Helper()
	require.Nil(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	f, err := fr.ReadFrame()
	require.Nil(t, err)
	return f
}

// staticSource is a SnapshotSource over a record set the test controls.
type staticSource struct {
	mu      sync.Mutex
	records []models.Record
}

func (s *staticSource) set(records ...models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}

func (s *staticSource) Subscribe(fn func(snapshot []models.Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(append([]models.Record{}, s.records...))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	addr := ln.Addr().String()
	require.Nil(t, ln.Close())
	return addr
}

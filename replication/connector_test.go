package replication

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/recordstore/models"
)

var testConnectorConfig = ConnectorConfig{
	RetryInterval:     10 * time.Millisecond,
	RetryMaxInterval:  50 * time.Millisecond,
	RetryBackoffCoeff: 2,
	PollInterval:      10 * time.Millisecond,
	WriteTimeout:      time.Second,
}

func acceptOne(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	select {
	case conn := <-accepted:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(waitFor):
		t.Fatal("the connector did not connect")
		return nil
	}
}

func TestConnector_SeedThenStream(t *testing.T) {
	t.Parallel()

	// --- given ---
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()
	b := NewBroadcaster(time.Second, nil)
	c := NewConnector(ln.Addr().String(), &staticSource{records: []models.Record{alice}}, b,
		testConnectorConfig, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- when ---
	go c.Run(ctx)
	conn := acceptOne(t, ln)
	fr := NewFrameReader(conn)

	// --- then ---
	seed := readFrame(t, fr, conn)
	assert.Equal(t, Frame{Action: ActionAdd, Records: []models.Record{alice}}, seed)
	assert.Eventually(t, func() bool { return b.Len() == 1 && c.State() == LinkStreaming }, waitFor, tick)

	b.BroadcastDelete(alice)
	f := readFrame(t, fr, conn)
	assert.Equal(t, Frame{Action: ActionDelete, Records: []models.Record{alice}}, f)
}

func TestConnector_RetriesUntilSlaveListens(t *testing.T) {
	t.Parallel()

	// --- given ---
	addr := freeAddr(t) // nothing listens here yet
	b := NewBroadcaster(time.Second, nil)
	c := NewConnector(addr, &staticSource{}, b, testConnectorConfig, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, LinkConnecting, c.State())

	// --- when ---
	ln, err := net.Listen("tcp", addr)
	require.Nil(t, err)
	defer ln.Close()
	conn := acceptOne(t, ln)

	// --- then ---
	seed := readFrame(t, NewFrameReader(conn), conn)
	assert.Equal(t, ActionAdd, seed.Action)
	assert.Empty(t, seed.Records)
}

func TestConnector_PeerCloseLeavesAndReconnects(t *testing.T) {
	t.Parallel()

	// --- given ---
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()
	source := &staticSource{records: []models.Record{alice}}
	b := NewBroadcaster(time.Second, nil)
	c := NewConnector(ln.Addr().String(), source, b, testConnectorConfig, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	first := acceptOne(t, ln)
	readFrame(t, NewFrameReader(first), first)
	require.Eventually(t, func() bool { return b.Len() == 1 }, waitFor, tick)

	// --- when ---
	source.set(alice, bob)
	require.Nil(t, first.Close())

	// --- then ---
	// the dead link leaves the broadcast set and a fresh seed goes out on a new connection
	second := acceptOne(t, ln)
	seed := readFrame(t, NewFrameReader(second), second)
	assert.Equal(t, []models.Record{alice, bob}, seed.Records)
	assert.Eventually(t, func() bool { return b.Len() == 1 && c.State() == LinkStreaming }, waitFor, tick)
}

func TestConnector_WatchMarksLinkBrokenWhenPeerCloses(t *testing.T) {
	t.Parallel()

	// --- given ---
	client, server := tcpPair(t)
	l := newLink("slave", server)
	c := NewConnector("slave", &staticSource{}, NewBroadcaster(time.Second, nil), testConnectorConfig, nil)

	// --- when ---
	require.Nil(t, client.Close())
	done := make(chan struct{})
	go func() {
		c.watch(context.Background(), l)
		close(done)
	}()

	// --- then ---
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("watch did not notice the closed peer")
	}
	// broadcasts skip the link even before the connector calls Leave
	assert.True(t, l.isBroken())
	assert.NotNil(t, l.brokenErr)
}

func TestConnector_StopsOnCancel(t *testing.T) {
	t.Parallel()

	// --- given ---
	c := NewConnector(freeAddr(t), &staticSource{}, NewBroadcaster(time.Second, nil), testConnectorConfig, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	// --- when ---
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	// --- then ---
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("connector did not stop")
	}
}

package replication

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/store"
)

var carol = models.Record{ID: 2, FirstName: "Carol", LastName: "Danvers", Age: 29}

// fakeTable is a connection table the test drives by hand.
type fakeTable struct {
	mu    sync.Mutex
	state string
	found bool
	err   error
}

func newFakeTable() *fakeTable {
	return &fakeTable{state: StateEstablished, found: true}
}

func (f *fakeTable) set(state string, found bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.found, f.err = state, found, err
}

func (f *fakeTable) State(context.Context, net.Addr, net.Addr) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.found, f.err
}

var testReceiverConfig = ReceiverConfig{
	RetryInterval:     10 * time.Millisecond,
	RetryMaxInterval:  50 * time.Millisecond,
	RetryBackoffCoeff: 2,
}

// startReceiver runs a receiver on a free loopback port until the test ends.
func startReceiver(t *testing.T, replica *store.ReplicaStore) *Receiver {
	t.Helper()
	r := NewReceiver("127.0.0.1:0", replica, testReceiverConfig, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool {
		_, port, err := net.SplitHostPort(r.Addr())
		return err == nil && port != "0" && r.State() == ReceiverListening
	}, waitFor, tick)
	return r
}

// dialReceiver connects as the master would, retrying while the receiver re-listens.
func dialReceiver(t *testing.T, r *Receiver) net.Conn {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, err = net.Dial("tcp", r.Addr())
		return err == nil
	}, waitFor, tick)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn net.Conn, encode func() ([]byte, error)) {
	t.Helper()
	frame, err := encode()
	require.Nil(t, err)
	_, err = conn.Write(frame)
	require.Nil(t, err)
}

func addFrame(records ...models.Record) func() ([]byte, error) {
	return func() ([]byte, error) { return EncodeAdd(records) }
}

func deleteFrame(record models.Record) func() ([]byte, error) {
	return func() ([]byte, error) { return EncodeDelete(record) }
}

func recordsEqual(replica *store.ReplicaStore, want ...models.Record) func() bool {
	return func() bool {
		got := replica.Records()
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}
}

func TestReceiver_SeedReplacesLocalState(t *testing.T) {
	t.Parallel()

	// --- given ---
	replica := store.NewReplicaStore(nil)
	replica.Replace([]models.Record{bob, carol})
	r := startReceiver(t, replica)
	conn := dialReceiver(t, r)

	// --- when ---
	send(t, conn, addFrame(alice))

	// --- then ---
	assert.Eventually(t, recordsEqual(replica, alice), waitFor, tick)
	assert.Eventually(t, func() bool { return r.State() == ReceiverStreaming }, waitFor, tick)
}

func TestReceiver_AppliesFramesInOrder(t *testing.T) {
	t.Parallel()

	// --- given ---
	replica := store.NewReplicaStore(nil)
	r := startReceiver(t, replica)
	conn := dialReceiver(t, r)
	send(t, conn, addFrame())

	// --- when ---
	send(t, conn, addFrame(alice))
	send(t, conn, addFrame(bob))
	send(t, conn, deleteFrame(alice))

	// --- then ---
	assert.Eventually(t, recordsEqual(replica, bob), waitFor, tick)
}

func TestReceiver_DeleteRemovesFirstEqualOnly(t *testing.T) {
	t.Parallel()

	// --- given ---
	replica := store.NewReplicaStore(nil)
	r := startReceiver(t, replica)
	conn := dialReceiver(t, r)
	send(t, conn, addFrame(alice, bob, alice))

	// --- when ---
	send(t, conn, deleteFrame(alice))

	// --- then ---
	assert.Eventually(t, recordsEqual(replica, bob, alice), waitFor, tick)
}

func TestMonitor_ReinitializesOnUnhealthyConnection(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		state string
		found bool
	}{
		"connection left the ESTABLISHED state": {state: "CLOSE_WAIT", found: true},
		"connection missing from the table":     {state: "", found: false},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// --- given ---
			replica := store.NewReplicaStore(nil)
			r := startReceiver(t, replica)
			table := newFakeTable()
			m := NewMonitor(r, table, time.Hour, nil)

			first := dialReceiver(t, r)
			send(t, first, addFrame(alice, bob))
			require.Eventually(t, recordsEqual(replica, alice, bob), waitFor, tick)
			require.Eventually(t, func() bool { return r.State() == ReceiverStreaming }, waitFor, tick)
			m.Check(context.Background())
			require.Equal(t, ReceiverStreaming, r.State())

			// --- when ---
			table.set(tt.state, tt.found, nil)
			m.Check(context.Background())

			// --- then ---
			// the old connection is gone and the stale records are still readable
			require.Eventually(t, func() bool { return r.State() == ReceiverListening }, waitFor, tick)
			got, ok := replica.SearchByID(bob.ID)
			assert.True(t, ok)
			assert.Equal(t, bob, got)

			// a fresh seed on the next connection replaces the whole state
			table.set(StateEstablished, true, nil)
			second := dialReceiver(t, r)
			send(t, second, addFrame(carol))
			assert.Eventually(t, recordsEqual(replica, carol), waitFor, tick)
		})
	}
}

func TestMonitor_TableErrorFallsBackOnStream(t *testing.T) {
	t.Parallel()

	// --- given ---
	replica := store.NewReplicaStore(nil)
	r := startReceiver(t, replica)
	table := newFakeTable()
	table.set("", false, errors.New("no connection table on this platform"))
	m := NewMonitor(r, table, time.Hour, nil)

	conn := dialReceiver(t, r)
	send(t, conn, addFrame(alice))
	require.Eventually(t, func() bool { return r.State() == ReceiverStreaming }, waitFor, tick)

	// --- when ---
	m.Check(context.Background())

	// --- then ---
	// the stream is still being read, so nothing happens
	assert.Equal(t, ReceiverStreaming, r.State())

	// --- when ---
	require.Nil(t, conn.Close())
	require.Eventually(t, func() bool {
		sess := r.active()
		return sess != nil && sess.streamEnded()
	}, waitFor, tick)
	m.Check(context.Background())

	// --- then ---
	assert.Eventually(t, func() bool { return r.State() == ReceiverListening }, waitFor, tick)
}

func TestMonitor_IgnoresReceiverWithoutConnection(t *testing.T) {
	t.Parallel()

	// --- given ---
	r := startReceiver(t, store.NewReplicaStore(nil))
	table := newFakeTable()
	table.set("", false, nil)
	m := NewMonitor(r, table, time.Hour, nil)
	require.Eventually(t, func() bool { return r.active() != nil }, waitFor, tick)

	// --- when ---
	m.Check(context.Background())

	// --- then ---
	assert.Equal(t, ReceiverListening, r.State())
	assert.NotNil(t, r.active())
}

func TestMonitor_Run(t *testing.T) {
	t.Parallel()

	// --- given ---
	replica := store.NewReplicaStore(nil)
	r := startReceiver(t, replica)
	table := newFakeTable()
	m := NewMonitor(r, table, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	conn := dialReceiver(t, r)
	send(t, conn, addFrame(alice))
	require.Eventually(t, recordsEqual(replica, alice), waitFor, tick)

	// --- when ---
	table.set("FIN_WAIT2", true, nil)

	// --- then ---
	assert.Eventually(t, func() bool { return r.State() == ReceiverListening }, waitFor, tick)
}

package replication_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpacahq/recordstore/models"
	"github.com/alpacahq/recordstore/replication"
)

var (
	alice = models.Record{ID: 0, FirstName: "Alice", LastName: "Liddell", Age: 7}
	bob   = models.Record{ID: 1, FirstName: "Bob", LastName: "Marley", Age: 36}
)

func TestEncodeFrames_TagByte(t *testing.T) {
	t.Parallel()

	add, err := replication.EncodeAdd([]models.Record{alice})
	require.Nil(t, err)
	del, err := replication.EncodeDelete(alice)
	require.Nil(t, err)

	assert.Equal(t, byte(0x00), add[0])
	assert.Equal(t, byte(0x01), del[0])
}

func TestFrameReader_BackToBackFrames(t *testing.T) {
	t.Parallel()

	// --- given ---
	var stream bytes.Buffer
	for _, encode := range []func() ([]byte, error){
		func() ([]byte, error) { return replication.EncodeAdd(nil) },
		func() ([]byte, error) { return replication.EncodeAdd([]models.Record{alice, bob}) },
		func() ([]byte, error) { return replication.EncodeDelete(alice) },
	} {
		frame, err := encode()
		require.Nil(t, err)
		stream.Write(frame)
	}
	fr := replication.NewFrameReader(&stream)

	// --- when / then ---
	f, err := fr.ReadFrame()
	require.Nil(t, err)
	assert.Equal(t, replication.ActionAdd, f.Action)
	assert.Empty(t, f.Records)

	f, err = fr.ReadFrame()
	require.Nil(t, err)
	assert.Equal(t, replication.ActionAdd, f.Action)
	assert.Equal(t, []models.Record{alice, bob}, f.Records)

	f, err = fr.ReadFrame()
	require.Nil(t, err)
	assert.Equal(t, replication.ActionDelete, f.Action)
	assert.Equal(t, []models.Record{alice}, f.Records)

	_, err = fr.ReadFrame()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReader_UnknownAction(t *testing.T) {
	t.Parallel()

	fr := replication.NewFrameReader(bytes.NewReader([]byte{0x7f}))

	_, err := fr.ReadFrame()

	assert.True(t, errors.Is(err, replication.ErrUnknownAction))
}

func TestFrameReader_TruncatedPayload(t *testing.T) {
	t.Parallel()

	frame, err := replication.EncodeAdd([]models.Record{alice, bob})
	require.Nil(t, err)
	fr := replication.NewFrameReader(bytes.NewReader(frame[:len(frame)-3]))

	_, err = fr.ReadFrame()

	assert.NotNil(t, err)
}

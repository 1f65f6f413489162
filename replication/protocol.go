package replication

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/alpacahq/recordstore/models"
)

// Action is the one-byte tag in front of every frame.
type Action byte

const (
	// ActionAdd carries a msgpack array of records. The seed is an Add frame too.
	ActionAdd Action = 0x00
	// ActionDelete carries a single msgpack record.
	ActionDelete Action = 0x01
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ErrUnknownAction is returned by ReadFrame for a tag it does not understand.
var ErrUnknownAction = errors.New("unknown replication action")

// Frame is a decoded mutation. Delete frames hold exactly one record.
type Frame struct {
	Action  Action
	Records []models.Record
}

// EncodeAdd builds an Add frame for records.
func EncodeAdd(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	return encodeFrame(ActionAdd, records)
}

// EncodeDelete builds a Delete frame for record.
func EncodeDelete(record models.Record) ([]byte, error) {
	return encodeFrame(ActionDelete, &record)
}

func encodeFrame(a Action, payload interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(a))
	if err := msgpack.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s frame", a)
	}
	return buf.Bytes(), nil
}

// FrameReader decodes frames streamed back to back. The msgpack payload is
// self-delimiting so no length prefix is needed.
type FrameReader struct {
	r   *bufio.Reader
	dec *msgpack.Decoder
}

func NewFrameReader(r io.Reader) *FrameReader {
	br := bufio.NewReader(r)
	// the decoder reads straight from br since it already is a ByteScanner
	return &FrameReader{r: br, dec: msgpack.NewDecoder(br)}
}

// ReadFrame blocks until a whole frame is available.
func (fr *FrameReader) ReadFrame() (Frame, error) {
	tag, err := fr.r.ReadByte()
	if err != nil {
		return Frame{}, err
	}

	switch a := Action(tag); a {
	case ActionAdd:
		var records []models.Record
		if err = fr.dec.Decode(&records); err != nil {
			return Frame{}, errors.Wrap(err, "failed to decode add frame")
		}
		return Frame{Action: a, Records: records}, nil
	case ActionDelete:
		var record models.Record
		if err = fr.dec.Decode(&record); err != nil {
			return Frame{}, errors.Wrap(err, "failed to decode delete frame")
		}
		return Frame{Action: a, Records: []models.Record{record}}, nil
	default:
		return Frame{}, errors.Wrapf(ErrUnknownAction, "tag=0x%02x", tag)
	}
}

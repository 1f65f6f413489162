package store

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/alpacahq/recordstore/models"
)

const compressedSuffix = ".gz"

// snapshot is the persisted image of a master store.
type snapshot struct {
	IDAlgorithm string          `yaml:"id_algorithm"`
	CurrentID   int             `yaml:"current_id"`
	Records     []models.Record `yaml:"records"`
}

// writeSnapshot overwrites path with s and returns the number of bytes written.
// The file is replaced atomically via rename.
func writeSnapshot(path string, s *snapshot) (int, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return 0, errors.Wrap(err, "failed to marshal snapshot")
	}

	if strings.HasSuffix(path, compressedSuffix) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err = zw.Write(data); err != nil {
			return 0, errors.Wrap(err, "failed to compress snapshot")
		}
		if err = zw.Close(); err != nil {
			return 0, errors.Wrap(err, "failed to compress snapshot")
		}
		data = buf.Bytes()
	}

	const perm = 0o644
	tmp, err := ioutil.TempFile(filepath.Dir(path), filepath.Base(path)+".tmp-")
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create temporary snapshot file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return 0, errors.Wrapf(err, "failed to write snapshot %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return 0, errors.Wrapf(err, "failed to close snapshot %s", tmp.Name())
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return 0, errors.Wrapf(err, "failed to chmod snapshot %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, errors.Wrapf(err, "failed to replace snapshot %s", path)
	}
	return len(data), nil
}

// readSnapshot loads path. found is false when the file does not exist.
func readSnapshot(path string) (s *snapshot, found bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to open snapshot %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, compressedSuffix) {
		zr, err2 := gzip.NewReader(f)
		if err2 != nil {
			return nil, true, errors.Wrapf(err2, "failed to decompress snapshot %s", path)
		}
		defer zr.Close()
		r = zr
	}

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, true, errors.Wrapf(err, "failed to read snapshot %s", path)
	}

	s = &snapshot{}
	if err = yaml.UnmarshalStrict(data, s); err != nil {
		return nil, true, errors.Wrapf(err, "malformed snapshot %s", path)
	}
	return s, true, nil
}

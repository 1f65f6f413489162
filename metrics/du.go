package metrics

import (
	"context"
	"os"
	"time"

	"github.com/alpacahq/recordstore/utils/log"
)

// Setter is an interface for prometheus metrics to improve unit-testability.
type Setter interface {
	Set(m float64)
}

// StartSnapshotSizeMonitor reports the size of the snapshot file at each interval
// until ctx is canceled. A snapshot that has not been written yet reports 0.
func StartSnapshotSizeMonitor(ctx context.Context, s Setter, path string, interval time.Duration) {
	s.Set(float64(fileSize(path)))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Set(float64(fileSize(path)))
		}
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		log.Error("failed to stat snapshot %s for monitoring: %v", path, err)
		return 0
	}
	return info.Size()
}

package catalog

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// DiskUsage sums the sizes of regular files under root
func DiskUsage(ctx context.Context, root string) (uint64, error) {
	var total atomic.Uint64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip unreadable entries
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		total.Add(uint64(info.Size()))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total.Load(), nil
}

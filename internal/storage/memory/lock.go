package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"vfms/internal/core"
)

const (
	lockRetry = 10 * time.Millisecond
	lockWait  = 5 * time.Second
	// A lock older than this belongs to a process that died mid-write.
	lockStale = 30 * time.Second
)

// lockFile takes the advisory lock every process sharing the snapshot at path
// honours before rewriting it. The returned func releases it.
func lockFile(ctx context.Context, path string) (func(), error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create snapshot dir: %w", core.ErrStoreWrite, err)
	}

	deadline := time.Now().Add(lockWait)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: lock snapshot: %w", core.ErrStoreWrite, err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStale {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: snapshot %s stayed locked for %s", core.ErrStoreWrite, path, lockWait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

// fileStamp identifies one version of the snapshot file.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func stampOf(info fs.FileInfo) fileStamp {
	return fileStamp{modTime: info.ModTime(), size: info.Size()}
}

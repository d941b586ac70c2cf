package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// writeRetryMaxElapsed bounds how long Write retries a transient OS error
// before giving up, mirroring the teacher's short bounded backoff around
// its own store's transient-connection retries.
const writeRetryMaxElapsed = 2 * time.Second

// FS is the real-filesystem Adapter. Writes go through a temp-file-then-
// rename so a reader never observes a partially-written file (spec.md §5
// "best-effort atomicity, no multi-process guarantee").
type FS struct {
	logger *slog.Logger
}

// NewFS builds a filesystem adapter. A nil logger uses slog.Default().
func NewFS(logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{logger: logger}
}

func (f *FS) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := f.retry(ctx, func() error {
		b, err := os.ReadFile(path) // #nosec G304 -- path is caller-controlled collection file
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return backoff.Permanent(fmt.Errorf("storage: %s: %w", path, ErrNotExist))
			}
			return err
		}
		data = b
		return nil
	})
	return data, err
}

// Write atomically replaces path's contents: it writes to a sibling temp
// file in the same directory, then renames over the destination. Rename
// within the same filesystem is atomic on every platform this engine
// targets; across a filesystem boundary (EXDEV) it falls back to a copy.
func (f *FS) Write(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: creating directory %s: %w", dir, err)
	}

	return f.retry(ctx, func() error {
		tmp, err := os.CreateTemp(dir, ".inkwell-*.tmp")
		if err != nil {
			return err
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath) // no-op once rename succeeds

		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		if err := moveFile(tmpPath, path); err != nil {
			return err
		}
		return nil
	})
}

func (f *FS) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// retry wraps op in a short bounded exponential backoff, retrying only on
// errors that look like transient OS hiccups (EAGAIN/EINTR-class) rather
// than on backoff.Permanent-wrapped terminal errors.
func (f *FS) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = writeRetryMaxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

// isRetryableError reports whether err looks like a transient OS-level
// hiccup worth retrying (e.g. EINTR, EAGAIN, EBUSY under concurrent
// readers), as opposed to a permanent failure like permission denied.
func isRetryableError(err error) bool {
	return errors.Is(err, syscall.EINTR) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY)
}

// moveFile renames src to dst, falling back to copy+remove when rename
// fails with EXDEV (crossing a filesystem boundary).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if isEXDEV(err) {
		if err := copyFile(src, dst); err != nil {
			return err
		}
		return os.Remove(src)
	} else {
		return err
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- src is our own temp file
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func isEXDEV(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

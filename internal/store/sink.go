package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when a file sink cannot take its lock within the timeout.
var ErrLocked = errors.New("sink is locked by another writer")

const lockRetryDelay = 50 * time.Millisecond

// Sink is a destination the rendered collection is written to in full.
type Sink interface {
	Write(ctx context.Context, data []byte) error
	Location() string
}

// FileSink writes to a local path under an exclusive flock, via temp file and rename.
type FileSink struct {
	path        string
	lockTimeout time.Duration
}

// NewFileSink builds a FileSink. A non-positive timeout means a single lock attempt.
func NewFileSink(path string, lockTimeout time.Duration) *FileSink {
	return &FileSink{path: path, lockTimeout: lockTimeout}
}

func (s *FileSink) Location() string { return s.path }

// Write replaces the file at the sink's path with data.
func (s *FileSink) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	lock := flock.New(s.path + ".lock")
	if err := s.acquire(ctx, lock); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", s.path, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) acquire(ctx context.Context, lock *flock.Flock) error {
	if s.lockTimeout <= 0 {
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock %s: %w", s.path, err)
		}
		if !ok {
			return fmt.Errorf("%s: %w", s.path, ErrLocked)
		}
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s: %w", s.path, ErrLocked)
		}
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", s.path, ErrLocked)
	}
	return nil
}

// SinkOptions carries what OpenSink needs to build remote sinks.
type SinkOptions struct {
	LockTimeout time.Duration
	S3          S3Options
}

// OpenSink returns a sink for location: s3://bucket/key or a local path.
func OpenSink(ctx context.Context, location string, opts SinkOptions) (Sink, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("sink location is empty")
	}

	if strings.HasPrefix(strings.ToLower(location), "s3://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("parse sink location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 sink location %q needs bucket and key", location)
		}
		return NewS3Sink(ctx, u.Host, key, opts.S3)
	}

	return NewFileSink(location, opts.LockTimeout), nil
}

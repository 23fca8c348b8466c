package common

import (
	"fmt"
	"os"
	"path/filepath"
)

// WithTemporaryBytes writes payload to a scratch file and invokes fn with its
// path. The file is removed on every exit path, including a panic inside fn,
// so repeated invocations sharing one execution environment cannot exhaust
// the disk.
func WithTemporaryBytes(dir, pattern string, payload []byte, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		_ = os.Remove(path)
	}()

	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return fn(path)
}

// WithTemporaryDir creates a scratch directory, hands it to fn, and removes
// it with everything inside on every exit path.
func WithTemporaryDir(dir, pattern string, fn func(path string) error) error {
	tmp, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tmp)
	}()
	return fn(filepath.Clean(tmp))
}

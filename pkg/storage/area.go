package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Area is one user's directory.
type Area struct {
	dir string
	cfg *Config
}

// Dir returns the area directory.
func (a *Area) Dir() string {
	return a.dir
}

// path validates name and returns its location inside the area.
func (a *Area) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	return filepath.Join(a.dir, name), nil
}

// Create starts an upload of name. Data is staged in a temporary file
// directly under the storage root and only replaces name on Commit, which
// is also when the area directory is created.
func (a *Area) Create(name string) (*Upload, error) {
	final, err := a.path(name)
	if err != nil {
		return nil, err
	}

	tmp := filepath.Join(a.cfg.Root, tempPrefix+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, a.cfg.FileMode)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &Upload{
		f:       f,
		tmp:     tmp,
		final:   final,
		limit:   a.cfg.MaxFileSize,
		dirMode: a.cfg.DirMode,
	}, nil
}

// Open opens name for reading and returns its size.
func (a *Area) Open(name string) (*os.File, int64, error) {
	p, err := a.path(name)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, 0, notFound(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, ErrNotFound
	}
	return f, info.Size(), nil
}

// Stat returns the size of name.
func (a *Area) Stat(name string) (int64, error) {
	p, err := a.path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, notFound(err)
	}
	if !info.Mode().IsRegular() {
		return 0, ErrNotFound
	}
	return info.Size(), nil
}

// Remove deletes name. A missing file, a missing area and an invalid name
// all yield ErrNotFound-class errors so repeated deletes are harmless.
func (a *Area) Remove(name string) error {
	p, err := a.path(name)
	if err != nil {
		return err
	}

	info, err := os.Lstat(p)
	if err != nil {
		return notFound(err)
	}
	if info.IsDir() {
		return ErrNotFound
	}
	if err := os.Remove(p); err != nil {
		return notFound(err)
	}
	return nil
}

// Upload is an in-progress write. Exactly one of Commit or Abort must be
// called; calling Abort after Commit is a no-op, so it can be deferred.
type Upload struct {
	f       *os.File
	tmp     string
	final   string
	limit   int64
	dirMode os.FileMode
	written int64
	done    bool
}

var _ io.Writer = (*Upload)(nil)

// Write appends p to the temporary file.
func (u *Upload) Write(p []byte) (int, error) {
	if u.done {
		return 0, ErrClosed
	}
	if u.limit > 0 && u.written+int64(len(p)) > u.limit {
		return 0, ErrTooLarge
	}
	n, err := u.f.Write(p)
	u.written += int64(n)
	return n, err
}

// Written returns the number of bytes stored so far.
func (u *Upload) Written() int64 {
	return u.written
}

// Commit flushes the data to disk, creates the area if needed and
// atomically moves the data to its final name, replacing any existing
// file.
func (u *Upload) Commit() error {
	if u.done {
		return ErrClosed
	}
	u.done = true

	if err := u.f.Sync(); err != nil {
		_ = u.f.Close()
		_ = os.Remove(u.tmp)
		return fmt.Errorf("sync upload: %w", err)
	}
	if err := u.f.Close(); err != nil {
		_ = os.Remove(u.tmp)
		return fmt.Errorf("close upload: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(u.final), u.dirMode); err != nil {
		_ = os.Remove(u.tmp)
		return fmt.Errorf("create user area: %w", err)
	}
	if err := os.Rename(u.tmp, u.final); err != nil {
		_ = os.Remove(u.tmp)
		return fmt.Errorf("commit upload: %w", err)
	}
	return nil
}

// Abort discards the temporary file.
func (u *Upload) Abort() error {
	if u.done {
		return nil
	}
	u.done = true

	cerr := u.f.Close()
	rerr := os.Remove(u.tmp)
	if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return rerr
	}
	return cerr
}

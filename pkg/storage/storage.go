// Package storage keeps each user's files in a private directory under a
// common root.
//
// Files are addressed by basename only. A name is never interpreted as a
// path: anything containing a separator, NUL, or equal to "." or ".." is
// rejected before the filesystem is touched.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Common storage errors.
var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
	ErrTooLarge    = errors.New("file exceeds size limit")
	ErrClosed      = errors.New("upload already finished")
)

// tempPrefix marks in-progress uploads. Names starting with it are not
// addressable by clients.
const tempPrefix = ".upload-"

// Config holds configuration for the storage root.
type Config struct {
	// Root is the directory holding one subdirectory per user.
	Root string

	// MaxFileSize caps a single upload in bytes. Zero means unlimited.
	MaxFileSize int64

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for stored files.
	// Default: 0644
	FileMode os.FileMode
}

// DefaultConfig returns the default configuration for root.
func DefaultConfig(root string) Config {
	return Config{
		Root:     root,
		DirMode:  0o755,
		FileMode: 0o644,
	}
}

// Storage hands out per-user areas. It holds no state besides its
// configuration and is safe for concurrent use.
type Storage struct {
	cfg Config
}

// New creates a Storage. The root is created if missing.
func New(cfg Config) (*Storage, error) {
	if cfg.Root == "" {
		return nil, errors.New("storage root is required")
	}
	if cfg.MaxFileSize < 0 {
		return nil, fmt.Errorf("invalid max file size %d", cfg.MaxFileSize)
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}

	if err := os.MkdirAll(cfg.Root, cfg.DirMode); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", cfg.Root)
	}

	return &Storage{cfg: cfg}, nil
}

// Root returns the storage root directory.
func (s *Storage) Root() string {
	return s.cfg.Root
}

// MaxFileSize returns the per-upload size limit, zero when unlimited.
func (s *Storage) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// Area returns the storage area of username. The directory is not created
// until the first upload.
func (s *Storage) Area(username string) (*Area, error) {
	if err := ValidateName(username); err != nil {
		return nil, fmt.Errorf("user area %q: %w", username, err)
	}
	return &Area{
		dir: filepath.Join(s.cfg.Root, username),
		cfg: &s.cfg,
	}, nil
}

// ValidateName checks that name is a plain basename usable inside an area.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidName
	case strings.HasPrefix(name, tempPrefix):
		return ErrInvalidName
	case filepath.Base(name) != name:
		return ErrInvalidName
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

package credentials

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore reads credentials from a line-oriented text file:
//
//	# comment
//	alice:secret
//	bob:s3cr:et
//
// Blank lines and lines starting with '#' are ignored. The secret is
// everything after the first ':'. When a username appears more than once
// the first entry wins.
//
// The file is re-read on every Lookup so edits take effect for the next
// authentication without a restart.
type FileStore struct {
	path string

	// mu serialises writers. Readers rely on writes replacing the file
	// atomically.
	mu sync.Mutex
}

// NewFileStore returns a store over path. The file does not have to exist
// yet; a missing file behaves like an empty one.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

// Lookup returns the secret for username.
func (s *FileStore) Lookup(username string) (string, bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("open credentials: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		secret string
		found  bool
	)
	err = scan(f, func(e Entry) bool {
		if e.Username == username {
			secret, found = e.Secret, true
			return false
		}
		return true
	})
	if err != nil {
		return "", false, fmt.Errorf("read credentials: %w", err)
	}
	return secret, found, nil
}

// Match compares secrets in constant time.
func (s *FileStore) Match(stored, presented string) bool {
	return Match(stored, presented)
}

// List returns every entry in file order, without duplicates.
func (s *FileStore) List() ([]Entry, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	seen := make(map[string]bool)
	err = scan(bytes.NewReader(data), func(e Entry) bool {
		if !seen[e.Username] {
			seen[e.Username] = true
			entries = append(entries, e)
		}
		return true
	})
	return entries, err
}

// Add appends a new user. Returns ErrDuplicateUser if the user exists.
func (s *FileStore) Add(username, secret string) error {
	if err := ValidateUsername(username); err != nil {
		return fmt.Errorf("%w: %q", err, username)
	}
	if err := ValidateSecret(secret); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	exists := false
	_ = scan(bytes.NewReader(data), func(e Entry) bool {
		exists = e.Username == username
		return !exists
	})
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, username)
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	data = append(data, username+":"+secret+"\n"...)
	return s.write(data)
}

// Remove deletes every entry for username, keeping comments and other
// users untouched. Returns ErrUserNotFound if there was none.
func (s *FileStore) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}

	var (
		out     bytes.Buffer
		removed bool
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if e, ok := parseLine(line); ok && e.Username == username {
			removed = true
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return s.write(out.Bytes())
}

func (s *FileStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return data, nil
}

// write replaces the file through a rename so concurrent readers see
// either the old or the new content.
func (s *FileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// scan calls fn for each entry until fn returns false.
func scan(r io.Reader, fn func(Entry) bool) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		e, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		if !fn(e) {
			return nil
		}
	}
	return sc.Err()
}

func parseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false
	}
	user, secret, ok := strings.Cut(line, ":")
	if !ok || user == "" {
		return Entry{}, false
	}
	return Entry{Username: user, Secret: secret}, true
}

package credentials

import (
	"sort"
	"sync"
)

// MemoryStore is a Store backed by a map. Used by tests and embedders that
// do not want a credential file.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore creates a store holding entries. Later duplicates
// override earlier ones.
func NewMemoryStore(entries ...Entry) *MemoryStore {
	s := &MemoryStore{secrets: make(map[string]string, len(entries))}
	for _, e := range entries {
		s.secrets[e.Username] = e.Secret
	}
	return s
}

// Lookup returns the secret for username.
func (s *MemoryStore) Lookup(username string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[username]
	return secret, ok, nil
}

// Match compares secrets in constant time.
func (s *MemoryStore) Match(stored, presented string) bool {
	return Match(stored, presented)
}

// Set adds or replaces a user.
func (s *MemoryStore) Set(username, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[username] = secret
}

// List returns all entries sorted by username.
func (s *MemoryStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.secrets))
	for u, secret := range s.secrets {
		entries = append(entries, Entry{Username: u, Secret: secret})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	return entries
}

package credentials

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "id_passwd.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ============================================================================
// FileStore lookup
// ============================================================================

func TestFileStore_Lookup(t *testing.T) {
	path := writeFile(t, "# users\n\nalice:wonderland\r\nbob:se:cret\n  carol:x  \nnocolon\nalice:shadowed\n")
	s := NewFileStore(path)

	tests := []struct {
		user   string
		secret string
		found  bool
	}{
		{"alice", "wonderland", true},
		{"bob", "se:cret", true},
		{"carol", "x", true},
		{"nocolon", "", false},
		{"# users", "", false},
		{"dave", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			secret, found, err := s.Lookup(tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.secret, secret)
		})
	}
}

func TestFileStore_LookupMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.txt"))
	_, found, err := s.Lookup("alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStore_LookupUnreadable(t *testing.T) {
	// a directory cannot be read as a file
	s := NewFileStore(t.TempDir())
	_, _, err := s.Lookup("alice")
	assert.Error(t, err)
}

func TestFileStore_LookupSeesEdits(t *testing.T) {
	path := writeFile(t, "alice:one\n")
	s := NewFileStore(path)

	secret, _, err := s.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "one", secret)

	require.NoError(t, os.WriteFile(path, []byte("alice:two\n"), 0o600))
	secret, _, err = s.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "two", secret)
}

// ============================================================================
// FileStore management
// ============================================================================

func TestFileStore_AddListRemove(t *testing.T) {
	path := writeFile(t, "# keep me\nalice:a")
	s := NewFileStore(path)

	require.NoError(t, s.Add("bob", "b"))
	assert.ErrorIs(t, s.Add("alice", "again"), ErrDuplicateUser)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"alice", "a"}, {"bob", "b"}}, entries)

	require.NoError(t, s.Remove("alice"))
	assert.ErrorIs(t, s.Remove("alice"), ErrUserNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# keep me\nbob:b\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_AddCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "id_passwd.txt")
	s := NewFileStore(path)

	require.NoError(t, s.Add("alice", "pw"))
	secret, found, err := s.Lookup("alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "pw", secret)
}

func TestFileStore_AddValidates(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "c.txt"))

	for _, name := range []string{"", ".", "..", "a:b", "a/b", "a b", "#x", "a\nb"} {
		assert.ErrorIs(t, s.Add(name, "pw"), ErrInvalidUsername, "username %q", name)
	}
	assert.ErrorIs(t, s.Add("alice", ""), ErrInvalidSecret)
	assert.ErrorIs(t, s.Add("alice", "a\nb"), ErrInvalidSecret)
}

func TestFileStore_ConcurrentAdds(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "c.txt"))

	var wg sync.WaitGroup
	for _, name := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(name, "pw"))
		}()
	}
	wg.Wait()

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

// ============================================================================
// MemoryStore and matching
// ============================================================================

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(Entry{"alice", "a"}, Entry{"bob", "b"})

	secret, found, err := s.Lookup("bob")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, s.Match(secret, "b"))
	assert.False(t, s.Match(secret, "B"))

	s.Set("carol", "c")
	assert.Equal(t, []Entry{{"alice", "a"}, {"bob", "b"}, {"carol", "c"}}, s.List())
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("secret", "secret"))
	assert.False(t, Match("secret", "secret "))
	assert.False(t, Match("secret", ""))
	assert.True(t, Match("", ""))
}

package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browserx/internal/domain/entity"
)

func writeStore(t *testing.T, body string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credential_store.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return NewFileStore(path)
}

func TestLookup(t *testing.T) {
	s := writeStore(t, `{
		"example.com": {"username": "alice", "password": "pw1"},
		"mail.example.com": {"username": "bob", "password": "pw2"},
		"www.github.com": {"username": "carol", "password": "pw3"}
	}`)

	tests := []struct {
		url  string
		user string
		ok   bool
	}{
		{"https://www.example.com/login", "alice", true},
		{"https://mail.example.com/inbox", "bob", true},
		{"https://github.com/login", "carol", true},
		{"https://EXAMPLE.com", "alice", true},
		{"example.com/login", "alice", true},
		{"https://other.org", "", false},
		{"about:blank", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cred, ok, err := s.Lookup(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.user, cred.Username)
		})
	}
}

func TestLookup_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	_, ok, err := s.Lookup("https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_CorruptFile(t *testing.T) {
	s := writeStore(t, `{not json`)
	_, ok, err := s.Lookup("https://example.com")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSave_VisibleToNextLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save("https://www.Example.com/login", entity.Credential{Username: "alice", Password: "pw"}))
	require.NoError(t, s.Save("github.com", entity.Credential{Username: "carol", Password: "pw3"}))

	cred, ok, err := s.Lookup("https://example.com/account")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", cred.Username)

	reader := NewFileStore(path)
	cred, ok, err = reader.Lookup("https://github.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pw3", cred.Password)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSave_Invalid(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	assert.Error(t, s.Save("", entity.Credential{Username: "a"}))
	assert.Error(t, s.Save("example.com", entity.Credential{}))
}

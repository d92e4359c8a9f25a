package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ output.CredentialStore = (*FileStore)(nil)

// FileStore keeps credentials in a JSON object keyed by domain. The file is
// read on every lookup so entries saved by another process are seen.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (map[string]entity.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]entity.Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	store := map[string]entity.Credential{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to parse credential store %s: %w", s.path, err)
	}
	return store, nil
}

// Lookup returns the entry with the longest domain key contained in the
// URL's hostname.
func (s *FileStore) Lookup(rawURL string) (entity.Credential, bool, error) {
	host := entity.HostOf(rawURL)
	if host == "" {
		return entity.Credential{}, false, nil
	}

	s.mu.Lock()
	store, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return entity.Credential{}, false, err
	}

	var (
		best  string
		found entity.Credential
	)
	for domain, cred := range store {
		key := normalizeDomain(domain)
		if key == "" || !strings.Contains(host, key) {
			continue
		}
		if len(key) > len(best) {
			best, found = key, cred
		}
	}
	return found, best != "", nil
}

// Save stores cred under domain, replacing an existing entry.
func (s *FileStore) Save(domain string, cred entity.Credential) error {
	key := normalizeDomain(domain)
	if key == "" {
		return fmt.Errorf("invalid domain %q", domain)
	}
	if cred.Username == "" && cred.Password == "" {
		return fmt.Errorf("empty credentials for %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.load()
	if err != nil {
		return err
	}
	store[key] = cred

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create credential dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func normalizeDomain(domain string) string {
	if host := entity.HostOf(domain); host != "" {
		return host
	}
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}

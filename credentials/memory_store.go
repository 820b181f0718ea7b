package credentials

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jrsteele09/mfi-console/identity"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the pair in a key/value map, the way browser local
// storage would. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (s *MemoryStore) Token() (string, bool) {
	token, _, ok := s.load()
	return token, ok
}

func (s *MemoryStore) Snapshot() (identity.Identity, bool) {
	_, id, ok := s.load()
	return id, ok
}

func (s *MemoryStore) Set(token string, id identity.Identity) error {
	if token == "" {
		return fmt.Errorf("credentials: empty token")
	}
	snapshot, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("credentials: marshal identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[TokenKey] = []byte(token)
	s.entries[IdentityKey] = snapshot
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, TokenKey)
	delete(s.entries, IdentityKey)
	return nil
}

func (s *MemoryStore) load() (string, identity.Identity, bool) {
	s.mu.RLock()
	token, hasToken := s.entries[TokenKey]
	snapshot, hasSnapshot := s.entries[IdentityKey]
	s.mu.RUnlock()

	if !hasToken || !hasSnapshot || len(token) == 0 {
		return "", identity.Identity{}, false
	}
	var id identity.Identity
	if err := json.Unmarshal(snapshot, &id); err != nil {
		return "", identity.Identity{}, false
	}
	return string(token), id, true
}

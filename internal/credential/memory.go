package credential

import (
	"sync"

	"golang.org/x/oauth2"
)

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWithToken creates an in-memory store holding access and refresh.
func NewMemoryStoreWithToken(access, refresh string) *MemoryStore {
	return &MemoryStore{access: access, refresh: refresh}
}

func (s *MemoryStore) Load() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newToken(s.access, s.refresh), nil
}

func (s *MemoryStore) Save(tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == nil {
		s.access, s.refresh = "", ""
		return nil
	}
	s.access, s.refresh = tok.AccessToken, tok.RefreshToken
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	return nil
}

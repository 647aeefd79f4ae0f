package session

import (
	"context"
	"errors"
	"sync"
)

// DefaultTokenKey is the name the credential is persisted under.
const DefaultTokenKey = "token"

var ErrNoToken = errors.New("no persisted token")

// TokenStore persists the single credential between process runs.
type TokenStore interface {
	// Load returns ErrNoToken when nothing is persisted.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token for the lifetime of the process only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryTokenStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

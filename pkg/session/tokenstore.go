package session

import (
	"context"
	"sync"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/models"
)

// Credentials is what survives a restart: the bearer token and who it
// belongs to.
type Credentials struct {
	Token     string        `json:"access_token"`
	TokenType string        `json:"token_type"`
	UserID    models.UserID `json:"user_id"`
	Email     string        `json:"email"`
	SavedAt   time.Time     `json:"saved_at"`
}

// TokenStore persists credentials across restarts. Load returns nil
// credentials and no error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps credentials for the lifetime of the process.
type MemoryTokenStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load(context.Context) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, nil
	}
	c := *m.creds
	return &c, nil
}

func (m *MemoryTokenStore) Save(_ context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
	return nil
}

func (m *MemoryTokenStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}

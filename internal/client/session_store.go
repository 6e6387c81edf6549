package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	bolt "go.etcd.io/bbolt"
)

const (
	sessionDirPerm     = fs.FileMode(0o700)
	sessionFilePerm    = fs.FileMode(0o600)
	sessionOpenTimeout = 5 * time.Second
)

var (
	authBucket = []byte("auth")
	sessionKey = []byte("session")
)

// Session is the locally held auth-system session.
type Session struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresAt    time.Time        `json:"expires_at"`
	User         dto.UserResponse `json:"user"`
	Role         string           `json:"role"`
}

func sessionFromResponse(resp *dto.AuthResponse) *Session {
	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
		User:         resp.User,
		Role:         resp.Role,
	}
}

// SessionStore persists the session between runs. Load returns nil, nil
// when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
	Close() error
}

// BoltSessionStore keeps the session in a bbolt file.
type BoltSessionStore struct {
	db *bolt.DB
}

// OpenBoltSessionStore opens or creates the database at path.
func OpenBoltSessionStore(path string) (*BoltSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), sessionDirPerm); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := bolt.Open(path, sessionFilePerm, &bolt.Options{Timeout: sessionOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session db: %w", err)
	}

	return &BoltSessionStore{db: db}, nil
}

func (s *BoltSessionStore) Load(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session *Session
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(authBucket).Get(sessionKey)
		if v == nil {
			return nil
		}
		session = &Session{}
		return json.Unmarshal(v, session)
	})
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return session, nil
}

func (s *BoltSessionStore) Save(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(sessionKey, data)
	})
}

func (s *BoltSessionStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Delete(sessionKey)
	})
}

func (s *BoltSessionStore) Close() error {
	return s.db.Close()
}

// MemorySessionStore keeps the session for the life of the process.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Load(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemorySessionStore) Save(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.session = &cp
	return nil
}

func (m *MemorySessionStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *MemorySessionStore) Close() error { return nil }

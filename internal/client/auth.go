package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventSignedOut      EventKind = "signed_out"
)

// Event is delivered to OnChange subscribers. Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}

// refreshSkew renews access tokens this long before they expire.
const refreshSkew = 30 * time.Second

// Auth holds the current session, persists it, and announces changes.
type Auth struct {
	backend  Backend
	sessions SessionStore
	now      func() time.Time

	mu      sync.Mutex
	current *Session
	loaded  bool

	// refreshMu serializes CurrentSession so a rotated refresh token is
	// spent once.
	refreshMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

func NewAuth(backend Backend, sessions SessionStore) *Auth {
	return &Auth{
		backend:  backend,
		sessions: sessions,
		now:      time.Now,
		subs:     make(map[int]func(Event)),
	}
}

// OnChange registers fn for session events and returns its cancel func.
func (a *Auth) OnChange(fn func(Event)) func() {
	a.subMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

func (a *Auth) emit(ev Event) {
	a.subMu.Lock()
	subs := make([]func(Event), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// CurrentSession returns a usable session, refreshing the access token when
// it is about to expire. It returns nil, nil when signed out. A refresh the
// API rejects signs the user out.
func (a *Auth) CurrentSession(ctx context.Context) (*Session, error) {
	a.refreshMu.Lock()
	session, ev, err := a.currentSession(ctx)
	a.refreshMu.Unlock()

	if ev != nil {
		a.emit(*ev)
	}
	return session, err
}

// currentSession runs under refreshMu. Callers that queued behind a refresh
// see the rotated session and return it without refreshing again.
func (a *Auth) currentSession(ctx context.Context) (*Session, *Event, error) {
	current, err := a.load(ctx)
	if err != nil || current == nil {
		return nil, nil, err
	}
	if a.now().Add(refreshSkew).Before(current.ExpiresAt) {
		return current, nil, nil
	}

	resp, err := a.backend.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if IsStatus(err, fiber.StatusUnauthorized) {
			if clearErr := a.clear(ctx); clearErr != nil {
				return nil, nil, clearErr
			}
			return nil, &Event{Kind: EventSignedOut}, nil
		}
		return nil, nil, fmt.Errorf("refreshing session: %w", err)
	}

	next := sessionFromResponse(resp)
	if err := a.set(ctx, next); err != nil {
		return nil, nil, err
	}
	return next, &Event{Kind: EventTokenRefreshed, Session: next}, nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) error {
	resp, err := a.backend.Login(ctx, dto.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	return a.Adopt(ctx, resp)
}

func (a *Auth) SignUp(ctx context.Context, req dto.RegisterRequest) error {
	resp, err := a.backend.Register(ctx, req)
	if err != nil {
		return err
	}
	return a.Adopt(ctx, resp)
}

// Adopt installs a session issued elsewhere, such as by reconciliation.
func (a *Auth) Adopt(ctx context.Context, resp *dto.AuthResponse) error {
	next := sessionFromResponse(resp)
	if err := a.set(ctx, next); err != nil {
		return err
	}
	a.emit(Event{Kind: EventSignedIn, Session: next})
	return nil
}

// SignOut revokes the refresh token when possible and always forgets the
// local session.
func (a *Auth) SignOut(ctx context.Context) error {
	current, err := a.load(ctx)
	if err != nil {
		slog.Warn("reading session before sign-out failed", "error", err.Error())
	}
	if current != nil {
		if err := a.backend.Logout(ctx, current.AccessToken, current.RefreshToken); err != nil {
			slog.Warn("remote sign-out failed", "error", err.Error())
		}
	}
	if err := a.clear(ctx); err != nil {
		return err
	}
	a.emit(Event{Kind: EventSignedOut})
	return nil
}

func (a *Auth) Close() error {
	return a.sessions.Close()
}

func (a *Auth) load(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		stored, err := a.sessions.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading session: %w", err)
		}
		a.current, a.loaded = stored, true
	}
	return a.current, nil
}

func (a *Auth) set(ctx context.Context, s *Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	a.current, a.loaded = s, true
	return nil
}

func (a *Auth) clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	a.current, a.loaded = nil, true
	return nil
}

package client

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/google/uuid"
)

// fakeBackend answers from fixed values and counts calls.
type fakeBackend struct {
	mu sync.Mutex

	validateResp *dto.TelegramValidateResponse
	validateErr  error
	loginErr     error
	refreshErr   error
	sessionErr   error

	// refreshDelay holds each refresh; spent refresh tokens answer 401 the
	// way the API does after rotation.
	refreshDelay time.Duration
	spent        map[string]bool

	user  dto.UserResponse
	role  string
	calls map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user:  dto.UserResponse{ID: 555, IdentityID: uuid.New(), FirstName: "Ann"},
		role:  "user",
		spent: make(map[string]bool),
		calls: make(map[string]int),
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) authResponse() *dto.AuthResponse {
	return &dto.AuthResponse{
		AccessToken:  "access-" + uuid.NewString(),
		RefreshToken: "refresh-" + uuid.NewString(),
		ExpiresAt:    time.Now().Add(15 * time.Minute),
		User:         f.user,
		Role:         f.role,
	}
}

func (f *fakeBackend) Validate(ctx context.Context, initData string) (*dto.TelegramValidateResponse, error) {
	f.hit("validate")
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if f.validateResp != nil {
		return f.validateResp, nil
	}
	return &dto.TelegramValidateResponse{
		Validated: true,
		User:      f.user,
		Role:      f.role,
		Session:   f.authResponse(),
	}, nil
}

func (f *fakeBackend) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	f.hit("register")
	return f.authResponse(), nil
}

func (f *fakeBackend) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	f.hit("login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.authResponse(), nil
}

func (f *fakeBackend) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	f.hit("refresh")
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.mu.Lock()
	reused := f.spent[refreshToken]
	f.spent[refreshToken] = true
	f.mu.Unlock()
	if reused {
		return nil, &APIError{Status: 401, Message: "Invalid or expired refresh token"}
	}
	time.Sleep(f.refreshDelay)
	return f.authResponse(), nil
}

func (f *fakeBackend) Logout(ctx context.Context, accessToken, refreshToken string) error {
	f.hit("logout")
	return nil
}

func (f *fakeBackend) Session(ctx context.Context, accessToken string) (*dto.SessionResponse, error) {
	f.hit("session")
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &dto.SessionResponse{User: f.user, Role: f.role}, nil
}

func hostedBridge() Bridge {
	return BridgeFunc(func() (LaunchParams, bool) {
		return LaunchParams{InitData: "auth_date=1&hash=ab", User: &EmbeddedUser{ID: 555}}, true
	})
}

func absentBridge() Bridge {
	return BridgeFunc(func() (LaunchParams, bool) { return LaunchParams{}, false })
}

func fastLocator(b Bridge) *Locator {
	return &Locator{Bridge: b, Grace: 20 * time.Millisecond, Poll: 5 * time.Millisecond}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const DefaultCallTimeout = 10 * time.Second

// Backend is the API surface the client uses.
type Backend interface {
	Validate(ctx context.Context, initData string) (*dto.TelegramValidateResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Session(ctx context.Context, accessToken string) (*dto.SessionResponse, error)
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// HTTPBackend calls the API over HTTP. Every call waits on the limiter and
// is bounded by the call timeout or the context deadline, whichever is
// sooner.
type HTTPBackend struct {
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewHTTPBackend returns a backend for baseURL. A nil limiter means no
// throttling; timeout <= 0 means DefaultCallTimeout.
func NewHTTPBackend(baseURL string, timeout time.Duration, limiter *rate.Limiter) *HTTPBackend {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		limiter: limiter,
	}
}

func (b *HTTPBackend) Validate(ctx context.Context, initData string) (*dto.TelegramValidateResponse, error) {
	var out dto.TelegramValidateResponse
	err := b.do(ctx, fiber.MethodPost, "/api/auth/telegram/validate", "", dto.TelegramValidateRequest{InitData: initData}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := b.do(ctx, fiber.MethodPost, "/api/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := b.do(ctx, fiber.MethodPost, "/api/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := b.do(ctx, fiber.MethodPost, "/api/auth/refresh", "", dto.RefreshRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return b.do(ctx, fiber.MethodPost, "/api/auth/logout", accessToken, dto.LogoutRequest{RefreshToken: refreshToken}, nil)
}

func (b *HTTPBackend) Session(ctx context.Context, accessToken string) (*dto.SessionResponse, error) {
	var out dto.SessionResponse
	if err := b.do(ctx, fiber.MethodGet, "/api/auth/session", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	var a *fiber.Agent
	if method == fiber.MethodGet {
		a = fiber.Get(b.baseURL + path)
	} else {
		a = fiber.Post(b.baseURL + path)
	}
	a.Timeout(timeout).Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if bearer != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	if body != nil {
		a.JSON(body)
	}
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status, data, errs := a.Bytes()
	if len(errs) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	if status >= fiber.StatusBadRequest {
		return &APIError{Status: status, Message: errorMessage(status, data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

// errorMessage reads either error body shape the API produces:
// {"error":true,"message":"..."} or {"error":"..."}.
func errorMessage(status int, data []byte) string {
	if m := gjson.GetBytes(data, "message"); m.Type == gjson.String {
		return m.Str
	}
	if e := gjson.GetBytes(data, "error"); e.Type == gjson.String {
		return e.Str
	}
	return http.StatusText(status)
}

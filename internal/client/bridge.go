package client

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultGrace = 300 * time.Millisecond
	DefaultPoll  = 25 * time.Millisecond
)

// EmbeddedUser is the unverified user the host ships next to the raw init
// data. It only signals that an identity is present; the server verifies.
type EmbeddedUser struct {
	ID        int64
	FirstName string
	Username  string
}

type LaunchParams struct {
	InitData string
	User     *EmbeddedUser
}

// HasIdentity reports whether both the raw payload and an embedded user
// are present.
func (p LaunchParams) HasIdentity() bool {
	return p.InitData != "" && p.User != nil
}

// Bridge is the hosting environment. Lookup reports false until the host
// has injected itself.
type Bridge interface {
	Lookup() (LaunchParams, bool)
}

// BridgeFunc adapts a function to Bridge.
type BridgeFunc func() (LaunchParams, bool)

func (f BridgeFunc) Lookup() (LaunchParams, bool) { return f() }

// EnvBridge reads init data from an environment variable, standing in for
// the host's injected object when running outside a Mini App container.
type EnvBridge struct {
	Var    string
	Getenv func(string) string
}

func NewEnvBridge(name string) *EnvBridge {
	return &EnvBridge{Var: name, Getenv: os.Getenv}
}

func (b *EnvBridge) Lookup() (LaunchParams, bool) {
	raw := b.Getenv(b.Var)
	if raw == "" {
		return LaunchParams{}, false
	}
	return LaunchParams{InitData: raw, User: embeddedUser(raw)}, true
}

// embeddedUser pulls the user out of raw init data without verifying it.
// Anything unreadable yields nil.
func embeddedUser(raw string) *EmbeddedUser {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil
	}
	user := values.Get("user")
	if user == "" || !gjson.Valid(user) {
		return nil
	}
	id := gjson.Get(user, "id")
	if id.Type != gjson.Number || id.Int() <= 0 {
		return nil
	}
	return &EmbeddedUser{
		ID:        id.Int(),
		FirstName: gjson.Get(user, "first_name").String(),
		Username:  gjson.Get(user, "username").String(),
	}
}

// Locator waits up to Grace for a bridge to appear, polling every Poll.
type Locator struct {
	Bridge Bridge
	Grace  time.Duration
	Poll   time.Duration
}

func NewLocator(bridge Bridge) *Locator {
	return &Locator{Bridge: bridge, Grace: DefaultGrace, Poll: DefaultPoll}
}

// Detect returns the launch params and whether a bridge is present. It
// keeps polling while the bridge is absent or still lacks an identity.
func (l *Locator) Detect(ctx context.Context) (LaunchParams, bool) {
	if l == nil || l.Bridge == nil {
		return LaunchParams{}, false
	}

	params, present := l.Bridge.Lookup()
	if present && params.HasIdentity() || l.Grace <= 0 {
		return params, present
	}
	poll := l.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}

	timer := time.NewTimer(l.Grace)
	defer timer.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return params, present
		case <-timer.C:
			return params, present
		case <-ticker.C:
			params, present = l.Bridge.Lookup()
			if present && params.HasIdentity() {
				return params, true
			}
		}
	}
}

package client

import (
	"context"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvBridge(t *testing.T) {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("user", `{"id":555,"first_name":"Ann","username":"ann"}`)
	v.Set("hash", "00")
	env := map[string]string{"TG_INIT_DATA": v.Encode()}

	b := &EnvBridge{Var: "TG_INIT_DATA", Getenv: func(k string) string { return env[k] }}
	params, ok := b.Lookup()
	require.True(t, ok)
	require.NotNil(t, params.User)
	assert.Equal(t, int64(555), params.User.ID)
	assert.Equal(t, "Ann", params.User.FirstName)
	assert.True(t, params.HasIdentity())

	env["TG_INIT_DATA"] = "auth_date=1&hash=00"
	params, ok = b.Lookup()
	require.True(t, ok)
	assert.Nil(t, params.User)
	assert.False(t, params.HasIdentity())

	delete(env, "TG_INIT_DATA")
	_, ok = b.Lookup()
	assert.False(t, ok)
}

func TestLocatorSeesLateInjection(t *testing.T) {
	var calls atomic.Int32
	b := BridgeFunc(func() (LaunchParams, bool) {
		if calls.Add(1) < 3 {
			return LaunchParams{}, false
		}
		return LaunchParams{InitData: "x", User: &EmbeddedUser{ID: 1}}, true
	})

	l := &Locator{Bridge: b, Grace: time.Second, Poll: time.Millisecond}
	params, ok := l.Detect(context.Background())
	assert.True(t, ok)
	assert.True(t, params.HasIdentity())
}

func TestLocatorGivesUpAfterGrace(t *testing.T) {
	l := fastLocator(absentBridge())

	start := time.Now()
	_, ok := l.Detect(context.Background())
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLocatorPresentWithoutIdentity(t *testing.T) {
	l := fastLocator(BridgeFunc(func() (LaunchParams, bool) { return LaunchParams{}, true }))
	params, ok := l.Detect(context.Background())
	assert.True(t, ok)
	assert.False(t, params.HasIdentity())
}

func TestLocatorNilBridge(t *testing.T) {
	var l *Locator
	_, ok := l.Detect(context.Background())
	assert.False(t, ok)
}

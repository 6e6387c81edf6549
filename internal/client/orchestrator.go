package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// ErrNotValidated is recorded when reconciliation answers without
// validating the identity.
var ErrNotValidated = errors.New("identity was not validated")

// Orchestrator runs startup sign-in and keeps the Store in step with the
// session afterwards.
type Orchestrator struct {
	store   *Store
	auth    *Auth
	backend Backend
	locator *Locator
	logger  *slog.Logger

	// refreshTimeout bounds the identity refresh run from session events.
	refreshTimeout time.Duration
	unsubscribe    func()
}

// NewOrchestrator drives store, which the caller owns and may share with
// other readers. A nil store gets a fresh one.
func NewOrchestrator(store *Store, backend Backend, auth *Auth, locator *Locator, logger *slog.Logger) *Orchestrator {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:          store,
		auth:           auth,
		backend:        backend,
		locator:        locator,
		logger:         logger,
		refreshTimeout: DefaultCallTimeout,
	}
	o.unsubscribe = auth.OnChange(o.onSessionChange)
	return o
}

func (o *Orchestrator) Store() *Store { return o.store }

// Start detects the host, then reconciles its init data or falls back to
// any stored session. It always settles the Store in Ready or Failed and
// returns that state.
func (o *Orchestrator) Start(ctx context.Context) AuthState {
	o.store.transition(PhaseDetectingEnvironment)

	params, present := o.locator.Detect(ctx)
	o.store.update(func(st *AuthState) { st.IsHostedEnvironment = present })

	if present && params.HasIdentity() {
		o.store.transition(PhaseAwaitingExternalIdentity)
		return o.reconcile(ctx, params.InitData)
	}

	o.logger.Info("no hosted identity, checking stored session", "hosted", present)
	o.store.transition(PhaseCheckingExistingSession)
	session, err := o.existingSession(ctx)
	if err != nil {
		return o.store.fail(err)
	}
	if session == nil {
		return o.store.ready(nil, "", nil)
	}
	return o.store.ready(&session.User, session.Role, nil)
}

func (o *Orchestrator) reconcile(ctx context.Context, initData string) AuthState {
	o.store.transition(PhaseReconciling)

	resp, err := o.backend.Validate(ctx, initData)
	if err == nil && !resp.Validated {
		err = ErrNotValidated
	}
	if err == nil {
		state := o.store.ready(&resp.User, resp.Role, nil)
		if resp.Session != nil {
			if err := o.auth.Adopt(ctx, resp.Session); err != nil {
				o.logger.Warn("storing reconciled session failed", "error", err.Error())
			}
			state = o.store.Get()
		}
		return state
	}

	o.logger.Warn("telegram reconciliation failed", "error", err.Error())
	if !IsStatus(err, fiber.StatusUnauthorized) {
		return o.store.fail(err)
	}

	// Rejected credentials fall back to a session the user already has.
	o.store.transition(PhaseCheckingExistingSession)
	session, sessErr := o.existingSession(ctx)
	if sessErr != nil {
		return o.store.fail(errors.Join(err, sessErr))
	}
	if session == nil {
		return o.store.fail(err)
	}
	return o.store.ready(&session.User, session.Role, nil)
}

// existingSession returns the profile and role behind the stored session,
// or nil when there is none.
func (o *Orchestrator) existingSession(ctx context.Context) (*dto.SessionResponse, error) {
	current, err := o.auth.CurrentSession(ctx)
	if err != nil || current == nil {
		return nil, err
	}
	resp, err := o.backend.Session(ctx, current.AccessToken)
	if IsStatus(err, fiber.StatusUnauthorized) || IsStatus(err, fiber.StatusNotFound) {
		return nil, nil
	}
	return resp, err
}

// onSessionChange is the authority for identity and role once startup is
// done: every session change refetches them.
func (o *Orchestrator) onSessionChange(ev Event) {
	if ev.Kind == EventSignedOut || ev.Session == nil {
		o.store.ready(nil, "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.refreshTimeout)
	defer cancel()

	resp, err := o.backend.Session(ctx, ev.Session.AccessToken)
	if err != nil {
		o.logger.Warn("identity refresh failed, using session snapshot", "event", string(ev.Kind), "error", err.Error())
		user := ev.Session.User
		o.store.ready(&user, ev.Session.Role, err)
		return
	}
	o.store.ready(&resp.User, resp.Role, nil)
}

// SignInWithEmailPassword signs in; the Store follows through OnChange.
func (o *Orchestrator) SignInWithEmailPassword(ctx context.Context, email, password string) error {
	return o.record(o.auth.SignIn(ctx, email, password))
}

func (o *Orchestrator) SignUpWithEmailPassword(ctx context.Context, req dto.RegisterRequest) error {
	return o.record(o.auth.SignUp(ctx, req))
}

func (o *Orchestrator) SignOut(ctx context.Context) error {
	return o.record(o.auth.SignOut(ctx))
}

// record keeps a failed side effect visible in the Store without changing
// who is signed in.
func (o *Orchestrator) record(err error) error {
	if err != nil {
		o.store.update(func(st *AuthState) { st.Err = err })
	}
	return err
}

// Close stops following session changes and closes the session store.
func (o *Orchestrator) Close() error {
	o.unsubscribe()
	return o.auth.Close()
}

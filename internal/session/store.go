// Package session holds the authenticated user and credential, and the
// status of the login, register, logout and restore operations.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/credential"
	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/notify"
	"github.com/capitalize-ai/conversational-client/internal/opstate"
	"github.com/capitalize-ai/conversational-client/internal/transport"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
	"github.com/capitalize-ai/conversational-client/pkg/metrics"
)

var (
	// ErrNoSession is returned by Restore when nothing is persisted.
	ErrNoSession = errors.New("no persisted session")
	// ErrSessionExpired is returned by Restore when the persisted token has passed its expiry.
	ErrSessionExpired = errors.New("persisted session has expired")
)

// Sender is the transport as seen by the store.
type Sender interface {
	Send(ctx context.Context, method, path string, body, out any) error
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	User          *model.User
	Authenticated bool
	Status        map[Operation]opstate.Status
}

// Store is the session state container. It is safe for concurrent use.
type Store struct {
	api      Sender
	creds    credential.Store
	notifier notify.Notifier
	logger   *logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	user   *model.User
	status map[Operation]opstate.Status
}

// New creates an empty session store.
func New(api Sender, creds credential.Store, notifier notify.Notifier, log *logger.Logger) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = logger.Global()
	}
	return &Store{
		api:      api,
		creds:    creds,
		notifier: notifier,
		logger:   log.Named("session"),
		now:      time.Now,
		status:   make(map[Operation]opstate.Status),
	}
}

// Login authenticates with username and password. A failure leaves any prior session untouched.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.begin(OpLogin)

	var resp model.AuthResponse
	err := s.api.Send(ctx, http.MethodPost, transport.EndpointSignIn, model.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err == nil {
		err = s.establish(resp)
	}
	if err != nil {
		s.reject(ctx, OpLogin, err)
		return err
	}

	s.fulfill(ctx, OpLogin, notify.Success(string(OpLogin), "Login Successful", "Welcome back, "+resp.User.Username+"."))
	return nil
}

// Register creates an account and signs in. The profile is validated by the caller.
func (s *Store) Register(ctx context.Context, profile model.RegisterRequest) error {
	s.begin(OpRegister)

	var resp model.AuthResponse
	err := s.api.Send(ctx, http.MethodPost, transport.EndpointSignUp, profile, &resp)
	if err == nil {
		err = s.establish(resp)
	}
	if err != nil {
		s.reject(ctx, OpRegister, err)
		return err
	}

	s.fulfill(ctx, OpRegister, notify.Success(string(OpRegister), "Registration Successful", "Welcome, "+resp.User.Username+"."))
	return nil
}

// Logout always ends the local session, even when the server call fails.
func (s *Store) Logout(ctx context.Context) error {
	s.begin(OpLogout)

	if err := s.api.Send(ctx, http.MethodPost, transport.EndpointLogout, nil, nil); err != nil {
		s.logger.Warn("server-side logout failed, clearing local session anyway", zap.Error(err))
	}

	s.mu.Lock()
	s.user = nil
	if err := s.creds.Clear(); err != nil {
		s.logger.Error("failed to clear credential", zap.Error(err))
	}
	s.mu.Unlock()

	s.fulfill(ctx, OpLogout, notify.Success(string(OpLogout), "Logged Out", "You have been signed out."))
	return nil
}

// Restore rebuilds the session from persisted storage. A JWT past its expiry is
// discarded without contacting the server; a missing cached user is fetched from /auth/me.
func (s *Store) Restore(ctx context.Context) error {
	rec := s.creds.Load()
	if rec.Token == "" {
		return ErrNoSession
	}

	if credential.Expired(rec.Token, s.now()) {
		if _, err := s.creds.ClearIf(rec.Token); err != nil {
			s.logger.Error("failed to clear expired credential", zap.Error(err))
		}
		return ErrSessionExpired
	}

	if rec.User != nil {
		s.adopt(rec.Token, rec.User)
		return nil
	}

	s.begin(OpRestore)

	var user model.User
	err := s.api.Send(ctx, http.MethodGet, transport.EndpointMe, nil, &user)
	if err == nil && user.ID == "" {
		err = transport.NewError(transport.KindOther, http.StatusOK, "malformed user profile")
	}
	if err != nil {
		s.reject(ctx, OpRestore, err)
		return err
	}

	if s.adopt(rec.Token, &user) {
		if err := s.creds.Save(credential.Record{Token: rec.Token, User: &user}); err != nil {
			s.logger.Warn("failed to cache user alongside credential", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.status[OpRestore] = opstate.Done()
	s.mu.Unlock()
	metrics.RecordOperation("session", string(OpRestore), true)
	return nil
}

// Expire handles the transport's session-expired signal, which arrives after the
// transport has already removed the rejected credential. It returns true only
// for the transition from authenticated to unauthenticated. A credential present
// again by then belongs to a newer login and is left alone.
func (s *Store) Expire(ctx context.Context) bool {
	s.mu.Lock()
	if s.creds.Token() != "" {
		s.mu.Unlock()
		return false
	}
	wasAuthenticated := s.user != nil
	s.user = nil
	s.mu.Unlock()

	if !wasAuthenticated {
		return false
	}

	s.logger.Warn("session expired")
	s.notifier.Notify(ctx, notify.Failure("session", transport.NewError(transport.KindUnauthorized, http.StatusUnauthorized, "")))
	return true
}

// ClearError resets op from error to idle. It is idempotent.
func (s *Store) ClearError(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[op].Failed() {
		s.status[op] = opstate.Done()
	}
}

// ClearErrors resets every failed operation to idle.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for op, st := range s.status {
		if st.Failed() {
			s.status[op] = opstate.Done()
		}
	}
}

// IsAuthenticated is true iff both a user and a credential are present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.creds.Token() != ""
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// UserID returns the current user's id, or "".
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Status returns the status of one operation kind.
func (s *Store) Status(op Operation) opstate.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[op]
}

// Snapshot returns a copy of the whole session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[Operation]opstate.Status, len(s.status))
	for op, st := range s.status {
		statuses[op] = st
	}
	return Snapshot{
		User:          copyUser(s.user),
		Authenticated: s.user != nil && s.creds.Token() != "",
		Status:        statuses,
	}
}

// establish persists the credential and sets the user under one lock.
func (s *Store) establish(resp model.AuthResponse) error {
	if resp.Token == "" || resp.User == nil || resp.User.ID == "" {
		return transport.NewError(transport.KindOther, http.StatusOK, "malformed authentication response")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.Save(credential.Record{Token: resp.Token, User: resp.User}); err != nil {
		return err
	}
	s.user = copyUser(resp.User)
	return nil
}

// adopt sets the user only if token is still the persisted credential.
func (s *Store) adopt(token string, user *model.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds.Token() != token {
		return false
	}
	s.user = copyUser(user)
	return true
}

func (s *Store) begin(op Operation) {
	s.mu.Lock()
	s.status[op] = opstate.Running()
	s.mu.Unlock()
}

func (s *Store) fulfill(ctx context.Context, op Operation, outcome model.Outcome) {
	s.mu.Lock()
	s.status[op] = opstate.Done()
	s.mu.Unlock()

	metrics.RecordOperation("session", string(op), true)
	s.notifier.Notify(ctx, outcome)
}

func (s *Store) reject(ctx context.Context, op Operation, err error) {
	s.mu.Lock()
	s.status[op] = opstate.Failure(err)
	s.mu.Unlock()

	metrics.RecordOperation("session", string(op), false)
	s.logger.Info("operation failed", zap.String("operation", string(op)), zap.Error(err))
	s.notifier.Notify(ctx, notify.Failure(string(op), err))
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

var (
	// ErrUserExists is returned when the username or email is already registered.
	ErrUserExists = errors.New("username or email already registered")
	// ErrInvalidCredentials is returned when username and password do not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound is returned for an unknown user id.
	ErrUserNotFound = errors.New("user not found")
)

type account struct {
	user         model.User
	passwordHash []byte
}

// UserService stores accounts and logged-out token ids in memory.
type UserService struct {
	logger *logger.Logger

	mu      sync.RWMutex
	byID    map[string]*account
	byName  map[string]string
	byEmail map[string]string
	revoked map[string]time.Time
}

// NewUserService creates an empty user service.
func NewUserService(log *logger.Logger) *UserService {
	return &UserService{
		logger:  log,
		byID:    make(map[string]*account),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
		revoked: make(map[string]time.Time),
	}
}

// Register creates an account.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.ToLower(req.Username)
	email := strings.ToLower(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return nil, ErrUserExists
	}
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrUserExists
	}

	acct := &account{
		user: model.User{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
		passwordHash: hash,
	}
	s.byID[acct.user.ID] = acct
	s.byName[name] = acct.user.ID
	s.byEmail[email] = acct.user.ID

	s.logger.Info("user registered", zap.String("user_id", acct.user.ID))

	u := acct.user
	return &u, nil
}

// Authenticate checks username and password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	s.mu.RLock()
	id, ok := s.byName[strings.ToLower(username)]
	acct := s.byID[id]
	s.mu.RUnlock()

	if !ok || acct == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	u := acct.user
	return &u, nil
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := acct.user
	return &u, nil
}

// Revoke marks a token id as logged out.
func (s *UserService) Revoke(tokenID string) {
	if tokenID == "" {
		return
	}
	s.mu.Lock()
	s.revoked[tokenID] = time.Now()
	s.mu.Unlock()
}

// Revoked reports whether tokenID was logged out.
func (s *UserService) Revoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok
}

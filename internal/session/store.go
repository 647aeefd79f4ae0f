package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Authenticator is the part of the remote authority the session talks to.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) error
}

// Store owns the current credential. Transitions are serialized; readers
// never block on a login in flight.
type Store struct {
	auth   Authenticator
	tokens TokenStore
	logger *zap.Logger

	transition sync.Mutex

	mu        sync.RWMutex
	token     string
	listeners []func(authenticated bool)
}

func NewStore(auth Authenticator, tokens TokenStore, logger *zap.Logger) *Store {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		auth:   auth,
		tokens: tokens,
		logger: logger,
	}
}

// Restore installs a previously persisted credential without asking the
// remote authority whether it is still valid. A token that expired while the
// process was down is only discovered on the first authenticated request.
func (s *Store) Restore(ctx context.Context) bool {
	token, err := s.tokens.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		return false
	}
	if err != nil {
		s.logger.Warn("failed to load persisted credential", zap.Error(err))
		return false
	}

	s.transition.Lock()
	defer s.transition.Unlock()
	s.set(token)
	s.logger.Info("restored persisted credential")
	return true
}

// Login sends the credentials to the remote authority. On failure the
// previous session, authenticated or not, is left as it was.
func (s *Store) Login(ctx context.Context, email, password string) error {
	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", zap.String("email", email), zap.Error(err))
		return &domain.AuthError{Reason: domain.ReasonOf(err), Err: err}
	}
	s.install(ctx, token)
	s.logger.Info("logged in", zap.String("email", email))
	return nil
}

// LoginWithExternalToken installs a token obtained from a federated login
// redirect, exactly as a password login would.
func (s *Store) LoginWithExternalToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &domain.AuthError{Reason: "federated login returned no token"}
	}
	s.install(ctx, token)
	s.logger.Info("logged in with external token")
	return nil
}

// Register creates an account. It does not log the new account in.
func (s *Store) Register(ctx context.Context, email, password string) error {
	if err := s.auth.Register(ctx, email, password); err != nil {
		return &domain.AuthError{Reason: domain.ReasonOf(err), Err: err}
	}
	return nil
}

// Logout drops the credential. It never fails; a persisted copy that cannot
// be removed is logged and left behind.
func (s *Store) Logout(ctx context.Context) {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.set("")
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear persisted credential", zap.Error(err))
	}
	s.logger.Info("logged out")
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current credential, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn to run synchronously after every credential
// transition, before the transition returns to its caller.
func (s *Store) Subscribe(fn func(authenticated bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) install(ctx context.Context, token string) {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.set(token)
	if err := s.tokens.Save(ctx, token); err != nil {
		s.logger.Warn("failed to persist credential", zap.Error(err))
	}
}

// set must be called with transition held. Listeners run after mu is
// released so they may read the store.
func (s *Store) set(token string) {
	s.mu.Lock()
	s.token = token
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(token != "")
	}
}

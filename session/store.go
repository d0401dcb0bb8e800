// Package session keeps the access token of the signed-in user and derives
// the session user from its claims.
//
// The token is signed by the API server and only parsed here: the client
// cannot verify it and does not need to, since every API call is authorized
// server side.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
)

// Persister saves the tokens between page loads, typically in the browser
// local storage.
type Persister interface {
	Load() (access, refresh string)
	Save(access, refresh string)
}

// Store is a ui.SessionProvider backed by the API access token.
type Store struct {
	mu      sync.RWMutex
	access  string
	refresh string
	user    ui.User
	expires time.Time

	API     *api.Client
	Persist Persister
	Logger  *slog.Logger
	now     func() time.Time
}

func NewStore(client *api.Client, options ...func(*Store) *Store) *Store {
	s := &Store{API: client, Logger: slog.Default(), now: time.Now}
	for _, option := range options {
		s = option(s)
	}
	if s.Persist != nil {
		access, refresh := s.Persist.Load()
		if access != "" {
			if err := s.SetToken(access, refresh); err != nil {
				s.Logger.Warn("discarding stored token", "err", err)
				s.Persist.Save("", "")
			}
		}
	}
	return s
}

func WithPersister(p Persister) func(*Store) *Store {
	return func(s *Store) *Store {
		s.Persist = p
		return s
	}
}

func WithLogger(l *slog.Logger) func(*Store) *Store {
	return func(s *Store) *Store {
		s.Logger = l
		return s
	}
}

// WithClock replaces the time source used to check token expiry.
func WithClock(now func() time.Time) func(*Store) *Store {
	return func(s *Store) *Store {
		s.now = now
		return s
	}
}

// SetToken installs a new access token.
func (s *Store) SetToken(access, refresh string) error {
	user, exp, err := parseClaims(access)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.access, s.refresh, s.user, s.expires = access, refresh, user, exp
	s.mu.Unlock()
	if s.Persist != nil {
		s.Persist.Save(access, refresh)
	}
	return nil
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.access == "" {
		return false
	}
	return s.expires.IsZero() || s.now().Before(s.expires)
}

func (s *Store) CurrentUser() ui.User {
	if !s.IsAuthenticated() {
		return ui.User{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Clear forgets the tokens locally and returns the refresh token that was
// held, so that it can be revoked afterwards.
func (s *Store) Clear() string {
	s.mu.Lock()
	refresh := s.refresh
	s.access, s.refresh, s.user, s.expires = "", "", ui.User{}, time.Time{}
	s.mu.Unlock()
	if s.Persist != nil {
		s.Persist.Save("", "")
	}
	return refresh
}

// SignIn exchanges credentials for tokens.
func (s *Store) SignIn(ctx context.Context, username, password string) error {
	var t api.Tokens
	if err := s.API.Post(ctx, "/api/users/sign-in", api.SignInInput{Username: username, Password: password}, &t); err != nil {
		return err
	}
	return s.SetToken(t.AccessToken, t.RefreshToken)
}

// Revoke asks the API server to invalidate a refresh token.
func (s *Store) Revoke(ctx context.Context, refresh string) error {
	if refresh == "" {
		return nil
	}
	return s.API.Post(ctx, "/api/users/sign-out", map[string]string{"refreshToken": refresh}, nil)
}

// SignOut clears the session and revokes its refresh token.
func (s *Store) SignOut(ctx context.Context) error {
	return s.Revoke(ctx, s.Clear())
}

// Refresh obtains a new access token with the refresh token.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		return fmt.Errorf("no refresh token")
	}
	var t api.Tokens
	if err := s.API.Post(ctx, "/api/users/refresh", map[string]string{"refreshToken": refresh}, &t); err != nil {
		return err
	}
	if t.RefreshToken == "" {
		t.RefreshToken = refresh
	}
	return s.SetToken(t.AccessToken, t.RefreshToken)
}

// parseClaims reads sub, role and exp. The API server encodes them as
// strings; numbers are accepted as well.
func parseClaims(token string) (ui.User, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ui.User{}, time.Time{}, fmt.Errorf("parsing access token: %w", err)
	}
	id, err := intClaim(claims, "sub")
	if err != nil {
		return ui.User{}, time.Time{}, err
	}
	if id <= 0 {
		return ui.User{}, time.Time{}, fmt.Errorf("invalid sub claim %d", id)
	}
	role, _ := intClaim(claims, "role")
	var exp time.Time
	if e, err := intClaim(claims, "exp"); err == nil {
		exp = time.Unix(int64(e), 0)
	}
	var username string
	if v, ok := claims["username"].(string); ok {
		username = v
	}
	return ui.User{ID: id, Username: username, Role: role}, exp, nil
}

func intClaim(claims jwt.MapClaims, name string) (int, error) {
	switch v := claims[name].(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("claim %s: %w", name, err)
		}
		return n, nil
	case float64:
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("missing claim %s", name)
	default:
		return 0, fmt.Errorf("claim %s has type %T", name, v)
	}
}

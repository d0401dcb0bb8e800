package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atdiar/rtforum/api"
)

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func serverToken(t *testing.T, id, role int, exp time.Time) string {
	return token(t, jwt.MapClaims{
		"sub":  strconv.Itoa(id),
		"role": strconv.Itoa(role),
		"exp":  strconv.FormatInt(exp.Unix(), 10),
	})
}

type memory struct{ access, refresh string }

func (m *memory) Load() (string, string) { return m.access, m.refresh }
func (m *memory) Save(a, r string)       { m.access, m.refresh = a, r }

func TestStoreClaims(t *testing.T) {
	s := NewStore(nil)
	assert.False(t, s.IsAuthenticated())
	assert.True(t, s.CurrentUser().Anonymous())

	require.NoError(t, s.SetToken(serverToken(t, 12, 2, time.Now().Add(time.Hour)), "r"))
	assert.True(t, s.IsAuthenticated())
	u := s.CurrentUser()
	assert.Equal(t, 12, u.ID)
	assert.Equal(t, 2, u.Role)

	// numeric claims are accepted too
	require.NoError(t, s.SetToken(token(t, jwt.MapClaims{"sub": 3, "username": "ada"}), ""))
	assert.Equal(t, "ada", s.CurrentUser().Username)
}

func TestStoreRejectsBadTokens(t *testing.T) {
	s := NewStore(nil)
	assert.Error(t, s.SetToken("not a token", ""))
	assert.Error(t, s.SetToken(token(t, jwt.MapClaims{"role": "1"}), ""))
	assert.Error(t, s.SetToken(token(t, jwt.MapClaims{"sub": "abc"}), ""))
	assert.False(t, s.IsAuthenticated())
}

func TestStoreExpiry(t *testing.T) {
	now := time.Now()
	s := NewStore(nil, WithClock(func() time.Time { return now }))
	require.NoError(t, s.SetToken(serverToken(t, 1, 1, now.Add(time.Minute)), ""))
	assert.True(t, s.IsAuthenticated())

	now = now.Add(2 * time.Minute)
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 0, s.CurrentUser().ID)
}

func TestStorePersistence(t *testing.T) {
	m := &memory{access: serverToken(t, 5, 1, time.Now().Add(time.Hour)), refresh: "r"}
	s := NewStore(nil, WithPersister(m))
	assert.Equal(t, 5, s.CurrentUser().ID)

	assert.Equal(t, "r", s.Clear())
	assert.Empty(t, m.access)
	assert.False(t, s.IsAuthenticated())

	bad := &memory{access: "garbage"}
	s = NewStore(nil, WithPersister(bad))
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, bad.access)
}

func TestStoreSignInAndOut(t *testing.T) {
	access := serverToken(t, 9, 1, time.Now().Add(time.Hour))
	var revoked string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/sign-in", func(w http.ResponseWriter, r *http.Request) {
		var in api.SignInInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"wrong password"}`))
			return
		}
		json.NewEncoder(w).Encode(api.Tokens{AccessToken: access, RefreshToken: "refresh-1"})
	})
	mux.HandleFunc("/api/users/sign-out", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		revoked = in["refreshToken"]
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewStore(nil)
	s.API = api.NewClient(srv.URL, api.WithTokens(s))
	ctx := context.Background()

	err := s.SignIn(ctx, "ada", "nope")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "wrong password", apiErr.Message)
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.SignIn(ctx, "ada", "pw"))
	assert.Equal(t, 9, s.CurrentUser().ID)
	assert.Equal(t, access, s.Token())

	require.NoError(t, s.SignOut(ctx))
	assert.Equal(t, "refresh-1", revoked)
	assert.False(t, s.IsAuthenticated())
}

func TestStoreRefresh(t *testing.T) {
	fresh := serverToken(t, 4, 1, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/refresh", r.URL.Path)
		json.NewEncoder(w).Encode(api.Tokens{AccessToken: fresh})
	}))
	defer srv.Close()

	s := NewStore(api.NewClient(srv.URL))
	assert.Error(t, s.Refresh(context.Background()))

	require.NoError(t, s.SetToken(serverToken(t, 4, 1, time.Now().Add(-time.Hour)), "keep"))
	assert.False(t, s.IsAuthenticated())
	require.NoError(t, s.Refresh(context.Background()))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, fresh, s.Token())
}

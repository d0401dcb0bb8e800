//go:build js && wasm

package doc

import "syscall/js"

type jsStore struct {
	store js.Value
}

func (s jsStore) Get(key string) (string, bool) {
	v := s.store.Call("getItem", key)
	if !v.Truthy() {
		return "", false
	}
	return v.String(), true
}

func (s jsStore) Set(key, value string) {
	s.store.Call("setItem", key, value)
}

func (s jsStore) Delete(key string) {
	s.store.Call("removeItem", key)
}

// TokenStorage keeps the session tokens in the browser local storage under
// Prefix + "accessToken" and Prefix + "refreshToken".
type TokenStorage struct {
	Prefix string
	store  jsStore
}

// LocalStorage returns a TokenStorage backed by window.localStorage.
func LocalStorage(prefix string) *TokenStorage {
	return &TokenStorage{Prefix: prefix, store: jsStore{js.Global().Get("localStorage")}}
}

// SessionStorage returns a TokenStorage backed by window.sessionStorage.
// Tokens are then forgotten when the tab is closed.
func SessionStorage(prefix string) *TokenStorage {
	return &TokenStorage{Prefix: prefix, store: jsStore{js.Global().Get("sessionStorage")}}
}

func (t *TokenStorage) Load() (access, refresh string) {
	access, _ = t.store.Get(t.Prefix + "accessToken")
	refresh, _ = t.store.Get(t.Prefix + "refreshToken")
	return access, refresh
}

// Save stores the tokens. Empty tokens are removed.
func (t *TokenStorage) Save(access, refresh string) {
	for key, value := range map[string]string{"accessToken": access, "refreshToken": refresh} {
		if value == "" {
			t.store.Delete(t.Prefix + key)
			continue
		}
		t.store.Set(t.Prefix+key, value)
	}
}

package ui

// User is the session user as seen by the views. The zero User is the
// anonymous user.
type User struct {
	ID       int
	Username string
	Role     int
}

func (u User) Anonymous() bool { return u.ID == 0 }

// SessionProvider tells whether the current session is authorized.
// The router consults it once per navigation.
type SessionProvider interface {
	IsAuthenticated() bool
	CurrentUser() User
}

type anonymous struct{}

func (anonymous) IsAuthenticated() bool { return false }
func (anonymous) CurrentUser() User     { return User{} }

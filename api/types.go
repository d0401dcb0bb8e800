package api

import "time"

// Author is the public part of a user attached to posts and comments.
type Author struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type User struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Age        int       `json:"age"`
	Gender     int       `json:"gender"`
	Email      string    `json:"email,omitempty"`
	Avatar     string    `json:"avatar"`
	Role       int       `json:"role"`
	Registered time.Time `json:"registered"`
}

// Rating values of RatedPost.UserRate.
const (
	Liked    = 1
	Disliked = 2
)

type Post struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"`
	Data       string     `json:"data"`
	Date       time.Time  `json:"date"`
	Author     Author     `json:"author"`
	Categories []Category `json:"categories,omitempty"`
	Rating     int        `json:"rating"`
	UserRate   int        `json:"userRate"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Comment struct {
	ID     int       `json:"id"`
	PostID int       `json:"postId"`
	Data   string    `json:"data"`
	Date   time.Time `json:"date"`
	Author Author    `json:"author"`
}

type SignUpInput struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Age       int    `json:"age"`
	Gender    int    `json:"gender"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type SignInInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type NewPostInput struct {
	Title      string `json:"title"`
	Data       string `json:"data"`
	Categories []int  `json:"categories"`
}

type NewCommentInput struct {
	PostID int    `json:"postId"`
	Data   string `json:"data"`
}

// ChatUser is an entry of the chat contact list.
type ChatUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// Message is a private message exchanged over the websocket.
type Message struct {
	Type      string    `json:"type"`
	From      int       `json:"from,omitempty"`
	To        int       `json:"to,omitempty"`
	Text      string    `json:"text,omitempty"`
	Date      time.Time `json:"date,omitempty"`
	OnlineIDs []int     `json:"onlineIds,omitempty"`
}

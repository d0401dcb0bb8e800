package views

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
	"github.com/atdiar/rtforum/ws"
)

// Message types exchanged with the chat server.
const (
	TypeMessage = "message"
	TypeOnline  = "online-users"
)

// DefaultPresenceEvery is the presence refresh period used when Deps does
// not set one.
const DefaultPresenceEvery = 30 * time.Second

type chats struct {
	screen
	users []api.ChatUser
	conn  *ws.Conn
}

// Chats opens the shared websocket, lists the users with their presence and
// exchanges private messages. The connection and the presence timer are
// released by the router when the view is unmounted.
func Chats(d Deps) ui.ViewConstructor {
	return func(m ui.Mount) ui.View {
		return &chats{screen: newScreen(m, d, "Chats")}
	}
}

func (v *chats) Render(ctx context.Context) (string, error) {
	return execute("chats", nil)
}

func (v *chats) Init(ctx context.Context) error {
	v.ctx = ctx
	if err := v.deps.API.Get(ctx, "/api/chats/users", &v.users); err != nil {
		v.log.Warn("loading chat users", "err", err)
	}
	v.drawUsers()

	var token string
	if v.deps.Session != nil {
		token = v.deps.Session.Token()
	}
	conn, err := ws.Dial(ctx, v.deps.WSURL,
		ws.WithRegistry(v.Connections),
		ws.WithToken(token),
		ws.WithLogger(v.log),
	)
	if err != nil {
		return err
	}
	v.conn = conn
	go v.receive(conn)

	every := v.deps.PresenceEvery
	if every <= 0 {
		every = DefaultPresenceEvery
	}
	v.refreshPresence()
	v.Timers.Every(every, v.refreshPresence)

	if err := v.on("chat-users", "click", func(evt ui.Event) {
		if b, ok := evt.Target().Closest("button"); ok {
			id, _ := b.GetAttribute("value")
			if e, ok := v.el("message-to"); ok {
				e.SetValue(id)
			}
		}
	}); err != nil {
		return err
	}
	return v.on("message-form", "submit", func(evt ui.Event) {
		evt.PreventDefault()
		to, _ := strconv.Atoi(v.value("message-to"))
		text := v.value("message-text")
		if to == 0 || text == "" {
			return
		}
		msg := api.Message{Type: TypeMessage, From: v.User.ID, To: to, Text: text, Date: time.Now()}
		v.async(func(ctx context.Context) {
			if err := conn.SendJSON(ctx, msg); err != nil {
				v.log.Warn("sending message", "err", err)
				return
			}
			if e, ok := v.el("message-text"); ok {
				e.SetValue("")
			}
			v.drawMessage(msg)
		})
	})
}

func (v *chats) refreshPresence() {
	ctx, cancel := context.WithTimeout(v.ctx, 5*time.Second)
	defer cancel()
	if err := v.conn.SendJSON(ctx, api.Message{Type: TypeOnline}); err != nil {
		v.log.Debug("presence request failed", "err", err)
	}
}

// receive draws incoming messages until the connection ends.
func (v *chats) receive(conn *ws.Conn) {
	for data := range conn.Messages() {
		var msg api.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			v.log.Warn("malformed chat message", "err", err)
			continue
		}
		switch msg.Type {
		case TypeMessage:
			v.drawMessage(msg)
		case TypeOnline:
			online := make(map[int]bool, len(msg.OnlineIDs))
			for _, id := range msg.OnlineIDs {
				online[id] = true
			}
			for i := range v.users {
				v.users[i].Online = online[v.users[i].ID]
			}
			v.drawUsers()
		}
	}
}

func (v *chats) drawUsers() {
	list, err := execute("chat-users", v.users)
	if err != nil {
		v.log.Error("drawing chat users", "err", err)
		return
	}
	v.setHTML("chat-users", list)
}

func (v *chats) drawMessage(msg api.Message) {
	e, ok := v.el("messages")
	if !ok {
		return
	}
	markup, err := execute("message", msg)
	if err != nil {
		v.log.Error("drawing message", "err", fmt.Errorf("%s: %w", msg.Type, err))
		return
	}
	e.AppendHTML(markup)
}

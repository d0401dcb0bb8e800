// Package ws is the connection service of the forum client: the single
// websocket used for private messages and presence.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	ui "github.com/atdiar/rtforum"
)

// Conn is a websocket connection. It implements ui.Connection.
type Conn struct {
	id       uuid.UUID
	conn     *websocket.Conn
	messages chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	logger *slog.Logger
}

// Dialer holds the dial settings. The zero Dialer registers connections in
// ui.Connections.
type Dialer struct {
	Registry *ui.ConnectionRegistry
	Header   http.Header
	// Buffer is the number of received messages kept while nobody reads
	// them.
	Buffer int
	Logger *slog.Logger
}

func WithRegistry(r *ui.ConnectionRegistry) func(*Dialer) *Dialer {
	return func(d *Dialer) *Dialer {
		d.Registry = r
		return d
	}
}

// WithToken authenticates the connection with a bearer token.
func WithToken(token string) func(*Dialer) *Dialer {
	return func(d *Dialer) *Dialer {
		if token == "" {
			return d
		}
		if d.Header == nil {
			d.Header = http.Header{}
		}
		d.Header.Set("Authorization", "Bearer "+token)
		return d
	}
}

func WithLogger(l *slog.Logger) func(*Dialer) *Dialer {
	return func(d *Dialer) *Dialer {
		d.Logger = l
		return d
	}
}

// Dial opens a websocket to url and registers it as the shared connection,
// closing the one previously registered.
func Dial(ctx context.Context, url string, options ...func(*Dialer) *Dialer) (*Conn, error) {
	d := &Dialer{Registry: ui.Connections, Buffer: 64, Logger: slog.Default()}
	for _, option := range options {
		d = option(d)
	}

	wc, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: d.Header})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c := newConn(wc, d.Buffer, d.Logger)
	if err := d.Registry.Register(c); err != nil {
		c.logger.Warn("replacing shared connection", "err", err)
	}
	return c, nil
}

func newConn(wc *websocket.Conn, buffer int, logger *slog.Logger) *Conn {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:       id,
		conn:     wc,
		messages: make(chan []byte, buffer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   logger.With(slog.String("connID", id.String())),
	}
	go c.readPump()
	c.logger.Debug("connection established")
	return c
}

func (c *Conn) readPump() {
	defer func() {
		close(c.messages)
		close(c.done)
	}()
	for {
		typ, msg, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && c.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("connection read failed", "err", err)
			}
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		select {
		case c.messages <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// Messages returns the received messages. The channel is closed when the
// connection ends.
func (c *Conn) Messages() <-chan []byte {
	return c.messages
}

// Send writes a text message.
func (c *Conn) Send(ctx context.Context, msg []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, msg)
}

// SendJSON writes v encoded as JSON.
func (c *Conn) SendJSON(ctx context.Context, v interface{}) error {
	return wsjson.Write(ctx, c.conn, v)
}

// Close performs the closing handshake and waits for the connection to end.
// The connection is gone once Close returns, so a failed handshake is only
// logged. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		err := c.conn.Close(websocket.StatusNormalClosure, "")
		c.cancel()
		<-c.done
		if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, net.ErrClosed) {
			c.logger.Debug("close handshake failed", "err", err)
		}
		c.logger.Debug("connection closed")
	})
	return nil
}

// Done is closed when the connection has ended.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Package app assembles the forum client: data client, session, screens,
// route table and router, on top of any ui.Document.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	ui "github.com/atdiar/rtforum"
	"github.com/atdiar/rtforum/api"
	"github.com/atdiar/rtforum/config"
	"github.com/atdiar/rtforum/session"
	"github.com/atdiar/rtforum/views"
)

// Settings are read from the host page in the browser and from flags in
// the dev tool.
type Settings struct {
	AppName string
	API     string
	WS      string
	Images  string
	// Routes is a route file replacing the embedded route table.
	Routes string
	// Token is installed as the access token when no persisted session
	// exists.
	Token string

	Persister     session.Persister
	PresenceEvery time.Duration
	Logger        *slog.Logger
}

type App struct {
	Router  *ui.Router
	Session *session.Store
	API     *api.Client
}

func New(document ui.Document, s Settings, options ...func(*ui.Router) *ui.Router) (*App, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if s.AppName == "" {
		s.AppName = ui.DefaultAppName
	}

	client := api.NewClient(s.API, api.WithLogger(logger))
	sessionOptions := []func(*session.Store) *session.Store{session.WithLogger(logger)}
	if s.Persister != nil {
		sessionOptions = append(sessionOptions, session.WithPersister(s.Persister))
	}
	store := session.NewStore(client, sessionOptions...)
	client.Tokens = store
	if s.Token != "" && store.Token() == "" {
		if err := store.SetToken(s.Token, ""); err != nil {
			return nil, fmt.Errorf("installing token: %w", err)
		}
	}

	deps := views.Deps{
		API:           client,
		Session:       store,
		WSURL:         s.WS,
		ImageHost:     s.Images,
		PresenceEvery: s.PresenceEvery,
		Logger:        logger,
	}
	routes, err := Routes(deps, s.Routes)
	if err != nil {
		return nil, err
	}

	opts := []func(*ui.Router) *ui.Router{
		ui.WithSession(store),
		ui.WithLogger(logger),
		ui.WithAppName(s.AppName),
		ui.WithSlot("navbar", views.NavBar(deps)),
		ui.WithNotFound(views.NotFound),
		ui.WithFailureView(views.Failure(deps)),
	}
	r := ui.NewRouter(document, "app", routes, append(opts, options...)...)
	return &App{Router: r, Session: store, API: client}, nil
}

// Routes loads the route table from file, or the embedded one when file is
// empty.
func Routes(deps views.Deps, file string) (*ui.RouteTable, error) {
	ctors := views.Constructors(deps)
	if file == "" {
		return config.LoadDefaultRoutes(ctors)
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	routes, err := config.LoadRoutes(f, ctors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return routes, nil
}

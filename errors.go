package ui

import "errors"

// Navigation error taxonomy.
// Only ErrRenderFailure and ErrRedirectLoop make a navigation fail. The
// other kinds are absorbed by the router: they resolve to a dedicated view, a
// redirect or a log entry.
var (
	ErrRouteNotFound  = errors.New("route not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRenderFailure  = errors.New("render failure")
	ErrInitFailure    = errors.New("init failure")
	ErrCleanupFailure = errors.New("cleanup failure")
	ErrRedirectLoop   = errors.New("redirect loop")

	ErrMalformedPath = errors.New("malformed path")
	ErrSuperseded    = errors.New("navigation superseded")
	ErrRouterClosed  = errors.New("router closed")
)

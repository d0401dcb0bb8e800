package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// NavState is the state of the navigation state machine.
type NavState int32

const (
	Idle NavState = iota
	Resolving
	Unmounting
	Mounting
)

func (s NavState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Unmounting:
		return "unmounting"
	case Mounting:
		return "mounting"
	}
	return fmt.Sprintf("NavState(%d)", int32(s))
}

// maxRedirects bounds the chain of authorization redirects of a single
// navigation.
const maxRedirects = 8

type navRequest struct {
	path        string
	replace     bool
	fromHistory bool
	gen         uint64
	done        chan error
}

func (n *navRequest) reply(err error) {
	select {
	case n.done <- err:
	default:
	}
}

// mounted holds what the router owns for the views currently attached.
type mounted struct {
	path   string
	gen    uint64
	views  []View
	doc    *scopedDocument
	cancel context.CancelFunc
}

type slot struct {
	container string
	view      ViewConstructor
}

// Router maps paths to views and drives their lifecycle.
//
// Navigation is serialized: every request goes through
// Idle → Resolving → Unmounting → Mounting → Idle on the goroutine running
// ListenAndServe. A request arriving while a navigation is in progress waits
// in a single pending slot; a newer request replaces it (last write wins).
// Each request is tagged with a generation number. A mount whose generation
// is no longer the latest is discarded before it touches the document.
type Router struct {
	Document Document
	// Outlet is the id of the container element receiving the routed view.
	Outlet string
	Table  *RouteTable
	// History mirrors the browser history.
	History *NavHistory

	Session     SessionProvider
	Connections *ConnectionRegistry
	Timers      *TimerRegistry

	AppName            string
	LeaveTrailingSlash bool
	SignInPath         string
	HomePath           string

	NotFound ViewConstructor
	Failure  ViewConstructor

	Logger *slog.Logger

	slots []slot

	state      atomic.Int32
	generation atomic.Uint64

	mu      sync.Mutex
	pending *navRequest
	wake    chan struct{}
	idle    chan struct{}
	// inflight is the mount being built by the navigation in progress,
	// until that navigation returns.
	inflight *mounted
	serving  bool
	closed   bool
	current  *mounted
	path     string
}

// NewRouter returns a router attaching the routed views to the element
// whose id is outlet.
func NewRouter(document Document, outlet string, routes *RouteTable, options ...func(*Router) *Router) *Router {
	if routes == nil {
		routes = MustRouteTable()
	}
	r := &Router{
		Document:    document,
		Outlet:      outlet,
		Table:       routes,
		History:     NewNavigationHistory(),
		Session:     anonymous{},
		Connections: Connections,
		Timers:      Timers,
		AppName:     DefaultAppName,
		SignInPath:  "/sign-in",
		HomePath:    "/",
		NotFound:    defaultNotFound,
		Logger:      slog.Default(),
		wake:        make(chan struct{}, 1),
		idle:        make(chan struct{}),
	}
	for _, option := range options {
		r = option(r)
	}
	return r
}

func WithSession(s SessionProvider) func(*Router) *Router {
	return func(r *Router) *Router {
		r.Session = s
		return r
	}
}

func WithLogger(l *slog.Logger) func(*Router) *Router {
	return func(r *Router) *Router {
		r.Logger = l
		return r
	}
}

func WithAppName(name string) func(*Router) *Router {
	return func(r *Router) *Router {
		r.AppName = name
		return r
	}
}

// WithRegistries makes the router sweep the given registries instead of the
// process-wide ones.
func WithRegistries(c *ConnectionRegistry, t *TimerRegistry) func(*Router) *Router {
	return func(r *Router) *Router {
		r.Connections = c
		r.Timers = t
		return r
	}
}

// WithRedirects sets where the authorization gate sends anonymous users
// (signin) and authenticated users (home).
func WithRedirects(signin, home string) func(*Router) *Router {
	return func(r *Router) *Router {
		r.SignInPath = signin
		r.HomePath = home
		return r
	}
}

func WithNotFound(v ViewConstructor) func(*Router) *Router {
	return func(r *Router) *Router {
		r.NotFound = v
		return r
	}
}

// WithFailureView makes the router display v when a view fails to render,
// instead of leaving the previous markup in place.
func WithFailureView(v ViewConstructor) func(*Router) *Router {
	return func(r *Router) *Router {
		r.Failure = v
		return r
	}
}

// WithSlot registers a view mounted in the container element with the given
// id on every navigation, alongside the routed view. The nav bar is such a
// view.
func WithSlot(container string, v ViewConstructor) func(*Router) *Router {
	return func(r *Router) *Router {
		r.slots = append(r.slots, slot{container, v})
		return r
	}
}

// LeaveTrailingSlash keeps the trailing slash of paths during resolution.
func LeaveTrailingSlash(r *Router) *Router {
	r.LeaveTrailingSlash = true
	return r
}

// State returns the current state of the navigation state machine.
func (r *Router) State() NavState {
	return NavState(r.state.Load())
}

// CurrentPath returns the path of the last successful navigation.
func (r *Router) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// CurrentView returns the routed view currently mounted.
func (r *Router) CurrentView() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || len(r.current.views) == 0 {
		return nil, false
	}
	return r.current.views[0], true
}

// Resolve matches path against the route table. An unknown path returns an
// error wrapping ErrRouteNotFound together with a Match bound to the
// not-found view.
func (r *Router) Resolve(path string) (Match, error) {
	if err := validatePath(path); err != nil {
		return Match{}, err
	}
	p := normalize(path, r.LeaveTrailingSlash)
	m, err := r.Table.Match(p)
	if err != nil {
		return Match{Route: Route{View: r.NotFound, Name: "not-found"}, Params: Params{}, Path: p}, err
	}
	return m, nil
}

// Routes returns the route table in insertion order.
func (r *Router) Routes() []Route {
	return r.Table.Routes()
}

// Link builds the path of a route pattern with the given parameters.
func (r *Router) Link(pattern string, params Params) (string, error) {
	return Link(pattern, params)
}

// NavigateTo navigates to path and returns once the resulting mount has
// completed or failed. Only render failures are returned: a missing route
// mounts the not-found view and an authorization mismatch redirects.
// ErrSuperseded is returned when a newer navigation replaced this one.
func (r *Router) NavigateTo(ctx context.Context, path string, replace bool) error {
	if err := validatePath(path); err != nil {
		return err
	}
	req := r.enqueue(path, replace, false)
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go requests a navigation without waiting for it. It is meant for event
// handlers, which must not block.
func (r *Router) Go(path string) {
	if err := validatePath(path); err != nil {
		r.Logger.Warn("navigation request ignored", "path", path, "err", err)
		return
	}
	r.enqueue(path, false, false)
}

// Back moves the browser history backward. The router follows on popstate.
func (r *Router) Back() {
	if r.History.BackAllowed() {
		r.Document.History().Back()
	}
}

// Forward moves the browser history forward.
func (r *Router) Forward() {
	if r.History.ForwardAllowed() {
		r.Document.History().Forward()
	}
}

// Wait blocks until the router is idle with no navigation pending.
func (r *Router) Wait(ctx context.Context) error {
	r.mu.Lock()
	ch := r.idle
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrRouterClosed
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) enqueue(path string, replace, fromHistory bool) *navRequest {
	req := &navRequest{path: path, replace: replace, fromHistory: fromHistory, done: make(chan error, 1)}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		req.reply(ErrRouterClosed)
		return req
	}
	req.gen = r.generation.Inc()
	if r.pending != nil {
		r.Logger.Debug("navigation superseded", "path", r.pending.path, "gen", r.pending.gen, "by", path)
		r.pending.reply(ErrSuperseded)
	}
	r.pending = req
	select {
	case <-r.idle:
		r.idle = make(chan struct{})
	default:
	}
	// the mounted view stays live until it is unmounted
	if r.inflight != nil {
		r.inflight.cancel()
	}
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return req
}

// take returns the pending request, or nil after having marked the router
// idle.
func (r *Router) take() *navRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	req := r.pending
	r.pending = nil
	if req == nil {
		r.state.Store(int32(Idle))
		select {
		case <-r.idle:
		default:
			close(r.idle)
		}
	}
	return req
}

func (r *Router) stale(gen uint64) bool {
	return r.generation.Load() != gen
}

// InterceptClicks installs a capturing document-level click handler that
// turns plain primary-button activations of anchors marked with LinkAttr
// into router navigations.
func (r *Router) InterceptClicks() (remove func()) {
	return r.Document.AddEventListener("click", NewEventHandler(func(evt Event) bool {
		href, ok := internalLink(evt)
		if !ok {
			return false
		}
		evt.PreventDefault()
		r.Go(href)
		return false
	}).ForCapture())
}

func internalLink(evt Event) (string, bool) {
	if evt.DefaultPrevented() {
		return "", false
	}
	me, ok := evt.(MouseEvent)
	if !ok {
		return "", false
	}
	if me.Button() != 0 || me.CtrlKey() || me.MetaKey() || me.ShiftKey() || me.AltKey() {
		return "", false
	}
	t := evt.Target()
	if t == nil {
		return "", false
	}
	a, ok := t.Closest("a")
	if !ok {
		return "", false
	}
	if _, ok := a.GetAttribute(LinkAttr); !ok {
		return "", false
	}
	if target, ok := a.GetAttribute("target"); ok && target != "" && target != "_self" {
		return "", false
	}
	if _, ok := a.GetAttribute("download"); ok {
		return "", false
	}
	href, ok := a.GetAttribute("href")
	if !ok || validatePath(href) != nil {
		return "", false
	}
	return href, true
}

// ListenAndServe installs click interception and the back/forward listener,
// navigates to the current location and then performs navigations until ctx
// is done.
func (r *Router) ListenAndServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	if r.serving || r.closed {
		r.mu.Unlock()
		return errors.New("router is already serving")
	}
	r.serving = true
	r.mu.Unlock()

	removeClicks := r.InterceptClicks()
	removePopstate := r.Document.AddEventListener("popstate", NewEventHandler(func(evt Event) bool {
		r.enqueue(r.Document.Location(), true, true)
		return false
	}))
	defer func() {
		removeClicks()
		removePopstate()
		r.close()
	}()

	start := r.Document.Location()
	if validatePath(start) != nil {
		start = r.HomePath
	}
	r.enqueue(start, true, false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			for req := r.take(); req != nil; req = r.take() {
				req.reply(r.navigate(ctx, req))
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
	}
}

func (r *Router) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.pending != nil {
		r.pending.reply(ErrRouterClosed)
		r.pending = nil
	}
	if r.inflight != nil {
		r.inflight.cancel()
	}
	select {
	case <-r.idle:
	default:
		close(r.idle)
	}
}

func (r *Router) navigate(ctx context.Context, req *navRequest) error {
	log := r.Logger.With("path", req.path, "gen", req.gen)

	r.state.Store(int32(Resolving))
	m, user, err := r.resolveTarget(req.path, log)
	if err != nil {
		// the previous view is left untouched
		log.Error("navigation aborted", "err", err)
		return r.fail(ctx, req, err, user, log)
	}
	if r.stale(req.gen) {
		return ErrSuperseded
	}

	r.state.Store(int32(Unmounting))
	r.unmount(log)

	r.state.Store(int32(Mounting))
	return r.mount(ctx, req, m, user, log)
}

// resolveTarget resolves path and applies the authorization gate, following
// redirects. The session is read once per resolved target.
func (r *Router) resolveTarget(path string, log *slog.Logger) (Match, User, error) {
	target := path
	var user User
	for i := 0; i <= maxRedirects; i++ {
		m, err := r.Resolve(target)
		if err != nil && !errors.Is(err, ErrRouteNotFound) {
			return Match{}, user, fmt.Errorf("%w: %w", ErrRenderFailure, err)
		}
		if err != nil {
			log.Info("route not found", "target", target)
		}
		authenticated := r.Session.IsAuthenticated()
		user = r.Session.CurrentUser()
		if !authenticated {
			user = User{}
		}
		redirect := ""
		switch m.Route.Access {
		case AccessAuthenticated:
			if !authenticated {
				redirect = r.SignInPath
			}
		case AccessAnonymous:
			if authenticated {
				redirect = r.HomePath
			}
		}
		if redirect == "" {
			if target != path {
				// the redirect target keeps the query and fragment it was given
				m.Path = normalize(target, r.LeaveTrailingSlash)
			}
			return m, user, nil
		}
		log.Info("redirecting", "target", target, "to", redirect, "err", ErrUnauthorized)
		target = redirect
	}
	return Match{}, user, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}

// unmount runs the teardown of the mounted views, then unconditionally
// releases the shared connection and the timers. Failures are logged and
// swallowed.
func (r *Router) unmount(log *slog.Logger) {
	r.mu.Lock()
	cur := r.current
	r.current = nil
	r.mu.Unlock()

	if cur != nil {
		for _, v := range cur.views {
			if err := teardown(v); err != nil {
				log.Error("view teardown failed", "err", fmt.Errorf("%w: %w", ErrCleanupFailure, err))
			}
		}
		cur.doc.release()
	}
	if err := r.Connections.ReleaseAll(); err != nil {
		log.Error("connection release failed", "err", err)
	}
	if err := r.Timers.ReleaseAll(); err != nil {
		log.Error("timer release failed", "err", err)
	}
	if cur != nil {
		cur.cancel()
	}
}

// owns reports whether the mount using doc may still mutate the document:
// it is displayed, or it is being built and has not been superseded.
func (r *Router) owns(doc *scopedDocument, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current.doc == doc {
		return true
	}
	return r.inflight != nil && r.inflight.doc == doc && !r.stale(gen)
}

// settle ends the in-flight status of the mount using doc.
func (r *Router) settle(doc *scopedDocument) {
	r.mu.Lock()
	if r.inflight != nil && r.inflight.doc == doc {
		r.inflight = nil
	}
	r.mu.Unlock()
}

func (r *Router) newMount(ctx context.Context, req *navRequest, m Match, user User) (Mount, *scopedDocument, context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx)
	var doc *scopedDocument
	doc = newScopedDocument(r.Document, func() bool { return r.owns(doc, req.gen) })

	r.mu.Lock()
	r.inflight = &mounted{path: m.Path, gen: req.gen, doc: doc, cancel: cancel}
	if r.stale(req.gen) {
		// superseded between resolution and now: enqueue could not see cancel
		cancel()
	}
	r.mu.Unlock()

	mnt := Mount{
		Path:        m.Path,
		Params:      m.Params.clone(),
		User:        user,
		AppName:     r.AppName,
		Document:    doc,
		Router:      r,
		Connections: r.Connections,
		Timers:      r.Timers,
	}
	return mnt, doc, mctx, cancel
}

type rendered struct {
	container string
	view      View
	markup    string
}

func (r *Router) mount(ctx context.Context, req *navRequest, m Match, user User, log *slog.Logger) error {
	mnt, doc, mctx, cancel := r.newMount(ctx, req, m, user)
	defer r.settle(doc)

	parts := make([]rendered, 0, 1+len(r.slots))
	ctors := make([]slot, 0, 1+len(r.slots))
	ctors = append(ctors, slot{r.Outlet, m.Route.View})
	ctors = append(ctors, r.slots...)
	for _, s := range ctors {
		v, err := construct(s.view, mnt)
		if err == nil {
			var markup string
			markup, err = render(mctx, v)
			parts = append(parts, rendered{s.container, v, markup})
		}
		if err != nil {
			cancel()
			if r.stale(req.gen) {
				return ErrSuperseded
			}
			err = fmt.Errorf("%w: %s: %w", ErrRenderFailure, m.Path, err)
			log.Error("navigation aborted", "err", err)
			return r.fail(ctx, req, err, user, log)
		}
	}

	containers := make([]Element, len(parts))
	for i, p := range parts {
		el, ok := r.Document.GetElementByID(p.container)
		if !ok {
			cancel()
			err := fmt.Errorf("%w: container %q not found", ErrRenderFailure, p.container)
			log.Error("navigation aborted", "err", err)
			return err
		}
		containers[i] = el
	}
	views := make([]View, len(parts))
	for i, p := range parts {
		views[i] = p.view
	}

	// enqueue bumps the generation under r.mu: a superseded mount never
	// reaches the document or the history
	r.mu.Lock()
	if r.stale(req.gen) {
		r.mu.Unlock()
		cancel()
		log.Debug("discarding stale mount")
		return ErrSuperseded
	}
	for i, p := range parts {
		containers[i].SetInnerHTML(p.markup)
	}
	r.Document.SetTitle(titleOf(parts[0].view, r.AppName))
	r.current = &mounted{path: m.Path, gen: req.gen, views: views, doc: doc, cancel: cancel}
	r.path = m.Path
	r.recordHistory(req, historyPath(req.path, m.Path))
	r.mu.Unlock()

	for _, v := range views {
		if r.stale(req.gen) {
			log.Debug("mount superseded before init")
			return ErrSuperseded
		}
		if err := initialize(mctx, v); err != nil {
			if mctx.Err() != nil && r.stale(req.gen) {
				log.Debug("init interrupted by a newer navigation", "err", err)
				continue
			}
			log.Error("view init failed", "err", fmt.Errorf("%w: %w", ErrInitFailure, err))
		}
	}
	if r.stale(req.gen) {
		log.Debug("mount superseded during init")
		return ErrSuperseded
	}
	log.Debug("mounted", "view", m.Route.Name)
	return nil
}

// fail mounts the failure view when one is configured. History is left as
// it is and cause is returned in every case.
func (r *Router) fail(ctx context.Context, req *navRequest, cause error, user User, log *slog.Logger) error {
	if r.Failure == nil || r.stale(req.gen) {
		return cause
	}
	r.state.Store(int32(Unmounting))
	r.unmount(log)
	r.state.Store(int32(Mounting))

	p := normalize(req.path, r.LeaveTrailingSlash)
	mnt, doc, mctx, cancel := r.newMount(ctx, req, Match{Path: p}, user)
	defer r.settle(doc)
	mnt.Params = Params{"error": cause.Error(), "path": p}
	v, err := construct(r.Failure, mnt)
	var markup string
	if err == nil {
		markup, err = render(mctx, v)
	}
	if err != nil {
		cancel()
		log.Error("failure view could not be rendered", "err", err)
		return cause
	}
	el, ok := r.Document.GetElementByID(r.Outlet)
	if !ok {
		cancel()
		return cause
	}
	r.mu.Lock()
	if r.stale(req.gen) {
		r.mu.Unlock()
		cancel()
		return cause
	}
	el.SetInnerHTML(markup)
	r.Document.SetTitle(titleOf(v, r.AppName))
	r.current = &mounted{path: p, gen: req.gen, views: []View{v}, doc: doc, cancel: cancel}
	r.mu.Unlock()
	if err := initialize(mctx, v); err != nil {
		log.Error("failure view init failed", "err", fmt.Errorf("%w: %w", ErrInitFailure, err))
	}
	return cause
}

func (r *Router) recordHistory(req *navRequest, path string) {
	h := r.Document.History()
	switch {
	case req.fromHistory:
		pos, ok := h.State()
		if ok && r.History.Seek(pos, path) {
			// a redirect replaces the entry, as navigateTo(path, replace) would
			if path != r.Document.Location() {
				h.ReplaceState(pos, path)
			}
			return
		}
		if !ok {
			r.History.Replace(path)
		}
		h.ReplaceState(r.History.Position(), path)
	case req.replace || r.History.Len() == 0:
		r.History.Replace(path)
		h.ReplaceState(r.History.Position(), path)
	default:
		r.History.Push(path)
		h.PushState(r.History.Position(), path)
	}
}

// historyPath returns the path recorded in history: the requested path with
// its query and fragment, unless a redirect changed the destination.
func historyPath(requested, resolved string) string {
	if normalize(requested, true) == resolved || normalize(requested, false) == resolved {
		return requested
	}
	return resolved
}

func titleOf(v View, fallback string) string {
	if t, ok := v.(Titled); ok && t.Title() != "" {
		return t.Title()
	}
	if fallback == "" {
		return DefaultAppName
	}
	return fallback
}

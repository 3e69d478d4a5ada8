// Package navigation decides which set of routes the front-end may show and
// forces the login route when the API reports an expired session.
package navigation

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/fieldops/fieldops/internal/gateway"
	"github.com/fieldops/fieldops/internal/logging"
	"github.com/fieldops/fieldops/internal/session"
)

// Route names a screen of the front-end.
type Route string

// Public routes.
const (
	Login     Route = "Login"
	OTPVerify Route = "OtpVerify"
	Register  Route = "Register"
)

// Authenticated routes.
const (
	Home                  Route = "Home"
	Customers             Route = "Customers"
	CustomerDetails       Route = "CustomerDetails"
	Engineers             Route = "Engineers"
	Machines              Route = "Machines"
	Parts                 Route = "Parts"
	Products              Route = "Products"
	ServiceRequests       Route = "ServiceRequests"
	ServiceRequestDetails Route = "ServiceRequestDetails"
	Profile               Route = "Profile"
)

// Set is a group of routes shown together.
type Set int

const (
	// SetLoading shows only a placeholder.
	SetLoading Set = iota
	SetPublic
	SetAuthenticated
)

func (s Set) String() string {
	switch s {
	case SetLoading:
		return "loading"
	case SetPublic:
		return "public"
	case SetAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

var (
	// ErrRouteUnavailable is returned for a route outside the active set.
	ErrRouteUnavailable = errors.New("navigation: route not available")

	routeSets = map[Set][]Route{
		SetPublic: {Login, OTPVerify, Register},
		SetAuthenticated: {
			Home, Customers, CustomerDetails, Engineers, Machines, Parts,
			Products, ServiceRequests, ServiceRequestDetails, Profile,
		},
	}
)

// Routes returns the routes of set s; the first is its entry route.
func Routes(s Set) []Route {
	return append([]Route(nil), routeSets[s]...)
}

func entry(s Set) Route {
	if routes := routeSets[s]; len(routes) > 0 {
		return routes[0]
	}
	return ""
}

func contains(s Set, r Route) bool {
	for _, candidate := range routeSets[s] {
		if candidate == r {
			return true
		}
	}
	return false
}

// Observable is the part of the gateway the gate subscribes to.
type Observable interface {
	Observe(fn gateway.Observer) (cancel func())
}

// Location is what the front-end should show.
type Location struct {
	Set   Set
	Route Route
}

// Gate follows a session store. It never reports the authenticated set
// while the store is loading or has no identity.
type Gate struct {
	store  *session.Store
	logger *slog.Logger

	mu       sync.Mutex
	loc      Location
	subs     map[int]func(Location)
	nextSub  int
	stopping []func()
}

// New builds a gate over store and registers the expiry observer on gw.
// gw may be nil.
func New(store *session.Store, gw Observable, logger *slog.Logger) *Gate {
	g := &Gate{store: store, logger: logging.Component(logger, "navigation"), subs: make(map[int]func(Location))}
	g.loc = Location{Set: setFor(store.Snapshot())}
	g.loc.Route = entry(g.loc.Set)

	g.stopping = append(g.stopping, store.Subscribe(g.onSession))
	if gw != nil {
		g.stopping = append(g.stopping, gw.Observe(g.onError))
	}
	// The store may have settled between the snapshot and the subscription.
	g.onSession(store.Snapshot())
	return g
}

func setFor(st session.State) Set {
	switch {
	case st.Loading:
		return SetLoading
	case st.User == nil:
		return SetPublic
	default:
		return SetAuthenticated
	}
}

// Location returns the active set and current route.
func (g *Gate) Location() Location {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loc
}

// Active returns the active route set.
func (g *Gate) Active() Set {
	return g.Location().Set
}

// Current returns the current route. It is empty while loading.
func (g *Gate) Current() Route {
	return g.Location().Route
}

// Navigate moves to r when it belongs to the active set.
func (g *Gate) Navigate(r Route) error {
	g.mu.Lock()
	if !contains(g.loc.Set, r) {
		g.mu.Unlock()
		return ErrRouteUnavailable
	}
	g.loc.Route = r
	g.publishLocked()
	return nil
}

// Subscribe registers fn for location changes.
func (g *Gate) Subscribe(fn func(Location)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

// Close detaches the gate from the store and the gateway.
func (g *Gate) Close() {
	g.mu.Lock()
	stopping := g.stopping
	g.stopping = nil
	g.mu.Unlock()
	for _, stop := range stopping {
		stop()
	}
}

func (g *Gate) onSession(st session.State) {
	set := setFor(st)
	g.mu.Lock()
	if set == g.loc.Set {
		g.mu.Unlock()
		return
	}
	g.loc = Location{Set: set, Route: entry(set)}
	g.publishLocked()
}

func (g *Gate) onError(err *gateway.Error) {
	if err.Kind != gateway.KindSessionExpired {
		return
	}
	g.logger.Info("session expired, returning to login", slog.Int("status", err.Status), slog.String("code", err.Code))
	g.store.SetUser(nil)

	g.mu.Lock()
	if g.loc.Set == SetLoading {
		g.mu.Unlock()
		return
	}
	g.loc = Location{Set: SetPublic, Route: Login}
	g.publishLocked()
}

// publishLocked releases g.mu before calling subscribers.
func (g *Gate) publishLocked() {
	loc := g.loc
	subs := make([]func(Location), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()
	for _, fn := range subs {
		fn(loc)
	}
}

// Package potluck holds the types shared by every part of the potluck recipe
// and menu server: configuration, errors, the response envelope, and the
// interfaces that APIs, middleware, and the server use to talk to each other.
//
// The server itself is built in the server sub-package and run by
// cmd/potluck.
package potluck

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Middleware is a function that takes a handler and returns a new handler which
// wraps the given one and provides some additional functionality.
type Middleware func(next http.Handler) http.Handler

// EndpointFunc is the body of an endpoint. The Result it returns is written
// and logged by the handler that wraps it.
type EndpointFunc func(req *http.Request) Result

// PrincipalKind is the way that a client proved who they are.
type PrincipalKind int

const (
	Anonymous PrincipalKind = iota
	KeyHolder
	LoggedInUser
)

func (pk PrincipalKind) String() string {
	switch pk {
	case Anonymous:
		return "anonymous"
	case KeyHolder:
		return "apikey"
	case LoggedInUser:
		return "user"
	default:
		return "unknown"
	}
}

// Principal is the authenticated client of a request. Which fields are set
// depends on Kind.
type Principal struct {
	Kind PrincipalKind

	// KeyID is the ID of the API key used. Only set for KeyHolder.
	KeyID int64

	// UserID is the ID of the logged-in user. Only set for LoggedInUser.
	UserID int64

	// Username is the username of the logged-in user. Only set for
	// LoggedInUser.
	Username string

	// Admin is whether the logged-in user is an admin.
	Admin bool
}

// String gives a short description of the principal for use in log messages.
func (p Principal) String() string {
	switch p.Kind {
	case KeyHolder:
		return "key #" + strconv.FormatInt(p.KeyID, 10)
	case LoggedInUser:
		return "user " + p.Username
	default:
		return p.Kind.String()
	}
}

// Authenticator is middleware for an endpoint that will accept a request,
// extract the credentials used for authentication, and resolve them to a
// Principal.
type Authenticator interface {

	// Authenticate retrieves the principal from the request using whatever
	// method is correct for the auth handler. Returns the principal, whether
	// the client is authenticated, and any error that occured. If the client
	// did not provide credentials, a zero Principal and false are returned
	// with a nil error. An error is only returned if credentials were given
	// and they could not be validated.
	Authenticate(req *http.Request) (Principal, bool, error)

	// UnauthDelay is the amount of time that the system should delay responding
	// to unauthenticated requests to endpoints that require auth.
	UnauthDelay() time.Duration
}

// ServiceProvider is given to an API when it is routed. It provides the
// middleware and response helpers that endpoints use.
type ServiceProvider interface {
	ResponseGenerator

	// DontPanic returns middleware that turns a panic into an HTTP-500.
	DontPanic() Middleware

	// OptionalAuth returns middleware that records the principal if there is
	// one but lets anonymous requests through.
	OptionalAuth(authenticators ...string) Middleware

	// RequiredAuth returns middleware that rejects requests that cannot be
	// authenticated by the first of the named authenticators that exists.
	RequiredAuth(authenticators ...string) Middleware

	// RequireAdmin returns middleware that rejects requests whose principal is
	// not an admin user. It must come after RequiredAuth.
	RequireAdmin() Middleware

	// RateLimit returns middleware that allows at most rps requests per
	// second, with bursts of up to burst requests. A non-positive rps gives
	// middleware that does nothing.
	RateLimit(rps float64, burst int) Middleware

	// SelectAuthenticator returns the first of the named authenticators that
	// exists.
	SelectAuthenticator(authenticators ...string) Authenticator

	// GetPrincipal returns the principal that auth middleware recorded for the
	// request.
	GetPrincipal(req *http.Request) (Principal, bool)

	// Endpoint wraps an EndpointFunc in a handler that writes and logs its
	// result.
	Endpoint(ep EndpointFunc) http.HandlerFunc

	// Logger returns the server log.
	Logger() Logger
}

// API is a group of routes mounted under the server's base URI.
type API interface {
	// Authenticators returns any authenticators that this API provides. Other
	// APIs refer to them by name.
	Authenticators() map[string]Authenticator

	// Routes returns a router that leads to all routes in the API.
	Routes(sp ServiceProvider) chi.Router

	// Shutdown terminates any pending operations cleanly and releases any held
	// resources. It is called after the listener socket is shut down.
	Shutdown(ctx context.Context) error
}

// RESTServer is an HTTP REST server that provides resources.
type RESTServer interface {
	// Config returns the config the server was created with.
	Config() Config

	// Add mounts an API at the given path under the server's base URI and
	// registers the authenticators it provides.
	Add(base string, api API) error

	// Handler returns the fully-routed handler for the server.
	Handler() http.Handler

	// RoutesIndex returns a human-readable list of every route.
	RoutesIndex() string

	// ServeForever listens for requests until Shutdown is called.
	ServeForever() error

	// Shutdown stops the server and releases its resources.
	Shutdown(ctx context.Context) error
}

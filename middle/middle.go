// Package middle contains middleware for use with the potluck server.
package middle

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type mwFunc http.HandlerFunc

func (sf mwFunc) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	sf(w, req)
}

type ctxKey int64

const (
	ctxKeyLoggedIn ctxKey = iota
	ctxKeyPrincipal
	ctxKeyRequestID
)

// RequestIDHeader is the header that request IDs are read from and written
// to.
const RequestIDHeader = "X-Request-ID"

// Provider is used to create middleware for the potluck server. It holds the
// authenticators that auth middleware can select from by name.
type Provider struct {
	authenticators    map[string]potluck.Authenticator
	mainAuthenticator string
}

// GetPrincipal returns the principal that auth middleware recorded for the
// request, and whether the client is authenticated at all.
func GetPrincipal(req *http.Request) (p potluck.Principal, loggedIn bool) {
	loggedIn, _ = req.Context().Value(ctxKeyLoggedIn).(bool)
	if loggedIn {
		p, _ = req.Context().Value(ctxKeyPrincipal).(potluck.Principal)
	}

	return p, loggedIn
}

// GetRequestID returns the ID that the RequestID middleware assigned to the
// request. It is the empty string if there is none.
func GetRequestID(req *http.Request) string {
	id, _ := req.Context().Value(ctxKeyRequestID).(string)
	return id
}

func (p *Provider) initDefaults() {
	if p.authenticators == nil {
		p.authenticators = map[string]potluck.Authenticator{}
		p.mainAuthenticator = ""
	}
}

// SelectAuthenticator retrieves and selects the first authenticator that
// matches one of the names in from. If no names are provided in from, the main
// authenticator is returned. If from is not empty, at least one name listed in
// it must exist, or this function will panic.
func (p *Provider) SelectAuthenticator(from ...string) potluck.Authenticator {
	p.initDefaults()

	var authent potluck.Authenticator
	if len(from) > 0 {
		if len(p.authenticators) < 1 {
			panic(fmt.Sprintf("no valid auth provider given in list: %q", from))
		}

		var ok bool
		for _, authName := range from {
			normName := strings.ToLower(authName)
			authent, ok = p.authenticators[normName]
			if ok {
				break
			}
		}
		if !ok {
			panic(fmt.Sprintf("no valid auth provider given in list: %q", from))
		}
	} else {
		authent = p.getMainAuth()
	}
	return authent
}

func (p *Provider) getMainAuth() potluck.Authenticator {
	p.initDefaults()

	if p.mainAuthenticator == "" {
		return noopAuthenticator{}
	}
	return p.authenticators[p.mainAuthenticator]
}

// RegisterMainAuthenticator sets the authenticator that is used when auth
// middleware is created without naming one. It must already be registered.
func (p *Provider) RegisterMainAuthenticator(name string) error {
	p.initDefaults()

	normName := strings.ToLower(name)

	if _, ok := p.authenticators[normName]; !ok {
		return fmt.Errorf("no authenticator called %q has been registered; register one before trying to set it as main", normName)
	}

	p.mainAuthenticator = normName
	return nil
}

// RegisterAuthenticator adds an authenticator under the given name. Names are
// case-insensitive.
func (p *Provider) RegisterAuthenticator(name string, authen potluck.Authenticator) error {
	p.initDefaults()

	normName := strings.ToLower(name)

	if _, ok := p.authenticators[normName]; ok {
		return fmt.Errorf("authenticator called %q already exists", normName)
	}

	if authen == nil {
		return fmt.Errorf("authenticator cannot be nil")
	}

	p.authenticators[normName] = authen
	return nil
}

// noopAuthenticator is used as the active one when no others are specified.
type noopAuthenticator struct{}

func (na noopAuthenticator) Authenticate(req *http.Request) (potluck.Principal, bool, error) {
	return potluck.Principal{}, false, fmt.Errorf("no authenticator provider is specified for this server")
}

func (na noopAuthenticator) UnauthDelay() time.Duration {
	var d time.Duration
	return d
}

// AuthHandler is middleware that will accept a request, extract the
// credentials used for authentication, and resolve them to the Principal that
// is making the request.
//
// The principal is added to the request context before the request is passed
// to the next step in the chain; use GetPrincipal to read it. For required
// auth, a request that cannot be authenticated is answered with an error
// before it reaches the next handler.
type AuthHandler struct {
	provider potluck.Authenticator
	required bool
	next     http.Handler
	resp     potluck.ResponseGenerator
}

func (ah *AuthHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p, loggedIn, err := ah.provider.Authenticate(req)

	if ah.required {
		if err != nil || !loggedIn {
			if err == nil {
				err = potluck.NewError("no credentials were given", potluck.ErrUnauthorized)
			}

			r := ah.resp.Error(err)
			time.Sleep(ah.provider.UnauthDelay())
			r.WriteResponse(w)
			ah.resp.LogResponse(req, r)
			return
		}
	} else if err != nil {
		// bad credentials on an optional route are the same as none at all.
		loggedIn = false
		p = potluck.Principal{}
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, ctxKeyLoggedIn, loggedIn)
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	req = req.WithContext(ctx)
	ah.next.ServeHTTP(w, req)
}

// RequiredAuth returns middleware that requires that auth be used. The
// authenticators, if provided, must give the names of preferred providers that
// were registered as a potluck.Authenticator with this Provider, in priority
// order. If none of the given authenticators exist, this function panics. If no
// authenticator is specified, the main one is used.
func (p *Provider) RequiredAuth(resp potluck.ResponseGenerator, authenticators ...string) potluck.Middleware {
	prov := p.SelectAuthenticator(authenticators...)

	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			provider: prov,
			required: true,
			next:     next,
			resp:     resp,
		}
	}
}

// OptionalAuth returns middleware that allows auth be used to retrieve the
// principal. The authenticators are selected the same way as for
// RequiredAuth.
func (p *Provider) OptionalAuth(resp potluck.ResponseGenerator, authenticators ...string) potluck.Middleware {
	prov := p.SelectAuthenticator(authenticators...)

	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			provider: prov,
			required: false,
			next:     next,
			resp:     resp,
		}
	}
}

// RequireAdmin returns middleware that only lets requests through if the
// principal is a logged-in admin user. It must be used after auth middleware.
func (p *Provider) RequireAdmin(resp potluck.ResponseGenerator) potluck.Middleware {
	return func(next http.Handler) http.Handler {
		return mwFunc(func(w http.ResponseWriter, req *http.Request) {
			principal, loggedIn := GetPrincipal(req)
			if !loggedIn || principal.Kind != potluck.LoggedInUser || !principal.Admin {
				r := resp.Error(potluck.NewError(fmt.Sprintf("%s is not an admin", principal), potluck.ErrPermissions))
				r.WriteResponse(w)
				resp.LogResponse(req, r)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// DontPanic returns a Middleware that performs a panic check as it exits. If
// the function is panicking, it will write out an HTTP response with a generic
// message to the client and add it to the log.
func (p *Provider) DontPanic(resp potluck.ResponseGenerator) potluck.Middleware {
	return func(next http.Handler) http.Handler {
		return mwFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if panicErr := recover(); panicErr != nil {
					r := resp.TextErr(
						http.StatusInternalServerError,
						"An internal server error occurred",
						"panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack()),
					)
					r.WriteResponse(w)
					resp.LogResponse(req, r)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

// RequestID returns middleware that gives every request an ID. A client that
// sends a valid UUID in the X-Request-ID header keeps it; otherwise a new one
// is generated. The ID is echoed back in the response headers.
func (p *Provider) RequestID() potluck.Middleware {
	return func(next http.Handler) http.Handler {
		return mwFunc(func(w http.ResponseWriter, req *http.Request) {
			id := req.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(req.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// RateLimit returns middleware that allows at most rps requests per second
// through, with bursts of up to burst requests. The limit is shared by every
// client of the routes it wraps. If rps is not positive, the returned
// middleware does nothing.
func (p *Provider) RateLimit(resp potluck.ResponseGenerator, rps float64, burst int) potluck.Middleware {
	if rps <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return mwFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				r := resp.TextErr(
					http.StatusTooManyRequests,
					"Too many requests",
					"rate limit of %v/s exceeded", rps,
				).WithHeader("Retry-After", "1")
				r.WriteResponse(w)
				resp.LogResponse(req, r)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

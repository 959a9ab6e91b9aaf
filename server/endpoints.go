package server

import (
	"net/http"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/middle"
)

func (em endpointCreator) DontPanic() potluck.Middleware {
	return em.mid.DontPanic(em)
}

func (em endpointCreator) OptionalAuth(authenticators ...string) potluck.Middleware {
	return em.mid.OptionalAuth(em, authenticators...)
}

func (em endpointCreator) RequiredAuth(authenticators ...string) potluck.Middleware {
	return em.mid.RequiredAuth(em, authenticators...)
}

func (em endpointCreator) RequireAdmin() potluck.Middleware {
	return em.mid.RequireAdmin(em)
}

func (em endpointCreator) RateLimit(rps float64, burst int) potluck.Middleware {
	return em.mid.RateLimit(em, rps, burst)
}

func (em endpointCreator) SelectAuthenticator(authenticators ...string) potluck.Authenticator {
	return em.mid.SelectAuthenticator(authenticators...)
}

func (em endpointCreator) GetPrincipal(req *http.Request) (potluck.Principal, bool) {
	return middle.GetPrincipal(req)
}

// Endpoint returns a handler that runs ep and writes and logs its Result.
func (em endpointCreator) Endpoint(ep potluck.EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r := ep(req)

		if r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden || r.Status == http.StatusInternalServerError {
			// if it's one of these statuses, either the user is improperly
			// logging in or tried to access a forbidden resource, both of which
			// should force the wait time before responding.
			time.Sleep(em.mid.SelectAuthenticator().UnauthDelay())
		}

		r.WriteResponse(w)
		em.LogResponse(req, r)
	}
}

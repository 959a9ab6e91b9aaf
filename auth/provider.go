package auth

import (
	"net/http"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
	"github.com/dekarrin/potluck/token"
)

// Names that the authenticators are registered under.
const (
	KeyAuthName = "apikey"
	JWTAuthName = "jwt"
)

// KeyAuthenticator authenticates requests that carry an API key as a bearer
// token.
type KeyAuthenticator struct {
	Gate  Gate
	Pool  *db.Pool
	Delay time.Duration
}

func (ka KeyAuthenticator) Authenticate(req *http.Request) (potluck.Principal, bool, error) {
	key, err := token.Get(req)
	if err != nil {
		// might not actually be a problem, let the auth middleware decide if
		// so but there is no key to check here
		return potluck.Principal{}, false, nil
	}

	lease, err := ka.Pool.Acquire(req.Context())
	if err != nil {
		return potluck.Principal{}, false, err
	}
	defer lease.Release()

	id, err := ka.Gate.ValidateAPIKey(req.Context(), lease, key)
	if err != nil {
		return potluck.Principal{}, false, err
	}

	return potluck.Principal{Kind: potluck.KeyHolder, KeyID: id}, true, nil
}

func (ka KeyAuthenticator) UnauthDelay() time.Duration {
	return ka.Delay
}

// JWTAuthenticator authenticates requests that carry a user's token as a
// bearer token.
type JWTAuthenticator struct {
	Gate  Gate
	Pool  *db.Pool
	Delay time.Duration
}

func (ja JWTAuthenticator) Authenticate(req *http.Request) (potluck.Principal, bool, error) {
	tok, err := token.Get(req)
	if err != nil {
		return potluck.Principal{}, false, nil
	}

	lease, err := ja.Pool.Acquire(req.Context())
	if err != nil {
		return potluck.Principal{}, false, err
	}
	defer lease.Release()

	user, err := ja.Gate.ValidateToken(req.Context(), lease, tok)
	if err != nil {
		return potluck.Principal{}, false, err
	}

	return potluck.Principal{
		Kind:     potluck.LoggedInUser,
		UserID:   user.ID,
		Username: user.Username,
		Admin:    bool(user.Admin),
	}, true, nil
}

func (ja JWTAuthenticator) UnauthDelay() time.Duration {
	return ja.Delay
}

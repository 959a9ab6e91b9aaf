// Package token provides the JWTs that logged-in users authenticate with.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/golang-jwt/jwt/v5"
)

var (
	Issuer = "potluck"
)

// DefaultLifetime is how long a token is valid for if no lifetime is given.
const DefaultLifetime = 7 * 24 * time.Hour

// UserLookup gets the user with the given username.
type UserLookup func(ctx context.Context, username string) (dao.User, error)

// signingKey is the key a user's tokens are signed with. It includes the
// stored password hash, so changing the password invalidates every token
// issued before the change.
func signingKey(secret []byte, u dao.User) []byte {
	var signKey []byte
	signKey = append(signKey, secret...)
	signKey = append(signKey, []byte(u.Password)...)
	return signKey
}

// Validate checks that tok is a valid token issued by potluck for a user that
// still exists, and returns that user.
func Validate(ctx context.Context, tok string, secret []byte, lookup UserLookup) (dao.User, error) {
	var user dao.User

	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		// who is the user? we need this for further verification
		subj, err := t.Claims.GetSubject()
		if err != nil {
			return nil, fmt.Errorf("cannot get subject: %w", err)
		}

		user, err = lookup(ctx, subj)
		if err != nil {
			if errors.Is(err, potluck.ErrNotFound) {
				return nil, fmt.Errorf("subject does not exist")
			} else {
				return nil, fmt.Errorf("subject could not be validated")
			}
		}

		return signingKey(secret, user), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(Issuer), jwt.WithLeeway(time.Minute))

	if err != nil {
		return dao.User{}, err
	}

	return user, nil
}

// Get gets the token from the Authorization header as a bearer token.
func Get(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))

	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	authParts := strings.SplitN(authHeader, " ", 2)
	if len(authParts) != 2 {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	scheme := strings.TrimSpace(strings.ToLower(authParts[0]))
	token := strings.TrimSpace(authParts[1])

	if scheme != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return token, nil
}

// Generate creates a signed token for u that expires after lifetime. A
// non-positive lifetime gives DefaultLifetime.
func Generate(secret []byte, u dao.User, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	claims := &jwt.MapClaims{
		"iss":        Issuer,
		"exp":        time.Now().Add(lifetime).Unix(),
		"sub":        u.Username,
		"authorized": true,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	tokStr, err := tok.SignedString(signingKey(secret, u))
	if err != nil {
		return "", err
	}
	return tokStr, nil
}

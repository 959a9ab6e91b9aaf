// Package auth checks the credentials that clients of potluck present and
// manages the users and API keys those credentials belong to.
//
// API keys grant access to the recipe, category, and menu routes. Users log in
// with a username and password to get a token, and use the token to manage API
// keys and, if they are admins, other users.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/dekarrin/potluck/token"
	"golang.org/x/crypto/bcrypt"
)

// Gate validates credentials against the stored users and API keys.
//
// The zero-value of Gate is not ready to be used until its Store and Secret
// are set.
type Gate struct {
	Store *dao.Store

	// Secret is the server secret that tokens are signed with.
	Secret []byte

	// TokenLifetime is how long an issued token is valid for. If not set,
	// token.DefaultLifetime is used.
	TokenLifetime time.Duration
}

// ValidateAPIKey returns the ID of the given API key. Unknown and revoked keys
// are treated identically; either gives an error that matches
// potluck.ErrAuthFailed.
func (g Gate) ValidateAPIKey(ctx context.Context, q db.Querier, key string) (int64, error) {
	d := g.Store.APIKeys.Dialect

	query, err := db.Select(db.APIKeys, "id").
		Where(db.Eq("revoked", db.Bool(false)), db.Eq("apikey", key)).
		Build(d)
	if err != nil {
		return 0, err
	}

	var id int64
	err = q.QueryRowContext(ctx, query.SQL, query.Args...).Scan(&id)
	if err != nil {
		err = potluck.WrapDBError(d.WrapError(err))
		if errors.Is(err, potluck.ErrNotFound) {
			return 0, potluck.NewError("API key is not valid", potluck.ErrAuthFailed)
		}
		return 0, err
	}

	return id, nil
}

// ValidateUserCredentials checks the username and password and returns a new
// token for the user if they are correct.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If no user has the username,
// it will match potluck.ErrUserNotFound. If the password is incorrect, it will
// match potluck.ErrAuthFailed. If the error occured due to an unexpected
// problem with the DB, it will match potluck.ErrDB.
func (g Gate) ValidateUserCredentials(ctx context.Context, q db.Querier, username, password string) (string, error) {
	user, err := g.Store.Users.GetOne(ctx, q, dao.Filter{Username: &username})
	if err != nil {
		if errors.Is(err, potluck.ErrNotFound) {
			return "", potluck.NewError(username, potluck.ErrUserNotFound)
		}
		return "", err
	}

	if err := CheckPassword(user.Password, password); err != nil {
		return "", err
	}

	tok, err := token.Generate(g.Secret, user, g.TokenLifetime)
	if err != nil {
		return "", potluck.NewError("could not generate token", err)
	}
	return tok, nil
}

// ValidateToken checks a token issued by ValidateUserCredentials and returns
// the user it was issued to. An invalid token gives an error that matches
// potluck.ErrUnauthorized.
func (g Gate) ValidateToken(ctx context.Context, q db.Querier, tok string) (dao.User, error) {
	lookup := func(ctx context.Context, username string) (dao.User, error) {
		return g.Store.Users.GetOne(ctx, q, dao.Filter{Username: &username})
	}

	user, err := token.Validate(ctx, tok, g.Secret, lookup)
	if err != nil {
		return dao.User{}, potluck.NewError("token is not valid", err, potluck.ErrUnauthorized)
	}
	return user, nil
}

// CheckPassword checks password against a stored password hash. A mismatch
// gives an error that matches potluck.ErrAuthFailed.
func CheckPassword(stored, password string) error {
	bcryptHash, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return potluck.NewError("stored password hash is not valid", err)
	}

	err = bcrypt.CompareHashAndPassword(bcryptHash, []byte(password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return potluck.NewError("password is incorrect", potluck.ErrAuthFailed)
		}
		return potluck.NewError("password could not be checked", err)
	}
	return nil
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost that passwords are hashed with.
const PasswordCost = bcrypt.DefaultCost

// KeyLength is the number of characters in a generated API key.
const KeyLength = 40

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		if err == bcrypt.ErrPasswordTooLong {
			return "", potluck.NewError("password is too long", err, potluck.ErrBadArgument)
		} else {
			return "", potluck.NewError("password could not be encrypted", err)
		}
	}

	return base64.StdEncoding.EncodeToString(passHash), nil
}

// GenerateKey creates a new random API key of KeyLength letters and digits.
func GenerateKey() (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	key := make([]byte, KeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not generate key: %w", err)
		}
		key[i] = keyAlphabet[n.Int64()]
	}
	return string(key), nil
}

// UserService manages users. The zero-value of UserService is not ready to be
// used until its Store is set.
type UserService struct {
	Store *dao.Store
}

// NewUser is the information needed to create a user.
type NewUser struct {
	Name     string
	Username string
	Password string
	Admin    bool
}

// UserUpdate holds the changes to make to a user. Only the non-nil fields are
// changed.
type UserUpdate struct {
	Name     *string
	Username *string
	Password *string
	Admin    *bool
}

// CreateUser creates a new user and returns it as it exists after creation.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If a user with that username is
// already present, it will match potluck.ErrAlreadyExists. If the error occured
// due to an unexpected problem with the DB, it will match potluck.ErrDB.
// Finally, if one of the arguments is missing, it will match
// potluck.ErrInfoMissing.
func (svc UserService) CreateUser(ctx context.Context, q db.Querier, nu NewUser) (dao.User, error) {
	if nu.Name == "" || nu.Username == "" || nu.Password == "" {
		return dao.User{}, potluck.NewError("name, username and password are required", potluck.ErrInfoMissing)
	}

	storedPass, err := HashPassword(nu.Password)
	if err != nil {
		return dao.User{}, err
	}

	return svc.Store.Users.Insert(ctx, q, db.Fields{
		"name":     nu.Name,
		"username": nu.Username,
		"password": storedPass,
		"admin":    db.Bool(nu.Admin),
	})
}

// GetUser returns the user with the given ID.
func (svc UserService) GetUser(ctx context.Context, q db.Querier, id int64) (dao.User, error) {
	return svc.Store.Users.Get(ctx, q, id)
}

// ListUsers returns the users that match the filter.
func (svc UserService) ListUsers(ctx context.Context, q db.Querier, page dao.Pagination, f dao.Filter) ([]dao.User, error) {
	return svc.Store.Users.ListAll(ctx, q, page, f)
}

// UpdateUser applies the update to the user with the given ID and returns the
// user as it now is. A new password is hashed before it is stored.
//
// The returned error, if non-nil, will return true for various calls to
// errors.Is depending on what caused the error. If no user with that ID
// exists, it will match potluck.ErrNotUpdated. If the new username is taken,
// it will match potluck.ErrAlreadyExists. If the error occured due to an
// unexpected problem with the DB, it will match potluck.ErrDB. Finally, if one
// of the arguments is invalid, it will match potluck.ErrBadArgument.
func (svc UserService) UpdateUser(ctx context.Context, q db.Querier, id int64, upd UserUpdate) (dao.User, error) {
	vals := db.Fields{}
	if upd.Name != nil {
		vals["name"] = *upd.Name
	}
	if upd.Username != nil {
		if *upd.Username == "" {
			return dao.User{}, potluck.NewError("username cannot be blank", potluck.ErrBadArgument)
		}
		vals["username"] = *upd.Username
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return dao.User{}, potluck.NewError("password cannot be blank", potluck.ErrBadArgument)
		}
		storedPass, err := HashPassword(*upd.Password)
		if err != nil {
			return dao.User{}, err
		}
		vals["password"] = storedPass
	}
	if upd.Admin != nil {
		vals["admin"] = db.Bool(*upd.Admin)
	}

	n, err := svc.Store.Users.Update(ctx, q, id, vals)
	if err != nil {
		return dao.User{}, err
	}
	if n < 1 {
		return dao.User{}, potluck.NewError(fmt.Sprintf("user %d", id), potluck.ErrNotUpdated)
	}

	return svc.Store.Users.Get(ctx, q, id)
}

// EnsureAdmin makes sure that an admin user with the given username and
// password exists, creating it if needed. An existing user with the username
// is made an admin and given the password.
func (svc UserService) EnsureAdmin(ctx context.Context, q db.Querier, username, password string) (dao.User, error) {
	existing, err := svc.Store.Users.GetOne(ctx, q, dao.Filter{Username: &username})
	if err != nil {
		if !errors.Is(err, potluck.ErrNotFound) {
			return dao.User{}, err
		}
		return svc.CreateUser(ctx, q, NewUser{
			Name:     username,
			Username: username,
			Password: password,
			Admin:    true,
		})
	}

	admin := true
	return svc.UpdateUser(ctx, q, existing.ID, UserUpdate{Password: &password, Admin: &admin})
}

// DeleteUser deletes the user with the given ID.
func (svc UserService) DeleteUser(ctx context.Context, q db.Querier, id int64) error {
	_, err := svc.Store.Users.Delete(ctx, q, dao.Filter{ID: &id})
	return err
}

// KeyService manages API keys. The zero-value of KeyService is not ready to be
// used until its Store is set.
type KeyService struct {
	Store *dao.Store
}

// CreateKey creates a new API key with a freshly generated value.
func (svc KeyService) CreateKey(ctx context.Context, q db.Querier, description string) (dao.APIKey, error) {
	if description == "" {
		return dao.APIKey{}, potluck.NewError("description is required", potluck.ErrInfoMissing)
	}

	key, err := GenerateKey()
	if err != nil {
		return dao.APIKey{}, err
	}

	return svc.Store.APIKeys.Insert(ctx, q, db.Fields{
		"description": description,
		"apikey":      key,
		"revoked":     db.Bool(false),
	})
}

// GetKey returns the API key with the given ID.
func (svc KeyService) GetKey(ctx context.Context, q db.Querier, id int64) (dao.APIKey, error) {
	return svc.Store.APIKeys.Get(ctx, q, id)
}

// ListKeys returns the API keys that match the filter.
func (svc KeyService) ListKeys(ctx context.Context, q db.Querier, page dao.Pagination, f dao.Filter) ([]dao.APIKey, error) {
	return svc.Store.APIKeys.ListAll(ctx, q, page, f)
}

// UpdateKey changes the description and revocation of an API key. Only the
// non-nil values are changed. The value of a key can never be changed.
func (svc KeyService) UpdateKey(ctx context.Context, q db.Querier, id int64, description *string, revoked *bool) (dao.APIKey, error) {
	vals := db.Fields{}
	if description != nil {
		vals["description"] = *description
	}
	if revoked != nil {
		vals["revoked"] = db.Bool(*revoked)
	}

	n, err := svc.Store.APIKeys.Update(ctx, q, id, vals)
	if err != nil {
		return dao.APIKey{}, err
	}
	if n < 1 {
		return dao.APIKey{}, potluck.NewError(fmt.Sprintf("API key %d", id), potluck.ErrNotUpdated)
	}

	return svc.Store.APIKeys.Get(ctx, q, id)
}

// RevokeKey revokes an API key. A revoked key stays in the DB but can no
// longer be used.
func (svc KeyService) RevokeKey(ctx context.Context, q db.Querier, id int64) (dao.APIKey, error) {
	revoked := true
	return svc.UpdateKey(ctx, q, id, nil, &revoked)
}

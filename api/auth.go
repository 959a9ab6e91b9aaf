package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/auth"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/go-chi/chi/v5"
)

// AuthAPI serves registration, login, and the management of users and API
// keys. It provides the authenticators that every other API uses.
type AuthAPI struct {
	Pool  *db.Pool
	Store *dao.Store
	Gate  auth.Gate

	// UnauthDelay is the amount of time that a request will pause before
	// responding with an HTTP-403, HTTP-401, or HTTP-500 to deprioritize such
	// requests from processing and I/O.
	UnauthDelay time.Duration

	// AllowRegistration is whether anyone may create a user with the register
	// endpoint.
	AllowRegistration bool

	// LoginRate and LoginBurst limit the rate of login attempts. A LoginRate
	// of 0 disables the limit.
	LoginRate  float64
	LoginBurst int
}

// NewAuthAPI creates an AuthAPI from the server config.
func NewAuthAPI(cfg potluck.AuthConfig, pool *db.Pool, store *dao.Store) *AuthAPI {
	return &AuthAPI{
		Pool:  pool,
		Store: store,
		Gate: auth.Gate{
			Store:         store,
			Secret:        cfg.Secret,
			TokenLifetime: cfg.TokenLifetime,
		},
		UnauthDelay:       cfg.UnauthDelay(),
		AllowRegistration: cfg.AllowRegistration,
		LoginRate:         cfg.LoginRate,
		LoginBurst:        cfg.LoginBurst,
	}
}

func (api *AuthAPI) users() auth.UserService {
	return auth.UserService{Store: api.Store}
}

func (api *AuthAPI) keys() auth.KeyService {
	return auth.KeyService{Store: api.Store}
}

// Authenticators returns the API key authenticator and the user token
// authenticator, under the names auth.KeyAuthName and auth.JWTAuthName.
func (api *AuthAPI) Authenticators() map[string]potluck.Authenticator {
	return map[string]potluck.Authenticator{
		auth.KeyAuthName: auth.KeyAuthenticator{
			Gate:  api.Gate,
			Pool:  api.Pool,
			Delay: api.UnauthDelay,
		},
		auth.JWTAuthName: auth.JWTAuthenticator{
			Gate:  api.Gate,
			Pool:  api.Pool,
			Delay: api.UnauthDelay,
		},
	}
}

// Shutdown has no effect on AuthAPI but to return the error of the context.
func (api *AuthAPI) Shutdown(ctx context.Context) error {
	return ctx.Err()
}

func (api *AuthAPI) Routes(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", leased(sp, api.Pool, api.httpRegister(sp)))
	r.With(sp.RateLimit(api.LoginRate, api.LoginBurst)).Post("/login", leased(sp, api.Pool, api.httpLogin(sp)))

	r.Mount("/users", api.routesForUsers(sp))
	r.Mount("/keys", api.routesForKeys(sp))

	return r
}

func (api *AuthAPI) routesForUsers(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Use(sp.RequiredAuth(auth.JWTAuthName), sp.RequireAdmin())

	r.Get("/", leased(sp, api.Pool, api.httpGetAllUsers(sp)))
	r.Post("/", leased(sp, api.Pool, api.httpCreateUser(sp)))

	r.Route("/"+p("id"), func(r chi.Router) {
		r.Get("/", leased(sp, api.Pool, api.httpGetUser(sp)))
		r.Put("/", leased(sp, api.Pool, api.httpUpdateUser(sp)))
		r.Delete("/", leased(sp, api.Pool, api.httpDeleteUser(sp)))
	})

	return r
}

func (api *AuthAPI) routesForKeys(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Use(sp.RequiredAuth(auth.JWTAuthName))

	r.Get("/", leased(sp, api.Pool, api.httpGetAllKeys(sp)))
	r.Post("/", leased(sp, api.Pool, api.httpCreateKey(sp)))

	r.Route("/"+p("id"), func(r chi.Router) {
		r.Get("/", leased(sp, api.Pool, api.httpGetKey(sp)))
		r.Put("/", leased(sp, api.Pool, api.httpUpdateKey(sp)))
	})

	return r
}

// LoginBody is the body of a login request.
type LoginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// UserBody is the body of a request that creates or updates a user. Admin is
// ignored on registration.
type UserBody struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Admin    *bool   `json:"admin"`
}

func (body UserBody) newUser() auth.NewUser {
	var nu auth.NewUser
	if body.Name != nil {
		nu.Name = *body.Name
	}
	if body.Username != nil {
		nu.Username = *body.Username
	}
	if body.Password != nil {
		nu.Password = *body.Password
	}
	if body.Admin != nil {
		nu.Admin = *body.Admin
	}
	return nu
}

// KeyBody is the body of a request that creates or updates an API key. Only
// description is used on create.
type KeyBody struct {
	Description *string `json:"description"`
	Revoked     *bool   `json:"revoked"`
}

func (api *AuthAPI) httpRegister(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		if !api.AllowRegistration {
			return sp.Error(potluck.ErrNotAcceptingUsers, "register")
		}

		var body UserBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "register")
		}

		nu := body.newUser()
		nu.Admin = false

		created, err := api.users().CreateUser(req.Context(), q, nu)
		if err != nil {
			return sp.Error(err, "register %q", nu.Username)
		}

		return sp.Created(created, "user %q registered as user %d", created.Username, created.ID)
	}
}

func (api *AuthAPI) httpLogin(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		var body LoginBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "login")
		}
		if body.Username == "" || body.Password == "" {
			return sp.Error(potluck.NewError("username and password are required", potluck.ErrInfoMissing), "login")
		}

		tok, err := api.Gate.ValidateUserCredentials(req.Context(), q, body.Username, body.Password)
		if err != nil {
			return sp.Error(err, "login %q", body.Username)
		}

		return sp.OK(LoginResponse{Token: tok}, "user %q logged in", body.Username)
	}
}

func (api *AuthAPI) httpGetAllUsers(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		lq, err := parseListQuery(req, "name", "username")
		if err != nil {
			return sp.Error(err, "list users")
		}

		users, err := api.users().ListUsers(req.Context(), q, lq.page, lq.filter)
		if err != nil {
			return sp.Error(err, "list users")
		}

		return sp.List(users, len(users), "%s got %d user(s)", princ, len(users))
	}
}

func (api *AuthAPI) httpCreateUser(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		var body UserBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "create user")
		}

		created, err := api.users().CreateUser(req.Context(), q, body.newUser())
		if err != nil {
			return sp.Error(err, "create user")
		}

		return sp.Created(created, "%s created user %d (%q)", princ, created.ID, created.Username)
	}
}

func (api *AuthAPI) httpGetUser(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get user")
		}

		user, err := api.users().GetUser(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get user %d", id)
		}

		return sp.OK(user, "%s got user %d", princ, id)
	}
}

func (api *AuthAPI) httpUpdateUser(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "update user")
		}

		var body UserBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "update user %d", id)
		}

		updated, err := api.users().UpdateUser(req.Context(), q, id, auth.UserUpdate{
			Name:     body.Name,
			Username: body.Username,
			Password: body.Password,
			Admin:    body.Admin,
		})
		if err != nil {
			return sp.Error(err, "update user %d", id)
		}

		return sp.OK(updated, "%s updated user %d", princ, id)
	}
}

func (api *AuthAPI) httpDeleteUser(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "delete user")
		}

		if id == princ.UserID {
			return sp.Error(potluck.NewError("users cannot delete themselves", potluck.ErrBadArgument), "delete user %d", id)
		}

		if err := api.users().DeleteUser(req.Context(), q, id); err != nil {
			return sp.Error(err, "delete user %d", id)
		}

		return sp.OK(deletedEntity{ID: id}, "%s deleted user %d", princ, id)
	}
}

func (api *AuthAPI) httpGetAllKeys(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		lq, err := parseListQuery(req, "revoked")
		if err != nil {
			return sp.Error(err, "list API keys")
		}

		keys, err := api.keys().ListKeys(req.Context(), q, lq.page, lq.filter)
		if err != nil {
			return sp.Error(err, "list API keys")
		}

		return sp.List(keys, len(keys), "%s got %d API key(s)", princ, len(keys))
	}
}

func (api *AuthAPI) httpCreateKey(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		var body KeyBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "create API key")
		}

		var desc string
		if body.Description != nil {
			desc = *body.Description
		}

		created, err := api.keys().CreateKey(req.Context(), q, desc)
		if err != nil {
			return sp.Error(err, "create API key")
		}

		return sp.Created(created, "%s created API key %d", princ, created.ID)
	}
}

func (api *AuthAPI) httpGetKey(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get API key")
		}

		key, err := api.keys().GetKey(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get API key %d", id)
		}

		return sp.OK(key, "%s got API key %d", princ, id)
	}
}

// httpUpdateKey changes the description of an API key or revokes it.
func (api *AuthAPI) httpUpdateKey(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		princ, _ := sp.GetPrincipal(req)

		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "update API key")
		}

		var body KeyBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "update API key %d", id)
		}

		updated, err := api.keys().UpdateKey(req.Context(), q, id, body.Description, body.Revoked)
		if err != nil {
			return sp.Error(err, "update API key %d", id)
		}

		return sp.OK(updated, "%s updated API key %d", princ, id)
	}
}

package middle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// testResp is a minimal ResponseGenerator that writes envelopes the same way
// the server does.
type testResp struct{}

func (testResp) OK(data interface{}, internalMsg ...interface{}) potluck.Result {
	return testResp{}.Response(http.StatusOK, potluck.NewEnvelope(potluck.CodeSuccess, data), "OK")
}

func (testResp) Created(data interface{}, internalMsg ...interface{}) potluck.Result {
	return testResp{}.Response(http.StatusCreated, potluck.NewEnvelope(potluck.CodeSuccess, data), "created")
}

func (testResp) List(data interface{}, n int, internalMsg ...interface{}) potluck.Result {
	return testResp{}.Response(http.StatusOK, potluck.ListEnvelope(data, n), "list")
}

func (testResp) Error(err error, internalMsg ...interface{}) potluck.Result {
	status, env := potluck.ErrorEnvelope(err)
	r := testResp{}.Response(status, env, "%s", err.Error())
	r.IsErr = true
	return r
}

func (testResp) Response(status int, env potluck.Envelope, internalMsg string, v ...interface{}) potluck.Result {
	return potluck.Result{Status: status, IsJSON: true, InternalMsg: fmt.Sprintf(internalMsg, v...), Resp: env}
}

func (testResp) TextErr(status int, userMsg, internalMsg string, v ...interface{}) potluck.Result {
	return potluck.Result{Status: status, IsErr: true, InternalMsg: fmt.Sprintf(internalMsg, v...), Resp: userMsg}
}

func (testResp) Redirection(uri string) potluck.Result {
	return potluck.Result{Status: http.StatusPermanentRedirect, Redir: uri}
}

func (testResp) LogResponse(req *http.Request, r potluck.Result) {}

type fakeAuthenticator struct {
	p        potluck.Principal
	loggedIn bool
	err      error
}

func (fa fakeAuthenticator) Authenticate(req *http.Request) (potluck.Principal, bool, error) {
	return fa.p, fa.loggedIn, fa.err
}

func (fa fakeAuthenticator) UnauthDelay() time.Duration {
	return 0
}

func reqWithContextValues(values map[ctxKey]interface{}) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	ctx := req.Context()

	for k, v := range values {
		ctx = context.WithValue(ctx, k, v)
	}

	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, body string) potluck.Envelope {
	var env potluck.Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("response is not an envelope: %v", err)
	}
	return env
}

func Test_GetPrincipal(t *testing.T) {
	testCases := []struct {
		name           string
		req            *http.Request
		expectUser     potluck.Principal
		expectLoggedIn bool
	}{
		{
			name:           "no principal present",
			req:            httptest.NewRequest("GET", "/", nil),
			expectUser:     potluck.Principal{},
			expectLoggedIn: false,
		},
		{
			name: "user is logged in",
			req: reqWithContextValues(map[ctxKey]interface{}{
				ctxKeyPrincipal: potluck.Principal{Kind: potluck.LoggedInUser, Username: "chef"},
				ctxKeyLoggedIn:  true,
			}),
			expectUser:     potluck.Principal{Kind: potluck.LoggedInUser, Username: "chef"},
			expectLoggedIn: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actualUser, actualLoggedIn := GetPrincipal(tc.req)

			assert.Equal(tc.expectUser, actualUser)
			assert.Equal(tc.expectLoggedIn, actualLoggedIn)
		})
	}
}

func Test_Provider_SelectAuthenticator(t *testing.T) {
	assert := assert.New(t)

	keyAuth := fakeAuthenticator{p: potluck.Principal{Kind: potluck.KeyHolder, KeyID: 1}, loggedIn: true}
	jwtAuth := fakeAuthenticator{p: potluck.Principal{Kind: potluck.LoggedInUser, UserID: 1}, loggedIn: true}

	p := &Provider{}
	assert.NoError(p.RegisterAuthenticator("apikey", keyAuth))
	assert.NoError(p.RegisterAuthenticator("JWT", jwtAuth))
	assert.Error(p.RegisterAuthenticator("jwt", jwtAuth))
	assert.Error(p.RegisterAuthenticator("other", nil))

	assert.Equal(jwtAuth, p.SelectAuthenticator("missing", "jwt"))
	assert.Equal(keyAuth, p.SelectAuthenticator("APIKEY"))
	assert.Equal(noopAuthenticator{}, p.SelectAuthenticator())
	assert.Panics(func() { p.SelectAuthenticator("missing") })

	assert.Error(p.RegisterMainAuthenticator("missing"))
	assert.NoError(p.RegisterMainAuthenticator("apikey"))
	assert.Equal(keyAuth, p.SelectAuthenticator())
}

func Test_Provider_RequiredAuth(t *testing.T) {
	testCases := []struct {
		name         string
		auth         fakeAuthenticator
		expectStatus int
		expectCode   potluck.Code
		expectCalled bool
	}{
		{
			name:         "authenticated",
			auth:         fakeAuthenticator{p: potluck.Principal{Kind: potluck.KeyHolder, KeyID: 2}, loggedIn: true},
			expectStatus: http.StatusOK,
			expectCalled: true,
		},
		{
			name:         "no credentials",
			auth:         fakeAuthenticator{},
			expectStatus: http.StatusUnauthorized,
			expectCode:   potluck.CodeUnauthorized,
		},
		{
			name:         "bad API key",
			auth:         fakeAuthenticator{err: potluck.NewError("API key is not valid", potluck.ErrAuthFailed)},
			expectStatus: http.StatusForbidden,
			expectCode:   potluck.CodeAuthFailed,
		},
		{
			name:         "bad token",
			auth:         fakeAuthenticator{err: potluck.NewError("token is not valid", potluck.ErrUnauthorized)},
			expectStatus: http.StatusUnauthorized,
			expectCode:   potluck.CodeUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			p := &Provider{}
			if err := p.RegisterAuthenticator("test", tc.auth); !assert.NoError(err) {
				return
			}

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				called = true
				principal, loggedIn := GetPrincipal(req)
				assert.True(loggedIn)
				assert.Equal(tc.auth.p, principal)
				w.WriteHeader(http.StatusOK)
			})

			h := p.RequiredAuth(testResp{}, "test")(next)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", "/recipes", nil))

			assert.Equal(tc.expectStatus, w.Code)
			assert.Equal(tc.expectCalled, called)
			if !tc.expectCalled {
				env := decodeEnvelope(t, w.Body.String())
				assert.Equal(tc.expectCode, env.Code)
				assert.Equal(tc.expectCode.Message(), env.Message)
			}
		})
	}
}

func Test_Provider_OptionalAuth(t *testing.T) {
	assert := assert.New(t)

	p := &Provider{}
	if err := p.RegisterAuthenticator("test", fakeAuthenticator{err: potluck.ErrAuthFailed}); !assert.NoError(err) {
		return
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		called = true
		_, loggedIn := GetPrincipal(req)
		assert.False(loggedIn)
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	p.OptionalAuth(testResp{}, "test")(next).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.True(called)
	assert.Equal(http.StatusOK, w.Code)
}

func Test_Provider_RequireAdmin(t *testing.T) {
	testCases := []struct {
		name         string
		principal    potluck.Principal
		expectStatus int
	}{
		{
			name:         "admin user",
			principal:    potluck.Principal{Kind: potluck.LoggedInUser, Username: "root", Admin: true},
			expectStatus: http.StatusOK,
		},
		{
			name:         "normal user",
			principal:    potluck.Principal{Kind: potluck.LoggedInUser, Username: "chef"},
			expectStatus: http.StatusForbidden,
		},
		{
			name:         "API key",
			principal:    potluck.Principal{Kind: potluck.KeyHolder, KeyID: 1},
			expectStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			p := &Provider{}
			next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := reqWithContextValues(map[ctxKey]interface{}{
				ctxKeyPrincipal: tc.principal,
				ctxKeyLoggedIn:  true,
			})
			w := httptest.NewRecorder()
			p.RequireAdmin(testResp{})(next).ServeHTTP(w, req)

			assert.Equal(tc.expectStatus, w.Code)
			if tc.expectStatus == http.StatusForbidden {
				assert.Equal(potluck.CodeForbidden, decodeEnvelope(t, w.Body.String()).Code)
			}
		})
	}
}

func Test_Provider_DontPanic(t *testing.T) {
	assert := assert.New(t)

	p := &Provider{}
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		panic("the oven is on fire")
	})

	w := httptest.NewRecorder()
	assert.NotPanics(func() {
		p.DontPanic(testResp{})(next).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	})

	assert.Equal(http.StatusInternalServerError, w.Code)
	assert.Equal("An internal server error occurred", w.Body.String())
	assert.NotContains(w.Body.String(), "oven")
}

func Test_Provider_RequestID(t *testing.T) {
	testCases := []struct {
		name     string
		sent     string
		expectID string
	}{
		{
			name:     "generated when absent",
			sent:     "",
			expectID: "",
		},
		{
			name:     "client ID kept",
			sent:     "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			expectID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		},
		{
			name:     "invalid client ID replaced",
			sent:     "not a uuid",
			expectID: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			p := &Provider{}
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				seen = GetRequestID(req)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/", nil)
			if tc.sent != "" {
				req.Header.Set(RequestIDHeader, tc.sent)
			}
			w := httptest.NewRecorder()
			p.RequestID()(next).ServeHTTP(w, req)

			assert.NotEmpty(seen)
			assert.Equal(seen, w.Header().Get(RequestIDHeader))
			if tc.expectID != "" {
				assert.Equal(tc.expectID, seen)
			} else {
				assert.NotEqual(tc.sent, seen)
				assert.Len(seen, 36)
			}
		})
	}
}

func Test_Provider_RateLimit(t *testing.T) {
	t.Run("burst then reject", func(t *testing.T) {
		assert := assert.New(t)

		p := &Provider{}
		next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		// slow enough that no token is refilled during the test
		h := p.RateLimit(testResp{}, 0.001, 2)(next)

		var statuses []int
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login", nil))
			statuses = append(statuses, w.Code)
		}

		assert.Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	})

	t.Run("disabled", func(t *testing.T) {
		assert := assert.New(t)

		p := &Provider{}
		next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		h := p.RateLimit(testResp{}, -1, 0)(next)

		for i := 0; i < 20; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login", nil))
			assert.Equal(http.StatusOK, w.Code)
		}
	})
}

func Test_Metrics_Middleware(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/recipes/{id:\\d+}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/categories", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok"))
	})

	for _, path := range []string{"/recipes/1", "/recipes/2", "/categories"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	expected := `
# HELP potluck_http_requests_total Total number of HTTP requests
# TYPE potluck_http_requests_total counter
potluck_http_requests_total{method="GET",route="/categories",status="200"} 1
potluck_http_requests_total{method="GET",route="/recipes/{id}",status="404"} 2
`
	assert.NoError(testutil.GatherAndCompare(reg, strings.NewReader(expected), "potluck_http_requests_total"))
}

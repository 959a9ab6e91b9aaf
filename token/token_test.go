package token

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func lookupFrom(users ...dao.User) UserLookup {
	return func(ctx context.Context, username string) (dao.User, error) {
		for _, u := range users {
			if u.Username == username {
				return u, nil
			}
		}
		return dao.User{}, potluck.ErrNotFound
	}
}

func Test_GenerateThenValidate(t *testing.T) {
	user := dao.User{ID: 3, Username: "chef", Password: "JDJhJDEwJGhhc2g="}

	testCases := []struct {
		name      string
		tokUser   dao.User
		lifetime  time.Duration
		secret    []byte
		known     []dao.User
		expectErr bool
	}{
		{
			name:     "valid",
			tokUser:  user,
			lifetime: time.Hour,
			secret:   testSecret,
			known:    []dao.User{user},
		},
		{
			name:     "default lifetime",
			tokUser:  user,
			secret:   testSecret,
			known:    []dao.User{user},
		},
		{
			name:      "password changed since issue",
			tokUser:   user,
			lifetime:  time.Hour,
			secret:    testSecret,
			known:     []dao.User{{ID: 3, Username: "chef", Password: "bmV3IGhhc2g="}},
			expectErr: true,
		},
		{
			name:      "user removed",
			tokUser:   user,
			lifetime:  time.Hour,
			secret:    testSecret,
			expectErr: true,
		},
		{
			name:      "different server secret",
			tokUser:   user,
			lifetime:  time.Hour,
			secret:    []byte("ffffffffffffffffffffffffffffffff"),
			known:     []dao.User{user},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			tok, err := Generate(testSecret, tc.tokUser, tc.lifetime)
			if !assert.NoError(err) {
				return
			}

			actual, err := Validate(context.Background(), tok, tc.secret, lookupFrom(tc.known...))

			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.tokUser.Username, actual.Username)
		})
	}
}

func Test_Validate_expired(t *testing.T) {
	assert := assert.New(t)
	user := dao.User{ID: 3, Username: "chef", Password: "JDJhJDEwJGhhc2g="}

	claims := &jwt.MapClaims{
		"iss": Issuer,
		"exp": time.Now().Add(-2 * time.Hour).Unix(),
		"sub": user.Username,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(signingKey(testSecret, user))
	if !assert.NoError(err) {
		return
	}

	_, err = Validate(context.Background(), tok, testSecret, lookupFrom(user))

	assert.ErrorIs(err, jwt.ErrTokenExpired)
}

func Test_Validate_wrongIssuer(t *testing.T) {
	assert := assert.New(t)
	user := dao.User{ID: 3, Username: "chef", Password: "JDJhJDEwJGhhc2g="}

	claims := &jwt.MapClaims{
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": user.Username,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(signingKey(testSecret, user))
	if !assert.NoError(err) {
		return
	}

	_, err = Validate(context.Background(), tok, testSecret, lookupFrom(user))

	assert.ErrorIs(err, jwt.ErrTokenInvalidIssuer)
}

func Test_Get(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		expect    string
		expectErr bool
	}{
		{name: "bearer", header: "Bearer abc.def.ghi", expect: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer   xyz ", expect: "xyz"},
		{name: "missing", header: "", expectErr: true},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", expectErr: true},
		{name: "no token", header: "Bearer", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			req := httptest.NewRequest("GET", "/auth/keys", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			actual, err := Get(req)

			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

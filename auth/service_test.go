package auth

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/dekarrin/potluck/db/sqlite"
	"github.com/stretchr/testify/assert"
)

var keyCols = []string{"id", "created_at", "updated_at", "description", "apikey", "revoked"}

// passwordHash matches any base64 bcrypt hash of a password.
type passwordHash struct {
	password string
}

func (m passwordHash) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return CheckPassword(s, m.password) == nil
}

func Test_UserService_CreateUser(t *testing.T) {
	t.Run("stores hashed password", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectExec("INSERT INTO users \\(admin, created_at, name, password, updated_at, username\\)").
			WithArgs(int64(0), db.AnyTime{}, "Chef", passwordHash{"hunter2"}, db.AnyTime{}, "chef").
			WillReturnResult(sqlmock.NewResult(2, 1))
		dbMock.
			ExpectQuery("SELECT .* FROM users WHERE id = \\?").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(2), int64(1700000000), int64(1700000000), "Chef", "chef", "aGFzaA==", int64(0)))

		svc := UserService{Store: dao.New(sqlite.Dialect{}, nil)}
		actual, err := svc.CreateUser(context.Background(), driver, NewUser{Name: "Chef", Username: "chef", Password: "hunter2"})

		assert.NoError(err)
		assert.Equal(int64(2), actual.ID)
		assert.False(bool(actual.Admin))
		assert.NoError(dbMock.ExpectationsWereMet())
	})

	t.Run("missing fields", func(t *testing.T) {
		assert := assert.New(t)

		svc := UserService{Store: dao.New(sqlite.Dialect{}, nil)}
		_, err := svc.CreateUser(context.Background(), nil, NewUser{Username: "chef", Password: "hunter2"})

		assert.ErrorIs(err, potluck.ErrInfoMissing)
	})

	t.Run("duplicate username", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectExec("INSERT INTO users").
			WillReturnError(potluck.DBErrConstraintViolation)

		svc := UserService{Store: dao.New(sqlite.Dialect{}, nil)}
		_, err = svc.CreateUser(context.Background(), driver, NewUser{Name: "Chef", Username: "chef", Password: "hunter2"})

		assert.ErrorIs(err, potluck.ErrAlreadyExists)
	})
}

func Test_UserService_EnsureAdmin(t *testing.T) {
	t.Run("existing user is promoted", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectQuery("SELECT .* FROM users WHERE username = \\?").
			WithArgs("root").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(5), int64(1700000000), int64(1700000000), "Root", "root", "b2xk", int64(0)))
		dbMock.
			ExpectExec("UPDATE users SET admin = \\?, password = \\?, updated_at = \\? WHERE id = \\?").
			WithArgs(int64(1), passwordHash{"s3cret"}, db.AnyTime{}, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.
			ExpectQuery("SELECT .* FROM users WHERE id = \\?").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(5), int64(1700000000), int64(1700000000), "Root", "root", "bmV3", int64(1)))

		svc := UserService{Store: dao.New(sqlite.Dialect{}, nil)}
		actual, err := svc.EnsureAdmin(context.Background(), driver, "root", "s3cret")

		assert.NoError(err)
		assert.True(bool(actual.Admin))
		assert.NoError(dbMock.ExpectationsWereMet())
	})

	t.Run("missing user is created", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectQuery("SELECT .* FROM users WHERE username = \\?").
			WithArgs("root").
			WillReturnRows(sqlmock.NewRows(userCols))
		dbMock.
			ExpectExec("INSERT INTO users").
			WithArgs(int64(1), db.AnyTime{}, "root", passwordHash{"s3cret"}, db.AnyTime{}, "root").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.
			ExpectQuery("SELECT .* FROM users WHERE id = \\?").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), int64(1700000000), int64(1700000000), "root", "root", "bmV3", int64(1)))

		svc := UserService{Store: dao.New(sqlite.Dialect{}, nil)}
		actual, err := svc.EnsureAdmin(context.Background(), driver, "root", "s3cret")

		assert.NoError(err)
		assert.Equal(int64(1), actual.ID)
		assert.NoError(dbMock.ExpectationsWereMet())
	})
}

func Test_KeyService_CreateKey(t *testing.T) {
	t.Run("generates a key", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectExec("INSERT INTO apikeys \\(apikey, created_at, description, revoked, updated_at\\)").
			WithArgs(sqlmock.AnyArg(), db.AnyTime{}, "kitchen tablet", int64(0), db.AnyTime{}).
			WillReturnResult(sqlmock.NewResult(3, 1))
		dbMock.
			ExpectQuery("SELECT .* FROM apikeys WHERE id = \\?").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(keyCols).AddRow(int64(3), int64(1700000000), int64(1700000000), "kitchen tablet", "0123456789012345678901234567890123456789", int64(0)))

		svc := KeyService{Store: dao.New(sqlite.Dialect{}, nil)}
		actual, err := svc.CreateKey(context.Background(), driver, "kitchen tablet")

		assert.NoError(err)
		assert.Equal("kitchen tablet", actual.Description)
		assert.Len(actual.Key, KeyLength)
		assert.NoError(dbMock.ExpectationsWereMet())
	})

	t.Run("description is required", func(t *testing.T) {
		assert := assert.New(t)

		svc := KeyService{Store: dao.New(sqlite.Dialect{}, nil)}
		_, err := svc.CreateKey(context.Background(), nil, "")

		assert.ErrorIs(err, potluck.ErrInfoMissing)
	})
}

func Test_KeyService_RevokeKey(t *testing.T) {
	t.Run("revoked", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectExec("UPDATE apikeys SET revoked = \\?, updated_at = \\? WHERE id = \\?").
			WithArgs(int64(1), db.AnyTime{}, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.
			ExpectQuery("SELECT .* FROM apikeys WHERE id = \\?").
			WillReturnRows(sqlmock.NewRows(keyCols).AddRow(int64(3), int64(1700000000), int64(1700000000), "kitchen tablet", "k", int64(1)))

		svc := KeyService{Store: dao.New(sqlite.Dialect{}, nil)}
		actual, err := svc.RevokeKey(context.Background(), driver, 3)

		assert.NoError(err)
		assert.True(bool(actual.Revoked))
		assert.NoError(dbMock.ExpectationsWereMet())
	})

	t.Run("missing key", func(t *testing.T) {
		assert := assert.New(t)

		driver, dbMock, err := sqlmock.New()
		if !assert.NoError(err) {
			return
		}
		defer driver.Close()

		dbMock.
			ExpectExec("UPDATE apikeys").
			WillReturnResult(sqlmock.NewResult(0, 0))

		svc := KeyService{Store: dao.New(sqlite.Dialect{}, nil)}
		_, err = svc.RevokeKey(context.Background(), driver, 3)

		assert.ErrorIs(err, potluck.ErrNotUpdated)
	})
}

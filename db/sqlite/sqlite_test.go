package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dekarrin/potluck"
	"github.com/stretchr/testify/assert"
)

func Test_WrapDBError(t *testing.T) {
	t.Run("no rows is not found", func(t *testing.T) {
		assert := assert.New(t)

		actual := WrapDBError(sql.ErrNoRows)

		assert.ErrorIs(actual, potluck.DBErrNotFound)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert := assert.New(t)

		assert.NoError(WrapDBError(nil))
	})

	t.Run("other errors pass through", func(t *testing.T) {
		assert := assert.New(t)
		orig := errors.New("disk full")

		actual := WrapDBError(orig)

		assert.Equal(orig, actual)
	})
}

func Test_Open_uniqueViolationIsConstraint(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := Open(ctx, t.TempDir(), "test.db")
	if !assert.NoError(err) {
		return
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "INSERT INTO categories (created_at, updated_at, name) VALUES (1, 1, 'Soups')")
	assert.NoError(err)

	_, err = db.ExecContext(ctx, "INSERT INTO categories (created_at, updated_at, name) VALUES (2, 2, 'Soups')")
	err = WrapDBError(err)

	assert.ErrorIs(err, potluck.DBErrConstraintViolation)
}

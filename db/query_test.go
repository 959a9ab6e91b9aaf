package db

import (
	"strconv"
	"testing"

	"github.com/dekarrin/potluck"
	"github.com/stretchr/testify/assert"
)

type qmarkDialect struct{}

func (qmarkDialect) Name() string              { return "qmark" }
func (qmarkDialect) Placeholder(n int) string  { return "?" }
func (qmarkDialect) InsertReturnsID() bool     { return false }
func (qmarkDialect) WrapError(err error) error { return err }

type dollarDialect struct{}

func (dollarDialect) Name() string              { return "dollar" }
func (dollarDialect) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }
func (dollarDialect) InsertReturnsID() bool     { return true }
func (dollarDialect) WrapError(err error) error { return err }

func Test_SelectBuilder_Build(t *testing.T) {
	testCases := []struct {
		name       string
		dialect    Dialect
		build      func() *SelectBuilder
		expectSQL  string
		expectArgs []interface{}
		expectErr  error
	}{
		{
			name:      "all columns, no conditions",
			dialect:   qmarkDialect{},
			build:     func() *SelectBuilder { return Select(Categories) },
			expectSQL: "SELECT id, created_at, updated_at, name FROM categories",
		},
		{
			name:    "contains is case-insensitive and escaped",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Recipes, "id").Where(Contains("name", "100%_Pie"))
			},
			expectSQL:  `SELECT id FROM recipes WHERE LOWER(name) LIKE ? ESCAPE '\'`,
			expectArgs: []interface{}{`%100\%\_pie%`},
		},
		{
			name:    "dollar placeholders are numbered",
			dialect: dollarDialect{},
			build: func() *SelectBuilder {
				return Select(Menus, "id").Where(AtLeast("date", "2024-01-01"), AtMost("date", "2024-01-31")).Limit(10).Offset(20)
			},
			expectSQL:  "SELECT id FROM menus WHERE date >= $1 AND date <= $2 LIMIT $3 OFFSET $4",
			expectArgs: []interface{}{"2024-01-01", "2024-01-31", int64(10), int64(20)},
		},
		{
			name:    "limit without offset",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Categories, "id").OrderBy("name", false).Limit(5)
			},
			expectSQL:  "SELECT id FROM categories ORDER BY name ASC LIMIT ?",
			expectArgs: []interface{}{int64(5)},
		},
		{
			name:    "offset without limit is ignored",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Categories, "id").OrderBy("id", false).Offset(20)
			},
			expectSQL: "SELECT id FROM categories ORDER BY id ASC",
		},
		{
			name:    "categories AND filter dedupes ids",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Recipes, "id").Where(HasAllLinked(CategoryRecipe, "recipe_id", "category_id", []int64{3, 4, 3}))
			},
			expectSQL:  "SELECT id FROM recipes WHERE id IN (SELECT recipe_id FROM category_recipe WHERE category_id IN (?, ?) GROUP BY recipe_id HAVING COUNT(*) = ?)",
			expectArgs: []interface{}{int64(3), int64(4), int64(2)},
		},
		{
			name:    "join to link table",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Categories, "id", "name").Join(CategoryRecipe, "category_id").Where(JoinedEq("recipe_id", int64(8)))
			},
			expectSQL:  "SELECT t.id, t.name FROM categories AS t INNER JOIN category_recipe AS j ON j.category_id = t.id WHERE j.recipe_id = ?",
			expectArgs: []interface{}{int64(8)},
		},
		{
			name:      "unknown column in projection",
			dialect:   qmarkDialect{},
			build:     func() *SelectBuilder { return Select(Categories, "id", "password") },
			expectErr: potluck.ErrBadArgument,
		},
		{
			name:    "unknown column in filter",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Categories).Where(Eq("deleted", true))
			},
			expectErr: potluck.ErrBadArgument,
		},
		{
			name:    "empty IN never matches",
			dialect: qmarkDialect{},
			build: func() *SelectBuilder {
				return Select(Recipes, "id").Where(In("id"))
			},
			expectSQL: "SELECT id FROM recipes WHERE 1 = 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := tc.build().Build(tc.dialect)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectSQL, actual.SQL)
			assert.Equal(tc.expectArgs, actual.Args)
		})
	}
}

func Test_Insert(t *testing.T) {
	t.Run("qmark", func(t *testing.T) {
		assert := assert.New(t)

		actual, err := Insert(qmarkDialect{}, Categories, Fields{"name": "Soups", "created_at": int64(1), "updated_at": int64(1)})

		assert.NoError(err)
		assert.Equal("INSERT INTO categories (created_at, name, updated_at) VALUES (?, ?, ?)", actual.SQL)
		assert.Equal([]interface{}{int64(1), "Soups", int64(1)}, actual.Args)
	})

	t.Run("returning", func(t *testing.T) {
		assert := assert.New(t)

		actual, err := Insert(dollarDialect{}, Categories, Fields{"name": "Soups"})

		assert.NoError(err)
		assert.Equal("INSERT INTO categories (name) VALUES ($1) RETURNING id", actual.SQL)
	})

	t.Run("link tables have no id to return", func(t *testing.T) {
		assert := assert.New(t)

		actual, err := Insert(dollarDialect{}, MenuRecipe, Fields{"menu_id": int64(1), "recipe_id": int64(2)})

		assert.NoError(err)
		assert.Equal("INSERT INTO menu_recipe (menu_id, recipe_id) VALUES ($1, $2)", actual.SQL)
	})

	t.Run("bad column", func(t *testing.T) {
		assert := assert.New(t)

		_, err := Insert(qmarkDialect{}, Categories, Fields{"flavor": "salty"})

		assert.ErrorIs(err, potluck.ErrBadArgument)
	})
}

func Test_InsertRows(t *testing.T) {
	assert := assert.New(t)

	actual, err := InsertRows(dollarDialect{}, CategoryRecipe, []string{"recipe_id", "category_id"}, [][]interface{}{
		{int64(1), int64(2)},
		{int64(1), int64(3)},
	})

	assert.NoError(err)
	assert.Equal("INSERT INTO category_recipe (recipe_id, category_id) VALUES ($1, $2), ($3, $4)", actual.SQL)
	assert.Equal([]interface{}{int64(1), int64(2), int64(1), int64(3)}, actual.Args)
}

func Test_Update(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		assert := assert.New(t)

		actual, err := Update(dollarDialect{}, Recipes, Fields{"name": "Stew", "updated_at": int64(9)}, Eq("id", int64(4)))

		assert.NoError(err)
		assert.Equal("UPDATE recipes SET name = $1, updated_at = $2 WHERE id = $3", actual.SQL)
		assert.Equal([]interface{}{"Stew", int64(9), int64(4)}, actual.Args)
	})

	t.Run("no conditions", func(t *testing.T) {
		assert := assert.New(t)

		_, err := Update(dollarDialect{}, Recipes, Fields{"name": "Stew"})

		assert.ErrorIs(err, potluck.ErrBadArgument)
	})
}

func Test_Delete(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		assert := assert.New(t)

		actual, err := Delete(qmarkDialect{}, CategoryRecipe, Eq("category_id", int64(2)))

		assert.NoError(err)
		assert.Equal("DELETE FROM category_recipe WHERE category_id = ?", actual.SQL)
		assert.Equal([]interface{}{int64(2)}, actual.Args)
	})

	t.Run("no conditions", func(t *testing.T) {
		assert := assert.New(t)

		_, err := Delete(qmarkDialect{}, Recipes)

		assert.ErrorIs(err, potluck.ErrBadArgument)
	})
}

func Test_Table(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("apikeys", APIKeys.Name())
	assert.True(Users.HasColumn("password"))
	assert.False(Categories.HasColumn("deleted"))
	assert.True(Menus.Timestamped())
	assert.False(MenuRecipe.Timestamped())
}

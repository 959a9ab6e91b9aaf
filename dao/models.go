package dao

import (
	"github.com/dekarrin/potluck/db"
)

// Recipe is a single recipe. Deleted recipes are kept in the DB with Deleted
// set.
type Recipe struct {
	ID      int64        `json:"id"`
	Created db.Timestamp `json:"created_at"`
	Updated db.Timestamp `json:"updated_at"`
	Name    string       `json:"name"`
	Link    string       `json:"link"`
	Comment string       `json:"comment"`
	Deleted db.Bool      `json:"deleted"`
}

// Category is a label that recipes can be filed under.
type Category struct {
	ID      int64        `json:"id"`
	Created db.Timestamp `json:"created_at"`
	Updated db.Timestamp `json:"updated_at"`
	Name    string       `json:"name"`
}

// Menu is the plan for a single day.
type Menu struct {
	ID      int64        `json:"id"`
	Created db.Timestamp `json:"created_at"`
	Updated db.Timestamp `json:"updated_at"`
	Date    db.Date      `json:"date"`
	Comment string       `json:"comment"`
}

// MenuWithRecipes is a Menu along with every recipe on it.
type MenuWithRecipes struct {
	Menu
	Recipes []Recipe `json:"recipes"`
}

// User is an account that can log in to manage API keys and, if Admin is
// set, other users.
type User struct {
	ID       int64        `json:"id"`
	Created  db.Timestamp `json:"created_at"`
	Updated  db.Timestamp `json:"updated_at"`
	Name     string       `json:"name"`
	Username string       `json:"username"`
	Password string       `json:"-"`
	Admin    db.Bool      `json:"admin"`
}

// APIKey is a bearer token that grants access to the recipe, category, and
// menu routes.
type APIKey struct {
	ID          int64        `json:"id"`
	Created     db.Timestamp `json:"created_at"`
	Updated     db.Timestamp `json:"updated_at"`
	Description string       `json:"description"`
	Key         string       `json:"apikey"`
	Revoked     db.Bool      `json:"revoked"`
}

// RecipeCategory is one row of the recipe to category link table.
type RecipeCategory struct {
	RecipeID   int64 `json:"recipe_id"`
	CategoryID int64 `json:"category_id"`
}

// Scanner reads the columns of one result row. *sql.Row and *sql.Rows both
// implement it.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Model describes how an entity type M is stored: the table it is in, the
// columns selected for it, and how a row of those columns becomes an M.
type Model[M any] struct {
	Table   db.Table
	Columns []string
	OrderBy string
	Scan    func(s Scanner) (M, error)
}

var RecipeModel = Model[Recipe]{
	Table:   db.Recipes,
	Columns: []string{"id", "created_at", "updated_at", "name", "link", "comment", "deleted"},
	OrderBy: "id",
	Scan: func(s Scanner) (Recipe, error) {
		var r Recipe
		err := s.Scan(&r.ID, &r.Created, &r.Updated, &r.Name, &r.Link, &r.Comment, &r.Deleted)
		return r, err
	},
}

var CategoryModel = Model[Category]{
	Table:   db.Categories,
	Columns: []string{"id", "created_at", "updated_at", "name"},
	OrderBy: "id",
	Scan: func(s Scanner) (Category, error) {
		var c Category
		err := s.Scan(&c.ID, &c.Created, &c.Updated, &c.Name)
		return c, err
	},
}

// MenuModel lists menus in date order.
var MenuModel = Model[Menu]{
	Table:   db.Menus,
	Columns: []string{"id", "created_at", "updated_at", "date", "comment"},
	OrderBy: "date",
	Scan: func(s Scanner) (Menu, error) {
		var m Menu
		err := s.Scan(&m.ID, &m.Created, &m.Updated, &m.Date, &m.Comment)
		return m, err
	},
}

var UserModel = Model[User]{
	Table:   db.Users,
	Columns: []string{"id", "created_at", "updated_at", "name", "username", "password", "admin"},
	OrderBy: "id",
	Scan: func(s Scanner) (User, error) {
		var u User
		err := s.Scan(&u.ID, &u.Created, &u.Updated, &u.Name, &u.Username, &u.Password, &u.Admin)
		return u, err
	},
}

var APIKeyModel = Model[APIKey]{
	Table:   db.APIKeys,
	Columns: []string{"id", "created_at", "updated_at", "description", "apikey", "revoked"},
	OrderBy: "id",
	Scan: func(s Scanner) (APIKey, error) {
		var k APIKey
		err := s.Scan(&k.ID, &k.Created, &k.Updated, &k.Description, &k.Key, &k.Revoked)
		return k, err
	},
}

package db

import "fmt"

// Table is one of the tables of the schema. It is a closed set; table names
// in SQL only ever come from here.
type Table int

const (
	Recipes Table = iota + 1
	Categories
	Menus
	CategoryRecipe
	MenuRecipe
	Users
	APIKeys
)

type tableDef struct {
	name string
	cols []string
}

var tableDefs = map[Table]tableDef{
	Recipes: {
		name: "recipes",
		cols: []string{"id", "created_at", "updated_at", "name", "link", "comment", "deleted"},
	},
	Categories: {
		name: "categories",
		cols: []string{"id", "created_at", "updated_at", "name"},
	},
	Menus: {
		name: "menus",
		cols: []string{"id", "created_at", "updated_at", "date", "comment"},
	},
	CategoryRecipe: {
		name: "category_recipe",
		cols: []string{"recipe_id", "category_id"},
	},
	MenuRecipe: {
		name: "menu_recipe",
		cols: []string{"menu_id", "recipe_id"},
	},
	Users: {
		name: "users",
		cols: []string{"id", "created_at", "updated_at", "name", "username", "password", "admin"},
	},
	APIKeys: {
		name: "apikeys",
		cols: []string{"id", "created_at", "updated_at", "description", "apikey", "revoked"},
	},
}

// Name returns the name of the table in SQL.
func (t Table) Name() string {
	def, ok := tableDefs[t]
	if !ok {
		panic(fmt.Sprintf("unknown table: %d", int(t)))
	}
	return def.name
}

func (t Table) String() string {
	if def, ok := tableDefs[t]; ok {
		return def.name
	}
	return fmt.Sprintf("Table(%d)", int(t))
}

// Columns returns every column of the table in schema order.
func (t Table) Columns() []string {
	def := tableDefs[t]
	cols := make([]string, len(def.cols))
	copy(cols, def.cols)
	return cols
}

// HasColumn returns whether col is a column of the table.
func (t Table) HasColumn(col string) bool {
	for _, c := range tableDefs[t].cols {
		if c == col {
			return true
		}
	}
	return false
}

// Timestamped returns whether the table has created_at and updated_at
// columns.
func (t Table) Timestamped() bool {
	return t.HasColumn("created_at") && t.HasColumn("updated_at")
}

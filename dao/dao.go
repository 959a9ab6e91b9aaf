// Package dao provides data access objects for potluck. Records gives the
// basic operations on any single table, Links and MenuLinks manage the link
// tables, and Store puts them together into the multi-step operations that
// the API needs, running each in a single transaction.
//
// Every operation takes the db.Querier it runs on, so the caller decides
// whether it is a pooled connection or part of a larger transaction.
package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// InsertSummary is the result of replacing the links of a record.
type InsertSummary struct {
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
}

// InTx runs fn in a transaction on q. If q is already a transaction, fn runs
// in it directly and nothing is committed or rolled back here. Otherwise the
// transaction is committed if fn succeeds and rolled back if it does not.
//
// The error returned by fn is returned unchanged. A failure to roll back is
// only logged. A failure to commit gives an error matching potluck.ErrCommit.
func InTx(ctx context.Context, q db.Querier, log potluck.Logger, fn func(tx db.Querier) error) error {
	if tx, ok := q.(*sql.Tx); ok {
		return fn(tx)
	}

	beginner, ok := q.(db.TxBeginner)
	if !ok {
		return fmt.Errorf("cannot begin a transaction on a %T", q)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return potluck.WrapDBError(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && log != nil {
			log.Warnf("rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return potluck.NewError("commit", err, potluck.ErrCommit)
	}
	return nil
}

// Store holds every repository used by potluck.
type Store struct {
	Recipes    Records[Recipe]
	Categories Records[Category]
	Menus      Records[Menu]
	Users      Records[User]
	APIKeys    Records[APIKey]
	Links      Links
	MenuLinks  MenuLinks

	log potluck.Logger
}

// New creates a Store for the given dialect. log receives warnings about
// failed rollbacks; it may be nil.
func New(d db.Dialect, log potluck.Logger) *Store {
	return &Store{
		Recipes:    NewRecords(d, RecipeModel),
		Categories: NewRecords(d, CategoryModel),
		Menus:      NewRecords(d, MenuModel),
		Users:      NewRecords(d, UserModel),
		APIKeys:    NewRecords(d, APIKeyModel),
		Links:      Links{Dialect: d, Log: log},
		MenuLinks:  MenuLinks{Dialect: d, Log: log},
		log:        log,
	}
}

// InTx runs fn in a transaction on q. See the package-level InTx.
func (s *Store) InTx(ctx context.Context, q db.Querier, fn func(tx db.Querier) error) error {
	return InTx(ctx, q, s.log, fn)
}

// CreateRecipe inserts a recipe and links it to the given categories.
func (s *Store) CreateRecipe(ctx context.Context, q db.Querier, vals db.Fields, categoryIDs []int64) (Recipe, error) {
	var created Recipe
	err := s.InTx(ctx, q, func(tx db.Querier) error {
		var err error
		created, err = s.Recipes.Insert(ctx, tx, vals)
		if err != nil {
			return err
		}

		_, err = s.Links.SetCategoriesForRecipe(ctx, tx, created.ID, true, categoryIDs)
		return err
	})
	return created, err
}

// UpdateRecipe updates a recipe and returns it as it now is. If categoryIDs
// is not nil, the recipe's categories are replaced with them. If the recipe
// does not exist, the returned error matches potluck.ErrNotUpdated.
func (s *Store) UpdateRecipe(ctx context.Context, q db.Querier, id int64, vals db.Fields, categoryIDs []int64) (Recipe, error) {
	var updated Recipe
	err := s.InTx(ctx, q, func(tx db.Querier) error {
		n, err := s.Recipes.Update(ctx, tx, id, vals)
		if err != nil {
			return err
		}
		if n < 1 {
			return potluck.NewError(fmt.Sprintf("recipe %d", id), potluck.ErrNotUpdated)
		}

		if categoryIDs != nil {
			if _, err := s.Links.SetCategoriesForRecipe(ctx, tx, id, false, categoryIDs); err != nil {
				return err
			}
		}

		updated, err = s.Recipes.Get(ctx, tx, id)
		return err
	})
	return updated, err
}

// DeleteRecipe marks a recipe as deleted. Its links are kept so that it can
// be restored as it was.
func (s *Store) DeleteRecipe(ctx context.Context, q db.Querier, id int64) error {
	n, err := s.Recipes.Update(ctx, q, id, db.Fields{"deleted": db.Bool(true)})
	if err != nil {
		return err
	}
	if n < 1 {
		return potluck.NewError(fmt.Sprintf("recipe %d", id), potluck.ErrNotFound)
	}
	return nil
}

// DeleteCategory removes a category along with every link to it.
func (s *Store) DeleteCategory(ctx context.Context, q db.Querier, id int64) error {
	return s.InTx(ctx, q, func(tx db.Querier) error {
		if _, err := s.Links.DeleteAllLinksForCategory(ctx, tx, id); err != nil {
			return err
		}
		_, err := s.Categories.Delete(ctx, tx, Filter{ID: &id})
		return err
	})
}

// CreateMenu inserts a menu and puts the given recipes on it.
func (s *Store) CreateMenu(ctx context.Context, q db.Querier, vals db.Fields, recipeIDs []int64) (MenuWithRecipes, error) {
	var created MenuWithRecipes
	err := s.InTx(ctx, q, func(tx db.Querier) error {
		m, err := s.Menus.Insert(ctx, tx, vals)
		if err != nil {
			return err
		}

		if _, err := s.MenuLinks.ReplaceRecipesForMenu(ctx, tx, m.ID, recipeIDs); err != nil {
			return err
		}

		withRecipes, err := s.MenuLinks.RecipesForMenu(ctx, tx, MenuFilter{ID: &m.ID})
		if err != nil {
			return err
		}
		created = *withRecipes
		return nil
	})
	return created, err
}

// UpdateMenu updates a menu and returns it as it now is. If recipeIDs is not
// nil, the recipes on the menu are replaced with them. If the menu does not
// exist, the returned error matches potluck.ErrNotUpdated.
func (s *Store) UpdateMenu(ctx context.Context, q db.Querier, id int64, vals db.Fields, recipeIDs []int64) (MenuWithRecipes, error) {
	var updated MenuWithRecipes
	err := s.InTx(ctx, q, func(tx db.Querier) error {
		n, err := s.Menus.Update(ctx, tx, id, vals)
		if err != nil {
			return err
		}
		if n < 1 {
			return potluck.NewError(fmt.Sprintf("menu %d", id), potluck.ErrNotUpdated)
		}

		if recipeIDs != nil {
			if _, err := s.MenuLinks.ReplaceRecipesForMenu(ctx, tx, id, recipeIDs); err != nil {
				return err
			}
		}

		withRecipes, err := s.MenuLinks.RecipesForMenu(ctx, tx, MenuFilter{ID: &id})
		if err != nil {
			return err
		}
		updated = *withRecipes
		return nil
	})
	return updated, err
}

// DeleteMenu removes a menu along with its links to recipes.
func (s *Store) DeleteMenu(ctx context.Context, q db.Querier, id int64) error {
	return s.InTx(ctx, q, func(tx db.Querier) error {
		if _, err := s.MenuLinks.DeleteLinksForMenu(ctx, tx, id); err != nil {
			return err
		}
		_, err := s.Menus.Delete(ctx, tx, Filter{ID: &id})
		return err
	})
}

// MissingRecipes returns the IDs in ids that are not recipes, in the order
// given. Deleted recipes still count as existing.
func (s *Store) MissingRecipes(ctx context.Context, q db.Querier, ids []int64) ([]int64, error) {
	return missingIDs(ctx, q, s.Recipes, ids)
}

// MissingCategories returns the IDs in ids that are not categories, in the
// order given.
func (s *Store) MissingCategories(ctx context.Context, q db.Querier, ids []int64) ([]int64, error) {
	return missingIDs(ctx, q, s.Categories, ids)
}

func missingIDs[M any](ctx context.Context, q db.Querier, r Records[M], ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	vals := make([]interface{}, len(ids))
	for i := range ids {
		vals[i] = ids[i]
	}

	query, err := db.Select(r.Model.Table, "id").Where(db.In("id", vals...)).Build(r.Dialect)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, r.wrap(err)
	}
	defer rows.Close()

	found := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, r.wrap(err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap(err)
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
			found[id] = true
		}
	}
	return missing, nil
}

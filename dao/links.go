package dao

import (
	"context"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// Links manages the links between recipes and categories.
type Links struct {
	Dialect db.Dialect
	Log     potluck.Logger
}

// RecipesForCategory returns every recipe in the category, deleted ones
// included.
func (l Links) RecipesForCategory(ctx context.Context, q db.Querier, categoryID int64) ([]Recipe, error) {
	return listLinked(ctx, q, NewRecords(l.Dialect, RecipeModel), db.CategoryRecipe, "recipe_id", "category_id", categoryID)
}

// CategoriesForRecipe returns every category the recipe is in.
func (l Links) CategoriesForRecipe(ctx context.Context, q db.Querier, recipeID int64) ([]Category, error) {
	return listLinked(ctx, q, NewRecords(l.Dialect, CategoryModel), db.CategoryRecipe, "category_id", "recipe_id", recipeID)
}

// ReplaceCategoriesForRecipe sets the recipe to category links to exactly the
// given pairs. If recipeID is not nil, every existing link of that recipe is
// removed first; it is nil when the recipe was just created and so cannot
// have any. Repeated pairs are only inserted once.
func (l Links) ReplaceCategoriesForRecipe(ctx context.Context, q db.Querier, recipeID *int64, pairs []RecipeCategory) (InsertSummary, error) {
	var summary InsertSummary

	seen := map[RecipeCategory]bool{}
	var rows [][]interface{}
	for _, p := range pairs {
		if seen[p] {
			continue
		}
		seen[p] = true
		rows = append(rows, []interface{}{p.RecipeID, p.CategoryID})
	}

	err := InTx(ctx, q, l.Log, func(tx db.Querier) error {
		if recipeID != nil {
			n, err := l.DeleteAllLinksForRecipe(ctx, tx, *recipeID)
			if err != nil {
				return err
			}
			summary.Deleted = n
		}

		n, err := insertLinks(ctx, tx, l.Dialect, db.CategoryRecipe, []string{"recipe_id", "category_id"}, rows)
		if err != nil {
			return err
		}
		summary.Inserted = n
		return nil
	})

	return summary, err
}

// SetCategoriesForRecipe is ReplaceCategoriesForRecipe for a single recipe.
// fresh is whether the recipe was just created.
func (l Links) SetCategoriesForRecipe(ctx context.Context, q db.Querier, recipeID int64, fresh bool, categoryIDs []int64) (InsertSummary, error) {
	pairs := make([]RecipeCategory, len(categoryIDs))
	for i := range categoryIDs {
		pairs[i] = RecipeCategory{RecipeID: recipeID, CategoryID: categoryIDs[i]}
	}

	var replaceID *int64
	if !fresh {
		replaceID = &recipeID
	}
	return l.ReplaceCategoriesForRecipe(ctx, q, replaceID, pairs)
}

// DeleteAllLinksForRecipe removes the recipe from every category. It is not an
// error for there to be nothing to remove.
func (l Links) DeleteAllLinksForRecipe(ctx context.Context, q db.Querier, recipeID int64) (int64, error) {
	return deleteLinks(ctx, q, l.Dialect, db.CategoryRecipe, "recipe_id", recipeID)
}

// DeleteAllLinksForCategory removes every recipe from the category. It is not
// an error for there to be nothing to remove.
func (l Links) DeleteAllLinksForCategory(ctx context.Context, q db.Querier, categoryID int64) (int64, error) {
	return deleteLinks(ctx, q, l.Dialect, db.CategoryRecipe, "category_id", categoryID)
}

// listLinked lists the records of r that are linked to id through link. ownCol
// is the link column holding the records' IDs and byCol the one holding id.
func listLinked[M any](ctx context.Context, q db.Querier, r Records[M], link db.Table, ownCol, byCol string, id int64) ([]M, error) {
	query, err := db.Select(r.Model.Table, r.Model.Columns...).
		Join(link, ownCol).
		Where(db.JoinedEq(byCol, id)).
		OrderBy(r.Model.OrderBy, false).
		Build(r.Dialect)
	if err != nil {
		return nil, err
	}

	return r.query(ctx, q, query)
}

func insertLinks(ctx context.Context, q db.Querier, d db.Dialect, link db.Table, cols []string, rows [][]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, err := db.InsertRows(d, link, cols, rows)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return 0, potluck.WrapDBError(d.WrapError(err), "insert links")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, potluck.WrapDBError(d.WrapError(err))
	}
	return n, nil
}

func deleteLinks(ctx context.Context, q db.Querier, d db.Dialect, link db.Table, col string, id int64) (int64, error) {
	query, err := db.Delete(d, link, db.Eq(col, id))
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return 0, potluck.WrapDBError(d.WrapError(err), "delete links")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, potluck.WrapDBError(d.WrapError(err))
	}
	return n, nil
}

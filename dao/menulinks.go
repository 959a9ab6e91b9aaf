package dao

import (
	"context"
	"errors"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// MenuFilter selects a single menu, either by ID or by date. If both are set,
// ID is used.
type MenuFilter struct {
	ID   *int64
	Date *db.Date
}

// MenuLinks manages the links between menus and the recipes on them.
type MenuLinks struct {
	Dialect db.Dialect
	Log     potluck.Logger
}

// RecipesForMenu returns the selected menu with every recipe on it. If there
// is no such menu, nil is returned with a nil error; a day with no menu simply
// has nothing planned.
func (ml MenuLinks) RecipesForMenu(ctx context.Context, q db.Querier, mf MenuFilter) (*MenuWithRecipes, error) {
	var f Filter
	if mf.ID != nil {
		f.ID = mf.ID
	} else if mf.Date != nil {
		f.Date = mf.Date
	} else {
		return nil, potluck.NewError("menu ID or date is required", potluck.ErrInfoMissing)
	}

	menu, err := NewRecords(ml.Dialect, MenuModel).GetOne(ctx, q, f)
	if err != nil {
		if errors.Is(err, potluck.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	recipes, err := listLinked(ctx, q, NewRecords(ml.Dialect, RecipeModel), db.MenuRecipe, "recipe_id", "menu_id", menu.ID)
	if err != nil {
		return nil, err
	}

	return &MenuWithRecipes{Menu: menu, Recipes: recipes}, nil
}

// MenusForRecipe returns every menu the recipe is on.
func (ml MenuLinks) MenusForRecipe(ctx context.Context, q db.Querier, recipeID int64) ([]Menu, error) {
	return listLinked(ctx, q, NewRecords(ml.Dialect, MenuModel), db.MenuRecipe, "menu_id", "recipe_id", recipeID)
}

// ReplaceRecipesForMenu sets the recipes on the menu to exactly recipeIDs.
// Repeated IDs are only inserted once.
func (ml MenuLinks) ReplaceRecipesForMenu(ctx context.Context, q db.Querier, menuID int64, recipeIDs []int64) (InsertSummary, error) {
	var summary InsertSummary

	seen := map[int64]bool{}
	var rows [][]interface{}
	for _, id := range recipeIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, []interface{}{menuID, id})
	}

	err := InTx(ctx, q, ml.Log, func(tx db.Querier) error {
		n, err := ml.DeleteLinksForMenu(ctx, tx, menuID)
		if err != nil {
			return err
		}
		summary.Deleted = n

		n, err = insertLinks(ctx, tx, ml.Dialect, db.MenuRecipe, []string{"menu_id", "recipe_id"}, rows)
		if err != nil {
			return err
		}
		summary.Inserted = n
		return nil
	})

	return summary, err
}

// DeleteLinksForMenu takes every recipe off the menu. It is not an error for
// there to be nothing to remove.
func (ml MenuLinks) DeleteLinksForMenu(ctx context.Context, q db.Querier, menuID int64) (int64, error) {
	return deleteLinks(ctx, q, ml.Dialect, db.MenuRecipe, "menu_id", menuID)
}

package api

import (
	"net/http"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// RecipeBody is the body of a request that creates or updates a recipe. On
// update, only the properties that are present are changed, and categories
// replaces every category of the recipe.
type RecipeBody struct {
	Name       *string `json:"name"`
	Link       *string `json:"link"`
	Comment    *string `json:"comment"`
	Deleted    *bool   `json:"deleted"`
	Categories *IDList `json:"categories"`
}

func (api *DataAPI) httpGetAllRecipes(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		lq, err := parseListQuery(req, "name", "comment", "cat", "deleted", "include_deleted")
		if err != nil {
			return sp.Error(err, "list recipes")
		}

		recipes, err := api.Store.Recipes.ListAll(req.Context(), q, lq.page, lq.filter)
		if err != nil {
			return sp.Error(err, "list recipes")
		}

		return sp.List(recipes, len(recipes), "got %d recipe(s)", len(recipes))
	}
}

func (api *DataAPI) httpGetRecipe(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get recipe")
		}

		recipe, err := api.Store.Recipes.Get(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get recipe %d", id)
		}

		return sp.OK(recipe, "got recipe %d", id)
	}
}

func (api *DataAPI) httpCreateRecipe(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		var body RecipeBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "create recipe")
		}

		if body.Name == nil || *body.Name == "" {
			return sp.Error(potluck.ErrNameRequired, "create recipe")
		}

		vals := db.Fields{
			"name":    *body.Name,
			"link":    "",
			"comment": "",
		}
		if body.Link != nil {
			vals["link"] = *body.Link
		}
		if body.Comment != nil {
			vals["comment"] = *body.Comment
		}
		if body.Deleted != nil {
			vals["deleted"] = db.Bool(*body.Deleted)
		}

		var catIDs []int64
		if body.Categories != nil {
			catIDs = body.Categories.orEmpty()
		}

		err := checkExisting("Category", catIDs, func(ids []int64) ([]int64, error) {
			return api.Store.MissingCategories(req.Context(), q, ids)
		})
		if err != nil {
			return sp.Error(err, "create recipe")
		}

		created, err := api.Store.CreateRecipe(req.Context(), q, vals, catIDs)
		if err != nil {
			return sp.Error(err, "create recipe")
		}

		return sp.Created(created, "created recipe %d", created.ID)
	}
}

func (api *DataAPI) httpUpdateRecipe(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "update recipe")
		}

		var body RecipeBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "update recipe %d", id)
		}

		vals := db.Fields{}
		if body.Name != nil {
			if *body.Name == "" {
				return sp.Error(potluck.ErrNameRequired, "update recipe %d", id)
			}
			vals["name"] = *body.Name
		}
		if body.Link != nil {
			vals["link"] = *body.Link
		}
		if body.Comment != nil {
			vals["comment"] = *body.Comment
		}
		if body.Deleted != nil {
			vals["deleted"] = db.Bool(*body.Deleted)
		}

		var catIDs []int64
		if body.Categories != nil {
			catIDs = body.Categories.orEmpty()

			err := checkExisting("Category", catIDs, func(ids []int64) ([]int64, error) {
				return api.Store.MissingCategories(req.Context(), q, ids)
			})
			if err != nil {
				return sp.Error(err, "update recipe %d", id)
			}
		}

		updated, err := api.Store.UpdateRecipe(req.Context(), q, id, vals, catIDs)
		if err != nil {
			return sp.Error(err, "update recipe %d", id)
		}

		return sp.OK(updated, "updated recipe %d", id)
	}
}

func (api *DataAPI) httpDeleteRecipe(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "delete recipe")
		}

		if err := api.Store.DeleteRecipe(req.Context(), q, id); err != nil {
			return sp.Error(err, "delete recipe %d", id)
		}

		return sp.OK(deletedEntity{ID: id}, "deleted recipe %d", id)
	}
}

func (api *DataAPI) httpGetRecipeCategories(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get recipe categories")
		}

		cats, err := api.Store.Links.CategoriesForRecipe(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get categories of recipe %d", id)
		}

		return sp.List(cats, len(cats), "got %d categories of recipe %d", len(cats), id)
	}
}

func (api *DataAPI) httpGetRecipeMenus(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get recipe menus")
		}

		menus, err := api.Store.MenuLinks.MenusForRecipe(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get menus of recipe %d", id)
		}

		return sp.List(menus, len(menus), "got %d menu(s) of recipe %d", len(menus), id)
	}
}

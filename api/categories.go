package api

import (
	"net/http"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// CategoryBody is the body of a request that creates or updates a category.
type CategoryBody struct {
	Name *string `json:"name"`
}

func (api *DataAPI) httpGetAllCategories(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		lq, err := parseListQuery(req, "name")
		if err != nil {
			return sp.Error(err, "list categories")
		}

		cats, err := api.Store.Categories.ListAll(req.Context(), q, lq.page, lq.filter)
		if err != nil {
			return sp.Error(err, "list categories")
		}

		return sp.List(cats, len(cats), "got %d categories", len(cats))
	}
}

func (api *DataAPI) httpGetCategory(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get category")
		}

		cat, err := api.Store.Categories.Get(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get category %d", id)
		}

		return sp.OK(cat, "got category %d", id)
	}
}

func (api *DataAPI) httpCreateCategory(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		var body CategoryBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "create category")
		}

		if body.Name == nil || *body.Name == "" {
			return sp.Error(potluck.ErrNameRequired, "create category")
		}

		created, err := api.Store.Categories.Insert(req.Context(), q, db.Fields{"name": *body.Name})
		if err != nil {
			return sp.Error(err, "create category %q", *body.Name)
		}

		return sp.Created(created, "created category %d", created.ID)
	}
}

func (api *DataAPI) httpUpdateCategory(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "update category")
		}

		var body CategoryBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "update category %d", id)
		}

		vals := db.Fields{}
		if body.Name != nil {
			if *body.Name == "" {
				return sp.Error(potluck.ErrNameRequired, "update category %d", id)
			}
			vals["name"] = *body.Name
		}

		n, err := api.Store.Categories.Update(req.Context(), q, id, vals)
		if err != nil {
			return sp.Error(err, "update category %d", id)
		}
		if n < 1 {
			return sp.Error(potluck.ErrNotUpdated, "update category %d", id)
		}

		updated, err := api.Store.Categories.Get(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "read back category %d", id)
		}

		return sp.OK(updated, "updated category %d", id)
	}
}

func (api *DataAPI) httpDeleteCategory(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "delete category")
		}

		if err := api.Store.DeleteCategory(req.Context(), q, id); err != nil {
			return sp.Error(err, "delete category %d", id)
		}

		return sp.OK(deletedEntity{ID: id}, "deleted category %d", id)
	}
}

func (api *DataAPI) httpGetCategoryRecipes(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get category recipes")
		}

		recipes, err := api.Store.Links.RecipesForCategory(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get recipes of category %d", id)
		}

		return sp.List(recipes, len(recipes), "got %d recipe(s) of category %d", len(recipes), id)
	}
}

package api

import (
	"net/http"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
)

// MenuBody is the body of a request that creates or updates a menu. On update,
// only the properties that are present are changed, and recipes replaces every
// recipe on the menu.
type MenuBody struct {
	Date    *string `json:"date"`
	Comment *string `json:"comment"`
	Recipes *IDList `json:"recipes"`
}

// fields validates the body and gives the columns it sets along with the IDs
// of the recipes it puts on the menu. If creating, a date is required.
func (body MenuBody) fields(creating bool) (db.Fields, []int64, error) {
	vals := db.Fields{}

	if body.Date != nil && *body.Date != "" {
		d, err := db.ParseDate(*body.Date)
		if err != nil {
			return nil, nil, err
		}
		vals["date"] = d
	} else if creating || body.Date != nil {
		return nil, nil, potluck.NewError("menu date is required", potluck.ErrInfoMissing)
	}

	if body.Comment != nil {
		vals["comment"] = *body.Comment
	} else if creating {
		vals["comment"] = ""
	}

	var recipeIDs []int64
	if body.Recipes != nil {
		recipeIDs = body.Recipes.orEmpty()
	}

	return vals, recipeIDs, nil
}

func (api *DataAPI) httpGetAllMenus(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		lq, err := parseListQuery(req, "before", "after", "comment", "date")
		if err != nil {
			return sp.Error(err, "list menus")
		}

		menus, err := api.Store.Menus.ListAll(req.Context(), q, lq.page, lq.filter)
		if err != nil {
			return sp.Error(err, "list menus")
		}

		return sp.List(menus, len(menus), "got %d menu(s)", len(menus))
	}
}

func (api *DataAPI) httpGetMenu(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get menu")
		}

		menu, err := api.Store.Menus.Get(req.Context(), q, id)
		if err != nil {
			return sp.Error(err, "get menu %d", id)
		}

		return sp.OK(menu, "got menu %d", id)
	}
}

func (api *DataAPI) httpGetMenuRecipes(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "get menu recipes")
		}

		menu, err := api.Store.MenuLinks.RecipesForMenu(req.Context(), q, dao.MenuFilter{ID: &id})
		if err != nil {
			return sp.Error(err, "get recipes of menu %d", id)
		}
		if menu == nil {
			return sp.Error(potluck.ErrNotFound, "get recipes of menu %d", id)
		}

		return sp.OK(menu, "got menu %d with %d recipe(s)", id, len(menu.Recipes))
	}
}

// httpGetMenuByDate gets the menu for a date along with its recipes. A date
// with no menu is not an error; the response just has empty data.
func (api *DataAPI) httpGetMenuByDate(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		date, err := potluck.GetURLParam(req, "date", db.ParseDate)
		if err != nil {
			return sp.Error(err, "get menu by date")
		}

		menu, err := api.Store.MenuLinks.RecipesForMenu(req.Context(), q, dao.MenuFilter{Date: &date})
		if err != nil {
			return sp.Error(err, "get menu for %s", date)
		}
		if menu == nil {
			return sp.OK(struct{}{}, "no menu for %s", date)
		}

		return sp.OK(menu, "got menu for %s with %d recipe(s)", date, len(menu.Recipes))
	}
}

func (api *DataAPI) httpCreateMenu(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		var body MenuBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "create menu")
		}

		vals, recipeIDs, err := body.fields(true)
		if err != nil {
			return sp.Error(err, "create menu")
		}

		err = checkExisting("Recipe", recipeIDs, func(ids []int64) ([]int64, error) {
			return api.Store.MissingRecipes(req.Context(), q, ids)
		})
		if err != nil {
			return sp.Error(err, "create menu")
		}

		created, err := api.Store.CreateMenu(req.Context(), q, vals, recipeIDs)
		if err != nil {
			return sp.Error(err, "create menu")
		}

		return sp.Created(created, "created menu %d for %s", created.ID, created.Date)
	}
}

func (api *DataAPI) httpUpdateMenu(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "update menu")
		}

		var body MenuBody
		if err := potluck.ParseJSONRequest(req, &body); err != nil {
			return sp.Error(err, "update menu %d", id)
		}

		vals, recipeIDs, err := body.fields(false)
		if err != nil {
			return sp.Error(err, "update menu %d", id)
		}

		err = checkExisting("Recipe", recipeIDs, func(ids []int64) ([]int64, error) {
			return api.Store.MissingRecipes(req.Context(), q, ids)
		})
		if err != nil {
			return sp.Error(err, "update menu %d", id)
		}

		updated, err := api.Store.UpdateMenu(req.Context(), q, id, vals, recipeIDs)
		if err != nil {
			return sp.Error(err, "update menu %d", id)
		}

		return sp.OK(updated, "updated menu %d", id)
	}
}

func (api *DataAPI) httpDeleteMenu(sp potluck.ServiceProvider) leasedFunc {
	return func(req *http.Request, q db.Querier) potluck.Result {
		id, err := potluck.RequireIDParam(req)
		if err != nil {
			return sp.Error(err, "delete menu")
		}

		if err := api.Store.DeleteMenu(req.Context(), q, id); err != nil {
			return sp.Error(err, "delete menu %d", id)
		}

		return sp.OK(deletedEntity{ID: id}, "deleted menu %d", id)
	}
}

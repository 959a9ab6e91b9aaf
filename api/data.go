package api

import (
	"context"
	"fmt"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/auth"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/go-chi/chi/v5"
)

// DataAPI serves recipes, categories, and menus. Every route requires an API
// key.
type DataAPI struct {
	Pool  *db.Pool
	Store *dao.Store
}

// Authenticators returns nil; DataAPI uses the API key authenticator provided
// by AuthAPI.
func (api *DataAPI) Authenticators() map[string]potluck.Authenticator {
	return nil
}

// Shutdown has no effect on DataAPI but to return the error of the context.
// The pool is owned by the server.
func (api *DataAPI) Shutdown(ctx context.Context) error {
	return ctx.Err()
}

func (api *DataAPI) Routes(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Use(sp.RequiredAuth(auth.KeyAuthName))

	r.Mount("/recipes", api.routesForRecipes(sp))
	r.Mount("/categories", api.routesForCategories(sp))
	r.Mount("/menus", api.routesForMenus(sp))

	return r
}

func (api *DataAPI) routesForRecipes(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Get("/", leased(sp, api.Pool, api.httpGetAllRecipes(sp)))
	r.Post("/", leased(sp, api.Pool, api.httpCreateRecipe(sp)))

	r.Route("/"+p("id"), func(r chi.Router) {
		r.Get("/", leased(sp, api.Pool, api.httpGetRecipe(sp)))
		r.Put("/", leased(sp, api.Pool, api.httpUpdateRecipe(sp)))
		r.Delete("/", leased(sp, api.Pool, api.httpDeleteRecipe(sp)))
		r.Get("/categories", leased(sp, api.Pool, api.httpGetRecipeCategories(sp)))
		r.Get("/menus", leased(sp, api.Pool, api.httpGetRecipeMenus(sp)))
	})

	return r
}

func (api *DataAPI) routesForCategories(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Get("/", leased(sp, api.Pool, api.httpGetAllCategories(sp)))
	r.Post("/", leased(sp, api.Pool, api.httpCreateCategory(sp)))

	r.Route("/"+p("id"), func(r chi.Router) {
		r.Get("/", leased(sp, api.Pool, api.httpGetCategory(sp)))
		r.Put("/", leased(sp, api.Pool, api.httpUpdateCategory(sp)))
		r.Delete("/", leased(sp, api.Pool, api.httpDeleteCategory(sp)))
		r.Get("/recipes", leased(sp, api.Pool, api.httpGetCategoryRecipes(sp)))
	})

	return r
}

func (api *DataAPI) routesForMenus(sp potluck.ServiceProvider) chi.Router {
	r := chi.NewRouter()

	r.Get("/", leased(sp, api.Pool, api.httpGetAllMenus(sp)))
	r.Post("/", leased(sp, api.Pool, api.httpCreateMenu(sp)))
	r.Get("/date/"+p("date"), leased(sp, api.Pool, api.httpGetMenuByDate(sp)))

	r.Route("/"+p("id"), func(r chi.Router) {
		r.Get("/", leased(sp, api.Pool, api.httpGetMenu(sp)))
		r.Put("/", leased(sp, api.Pool, api.httpUpdateMenu(sp)))
		r.Delete("/", leased(sp, api.Pool, api.httpDeleteMenu(sp)))
		r.Get("/recipes", leased(sp, api.Pool, api.httpGetMenuRecipes(sp)))
	})

	return r
}

// checkExisting returns an error matching potluck.ErrBadArgument that names
// the first of the IDs that missing reports as not existing.
func checkExisting(entity string, ids []int64, missing func([]int64) ([]int64, error)) error {
	if len(ids) == 0 {
		return nil
	}

	notFound, err := missing(ids)
	if err != nil {
		return err
	}
	if len(notFound) > 0 {
		return potluck.NewError(fmt.Sprintf("%d is not a valid %s ID", notFound[0], entity), potluck.ErrBadArgument)
	}
	return nil
}

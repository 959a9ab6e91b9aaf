// Package api has the HTTP handlers of potluck. DataAPI serves recipes,
// categories, and menus to holders of API keys; AuthAPI serves registration,
// login, and the management of users and API keys.
//
// Every handler leases its own connection from the pool for the duration of
// the request and releases it before returning.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
)

func p(s string) (pathParam string) {
	return potluck.PathParam(s)
}

// leasedFunc is an endpoint that runs its queries on q.
type leasedFunc func(req *http.Request, q db.Querier) potluck.Result

// leased returns a handler that leases a connection from pool, runs ep on it,
// and releases the connection once ep returns.
func leased(sp potluck.ServiceProvider, pool *db.Pool, ep leasedFunc) http.HandlerFunc {
	return sp.Endpoint(func(req *http.Request) potluck.Result {
		lease, err := pool.Acquire(req.Context())
		if err != nil {
			return sp.Error(err, "lease connection")
		}
		defer lease.Release()

		return ep(req, lease)
	})
}

// deletedEntity is the data of a successful delete.
type deletedEntity struct {
	ID int64 `json:"id"`
}

// IDList is a list of entity IDs in a request body. Each element may be the ID
// itself, as a JSON number or a string of digits, or an object with the ID in
// its "id" property, so that entities read from the API can be sent back
// as-is.
type IDList []int64

func (il *IDList) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}

	ids := make([]int64, 0, len(elems))
	for i := range elems {
		id, err := parseIDElement(elems[i])
		if err != nil {
			return potluck.NewError(fmt.Sprintf("element %d", i), err)
		}
		ids = append(ids, id)
	}

	*il = ids
	return nil
}

func parseIDElement(raw json.RawMessage) (int64, error) {
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ID == nil {
			return 0, potluck.NewError("object has no id", potluck.ErrInfoMissing)
		}
		raw = obj.ID
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return potluck.ParseID(s)
	}

	// anything else is only valid if its text is a whole number
	return potluck.ParseID(strings.TrimSpace(string(raw)))
}

// orEmpty gives the IDs in il as a non-nil slice, so that an empty list
// clears the links it sets instead of leaving them alone.
func (il IDList) orEmpty() []int64 {
	ids := make([]int64, len(il))
	copy(ids, il)
	return ids
}

// listQuery is what the query string of a listing asks for.
type listQuery struct {
	page   dao.Pagination
	filter dao.Filter
}

// parseListQuery reads the pagination and filter of a listing from the query
// string. Only limit, offset, and the given filter keys are accepted; any other
// key is an error matching potluck.ErrBadArgument.
func parseListQuery(req *http.Request, filterKeys ...string) (listQuery, error) {
	var lq listQuery

	allowed := map[string]bool{"limit": true, "offset": true}
	for _, k := range filterKeys {
		allowed[k] = true
	}

	for key, vals := range req.URL.Query() {
		if !allowed[key] {
			return lq, potluck.NewError(fmt.Sprintf("%q is not a filter of this listing", key), potluck.ErrBadArgument)
		}

		v := vals[len(vals)-1]
		var err error

		switch key {
		case "limit":
			lq.page.Limit, err = parseCount(key, v)
		case "offset":
			lq.page.Offset, err = parseCount(key, v)
		case "name":
			lq.filter.Name = &v
		case "comment":
			lq.filter.Comment = &v
		case "username":
			lq.filter.Username = &v
		case "cat":
			for _, each := range vals {
				for _, part := range strings.Split(each, ",") {
					id, parseErr := potluck.ParseID(strings.TrimSpace(part))
					if parseErr != nil {
						return lq, potluck.NewError("cat", parseErr)
					}
					lq.filter.Categories = append(lq.filter.Categories, id)
				}
			}
		case "before", "after", "date":
			var d db.Date
			d, err = db.ParseDate(v)
			if err == nil {
				switch key {
				case "before":
					lq.filter.Before = &d
				case "after":
					lq.filter.After = &d
				default:
					lq.filter.Date = &d
				}
			}
		case "deleted":
			b := db.ParseBool(v)
			lq.filter.Deleted = &b
		case "include_deleted":
			lq.filter.IncludeDeleted = db.ParseBool(v)
		case "revoked":
			b := db.ParseBool(v)
			lq.filter.Revoked = &b
		}

		if err != nil {
			return lq, potluck.NewError(key, err)
		}
	}

	return lq, nil
}

func parseCount(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, potluck.NewError(fmt.Sprintf("%s must be a whole number", key), potluck.ErrBadArgument)
	}
	return n, nil
}

package dao

import (
	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// Filter selects records. Every field that is set narrows the selection; the
// zero Filter selects everything. Setting a field for a column the table does
// not have is an error matching potluck.ErrBadArgument.
type Filter struct {
	ID *int64

	// Name and Comment are substring matches that ignore case when listing,
	// and exact matches when getting a single record.
	Name    *string
	Comment *string

	// Categories selects recipes that are in every one of the categories.
	Categories []int64

	// Before and After are inclusive bounds on the date. Date is an exact
	// match.
	Before *db.Date
	After  *db.Date
	Date   *db.Date

	Deleted *bool

	// IncludeDeleted makes a listing include soft-deleted records. It has no
	// effect if Deleted is set.
	IncludeDeleted bool

	Username *string
	APIKey   *string
	Revoked  *bool
}

// Pagination limits the part of a listing that is returned. A Limit less than
// 1 means no limit.
type Pagination struct {
	Limit  int
	Offset int
}

// IsEmpty returns whether the filter selects every record.
func (f Filter) IsEmpty() bool {
	return f.ID == nil && f.Name == nil && f.Comment == nil && len(f.Categories) == 0 &&
		f.Before == nil && f.After == nil && f.Date == nil && f.Deleted == nil &&
		f.Username == nil && f.APIKey == nil && f.Revoked == nil
}

// conds converts the filter to the conditions of a WHERE clause on t. If exact
// is set, text fields must match exactly.
func (f Filter) conds(t db.Table, exact bool) ([]db.Cond, error) {
	var conds []db.Cond

	text := func(col string, s string) db.Cond {
		if exact {
			return db.Eq(col, s)
		}
		return db.Contains(col, s)
	}

	if f.ID != nil {
		conds = append(conds, db.Eq("id", *f.ID))
	}
	if f.Name != nil {
		conds = append(conds, text("name", *f.Name))
	}
	if f.Comment != nil {
		conds = append(conds, text("comment", *f.Comment))
	}
	if len(f.Categories) > 0 {
		if t != db.Recipes {
			return nil, potluck.NewError("only recipes can be filtered by category", potluck.ErrBadArgument)
		}
		conds = append(conds, db.HasAllLinked(db.CategoryRecipe, "recipe_id", "category_id", f.Categories))
	}
	if f.Date != nil {
		conds = append(conds, db.Eq("date", *f.Date))
	}
	if f.After != nil {
		conds = append(conds, db.AtLeast("date", *f.After))
	}
	if f.Before != nil {
		conds = append(conds, db.AtMost("date", *f.Before))
	}
	if f.Deleted != nil {
		conds = append(conds, db.Eq("deleted", db.Bool(*f.Deleted)))
	}
	if f.Username != nil {
		conds = append(conds, db.Eq("username", *f.Username))
	}
	if f.APIKey != nil {
		conds = append(conds, db.Eq("apikey", *f.APIKey))
	}
	if f.Revoked != nil {
		conds = append(conds, db.Eq("revoked", db.Bool(*f.Revoked)))
	}

	return conds, nil
}

// listConds is conds for a listing, which leaves out soft-deleted records
// unless asked for them.
func (f Filter) listConds(t db.Table) ([]db.Cond, error) {
	conds, err := f.conds(t, false)
	if err != nil {
		return nil, err
	}
	if t.HasColumn("deleted") && f.Deleted == nil && !f.IncludeDeleted {
		conds = append(conds, db.Eq("deleted", db.Bool(false)))
	}
	return conds, nil
}

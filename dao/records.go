package dao

import (
	"context"
	"fmt"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/db"
)

// Records is the store for one kind of entity. It works the same for every
// table; what differs is described by its Model.
type Records[M any] struct {
	Model   Model[M]
	Dialect db.Dialect
}

// NewRecords creates a Records for model on the given dialect.
func NewRecords[M any](d db.Dialect, model Model[M]) Records[M] {
	return Records[M]{Model: model, Dialect: d}
}

func (r Records[M]) wrap(err error, msg ...any) error {
	return potluck.WrapDBError(r.Dialect.WrapError(err), msg...)
}

// ListAll returns every record matching the filter, in the model's order.
// Soft-deleted records are left out unless the filter asks for them. If
// nothing matches, the returned slice is empty and the error is nil.
func (r Records[M]) ListAll(ctx context.Context, q db.Querier, page Pagination, f Filter) ([]M, error) {
	conds, err := f.listConds(r.Model.Table)
	if err != nil {
		return nil, err
	}

	query, err := db.Select(r.Model.Table, r.Model.Columns...).
		Where(conds...).
		OrderBy(r.Model.OrderBy, false).
		Limit(page.Limit).
		Offset(page.Offset).
		Build(r.Dialect)
	if err != nil {
		return nil, err
	}

	return r.query(ctx, q, query)
}

func (r Records[M]) query(ctx context.Context, q db.Querier, query db.Query) ([]M, error) {
	rows, err := q.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, r.wrap(err)
	}
	defer rows.Close()

	all := []M{}
	for rows.Next() {
		m, err := r.Model.Scan(rows)
		if err != nil {
			return nil, r.wrap(err, "decode ", r.Model.Table)
		}
		all = append(all, m)
	}

	if err := rows.Err(); err != nil {
		return all, r.wrap(err)
	}

	return all, nil
}

// GetOne returns the first record that exactly matches the filter. Unlike
// ListAll, soft-deleted records are not left out. If there is no such record,
// the returned error matches potluck.ErrNotFound.
func (r Records[M]) GetOne(ctx context.Context, q db.Querier, f Filter) (M, error) {
	var m M

	if f.IsEmpty() {
		return m, potluck.NewError("filter selects every record", potluck.ErrBadArgument)
	}

	conds, err := f.conds(r.Model.Table, true)
	if err != nil {
		return m, err
	}

	query, err := db.Select(r.Model.Table, r.Model.Columns...).
		Where(conds...).
		OrderBy(r.Model.OrderBy, false).
		Build(r.Dialect)
	if err != nil {
		return m, err
	}

	row := q.QueryRowContext(ctx, query.SQL, query.Args...)
	m, err = r.Model.Scan(row)
	if err != nil {
		return m, r.wrap(err)
	}
	return m, nil
}

// Get returns the record with the given ID.
func (r Records[M]) Get(ctx context.Context, q db.Querier, id int64) (M, error) {
	return r.GetOne(ctx, q, Filter{ID: &id})
}

// Insert creates a new record from vals and returns it as it was stored.
// created_at and updated_at are always set to the current time. If the record
// conflicts with an existing one, the returned error matches
// potluck.ErrAlreadyExists.
func (r Records[M]) Insert(ctx context.Context, q db.Querier, vals db.Fields) (M, error) {
	var m M

	fields := vals.Without("id", "created_at", "updated_at")
	now := db.NowTimestamp()
	fields["created_at"] = now
	fields["updated_at"] = now

	query, err := db.Insert(r.Dialect, r.Model.Table, fields)
	if err != nil {
		return m, err
	}

	var id int64
	if r.Dialect.InsertReturnsID() {
		err := q.QueryRowContext(ctx, query.SQL, query.Args...).Scan(&id)
		if err != nil {
			return m, r.wrap(err)
		}
	} else {
		res, err := q.ExecContext(ctx, query.SQL, query.Args...)
		if err != nil {
			return m, r.wrap(err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return m, r.wrap(err, "get inserted ID")
		}
	}

	m, err = r.Get(ctx, q, id)
	if err != nil {
		return m, fmt.Errorf("read back inserted %s %d: %w", r.Model.Table, id, err)
	}
	return m, nil
}

// Update sets the given columns of the record with the given ID and returns
// the number of rows changed. updated_at is always set to the current time;
// any value given for it is ignored.
func (r Records[M]) Update(ctx context.Context, q db.Querier, id int64, vals db.Fields) (int64, error) {
	fields := vals.Without("id", "created_at", "updated_at")
	fields["updated_at"] = db.NowTimestamp()

	query, err := db.Update(r.Dialect, r.Model.Table, fields, db.Eq("id", id))
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return 0, r.wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.wrap(err)
	}
	return n, nil
}

// Delete removes every record exactly matching the filter and returns how
// many there were. An empty filter is rejected. If nothing matched, the
// returned error matches potluck.ErrNotFound.
func (r Records[M]) Delete(ctx context.Context, q db.Querier, f Filter) (int64, error) {
	if f.IsEmpty() {
		return 0, potluck.NewError("refusing to delete every record", potluck.ErrBadArgument)
	}

	conds, err := f.conds(r.Model.Table, true)
	if err != nil {
		return 0, err
	}

	query, err := db.Delete(r.Dialect, r.Model.Table, conds...)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return 0, r.wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.wrap(err)
	}
	if n < 1 {
		return 0, potluck.NewError(fmt.Sprintf("no %s matched", r.Model.Table), potluck.ErrNotFound)
	}
	return n, nil
}

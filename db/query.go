package db

import (
	"fmt"
	"strings"

	"github.com/dekarrin/potluck"
)

// Dialect is the part of SQL that differs between engines.
type Dialect interface {
	// Name is the name of the engine.
	Name() string

	// Placeholder returns the bind parameter marker for the nth parameter of a
	// statement. n starts at 1.
	Placeholder(n int) string

	// InsertReturnsID is whether the ID of an inserted row is obtained with a
	// RETURNING clause instead of from the result of the exec.
	InsertReturnsID() bool

	// WrapError converts an error from the engine's driver into one that
	// matches the potluck.DBErr* values where applicable.
	WrapError(err error) error
}

// Query is a built SQL statement and the arguments to bind to it.
type Query struct {
	SQL  string
	Args []interface{}
}

// rebind replaces every ? marker in the statement with the dialect's
// placeholder. No value is ever part of the statement text, so every ? is a
// marker.
func rebind(d Dialect, stmt string) string {
	if d == nil {
		return stmt
	}

	var sb strings.Builder
	n := 0
	for _, ch := range stmt {
		if ch == '?' {
			n++
			sb.WriteString(d.Placeholder(n))
		} else {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// likeEscaper escapes the LIKE metacharacters so that user text is matched
// literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type condKind int

const (
	condCompare condKind = iota
	condContains
	condIn
	condHasAll
	condJoined
)

// Cond is a single condition in a WHERE clause. Conditions are ANDed together.
// Create them with the functions in this package.
type Cond struct {
	kind condKind
	col  string
	op   string
	args []interface{}

	link     Table
	ownCol   string
	otherCol string
}

// Eq is the condition that col equals v.
func Eq(col string, v interface{}) Cond {
	return Cond{kind: condCompare, col: col, op: "=", args: []interface{}{v}}
}

// AtLeast is the condition that col is greater than or equal to v.
func AtLeast(col string, v interface{}) Cond {
	return Cond{kind: condCompare, col: col, op: ">=", args: []interface{}{v}}
}

// AtMost is the condition that col is less than or equal to v.
func AtMost(col string, v interface{}) Cond {
	return Cond{kind: condCompare, col: col, op: "<=", args: []interface{}{v}}
}

// Contains is the condition that col contains s, ignoring case.
func Contains(col, s string) Cond {
	pat := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
	return Cond{kind: condContains, col: col, args: []interface{}{pat}}
}

// In is the condition that col is one of vals. An empty vals never matches.
func In(col string, vals ...interface{}) Cond {
	return Cond{kind: condIn, col: col, args: vals}
}

// HasAllLinked is the condition that the row's id is linked through the link
// table to every one of ids. ownCol is the link column holding the row's id
// and otherCol is the one holding the ids searched for. Repeated ids count
// once.
func HasAllLinked(link Table, ownCol, otherCol string, ids []int64) Cond {
	seen := map[int64]bool{}
	var args []interface{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		args = append(args, id)
	}
	return Cond{kind: condHasAll, col: "id", link: link, ownCol: ownCol, otherCol: otherCol, args: args}
}

// JoinedEq is the condition that col of the joined table equals v. It is only
// valid in a SelectBuilder with a join.
func JoinedEq(col string, v interface{}) Cond {
	return Cond{kind: condJoined, col: col, op: "=", args: []interface{}{v}}
}

func badColumn(t Table, col string) error {
	return potluck.NewError(fmt.Sprintf("%s has no column %q", t, col), potluck.ErrBadArgument)
}

// render writes the condition with ? markers. alias is the prefix for columns
// of t, and joinAlias the prefix for columns of join.
func (c Cond) render(t Table, alias string, join Table, joinAlias string) (string, []interface{}, error) {
	qual := func(a, col string) string {
		if a == "" {
			return col
		}
		return a + "." + col
	}

	switch c.kind {
	case condJoined:
		if join == 0 {
			return "", nil, fmt.Errorf("joined condition on %q without a join", c.col)
		}
		if !join.HasColumn(c.col) {
			return "", nil, badColumn(join, c.col)
		}
		return qual(joinAlias, c.col) + " " + c.op + " ?", c.args, nil
	case condHasAll:
		if !c.link.HasColumn(c.ownCol) {
			return "", nil, badColumn(c.link, c.ownCol)
		}
		if !c.link.HasColumn(c.otherCol) {
			return "", nil, badColumn(c.link, c.otherCol)
		}
	default:
		if !t.HasColumn(c.col) {
			return "", nil, badColumn(t, c.col)
		}
	}

	col := qual(alias, c.col)

	switch c.kind {
	case condCompare:
		return col + " " + c.op + " ?", c.args, nil
	case condContains:
		return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, c.args, nil
	case condIn:
		if len(c.args) == 0 {
			return "1 = 0", nil, nil
		}
		return col + " IN (" + markers(len(c.args)) + ")", c.args, nil
	case condHasAll:
		if len(c.args) == 0 {
			return "1 = 1", nil, nil
		}
		sub := fmt.Sprintf(
			"%s IN (SELECT %s FROM %s WHERE %s IN (%s) GROUP BY %s HAVING COUNT(*) = ?)",
			col, c.ownCol, c.link.Name(), c.otherCol, markers(len(c.args)), c.ownCol,
		)
		args := make([]interface{}, 0, len(c.args)+1)
		args = append(args, c.args...)
		args = append(args, int64(len(c.args)))
		return sub, args, nil
	default:
		return "", nil, fmt.Errorf("unknown condition kind: %d", c.kind)
	}
}

func markers(n int) string {
	m := make([]string, n)
	for i := range m {
		m[i] = "?"
	}
	return strings.Join(m, ", ")
}

func renderWhere(conds []Cond, t Table, alias string, join Table, joinAlias string) (string, []interface{}, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []interface{}
	for _, c := range conds {
		clause, cArgs, err := c.render(t, alias, join, joinAlias)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, cArgs...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func checkColumns(t Table, cols []string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return badColumn(t, c)
		}
	}
	return nil
}

// SelectBuilder builds a SELECT statement on a single table, optionally
// inner-joined to a link table on the table's id.
type SelectBuilder struct {
	table   Table
	cols    []string
	where   []Cond
	orderBy string
	desc    bool
	limit   int
	offset  int

	join    Table
	joinCol string
}

// Select starts a SELECT of cols from t. If no cols are given, every column of
// t is selected.
func Select(t Table, cols ...string) *SelectBuilder {
	if len(cols) == 0 {
		cols = t.Columns()
	}
	return &SelectBuilder{table: t, cols: cols}
}

// Join inner-joins the link table, matching linkCol of link to the id of the
// selected table.
func (sb *SelectBuilder) Join(link Table, linkCol string) *SelectBuilder {
	sb.join = link
	sb.joinCol = linkCol
	return sb
}

// Where adds conditions to the statement.
func (sb *SelectBuilder) Where(conds ...Cond) *SelectBuilder {
	sb.where = append(sb.where, conds...)
	return sb
}

// OrderBy sets the column that results are sorted by.
func (sb *SelectBuilder) OrderBy(col string, desc bool) *SelectBuilder {
	sb.orderBy = col
	sb.desc = desc
	return sb
}

// Limit sets the maximum number of rows returned. A limit less than 1 means
// no limit.
func (sb *SelectBuilder) Limit(n int) *SelectBuilder {
	sb.limit = n
	return sb
}

// Offset sets the number of rows to skip. It has no effect without a Limit.
func (sb *SelectBuilder) Offset(n int) *SelectBuilder {
	sb.offset = n
	return sb
}

// Build creates the statement for the given dialect. It returns an error that
// matches potluck.ErrBadArgument if any column is not in its table.
func (sb *SelectBuilder) Build(d Dialect) (Query, error) {
	if err := checkColumns(sb.table, sb.cols); err != nil {
		return Query{}, err
	}

	alias := ""
	joinAlias := ""
	if sb.join != 0 {
		alias = "t"
		joinAlias = "j"
		if !sb.join.HasColumn(sb.joinCol) {
			return Query{}, badColumn(sb.join, sb.joinCol)
		}
	}

	var stmt strings.Builder
	stmt.WriteString("SELECT ")
	for i, c := range sb.cols {
		if i > 0 {
			stmt.WriteString(", ")
		}
		if alias != "" {
			stmt.WriteString(alias + ".")
		}
		stmt.WriteString(c)
	}
	stmt.WriteString(" FROM ")
	stmt.WriteString(sb.table.Name())
	if sb.join != 0 {
		fmt.Fprintf(&stmt, " AS %s INNER JOIN %s AS %s ON %s.%s = %s.id", alias, sb.join.Name(), joinAlias, joinAlias, sb.joinCol, alias)
	}

	where, args, err := renderWhere(sb.where, sb.table, alias, sb.join, joinAlias)
	if err != nil {
		return Query{}, err
	}
	stmt.WriteString(where)

	if sb.orderBy != "" {
		if !sb.table.HasColumn(sb.orderBy) {
			return Query{}, badColumn(sb.table, sb.orderBy)
		}
		stmt.WriteString(" ORDER BY ")
		if alias != "" {
			stmt.WriteString(alias + ".")
		}
		stmt.WriteString(sb.orderBy)
		if sb.desc {
			stmt.WriteString(" DESC")
		} else {
			stmt.WriteString(" ASC")
		}
	}

	// an offset without a limit is ignored
	if sb.limit > 0 {
		stmt.WriteString(" LIMIT ?")
		args = append(args, int64(sb.limit))
		if sb.offset > 0 {
			stmt.WriteString(" OFFSET ?")
			args = append(args, int64(sb.offset))
		}
	}

	return Query{SQL: rebind(d, stmt.String()), Args: args}, nil
}

// Insert builds an INSERT of one row with the given values. If the dialect
// gets inserted IDs with RETURNING, the statement returns the id column.
func Insert(d Dialect, t Table, vals Fields) (Query, error) {
	cols := vals.Columns()
	if len(cols) == 0 {
		return Query{}, potluck.NewError("no values to insert", potluck.ErrBadArgument)
	}
	if err := checkColumns(t, cols); err != nil {
		return Query{}, err
	}

	args := make([]interface{}, len(cols))
	for i, c := range cols {
		args[i] = vals[c]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name(), strings.Join(cols, ", "), markers(len(cols)))
	if d != nil && d.InsertReturnsID() && t.HasColumn("id") {
		stmt += " RETURNING id"
	}

	return Query{SQL: rebind(d, stmt), Args: args}, nil
}

// InsertRows builds a single INSERT of many rows into t. Every row gives a
// value for each of cols, in order.
func InsertRows(d Dialect, t Table, cols []string, rows [][]interface{}) (Query, error) {
	if len(rows) == 0 {
		return Query{}, potluck.NewError("no rows to insert", potluck.ErrBadArgument)
	}
	if err := checkColumns(t, cols); err != nil {
		return Query{}, err
	}

	rowMarkers := "(" + markers(len(cols)) + ")"
	allMarkers := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*len(cols))
	for i, r := range rows {
		if len(r) != len(cols) {
			return Query{}, fmt.Errorf("row %d has %d values but %d columns were given", i, len(r), len(cols))
		}
		allMarkers[i] = rowMarkers
		args = append(args, r...)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", t.Name(), strings.Join(cols, ", "), strings.Join(allMarkers, ", "))
	return Query{SQL: rebind(d, stmt), Args: args}, nil
}

// Update builds an UPDATE of the rows of t matching conds.
func Update(d Dialect, t Table, vals Fields, conds ...Cond) (Query, error) {
	cols := vals.Columns()
	if len(cols) == 0 {
		return Query{}, potluck.NewError("no values to update", potluck.ErrBadArgument)
	}
	if len(conds) == 0 {
		return Query{}, potluck.NewError("refusing to update every row", potluck.ErrBadArgument)
	}
	if err := checkColumns(t, cols); err != nil {
		return Query{}, err
	}

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(conds))
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, vals[c])
	}

	where, whereArgs, err := renderWhere(conds, t, "", 0, "")
	if err != nil {
		return Query{}, err
	}
	args = append(args, whereArgs...)

	stmt := fmt.Sprintf("UPDATE %s SET %s%s", t.Name(), strings.Join(sets, ", "), where)
	return Query{SQL: rebind(d, stmt), Args: args}, nil
}

// Delete builds a DELETE of the rows of t matching conds. At least one
// condition is required.
func Delete(d Dialect, t Table, conds ...Cond) (Query, error) {
	if len(conds) == 0 {
		return Query{}, potluck.NewError("refusing to delete every row", potluck.ErrBadArgument)
	}

	where, args, err := renderWhere(conds, t, "", 0, "")
	if err != nil {
		return Query{}, err
	}

	stmt := fmt.Sprintf("DELETE FROM %s%s", t.Name(), where)
	return Query{SQL: rebind(d, stmt), Args: args}, nil
}

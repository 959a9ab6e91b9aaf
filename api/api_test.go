package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/dao"
	"github.com/dekarrin/potluck/db"
	"github.com/stretchr/testify/assert"
)

func ref[E any](v E) *E {
	return &v
}

func Test_IDList_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    IDList
		expectErr error
	}{
		{name: "empty", input: `[]`, expect: IDList{}},
		{name: "numbers", input: `[1, 2, 3]`, expect: IDList{1, 2, 3}},
		{name: "strings", input: `["4", "12"]`, expect: IDList{4, 12}},
		{name: "objects", input: `[{"id": 2, "name": "Breakfast"}, {"id": "9"}]`, expect: IDList{2, 9}},
		{name: "mixed", input: `[1, "2", {"id": 3}]`, expect: IDList{1, 2, 3}},
		{name: "not a list", input: `{"id": 1}`, expectErr: nil},
		{name: "fraction", input: `[1.5]`, expectErr: potluck.ErrIDNotNumber},
		{name: "negative", input: `[-1]`, expectErr: potluck.ErrIDNotNumber},
		{name: "word", input: `["one"]`, expectErr: potluck.ErrIDNotNumber},
		{name: "object without id", input: `[{"name": "Lunch"}]`, expectErr: potluck.ErrInfoMissing},
		{name: "null", input: `[null]`, expectErr: potluck.ErrInfoMissing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var actual IDList
			err := json.Unmarshal([]byte(tc.input), &actual)

			if tc.expect == nil {
				assert.Error(err)
				if tc.expectErr != nil {
					assert.ErrorIs(err, tc.expectErr)
				}
				return
			}

			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_IDList_orEmpty(t *testing.T) {
	assert := assert.New(t)

	var nilList IDList
	assert.Equal([]int64{}, nilList.orEmpty())
	assert.Equal([]int64{3, 1}, IDList{3, 1}.orEmpty())
}

func Test_parseListQuery(t *testing.T) {
	d := func(s string) *db.Date {
		date, err := db.ParseDate(s)
		if err != nil {
			panic(err)
		}
		return &date
	}

	testCases := []struct {
		name      string
		query     string
		keys      []string
		expect    listQuery
		expectErr error
	}{
		{
			name:   "nothing",
			query:  "",
			expect: listQuery{},
		},
		{
			name:   "pagination",
			query:  "limit=10&offset=20",
			expect: listQuery{page: dao.Pagination{Limit: 10, Offset: 20}},
		},
		{
			name:   "recipe filters",
			query:  "name=soup&cat=1,2&cat=3&include_deleted=true",
			keys:   []string{"name", "comment", "cat", "deleted", "include_deleted"},
			expect: listQuery{filter: dao.Filter{Name: ref("soup"), Categories: []int64{1, 2, 3}, IncludeDeleted: true}},
		},
		{
			name:   "deleted only",
			query:  "deleted=yes",
			keys:   []string{"deleted"},
			expect: listQuery{filter: dao.Filter{Deleted: ref(true)}},
		},
		{
			name:   "date range",
			query:  "after=2024-03-01&before=2024-03-31",
			keys:   []string{"before", "after"},
			expect: listQuery{filter: dao.Filter{After: d("2024-03-01"), Before: d("2024-03-31")}},
		},
		{
			name:   "revoked",
			query:  "revoked=0",
			keys:   []string{"revoked"},
			expect: listQuery{filter: dao.Filter{Revoked: ref(false)}},
		},
		{
			name:      "unknown key",
			query:     "color=red",
			keys:      []string{"name"},
			expectErr: potluck.ErrBadArgument,
		},
		{
			name:      "negative limit",
			query:     "limit=-1",
			expectErr: potluck.ErrBadArgument,
		},
		{
			name:      "bad date",
			query:     "date=March",
			keys:      []string{"date"},
			expectErr: potluck.ErrNotDate,
		},
		{
			name:      "bad category",
			query:     "cat=1,x",
			keys:      []string{"cat"},
			expectErr: potluck.ErrIDNotNumber,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			req := httptest.NewRequest("GET", "/things?"+tc.query, nil)

			actual, err := parseListQuery(req, tc.keys...)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}

			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_MenuBody_fields(t *testing.T) {
	testCases := []struct {
		name       string
		body       MenuBody
		creating   bool
		expectVals db.Fields
		expectIDs  []int64
		expectErr  error
	}{
		{
			name:      "create needs a date",
			body:      MenuBody{Comment: ref("dinner")},
			creating:  true,
			expectErr: potluck.ErrInfoMissing,
		},
		{
			name:      "update cannot clear the date",
			body:      MenuBody{Date: ref("")},
			expectErr: potluck.ErrInfoMissing,
		},
		{
			name:      "bad date",
			body:      MenuBody{Date: ref("2024-13-01")},
			creating:  true,
			expectErr: potluck.ErrNotDate,
		},
		{
			name:       "update comment only",
			body:       MenuBody{Comment: ref("leftovers")},
			expectVals: db.Fields{"comment": "leftovers"},
		},
		{
			name:       "update clears recipes",
			body:       MenuBody{Recipes: &IDList{}},
			expectVals: db.Fields{},
			expectIDs:  []int64{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			vals, ids, err := tc.body.fields(tc.creating)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}

			assert.NoError(err)
			assert.Equal(tc.expectVals, vals)
			assert.Equal(tc.expectIDs, ids)
		})
	}

	t.Run("create with defaults", func(t *testing.T) {
		assert := assert.New(t)

		vals, ids, err := MenuBody{Date: ref("2024-03-01"), Recipes: &IDList{2, 5}}.fields(true)

		assert.NoError(err)
		assert.Equal("", vals["comment"])
		assert.Contains(vals, "date")
		assert.Equal([]int64{2, 5}, ids)
	})
}

func Test_checkExisting(t *testing.T) {
	t.Run("no ids skips the check", func(t *testing.T) {
		assert := assert.New(t)

		err := checkExisting("Recipe", nil, func([]int64) ([]int64, error) {
			panic("should not be called")
		})

		assert.NoError(err)
	})

	t.Run("missing id", func(t *testing.T) {
		assert := assert.New(t)

		err := checkExisting("Recipe", []int64{1, 7}, func([]int64) ([]int64, error) {
			return []int64{7}, nil
		})

		assert.ErrorIs(err, potluck.ErrBadArgument)
		assert.Contains(err.Error(), "7 is not a valid Recipe ID")
	})

	t.Run("lookup fails", func(t *testing.T) {
		assert := assert.New(t)
		dbErr := errors.New("disk on fire")

		err := checkExisting("Category", []int64{1}, func([]int64) ([]int64, error) {
			return nil, dbErr
		})

		assert.ErrorIs(err, dbErr)
	})
}

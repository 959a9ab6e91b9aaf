package potluck

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Error_Is(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		target error
		expect bool
	}{
		{
			name:   "direct cause",
			err:    NewError("bad", ErrNotFound),
			target: ErrNotFound,
			expect: true,
		},
		{
			name:   "second cause",
			err:    NewError("bad", errors.New("driver"), ErrDB),
			target: ErrDB,
			expect: true,
		},
		{
			name:   "not a cause",
			err:    NewError("bad", ErrNotFound),
			target: ErrDB,
			expect: false,
		},
		{
			name:   "specific validation error matches itself",
			err:    ErrIDNotNumber,
			target: ErrIDNotNumber,
			expect: true,
		},
		{
			name:   "specific validation error matches generic one",
			err:    ErrNameRequired,
			target: ErrBadArgument,
			expect: true,
		},
		{
			name:   "nested Error cause",
			err:    NewError("", ErrIDNotNumber, ErrBadArgument),
			target: ErrIDNotNumber,
			expect: true,
		},
		{
			name:   "wrapped with fmt",
			err:    fmt.Errorf("get recipe: %w", ErrNotDate),
			target: ErrNotDate,
			expect: true,
		},
		{
			name:   "different specific validation errors do not match",
			err:    ErrNameRequired,
			target: ErrIDNotNumber,
			expect: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := errors.Is(tc.err, tc.target)

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Error_Error(t *testing.T) {
	testCases := []struct {
		name   string
		err    Error
		expect string
	}{
		{
			name:   "message only",
			err:    NewError("it broke"),
			expect: "it broke",
		},
		{
			name:   "message and cause",
			err:    NewError("it broke", errors.New("badly")),
			expect: "it broke: badly",
		},
		{
			name:   "cause only",
			err:    NewError("", errors.New("badly"), ErrDB),
			expect: "badly",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.expect, tc.err.Error())
		})
	}
}

func Test_WrapDBError(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		expectMatch []error
		expectNot   []error
	}{
		{
			name:        "constraint violation",
			err:         fmt.Errorf("UNIQUE failed: %w", DBErrConstraintViolation),
			expectMatch: []error{ErrDB, ErrAlreadyExists, DBErrConstraintViolation},
			expectNot:   []error{ErrNotFound},
		},
		{
			name:        "engine not found",
			err:         DBErrNotFound,
			expectMatch: []error{ErrDB, ErrNotFound},
			expectNot:   []error{ErrAlreadyExists},
		},
		{
			name:        "sql no rows",
			err:         sql.ErrNoRows,
			expectMatch: []error{ErrDB, ErrNotFound},
		},
		{
			name:        "anything else",
			err:         errors.New("disk I/O error"),
			expectMatch: []error{ErrDB},
			expectNot:   []error{ErrNotFound, ErrAlreadyExists},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := WrapDBError(tc.err, "could not do the thing")

			for _, m := range tc.expectMatch {
				assert.ErrorIs(actual, m)
			}
			for _, m := range tc.expectNot {
				assert.NotErrorIs(actual, m)
			}
		})
	}
}

func Test_Classify(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectStatus int
		expectCode   Code
	}{
		{name: "bad id", err: ErrIDNotNumber, expectStatus: http.StatusBadRequest, expectCode: CodeIDNotNumber},
		{name: "missing name", err: ErrNameRequired, expectStatus: http.StatusBadRequest, expectCode: CodeNameRequired},
		{name: "bad date", err: fmt.Errorf("menu: %w", ErrNotDate), expectStatus: http.StatusBadRequest, expectCode: CodeNotDate},
		{name: "missing info", err: ErrInfoMissing, expectStatus: http.StatusBadRequest, expectCode: CodeInfoMissing},
		{name: "generic bad argument", err: NewError("limit: not a number", ErrBadArgument), expectStatus: http.StatusBadRequest, expectCode: CodeInvalidData},
		{name: "bad body", err: NewError("malformed", ErrBodyUnmarshal), expectStatus: http.StatusBadRequest, expectCode: CodeInvalidData},
		{name: "duplicate from engine", err: WrapDBError(DBErrConstraintViolation), expectStatus: http.StatusBadRequest, expectCode: CodeDuplicate},
		{name: "not found from engine", err: WrapDBError(sql.ErrNoRows), expectStatus: http.StatusNotFound, expectCode: CodeNotFound},
		{name: "not updated", err: ErrNotUpdated, expectStatus: http.StatusNotFound, expectCode: CodeNotUpdated},
		{name: "user not found", err: ErrUserNotFound, expectStatus: http.StatusUnauthorized, expectCode: CodeUserNotFound},
		{name: "auth failed", err: ErrAuthFailed, expectStatus: http.StatusForbidden, expectCode: CodeAuthFailed},
		{name: "unauthorized", err: ErrUnauthorized, expectStatus: http.StatusUnauthorized, expectCode: CodeUnauthorized},
		{name: "registration closed", err: ErrNotAcceptingUsers, expectStatus: http.StatusForbidden, expectCode: CodeNotAcceptingUsers},
		{name: "forbidden", err: ErrPermissions, expectStatus: http.StatusForbidden, expectCode: CodeForbidden},
		{name: "commit", err: NewError("commit", errors.New("disk full"), ErrCommit, ErrDB), expectStatus: http.StatusInternalServerError, expectCode: CodeCommit},
		{name: "generic db error", err: WrapDBError(errors.New("disk I/O error")), expectStatus: http.StatusInternalServerError, expectCode: CodeDBError},
		{name: "unknown error", err: errors.New("who knows"), expectStatus: http.StatusInternalServerError, expectCode: CodeDBError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			status, code := Classify(tc.err)

			assert.Equal(tc.expectStatus, status)
			assert.Equal(tc.expectCode, code)
		})
	}
}

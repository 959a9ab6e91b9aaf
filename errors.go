package potluck

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadArgument       = errors.New("one or more of the arguments is invalid")
	ErrBodyUnmarshal     = errors.New("malformed data in request")
	ErrNotFound          = errors.New("the requested entity could not be found")
	ErrNotUpdated        = errors.New("the entity was not updated")
	ErrAlreadyExists     = errors.New("resource with same identifying information already exists")
	ErrAuthFailed        = errors.New("the supplied credentials are not valid")
	ErrUserNotFound      = errors.New("no user with that username exists")
	ErrUnauthorized      = errors.New("authorization is required")
	ErrPermissions       = errors.New("you don't have permission to do that")
	ErrNotAcceptingUsers = errors.New("user registration is disabled")
	ErrCommit            = errors.New("transaction could not be committed")
	ErrDB                = errors.New("an error occured with the DB")
)

// Validation errors with a more specific code than ErrBadArgument. Each of
// these also matches ErrBadArgument when checked with errors.Is.
var (
	ErrIDNotNumber  = NewError("ID is not a number", ErrBadArgument)
	ErrNameRequired = NewError("name is required", ErrBadArgument)
	ErrInfoMissing  = NewError("vital information is missing", ErrBadArgument)
	ErrNotDate      = NewError("not a valid date", ErrBadArgument)
)

// Errors returned by database engine packages. These are converted into the
// matching Err* values by WrapDBError before they leave the data access layer.
var (
	DBErrConstraintViolation = errors.New("a uniqueness constraint was violated")
	DBErrNotFound            = errors.New("the requested resource was not found")
	DBErrDecodingFailure     = errors.New("field could not be decoded from DB storage format to model format")
)

// Error is a typed error returned by functions in potluck as their error
// value. It contains both a message explaining what happened as well as one or
// more error values it considers to be its causes. Error is compatible with the
// use of errors.Is() - calling errors.Is on some Error value err along with any
// value of error it holds as one of its causes will return true. This allows
// for easy examination and failure condition checking without needing to
// resort to manual typecasting.
//
// If Error has at least one cause defined, the result of calling Error.Error()
// will be its primary message with the result of calling Error() on its first
// cause appended to it.
//
// Error should not be used directly; call NewError to create one.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message defined for the Error. If a message was defined for
// it when created, that message is returned, concatenated with the result of
// calling Error() on the its first cause if one is defined. If no message or an
// empty message was defined for it when created, but there is at least one
// cause defined for it, the result of calling Error() on the first cause is
// returned. If no message is defined and no causes are defined, returns the
// empty string.
func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}

	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}

	return e.msg
}

// Unwrap returns the causes of Error. The return value will be nil if no causes
// were defined for it.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether Error either Is itself the given target error, or one of
// its causes is.
//
// This function is for interaction with the errors API.
func (e Error) Is(target error) bool {
	// is the target error itself?
	if errTarget, ok := target.(Error); ok {
		if e.msg == errTarget.msg && len(e.cause) == len(errTarget.cause) {
			allCausesEqual := true
			for i := range e.cause {
				if !sameError(e.cause[i], errTarget.cause[i]) {
					allCausesEqual = false
					break
				}
			}
			if allCausesEqual {
				return true
			}
		}
	}

	for i := range e.cause {
		// causes of type Error need the full Is check so nested causes are
		// found.
		if sErr, ok := e.cause[i].(Error); ok {
			if sErr.Is(target) {
				return true
			}
		} else if sameError(e.cause[i], target) {
			return true
		}
	}
	return false
}

// sameError compares two errors without panicking on Error values, which are
// not comparable with ==.
func sameError(a, b error) bool {
	aErr, aIsErr := a.(Error)
	bErr, bIsErr := b.(Error)
	if aIsErr || bIsErr {
		if aIsErr && bIsErr {
			return aErr.Is(bErr)
		}
		return false
	}
	return a == b
}

// NewError creates a new Error with the given message, along with any errors it
// should wrap as its causes. Providing cause errors is not required, but will
// cause it to return true when it is checked against that error via a call to
// errors.Is.
func NewError(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

func convertDBError(err error) error {
	switch {
	case errors.Is(err, DBErrConstraintViolation):
		// preserve the original message for constraint violations
		return NewError(ErrAlreadyExists.Error(), err, ErrAlreadyExists)
	case errors.Is(err, DBErrNotFound), errors.Is(err, sql.ErrNoRows):
		return NewError(ErrNotFound.Error(), err, ErrNotFound)
	default:
		return err
	}
}

// WrapDBError creates a new Error that wraps the given error as a cause and
// automatically adds ErrDB as another cause. A user-set message may be provided
// if desired with msg, but it may be left as "".
//
// The provided error being wrapped will itself be converted to an Error of the
// approriate potluck type if possible; e.g. engine errors indicating that a
// record could not be found would be converted to an Error that returns true
// for errors.Is(err, potluck.ErrNotFound).
//
// msg, if provided, is used to create the msg of the error by calling
// fmt.Sprint. For format capability, use WrapDBErrorf.
func WrapDBError(err error, msg ...any) Error {
	err = convertDBError(err)

	var errMsg string
	if len(msg) > 0 {
		errMsg = fmt.Sprint(msg...)
	}

	return Error{
		msg:   errMsg,
		cause: []error{err, ErrDB},
	}
}

// WrapDBErrorf is WrapDBError with a format string.
func WrapDBErrorf(err error, format string, a ...any) Error {
	err = convertDBError(err)

	return Error{
		msg:   fmt.Sprintf(format, a...),
		cause: []error{err, ErrDB},
	}
}

// errorClass is one row of the table Classify walks through. Order matters;
// the more specific errors come first since, for instance, a wrapped
// uniqueness violation also matches ErrDB.
type errorClass struct {
	match  error
	status int
	code   Code
}

var errorClasses = []errorClass{
	{ErrCommit, http.StatusInternalServerError, CodeCommit},
	{ErrIDNotNumber, http.StatusBadRequest, CodeIDNotNumber},
	{ErrNameRequired, http.StatusBadRequest, CodeNameRequired},
	{ErrNotDate, http.StatusBadRequest, CodeNotDate},
	{ErrInfoMissing, http.StatusBadRequest, CodeInfoMissing},
	{ErrAlreadyExists, http.StatusBadRequest, CodeDuplicate},
	{ErrBodyUnmarshal, http.StatusBadRequest, CodeInvalidData},
	{ErrBadArgument, http.StatusBadRequest, CodeInvalidData},
	{ErrNotUpdated, http.StatusNotFound, CodeNotUpdated},
	{ErrNotFound, http.StatusNotFound, CodeNotFound},
	{ErrUserNotFound, http.StatusUnauthorized, CodeUserNotFound},
	{ErrAuthFailed, http.StatusForbidden, CodeAuthFailed},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{ErrNotAcceptingUsers, http.StatusForbidden, CodeNotAcceptingUsers},
	{ErrPermissions, http.StatusForbidden, CodeForbidden},
}

// Classify gives the HTTP status and envelope code that err should be reported
// with. Errors that do not match any known class are reported as a database
// error with status 500; the text of err itself is never part of the result.
func Classify(err error) (status int, code Code) {
	for _, ec := range errorClasses {
		if errors.Is(err, ec.match) {
			return ec.status, ec.code
		}
	}
	return http.StatusInternalServerError, CodeDBError
}

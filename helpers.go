package potluck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

var (
	paramTypePats = map[string]string{
		"uuid":     `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
		"email":    `\S+@\S+`,
		"num":      `\d+`,
		"alpha":    `[A-Za-z]+`,
		"alphanum": `[A-Za-z0-9]+`,
		"date":     `\d{4}-\d{2}-\d{2}`,
	}

	pathParamRegexp = regexp.MustCompile(`{([^:}]+):[^}]*}`)
)

// PathParam translates strings of the form "name:type" to a URI path parameter
// string of the form "{name:regex}" compatible with the chi router. Only
// request URIs whose path parameters match their respective regexes (if any)
// will match that route.
//
// Note that this only does basic matching for path routing. API endpoint logic
// will still need to decode the received string.
//
// Currently, PathParam supports the following parameter type names:
//
//   - "uuid" - UUID strings.
//   - "email" - Two strings separated by an @ sign.
//   - "num" - One or more digits 0-9.
//   - "alpha" - One or more Latin letters A-Z or a-z.
//   - "alphanum" - One or more Latin letters A-Z, a-z, or digits 0-9.
//   - "date" - A string of the form YYYY-MM-DD.
//
// If only name is given in the string (with no colon), then the string
// "{" + name + "}" is returned.
func PathParam(nameType string) string {
	var name string
	var pat string

	parts := strings.SplitN(nameType, ":", 2)
	name = parts[0]
	if len(parts) == 2 {
		// we have a type, if it's a name in the paramTypePats map use that else
		// treat it as a normal pattern
		pat = parts[1]

		if translatedPat, ok := paramTypePats[parts[1]]; ok {
			pat = translatedPat
		}
	}

	if pat == "" {
		return "{" + name + "}"
	}
	return "{" + name + ":" + pat + "}"
}

// UnPathParam strips the regex from every "{name:regex}" in s, leaving
// "{name}". It is used to make route listings readable.
func UnPathParam(s string) string {
	return pathParamRegexp.ReplaceAllString(s, "{$1}")
}

// RedirectNoTrailingSlash returns an http.HandlerFunc that redirects to the
// same URL as the request but with no trailing slash.
func RedirectNoTrailingSlash(resp ResponseGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		redirPath := strings.TrimRight(req.URL.Path, "/")
		r := resp.Redirection(redirPath)
		r.WriteResponse(w)
		resp.LogResponse(req, r)
	}
}

// ParseJSONRequest decodes the body of req into v, which must be a pointer.
// The returned error will match ErrBodyUnmarshal if the body is not valid
// JSON, and ErrBadArgument if the request is not JSON at all.
func ParseJSONRequest(req *http.Request, v interface{}) error {
	contentType := strings.ToLower(req.Header.Get("Content-Type"))
	if mediaType, _, _ := strings.Cut(contentType, ";"); strings.TrimSpace(mediaType) != "application/json" {
		return NewError("request content-type is not application/json", ErrBadArgument)
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer func() {
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewBuffer(bodyData))
	}()

	err = json.Unmarshal(bodyData, v)
	if err != nil {
		return NewError("malformed JSON in request", err, ErrBodyUnmarshal)
	}

	return nil
}

// GetURLParam gets the named chi URL parameter from the request and parses it
// with parse. A parse failure matches ErrBadArgument, along with whatever the
// parse function returned.
func GetURLParam[E any](r *http.Request, key string, parse func(string) (E, error)) (val E, err error) {
	valStr := chi.URLParam(r, key)
	if valStr == "" {
		// either it does not exist or it is nil; treat both as the same and
		// return an error
		return val, NewError(fmt.Sprintf("parameter %q does not exist", key), ErrBadArgument)
	}

	val, err = parse(valStr)
	if err != nil {
		return val, NewError("", err, ErrBadArgument)
	}
	return val, nil
}

// ParseID parses an entity ID. Only a whole number is accepted; signs,
// decimal points, and anything else give an error matching ErrIDNotNumber.
func ParseID(s string) (int64, error) {
	if s == "" {
		return 0, ErrIDNotNumber
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, ErrIDNotNumber
		}
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrIDNotNumber
	}
	return id, nil
}

// RequireIDParam gets the "id" URL parameter of the request as an entity ID.
func RequireIDParam(r *http.Request) (int64, error) {
	return GetURLParam(r, "id", ParseID)
}

package potluck

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result is the outcome of an endpoint. It holds everything needed to write
// the HTTP response as well as a message for the server log that is never
// shown to the client. Results are normally created by a ResponseGenerator.
type Result struct {
	Status      int
	IsErr       bool
	IsJSON      bool
	InternalMsg string

	Resp  interface{}
	Redir string // only used for redirects

	hdrs [][2]string

	// set by calling PrepareMarshaledResponse.
	respJSONBytes []byte
}

// WithHeader returns a copy of the Result that will also write the given
// header.
func (r Result) WithHeader(name, val string) Result {
	erCopy := Result{
		IsErr:       r.IsErr,
		IsJSON:      r.IsJSON,
		Status:      r.Status,
		InternalMsg: r.InternalMsg,
		Resp:        r.Resp,
		Redir:       r.Redir,
	}

	erCopy.hdrs = append(erCopy.hdrs, r.hdrs...)
	erCopy.hdrs = append(erCopy.hdrs, [2]string{name, val})
	return erCopy
}

// PrepareMarshaledResponse sets the respJSONBytes to the marshaled version of
// the response if required. If required, and there is a problem marshaling, an
// error is returned. If not required, nil error is always returned.
//
// If PrepareMarshaledResponse has been successfully called with a non-nil
// returned error at least once for r, calling this method again has no effect
// and will return a non-nil error.
func (r *Result) PrepareMarshaledResponse() error {
	if r.respJSONBytes != nil {
		return nil
	}

	if r.IsJSON && r.Status != http.StatusNoContent && r.Redir == "" {
		var err error
		r.respJSONBytes, err = json.Marshal(r.Resp)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteResponse writes the Result to w. It panics if the Result was never
// populated or its body cannot be marshaled.
func (r Result) WriteResponse(w http.ResponseWriter) {
	// if this hasn't been properly created, panic
	if r.Status == 0 {
		panic("result not populated")
	}

	err := r.PrepareMarshaledResponse()
	if err != nil {
		panic(fmt.Sprintf("could not marshal response: %s", err.Error()))
	}

	var respBytes []byte

	if r.IsJSON {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if r.Redir == "" {
			respBytes = r.respJSONBytes
		}
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if r.Status != http.StatusNoContent && r.Redir == "" {
			respBytes = []byte(fmt.Sprintf("%v", r.Resp))
		}
	}

	// if there is a redir, handle that now
	if r.Redir != "" {
		w.Header().Set("Location", r.Redir)
	}

	for i := range r.hdrs {
		w.Header().Set(r.hdrs[i][0], r.hdrs[i][1])
	}

	w.WriteHeader(r.Status)

	if r.Status != http.StatusNoContent {
		w.Write(respBytes)
	}
}

// ResponseGenerator creates Results. Every JSON Result it makes carries an
// Envelope as its body.
type ResponseGenerator interface {
	// OK returns an HTTP-200 with data in an I_SUCCESS envelope.
	OK(data interface{}, internalMsg ...interface{}) Result

	// Created returns an HTTP-201 with data in an I_SUCCESS envelope.
	Created(data interface{}, internalMsg ...interface{}) Result

	// List returns an HTTP-200 for a listing of n items. An empty listing is
	// given the E_NOTFOUND code.
	List(data interface{}, n int, internalMsg ...interface{}) Result

	// Error returns a Result for err, with the status and code decided by
	// Classify. The text of err goes only to the internal message.
	Error(err error, internalMsg ...interface{}) Result

	// Response returns a JSON result with the given status and envelope.
	Response(status int, env Envelope, internalMsg string, v ...interface{}) Result

	// TextErr is like Error but writes a plain text body.
	TextErr(status int, userMsg, internalMsg string, v ...interface{}) Result

	// Redirection returns a permanent redirect to uri.
	Redirection(uri string) Result

	// LogResponse logs the response to a request.
	LogResponse(req *http.Request, r Result)
}

package server

import (
	"fmt"
	"net/http"

	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/middle"
)

// endpointCreator is the ServiceProvider given to every API. It creates
// Results whose bodies are envelopes, and hands out middleware from the
// server's middle.Provider.
type endpointCreator struct {
	mid *middle.Provider
	log potluck.Logger
}

func (em endpointCreator) Logger() potluck.Logger {
	return em.log
}

func (em endpointCreator) LogResponse(req *http.Request, r potluck.Result) {
	em.log.LogResult(req, r)
}

// internalMsgOr formats internalMsg, which if present is a format string
// followed by its arguments, falling back to def if there is none.
func internalMsgOr(def string, internalMsg []interface{}) string {
	if len(internalMsg) < 1 {
		return def
	}

	format, ok := internalMsg[0].(string)
	if !ok {
		return fmt.Sprint(internalMsg...)
	}
	return fmt.Sprintf(format, internalMsg[1:]...)
}

// Response returns a JSON Result with env as its body. If additional values
// are provided they are given to internalMsg as a format string.
func (em endpointCreator) Response(status int, env potluck.Envelope, internalMsg string, v ...interface{}) potluck.Result {
	return potluck.Result{
		IsJSON:      true,
		IsErr:       status >= 400,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		Resp:        env,
	}
}

// OK returns a Result containing an HTTP-200 along with a more detailed
// message (if desired; if none is provided it defaults to a generic one) that
// is not displayed to the user.
func (em endpointCreator) OK(data interface{}, internalMsg ...interface{}) potluck.Result {
	msg := internalMsgOr("OK", internalMsg)
	return em.Response(http.StatusOK, potluck.NewEnvelope(potluck.CodeSuccess, data), "%s", msg)
}

// Created returns a Result containing an HTTP-201 along with a more detailed
// message (if desired; if none is provided it defaults to a generic one) that
// is not displayed to the user.
func (em endpointCreator) Created(data interface{}, internalMsg ...interface{}) potluck.Result {
	msg := internalMsgOr("created", internalMsg)
	return em.Response(http.StatusCreated, potluck.NewEnvelope(potluck.CodeSuccess, data), "%s", msg)
}

// List returns a Result containing an HTTP-200 for a listing of n items.
func (em endpointCreator) List(data interface{}, n int, internalMsg ...interface{}) potluck.Result {
	msg := internalMsgOr(fmt.Sprintf("listed %d item(s)", n), internalMsg)
	return em.Response(http.StatusOK, potluck.ListEnvelope(data, n), "%s", msg)
}

// Error returns the Result that err is reported with. The user only ever sees
// the message of the code err is classified as; the internal message is
// followed by the full text of err.
func (em endpointCreator) Error(err error, internalMsg ...interface{}) potluck.Result {
	status, env := potluck.ErrorEnvelope(err)

	msg := err.Error()
	if len(internalMsg) > 0 {
		msg = internalMsgOr("", internalMsg) + ": " + msg
	}

	r := em.Response(status, env, "%s", msg)
	r.IsErr = true
	return r
}

func (em endpointCreator) Redirection(uri string) potluck.Result {
	msg := fmt.Sprintf("redirect -> %s", uri)
	return potluck.Result{
		Status:      http.StatusPermanentRedirect,
		InternalMsg: msg,
		Redir:       uri,
	}
}

// TextErr is like Error but it avoids JSON encoding of any kind and writes the
// output as plain text. If additional values are provided they are given to
// internalMsg as a format string.
func (em endpointCreator) TextErr(status int, userMsg, internalMsg string, v ...interface{}) potluck.Result {
	msg := fmt.Sprintf(internalMsg, v...)
	return potluck.Result{
		IsJSON:      false,
		IsErr:       true,
		Status:      status,
		InternalMsg: msg,
		Resp:        userMsg,
	}
}

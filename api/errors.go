package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/encryptederc/eerc-client/log"
)

// Error is an API error with a stable code and the HTTP status it is served
// with. It is written as {"error": "...", "code": 40007}.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

type errorResponse struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

// MarshalJSON encodes the message and the code, never the status.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorResponse{Err: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap allows errors.Is on the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends the error as the response.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warnw("cannot encode api error", "error", err.Error())
		http.Error(w, e.Error(), http.StatusInternalServerError)
		return
	}
	log.Debugw("api error", "code", e.Code, "status", e.HTTPstatus, "error", e.Error())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Warnw("cannot write api error", "error", err.Error())
	}
}

func (e Error) wrap(detail string) Error {
	e.Err = fmt.Errorf("%w: %s", e.Err, detail)
	return e
}

// With appends s to the message.
func (e Error) With(s string) Error {
	return e.wrap(s)
}

// Withf appends a formatted detail to the message.
func (e Error) Withf(format string, args ...any) Error {
	return e.wrap(fmt.Sprintf(format, args...))
}

// WithErr appends err to the message.
func (e Error) WithErr(err error) Error {
	return e.wrap(err.Error())
}

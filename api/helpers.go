package api

import (
	"encoding/json"
	"net/http"

	"github.com/encryptederc/eerc-client/log"
)

// httpWriteJSON encodes data and writes it with a 200 status. Encoding
// happens first so a failure can still be answered with an error.
func httpWriteJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(append(body, '\n'))
	if err != nil {
		log.Warnw("cannot write api response", "error", err.Error())
		return
	}
	log.Debugw("api response", "bytes", n)
}

// httpWriteOK writes an empty 200 response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("cannot write api response", "error", err.Error())
	}
}

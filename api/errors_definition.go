//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// Codes 400xx are client errors, 500xx server errors. The HTTP status is
// chosen per error and does not follow from the code. Codes are part of the
// API: never renumber them, only append, and leave retired codes unused.
var (
	ErrResourceNotFound       = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody          = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedAddress       = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrAccountNotFound        = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("account not found")}
	ErrInvalidRequestType     = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid request type")}
	ErrAmountOutOfRange       = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("amount out of range")}
	ErrInsufficientBalance    = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("insufficient balance")}
	ErrRecipientNotRegistered = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("recipient not registered")}
	ErrMissingAuditor         = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("auditor public key not set")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrProverFailed               = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("proof generation failed")}
	ErrChainFailed                = Error{Code: 50004, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("chain request failed")}
)

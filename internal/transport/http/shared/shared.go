// Package shared holds the JSON response helpers used by every HTTP handler
// so that success payloads and error envelopes stay uniform.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "leadgate/pkg/domain-errors"
)

// ErrorResponse is the wire envelope for failures.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are swallowed;
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP envelope. Internal
// errors keep their description off the wire; validation errors carry
// field-level detail; rate limit errors get a Retry-After header when the
// caller set one via WriteRateLimited.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.DomainError
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
		resp.Fields = dErrors.FieldsOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// WriteRateLimited writes the 429 envelope with Retry-After and quota
// headers.
func WriteRateLimited(w http.ResponseWriter, err error, limit, remaining, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	WriteError(w, err)
}

// DecodeJSON parses the request body into v, reporting malformed payloads as
// CodeBadRequest.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body")
	}
	return nil
}

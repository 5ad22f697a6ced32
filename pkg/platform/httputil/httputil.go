package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "ballotgate/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Retryable   *bool  `json:"retryable,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal and storage errors never echo their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeStorage:
	default:
		if de, ok := dErrors.As(err); ok {
			body.Description = de.Message
		}
	}
	if code != dErrors.CodeInternal {
		retry := dErrors.Retryable(code)
		body.Retryable = &retry
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

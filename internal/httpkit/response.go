package httpkit

import (
	"encoding/json"
	"io"
	"net/http"

	"poststudio/internal/pkg/errors"
)

// Envelope is the body shape of every /api response. Action specific fields
// are merged in by the handlers.
type Envelope map[string]any

// OK starts a success envelope.
func OK(message string) Envelope {
	return Envelope{"success": true, "message": message}
}

// Fail starts a failure envelope.
func Fail(message string) Envelope {
	return Envelope{"success": false, "message": message}
}

// With sets key and returns the envelope for chaining.
func (e Envelope) With(key string, value any) Envelope {
	e[key] = value
	return e
}

// DecodeJSON reads at most maxBytes of JSON from r into v.
func DecodeJSON(r io.Reader, maxBytes int64, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBytes))
	if err := dec.Decode(v); err != nil {
		return errors.WrapWithCode(err, errors.CodeBadRequest, "httpkit.decode", "invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteErr writes a failure envelope with the status and code mapped from err.
func WriteErr(w http.ResponseWriter, err error, message string) {
	WriteJSON(w, errors.GetHTTPStatus(err), Fail(message).With("code", errors.GetCode(err)))
}

package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MaxBodyBytes bounds request bodies. The largest legitimate body is a
// placement carrying one ciphertext.
const MaxBodyBytes = 64 << 10

// Validator is implemented by every request body
type Validator interface {
	Validate() error
}

// Error describes a request body the API refuses to act on
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Decode reads a JSON body into v and validates it. Every failure is
// returned as *Error.
func Decode(w http.ResponseWriter, r *http.Request, v Validator) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &Error{Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		return &Error{Message: "invalid request body"}
	}
	if err := v.Validate(); err != nil {
		return &Error{Message: err.Error()}
	}
	return nil
}

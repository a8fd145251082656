package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MessageBody is the envelope used for plain status responses.
type MessageBody struct {
	Message string `json:"message"`
}

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends {"message": msg} with the given status code.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageBody{Message: msg})
}

// DecodeJSON decodes JSON request body into the target struct.
// An empty body leaves target untouched so field validation reports what is missing.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

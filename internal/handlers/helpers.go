package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hpcwfm/wfm/internal/models"
)

// validate checks the request structs' validate tags
var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteDetail(w, "method %s not allowed on %s", r.Method, r.URL.Path)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteDetail writes the uniform failure shape: 404 with {detail: string}.
// Every failing request answers this way; the CLI renders detail as-is.
func WriteDetail(w http.ResponseWriter, format string, args ...interface{}) error {
	return WriteJSON(w, http.StatusNotFound, map[string]string{
		"detail": fmt.Sprintf(format, args...),
	})
}

// WriteFailure reports an operation error in the uniform failure shape. The
// error-kind prefix is an engine classification, not part of the detail.
func WriteFailure(w http.ResponseWriter, err error) error {
	return WriteDetail(w, "%s", models.Detail(err))
}

// DecodeAndValidate parses the JSON request body into v and checks its
// validate tags.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %v", err)
	}
	return nil
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ValidationError is the body returned when submitted form data is rejected.
type ValidationError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
	Form   any               `json:"form,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func OKResponse(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func ErrorResponse(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ValidationErrorResponse reports field errors together with the submitted
// form so the client can re-render it.
func ValidationErrorResponse(w http.ResponseWriter, fields map[string]string, form any) {
	JSON(w, http.StatusBadRequest, ValidationError{
		Error:  "Please correct the errors below.",
		Fields: fields,
		Form:   form,
	})
}

// Redirect answers a form submission with 303 See Other.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// LocalPath returns target when it is a path on this site, otherwise fallback.
// Scheme-relative and absolute URLs are rejected to avoid open redirects.
func LocalPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

package validation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Errors maps a field name to its validation messages. It is the first of
// the two failure channels: an operation that collects any field errors
// never reaches storage.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// Write sends the field errors as a 400 response.
func (e Errors) Write(w http.ResponseWriter) {
	payload, err := json.Marshal(map[string]Errors{"errors": e})
	if err != nil {
		log.Errorf("marshal validation errors: %s", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if _, err := w.Write(payload); err != nil {
		log.Errorf("failed to write validation errors response: %s", err)
	}
}

// CheckRequiredString requires a non-blank value up to maxLen characters.
func CheckRequiredString(errs Errors, field, value string, maxLen int) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		errs.Add(field, "required")
		return
	}
	if len(trimmed) > maxLen {
		errs.Add(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
}

// CheckOptionalString allows blank values, everything else is length-checked.
func CheckOptionalString(errs Errors, field, value string, maxLen int) {
	if value == "" {
		return
	}
	if len(value) > maxLen {
		errs.Add(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
}

// OptionalString normalizes blank input to absent.
func OptionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CheckNonNegative rejects negative numeric input; nil means absent and is fine,
// zero is a value and is kept.
func CheckNonNegative(errs Errors, field string, value *float64) {
	if value == nil {
		return
	}
	if *value < 0 {
		errs.Add(field, "must not be negative")
	}
}

// CheckUUID requires value to be a UUID-shaped identifier.
func CheckUUID(errs Errors, field, value string) {
	if value == "" {
		errs.Add(field, "required")
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		errs.Add(field, "must be a valid UUID")
	}
}

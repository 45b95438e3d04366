package profile

import (
	"errors"
	"strings"
)

// ErrIncomplete is returned when a required form field is blank.
var ErrIncomplete = errors.New("name and research field are required")

// Profile holds the researcher details collected once per session.
type Profile struct {
	Name        string `json:"name"`
	Field       string `json:"field"`
	Initialized bool   `json:"initialized"`
}

// Capture validates the form input. Both values are trimmed and must be non-empty.
func Capture(name, field string) (Profile, error) {
	name = strings.TrimSpace(name)
	field = strings.TrimSpace(field)
	if name == "" || field == "" {
		return Profile{}, ErrIncomplete
	}
	return Profile{Name: name, Field: field, Initialized: true}, nil
}

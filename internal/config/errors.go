package config

import "fmt"

// FieldError carries the field path and the reason, so the CLI can point the
// user at the offending line.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// newFieldError creates an error with the field path and reason attached.
func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// accountField builds Account[name].Field style paths for validation output.
func accountField(name, field string) string {
	if name == "" {
		return fmt.Sprintf("Account[].%s", field)
	}
	return fmt.Sprintf("Account[%s].%s", name, field)
}

package tenancy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrStoreRequired is returned when the policy requires a current store
	// and none is set on the context.
	ErrStoreRequired = errors.New("tenancy: current store is required")

	// ErrAlreadyRegistered is returned when a model is registered twice.
	ErrAlreadyRegistered = errors.New("tenancy: model already registered")

	// ErrNotRegistered is returned for operations that need a registration
	// the registry does not hold.
	ErrNotRegistered = errors.New("tenancy: model not registered")
)

// ValidationErrors collects field-level validation failures. It mirrors the
// shape callers expect from model validation: user-correctable messages keyed
// by attribute or association name, never a system fault.
type ValidationErrors map[string][]string

// Add appends a message for the given field.
func (e ValidationErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Any reports whether at least one failure was recorded.
func (e ValidationErrors) Any() bool {
	return len(e) > 0
}

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed")
	for _, f := range fields {
		for _, msg := range e[f] {
			fmt.Fprintf(&b, "; %s %s", f, msg)
		}
	}
	return b.String()
}

// AsValidation unwraps err into ValidationErrors when possible.
func AsValidation(err error) (ValidationErrors, bool) {
	var verr ValidationErrors
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

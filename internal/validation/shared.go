package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error carries field-level validation messages. Kind, when set, is the sentinel
// the failure should match with errors.Is.
type Error struct {
	Fields map[string]string
	Kind   error
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error {
	return e.Kind
}

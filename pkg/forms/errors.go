package forms

import (
	"fmt"
	"sort"
	"strings"
)

// Errors collects validation messages keyed by field name.
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field.
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the names of failing fields, sorted.
func (e Errors) Fields() []string {
	names := make([]string, 0, len(e))
	for name, msgs := range e {
		if len(msgs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of failing fields.
func (e Errors) Len() int {
	return len(e.Fields())
}

// Merge copies every message of other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// Delete drops the messages of field.
func (e Errors) Delete(field string) {
	delete(e, field)
}

// Clone returns a deep copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for field, msgs := range e {
		out[field] = append([]string(nil), msgs...)
	}
	return out
}

// Error renders the set as "field: message" pairs in field order.
func (e Errors) Error() string {
	var parts []string
	for _, field := range e.Fields() {
		for _, msg := range e[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return strings.Join(parts, "; ")
}

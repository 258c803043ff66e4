package policyfile

import (
	"fmt"
	"strings"
)

// FieldError points at one offending field in a policy document.
type FieldError struct {
	Field string
	Msg   string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// InvalidError is fatal for the current run: the policy document does not
// match the schema. Carries field-level validation errors.
type InvalidError struct {
	Source string
	Fields []FieldError
}

func (e *InvalidError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid policy")
	if e.Source != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Source)
	}
	sb.WriteString(":")
	for _, f := range e.Fields {
		sb.WriteString("\n  ")
		sb.WriteString(f.String())
	}
	return sb.String()
}

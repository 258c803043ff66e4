package resolver

import (
	"fmt"
	"strings"
)

// AmbiguousSubstringError is recoverable: the input matched more than one
// canonical identifier as a substring. Matches is the full sorted list;
// the message is truncated to the resolver's ambiguity limit.
type AmbiguousSubstringError struct {
	Input   string
	Matches []string
	Limit   int
}

func (e *AmbiguousSubstringError) Error() string {
	shown := e.Matches
	var suffix string
	if e.Limit > 0 && len(shown) > e.Limit {
		suffix = fmt.Sprintf(", ...and %d more", len(shown)-e.Limit)
		shown = shown[:e.Limit]
	}
	return fmt.Sprintf("ambiguous module identifier %q: matches %s%s (use the full identifier)",
		e.Input, strings.Join(shown, ", "), suffix)
}

// NoMatchFoundError is recoverable: no step of the precedence chain
// produced a result. Known carries the full sorted list of canonical
// identifiers so the caller can surface what is available.
type NoMatchFoundError struct {
	Input string
	Known []string
}

func (e *NoMatchFoundError) Error() string {
	return fmt.Sprintf("no module matching %q (known modules: %s)",
		e.Input, strings.Join(e.Known, ", "))
}

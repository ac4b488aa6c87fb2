package source

import "fmt"

// ParseError reports a malformed or disallowed source string. It always
// surfaces before any network access.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse source %q: %s", e.Source, e.Reason)
}

package parser

import "fmt"

// MalformedError reports content that cannot be parsed. Retrying the same
// bytes gives the same result, so it is permanent.
type MalformedError struct {
	Source string
	Err    error
}

func (e *MalformedError) Error() string { return fmt.Sprintf("parse %s: %v", e.Source, e.Err) }

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Permanent() bool { return true }

// Malformed wraps err as a MalformedError for source.
func Malformed(source string, err error) error {
	return &MalformedError{Source: source, Err: err}
}

package model

import "fmt"

// MalformedSourceError reports a raw source that could not be parsed into
// discrete evidence fragments. It is fatal for that source but not for the
// run when other sources remain valid.
type MalformedSourceError struct {
	SourceLabel string
	Reason      string
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source %q: %s", e.SourceLabel, e.Reason)
}

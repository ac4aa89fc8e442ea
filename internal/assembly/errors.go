package assembly

import (
	"fmt"
	"strings"
)

// SourceUnavailableError indicates a source could not be read at all, such
// as a missing CSV file or an unreachable database.
type SourceUnavailableError struct {
	Source string
	Path   string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s source unavailable at %s: %v", e.Source, e.Path, e.Err)
	}
	return fmt.Sprintf("%s source unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// IsTransient returns true; an unavailable source may come back.
func (e *SourceUnavailableError) IsTransient() bool {
	return true
}

// SchemaMismatchError indicates a source was readable but its shape does
// not match the expected schema, or the merged result is structurally
// unusable.
type SchemaMismatchError struct {
	Source  string
	Message string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s source schema mismatch: missing columns %s", e.Source, strings.Join(e.Missing, ", "))
	}
	if e.Source != "" {
		return fmt.Sprintf("%s source schema mismatch: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("schema mismatch: %s", e.Message)
}

// IsTransient returns false; a schema mismatch needs a data fix.
func (e *SchemaMismatchError) IsTransient() bool {
	return false
}

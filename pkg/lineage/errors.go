package lineage

import (
	"fmt"

	"github.com/leapstack-labs/sqllineage/pkg/scope"
)

// ErrMaxDepth is returned when lineage recursion exceeds the nesting limit.
// It is the same sentinel the scope builder returns.
var ErrMaxDepth = scope.ErrMaxDepth

// ResolutionError reports a requested column that no projection produces.
type ResolutionError struct {
	Column string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error: column %q not found in projection", e.Column)
}

// UnsupportedConstructError reports a projection whose expression shape
// has no lineage rule.
type UnsupportedConstructError struct {
	Construct string
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct: %s", e.Construct)
}

// ColumnError ties a lineage failure to the output column it belongs to.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("lineage error for column %s: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

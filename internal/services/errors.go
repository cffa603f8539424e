// Package services holds the server-side business logic behind the
// collaborator API. Every call is scoped to a tenant.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-contracts/validation"
)

var ErrNotFound = errors.New("not found")

// ValidationError carries per-field violations for a rejected request.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, r := range e.Violations {
		fields = append(fields, fmt.Sprintf("%s=%s", f, r))
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

package schema

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one finding, located by a step path such as
// "steps[1].branches[0].steps[2].name".
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s %s [%s]: %s", i.Severity, i.Path, i.Code, i.Message)
}

// within reports whether the issue sits at path or anywhere below it.
func (i ValidationIssue) within(path string) bool {
	rest, ok := strings.CutPrefix(i.Path, path)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == '.' || rest[0] == '['
}

// ValidationResult collects the issues of one integration or step. Only
// errors make it invalid.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) add(sev ValidationSeverity, path, code, message string) {
	issue := ValidationIssue{Path: path, Code: code, Message: message, Severity: sev}
	if sev == SeverityError {
		r.Errors = append(r.Errors, issue)
		return
	}
	r.Warnings = append(r.Warnings, issue)
}

func (r *ValidationResult) AddError(path, code, message string) {
	r.add(SeverityError, path, code, message)
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.add(SeverityWarning, path, code, message)
}

// Merge appends the issues of other. A nil other is ignored.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Issues returns errors and warnings in one list ordered by path, errors
// first at equal paths.
func (r *ValidationResult) Issues() []ValidationIssue {
	all := slices.Concat(r.Errors, r.Warnings)
	slices.SortStableFunc(all, func(a, b ValidationIssue) int {
		if c := cmp.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return cmp.Compare(a.Severity, b.Severity)
	})
	return all
}

// Within keeps the issues located at path or below it, so a canvas node can
// show only what concerns its step. An empty path keeps everything.
func (r *ValidationResult) Within(path string) *ValidationResult {
	out := &ValidationResult{}
	if path == "" {
		out.Merge(r)
		return out
	}
	for _, issue := range r.Errors {
		if issue.within(path) {
			out.Errors = append(out.Errors, issue)
		}
	}
	for _, issue := range r.Warnings {
		if issue.within(path) {
			out.Warnings = append(out.Warnings, issue)
		}
	}
	return out
}

// ToError is nil for a valid result. Otherwise it is a VALIDATION FlowError
// whose message names the first error, or the error count when there are
// several, and whose details carry every issue.
func (r *ValidationResult) ToError() error {
	switch len(r.Errors) {
	case 0:
		return nil
	case 1:
		first := r.Errors[0]
		return NewErrorf(ErrCodeValidation, "%s: %s", first.Path, first.Message).
			WithDetails(r.details())
	default:
		return NewErrorf(ErrCodeValidation, "validation failed with %d errors", len(r.Errors)).
			WithDetails(r.details())
	}
}

func (r *ValidationResult) details() map[string]any {
	return map[string]any{"errors": r.Errors, "warnings": r.Warnings}
}

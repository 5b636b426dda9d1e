package model

import (
	"fmt"

	"github.com/chazu/strata/pkg/wall"
)

// ValidationSeverity indicates whether a finding blocks decomposition or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks decomposition
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ElementID wall.ID // which element has the problem (empty if document-level)
	Message   string
	Severity  ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.ElementID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.ElementID, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks a document for structural problems. It never mutates the
// document. An empty result means the document is valid.
func Validate(d Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateIDs(d)...)
	errs = append(errs, validateTypes(d)...)
	errs = append(errs, validateWalls(d)...)
	return errs
}

func validateIDs(d Document) []ValidationError {
	var errs []ValidationError
	seen := make(map[wall.ID]string)
	check := func(id wall.ID, what string) {
		if id == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("%s with empty id", what),
				Severity: SeverityError,
			})
			return
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, ValidationError{
				ElementID: id,
				Message:   fmt.Sprintf("duplicate id (already used by a %s)", prev),
				Severity:  SeverityError,
			})
			return
		}
		seen[id] = what
	}
	for _, l := range d.Levels {
		check(l.ID, "level")
	}
	for _, t := range d.Types {
		check(t.ID, "wall type")
	}
	for _, w := range d.Walls {
		check(w.ID, "wall")
	}
	return errs
}

func validateTypes(d Document) []ValidationError {
	var errs []ValidationError
	names := make(map[string]wall.ID)
	for _, t := range d.Types {
		key := FoldName(t.Name)
		if prev, ok := names[key]; ok {
			errs = append(errs, ValidationError{
				ElementID: t.ID,
				Message:   fmt.Sprintf("type name %q collides with type %s", t.Name, prev),
				Severity:  SeverityError,
			})
		} else {
			names[key] = t.ID
		}
		if t.Kind == Basic && len(t.Layers) == 0 {
			errs = append(errs, ValidationError{
				ElementID: t.ID,
				Message:   "basic type has no layers",
				Severity:  SeverityError,
			})
		}
		for i, l := range t.Layers {
			if l.Thickness <= 0 {
				errs = append(errs, ValidationError{
					ElementID: t.ID,
					Message:   fmt.Sprintf("layer %d has non-positive thickness %g", i, l.Thickness),
					Severity:  SeverityError,
				})
			}
		}
	}
	return errs
}

func validateWalls(d Document) []ValidationError {
	var errs []ValidationError
	levels := make(map[wall.ID]bool)
	for _, l := range d.Levels {
		levels[l.ID] = true
	}
	for _, w := range d.Walls {
		t, ok := d.TypeByID(w.Type)
		if !ok {
			errs = append(errs, ValidationError{
				ElementID: w.ID,
				Message:   fmt.Sprintf("references unknown type %q", w.Type),
				Severity:  SeverityError,
			})
		} else if t.Kind == Basic && len(t.Layers) == 1 {
			errs = append(errs, ValidationError{
				ElementID: w.ID,
				Message:   fmt.Sprintf("type %q has a single layer; nothing to decompose", t.Name),
				Severity:  SeverityWarning,
			})
		}
		if w.Level != "" && !levels[w.Level] {
			errs = append(errs, ValidationError{
				ElementID: w.ID,
				Message:   fmt.Sprintf("references unknown level %q", w.Level),
				Severity:  SeverityError,
			})
		}
		if w.Height <= 0 {
			errs = append(errs, ValidationError{
				ElementID: w.ID,
				Message:   fmt.Sprintf("non-positive height %g", w.Height),
				Severity:  SeverityError,
			})
		}
		if w.Curve != nil && w.Curve.IsDegenerate() {
			errs = append(errs, ValidationError{
				ElementID: w.ID,
				Message:   "location curve has zero length",
				Severity:  SeverityError,
			})
		}
		if err := w.Attributes.Validate(); err != nil {
			errs = append(errs, ValidationError{
				ElementID: w.ID,
				Message:   err.Error(),
				Severity:  SeverityWarning,
			})
		}
	}
	return errs
}

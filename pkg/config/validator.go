package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config key, e.g. "decompose.tolerance_mm"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the accepted logging levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStoreDrivers returns the accepted store drivers.
func ValidStoreDrivers() []string {
	return []string{"memory", "sqlite"}
}

// ValidTemplateKinds returns the wall type kinds usable as templates.
func ValidTemplateKinds() []string {
	return []string{"basic"}
}

// Validate checks the Config and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	positive := func(field string, v float64) {
		if v <= 0 {
			errs = append(errs, ValidationError{Field: field, Value: v, Message: "must be positive"})
		}
	}

	d := c.Decompose
	positive("decompose.tolerance_mm", d.ToleranceMM)
	positive("decompose.negligible_mm", d.NegligibleMM)
	positive("decompose.min_length_mm", d.MinLengthMM)
	positive("decompose.extend_margin_mm", d.ExtendMarginMM)
	if d.NegligibleMM > 0 && d.MinLengthMM > 0 && d.NegligibleMM >= d.MinLengthMM {
		errs = append(errs, ValidationError{
			Field:   "decompose.negligible_mm",
			Value:   d.NegligibleMM,
			Message: "must be smaller than decompose.min_length_mm",
		})
	}

	if strings.TrimSpace(c.Types.Prefix) == "" || strings.ContainsAny(c.Types.Prefix, " \t") {
		errs = append(errs, ValidationError{
			Field: "types.prefix", Value: c.Types.Prefix, Message: "must be a non-empty word",
		})
	}
	if !slices.Contains(ValidTemplateKinds(), strings.ToLower(c.Types.TemplateKind)) {
		errs = append(errs, ValidationError{
			Field: "types.template_kind", Value: c.Types.TemplateKind,
			Message: fmt.Sprintf("must be one of %v", ValidTemplateKinds()),
		})
	}

	if !slices.Contains(ValidStoreDrivers(), c.Store.Driver) {
		errs = append(errs, ValidationError{
			Field: "store.driver", Value: c.Store.Driver,
			Message: fmt.Sprintf("must be one of %v", ValidStoreDrivers()),
		})
	} else if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		errs = append(errs, ValidationError{
			Field: "store.path", Value: c.Store.Path, Message: "required for the sqlite driver",
		})
	}

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field: "logging.level", Value: c.Logging.Level,
			Message: fmt.Sprintf("must be one of %v", ValidLogLevels()),
		})
	}

	if c.Engine.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field: "engine.timeout", Value: c.Engine.Timeout, Message: "must be positive",
		})
	}
	return errs
}

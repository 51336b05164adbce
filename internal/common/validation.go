package common

import (
	"fmt"
	"slices"

	"talentloop/internal/errors"
	"talentloop/internal/formatters"
)

// SupportedFormats lists the configured formats the registry can render, in
// configured order. An empty configuration allows every registered format.
func SupportedFormats(configured []string, registry *formatters.FormatterRegistry) []string {
	registered := registry.GetSupportedFormats()
	if len(configured) == 0 {
		return registered
	}
	formats := make([]string, 0, len(configured))
	for _, f := range configured {
		if slices.Contains(registered, f) && !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	return formats
}

// ValidateOutputFormat rejects a format that is not configured or has no formatter
func ValidateOutputFormat(format string, configured []string, registry *formatters.FormatterRegistry) error {
	supported := SupportedFormats(configured, registry)
	if slices.Contains(supported, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s', supported formats: %v", format, supported), nil).
		WithContext("format", format)
}

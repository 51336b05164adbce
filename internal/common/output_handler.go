package common

import (
	"io"
	"os"

	"talentloop/internal/errors"
	"talentloop/internal/formatters"
)

// CommandConfig holds the output flags shared by every command
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders command results through a formatter registry and
// sends them to a file or to the command's writer
type OutputHandler struct {
	registry *formatters.FormatterRegistry
	logger   *errors.Logger
	out      io.Writer
}

// NewOutputHandler writes to out, or stdout when out is nil. A nil registry
// means the generic formatters.
func NewOutputHandler(logger *errors.Logger, registry *formatters.FormatterRegistry, out io.Writer) *OutputHandler {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if registry == nil {
		registry = formatters.NewFormatterRegistry()
	}
	if out == nil {
		out = os.Stdout
	}
	return &OutputHandler{registry: registry, logger: logger, out: out}
}

// HandleOutput formats data as cc.OutputFormat. Nothing is written when
// formatting fails.
func (oh *OutputHandler) HandleOutput(data any, cc CommandConfig) error {
	rendered, err := oh.registry.Format(data, cc.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "Failed to format output", err).
			WithContext("format", cc.OutputFormat)
	}

	if cc.OutputFile == "" {
		_, err = io.WriteString(oh.out, rendered)
		return err
	}

	if err := WriteFileAtomic(cc.OutputFile, []byte(rendered)); err != nil {
		return err
	}
	oh.logger.Info("Output written", "file", cc.OutputFile, "format", cc.OutputFormat, "bytes", len(rendered))
	return nil
}

package common

import (
	"context"
	"io"
	"time"

	"talentloop/internal/errors"
	"talentloop/internal/formatters"
)

// APIOperationFunc performs one platform call and returns the data to print
type APIOperationFunc[Output any] func(context.Context) (Output, error)

// RunAPICommand encapsulates the common logic of commands that call the
// platform API and print the result in the requested format.
func RunAPICommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	registry *formatters.FormatterRegistry,
	out io.Writer,
	operation string,
	apiOperation APIOperationFunc[Output],
) error {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	logger.Debug("Running API command",
		"operation", operation,
		"output_format", cmdConfig.OutputFormat)

	start := time.Now()
	result, err := apiOperation(ctx)
	if err != nil {
		return err
	}
	logger.Debug("API command completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds())

	return NewOutputHandler(logger, registry, out).HandleOutput(result, cmdConfig)
}

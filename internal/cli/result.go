package cli

import (
	"context"
	"time"

	"talentloop/internal/common"
	"talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/results"
	"talentloop/internal/types"

	"github.com/spf13/cobra"
)

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Show the scorecard of the last interview",
	Long: `Show the scorecard stored by the last interview. With --wait the command
blocks until a result is written, which needs the file handoff backend.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &resultConfig.CommandConfig)
	},
	RunE: runResult,
}

var resultConfig struct {
	common.CommandConfig
	Wait     time.Duration
	Debounce time.Duration
}

func init() {
	outputFlags(resultCmd, &resultConfig.CommandConfig)
	resultCmd.Flags().DurationVar(&resultConfig.Wait, "wait", 0, "Wait up to this long for a result to appear (file backend only)")
	resultCmd.Flags().DurationVar(&resultConfig.Debounce, "debounce", 100*time.Millisecond, "Debounce applied to handoff file changes while waiting")
}

func runResult(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	return runAPICommand(cmd, rt, resultConfig.CommandConfig, "result.load", func(ctx context.Context) (types.Scorecard, error) {
		if resultConfig.Wait <= 0 {
			return results.Load(ctx, rt.store)
		}

		fileStore, ok := rt.store.(*handoff.FileStore)
		if !ok {
			return types.Scorecard{}, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				"--wait requires the file handoff backend", nil).
				WithContext("backend", rt.cfg.Handoff.Backend)
		}

		ctx, cancel := context.WithTimeout(ctx, resultConfig.Wait)
		defer cancel()
		rt.logger.Info("Waiting for interview result", "file", fileStore.Path(), "timeout", resultConfig.Wait.String())
		return results.Wait(ctx, fileStore, resultConfig.Debounce)
	})
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"talentloop/internal/common"
	"talentloop/internal/media"
	"talentloop/internal/results"
	"talentloop/internal/syscheck"

	"github.com/spf13/cobra"
)

var systemCheckCmd = &cobra.Command{
	Use:   "system-check",
	Short: "Check network, microphone and camera before the interview",
	Long: `Run the pre-interview checks in order: network, microphone, webcam and the
interview conduct agreement. The run stops at the first failing step. A
passing run is recorded so the interview can start.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &systemCheckConfig.CommandConfig)
	},
	RunE: runSystemCheck,
}

var systemCheckConfig struct {
	common.CommandConfig
	Yes bool
}

const agreementText = `I confirm that I will answer on my own, without help from other people or
tools, and that I will stay in front of the camera for the whole interview.`

func init() {
	outputFlags(systemCheckCmd, &systemCheckConfig.CommandConfig)
	systemCheckCmd.Flags().BoolVarP(&systemCheckConfig.Yes, "yes", "y", false, "Accept the interview conduct agreement without prompting")
}

func runSystemCheck(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	checker := syscheck.New(syscheck.Deps{
		Pinger:  rt.client,
		Devices: media.NewVirtualDevices(),
		Store:   rt.store,
		Logger:  rt.logger,
	}, rt.cfg.SystemCheck, rt.client.BaseURL())

	agree := promptAgreement(cmd.InOrStdin(), cmd.ErrOrStderr())
	if systemCheckConfig.Yes {
		agree = func(context.Context) (bool, error) { return true, nil }
	}

	report, err := checker.Run(cmd.Context(), agree)
	if err != nil {
		return err
	}

	rt.logger.Info("System check finished", "passed", report.Passed, "steps", len(report.Steps))
	if err := common.NewOutputHandler(rt.logger, results.NewRegistry(), cmd.OutOrStdout()).
		HandleOutput(report, systemCheckConfig.CommandConfig); err != nil {
		return err
	}
	if !report.Passed {
		return fmt.Errorf("system check failed")
	}
	return nil
}

// promptAgreement shows the conduct agreement on w and reads a yes/no answer from r
func promptAgreement(r io.Reader, w io.Writer) syscheck.Agreement {
	return func(ctx context.Context) (bool, error) {
		fmt.Fprintf(w, "%s\nDo you agree? [y/N]: ", agreementText)

		answer := make(chan string, 1)
		go func() {
			line, _ := bufio.NewReader(r).ReadString('\n')
			answer <- line
		}()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case line := <-answer:
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				return true, nil
			default:
				return false, nil
			}
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"talentloop/internal/common"
	"talentloop/internal/interview"
	"talentloop/internal/media"
	"talentloop/internal/results"
	"talentloop/internal/speech"

	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run the voice interview for the current application",
	Long: `Run the interview for the job recorded by "apply". Questions are spoken by
the configured synthesizer and answers come from the configured recognizer.
With the console recognizer every line typed on stdin is one answer.

Control lines:
  /pause   pause or resume the session
  /mute    mute or unmute the microphone
  /end     end the interview and wait for the score

End of input ends the interview as well.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveFormat(cmd, &interviewConfig.CommandConfig)
	},
	RunE: runInterview,
}

var interviewConfig struct {
	common.CommandConfig
	Recognizer  string
	Synthesizer string
}

func init() {
	outputFlags(interviewCmd, &interviewConfig.CommandConfig)
	interviewCmd.Flags().StringVar(&interviewConfig.Recognizer, "recognizer", "", "Speech recognizer: console or google (default from config)")
	interviewCmd.Flags().StringVar(&interviewConfig.Synthesizer, "synthesizer", "", "Speech synthesizer: console or silent (default from config)")
}

func runInterview(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	recognizerKind := firstNonEmpty(interviewConfig.Recognizer, rt.cfg.Speech.Recognizer)
	synthKind := firstNonEmpty(interviewConfig.Synthesizer, rt.cfg.Speech.Synthesizer)

	lines := make(chan string, 16)
	recognizer, err := speech.NewRecognizer(ctx, recognizerKind, rt.cfg.Speech, lines, rt.logger)
	if err != nil {
		if !errors.Is(err, speech.ErrUnavailable) {
			return err
		}
		rt.logger.Warn("Speech recognizer unavailable, falling back to typed answers",
			"recognizer", recognizerKind, "error", err)
		recognizerKind = "console"
		recognizer = speech.NewLineRecognizer(lines)
	}
	if closer, ok := recognizer.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	synthesizer, err := speech.NewSynthesizer(synthKind, rt.cfg.Speech, out)
	if err != nil {
		return err
	}

	ctrl := interview.New(interview.Deps{
		Transport:   rt.client,
		Recognizer:  recognizer,
		Synthesizer: synthesizer,
		Devices:     media.NewVirtualDevices(),
		Store:       rt.store,
		Logger:      rt.logger,
		Metrics:     rt.om.GetMetrics(),
	}, interview.OptionsFromConfig(rt.cfg.Interview, rt.cfg.Speech))

	rt.logger.Info("Starting interview",
		"recognizer", recognizerKind,
		"synthesizer", synthKind,
		"duration", rt.cfg.Interview.Duration.String())

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printEvents(cmd.ErrOrStderr(), ctrl.Events(), synthKind != "console")
	}()
	go feedInput(ctx, cmd.InOrStdin(), lines, ctrl)

	outcome, err := ctrl.Run(ctx)
	<-printed
	if err != nil {
		return err
	}

	if outcome.Scorecard == nil {
		fmt.Fprintf(out, "Interview did not produce a result. Next: %s\n", outcome.Path)
		if outcome.Path == interview.PathSystemCheck {
			fmt.Fprintln(out, `Run "talentloop apply" and "talentloop system-check" first.`)
		}
		return nil
	}

	return common.NewOutputHandler(rt.logger, results.NewRegistry(), out).
		HandleOutput(*outcome.Scorecard, interviewConfig.CommandConfig)
}

// controls is the part of the controller the input loop drives
type controls interface {
	TogglePause() error
	ToggleMute() error
	EndInterview(ctx context.Context) error
}

// feedInput forwards typed answers to the recognizer and maps control lines
// to controller actions. End of input ends the interview.
func feedInput(ctx context.Context, in io.Reader, lines chan<- string, ctrl controls) {
	defer close(lines)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var err error
		switch line {
		case "":
			continue
		case "/pause":
			err = ctrl.TogglePause()
		case "/mute":
			err = ctrl.ToggleMute()
		case "/end":
			_ = ctrl.EndInterview(ctx)
			return
		default:
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if errors.Is(err, interview.ErrNotRunning) {
			return
		}
	}
	_ = ctrl.EndInterview(ctx)
}

// printEvents writes one status line per controller event until the channel closes
func printEvents(w io.Writer, events <-chan interview.Event, showQuestions bool) {
	for ev := range events {
		switch ev.Kind {
		case interview.EventQuestion:
			if showQuestions {
				fmt.Fprintf(w, "AI: %s\n", ev.Text)
			}
		case interview.EventListening:
			fmt.Fprintln(w, "» Listening. Type your answer and press enter.")
		case interview.EventAnswer:
			fmt.Fprintf(w, "» Sent: %s\n", ev.Text)
		case interview.EventTick:
			if ev.Remaining > 0 && ev.Remaining%time.Minute == 0 {
				fmt.Fprintf(w, "» %s left\n", ev.Text)
			}
		case interview.EventFinalQuestion:
			fmt.Fprintln(w, "» Final question.")
		case interview.EventMuted:
			fmt.Fprintln(w, "» Microphone muted.")
		case interview.EventUnmuted:
			fmt.Fprintln(w, "» Microphone unmuted.")
		case interview.EventMuteWarning, interview.EventMuteReminder:
			fmt.Fprintf(w, "» %s\n", ev.Text)
		case interview.EventPaused:
			fmt.Fprintln(w, "» Paused. Type /pause to resume.")
		case interview.EventResumed:
			fmt.Fprintln(w, "» Resumed.")
		case interview.EventStartFailed:
			fmt.Fprintf(w, "» %s\n", ev.Text)
		case interview.EventDegraded:
			fmt.Fprintf(w, "» Devices unavailable, continuing without them: %s\n", ev.Text)
		case interview.EventComplete:
			fmt.Fprintln(w, "» Interview complete.")
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ controls = (*interview.Controller)(nil)

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gwi.com/voice-calorie-log/internal/core"
	"gwi.com/voice-calorie-log/internal/render"
	"gwi.com/voice-calorie-log/internal/voice"
)

var (
	audioPath string
	audioMIME string
)

var sayCmd = &cobra.Command{
	Use:   "say [words...]",
	Short: "Log food from a typed utterance",
	Long: `Treats the arguments, or the first line of standard input when no
arguments are given, as the final transcript of one utterance.

Example:
  voicecal say 150 grams of apple`,
	RunE: runSay,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Log food from a recorded utterance",
	Long: `Transcribes a recording with Gemini and logs the food it names.

Example:
  voicecal listen --audio lunch.webm`,
	RunE: runListen,
}

func runSay(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	utterance := strings.Join(args, " ")
	if utterance == "" {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		utterance = line
	}

	capture := a.TextCapture()
	defer capture.Close()
	transcript, err := transcribe(cmd.Context(), capture, strings.NewReader(utterance))
	if err != nil {
		return err
	}
	return logUtterance(cmd.Context(), a.FoodLog, transcript, in, out)
}

func runListen(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	capture := a.GeminiCapture()
	defer capture.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Listening...")
	transcript, err := transcribe(cmd.Context(), capture, voice.WithMIMEType(f, audioMIME))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Heard: %q\n", transcript)
	return logUtterance(cmd.Context(), a.FoodLog, transcript, bufio.NewReader(cmd.InOrStdin()), out)
}

func transcribe(ctx context.Context, capture *voice.Capture, audio io.Reader) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := capture.Toggle(ctx, audio)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", errors.New("listening was stopped")
	}
	res, ok := sess.Wait(ctx)
	if !ok {
		return "", errors.New("listening was cancelled")
	}
	return res.Transcript, res.Err
}

func logUtterance(ctx context.Context, svc *core.FoodLogService, transcript string, in *bufio.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	outcome, err := svc.HandleTranscript(ctx, transcript)
	if err != nil {
		logger.Debug("Utterance not logged", zap.Error(err))
		return errors.New(core.UserNotice(err))
	}

	if outcome.Status == core.OutcomeNeedsDensity {
		if err := promptDensity(ctx, svc, outcome.Pending, in, out); err != nil {
			return err
		}
	} else {
		printLogged(out, outcome.Entry.Food, outcome.Entry.Calories)
	}

	view, err := svc.Today()
	if err != nil {
		return err
	}
	return render.Terminal(out, view)
}

// promptDensity asks for the calories per 100g of an unknown food until a
// valid number is given. A line starting with "say " is dictated; a blank
// line confirms a dictated value, or discards the food when there is none.
func promptDensity(ctx context.Context, svc *core.FoodLogService, pending *core.PendingFood, in *bufio.Reader, out io.Writer) error {
	for {
		fmt.Fprintf(out, "New food %q (%sg). Calories per 100g? ", pending.Food, render.FormatWeight(pending.Weight))

		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)
		line = strings.TrimSpace(line)

		if spoken, ok := strings.CutPrefix(line, "say "); ok {
			value, err := svc.DictateCalories(ctx, spoken)
			if err != nil {
				fmt.Fprintln(out, core.UserNotice(err))
			} else {
				fmt.Fprintf(out, "Heard %d kcal per 100g. Press enter to confirm.\n", value)
			}
			if eof {
				return discard(svc, out)
			}
			continue
		}

		if line == "" {
			if p, ok := svc.Pending(); !ok || p.Input == "" {
				return discard(svc, out)
			}
		}

		entry, err := svc.Confirm(line)
		if errors.Is(err, core.ErrValidation) {
			fmt.Fprintln(out, core.UserNotice(err))
			if eof {
				return discard(svc, out)
			}
			continue
		}
		if err != nil {
			return err
		}
		printLogged(out, entry.Food, entry.Calories)
		return nil
	}
}

func discard(svc *core.FoodLogService, out io.Writer) error {
	if err := svc.Cancel(); err != nil && !errors.Is(err, core.ErrNoPending) {
		return err
	}
	fmt.Fprintln(out, "Discarded.")
	return nil
}

func printLogged(out io.Writer, food string, calories int) {
	fmt.Fprintf(out, "Logged %s: %d kcal\n", food, calories)
}

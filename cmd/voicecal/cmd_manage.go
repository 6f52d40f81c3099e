package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gwi.com/voice-calorie-log/internal/core"
	"gwi.com/voice-calorie-log/internal/render"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's log and total",
	Args:  cobra.NoArgs,
	RunE:  runToday,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [entry-id]",
	Short: "Delete one of today's entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var foodsCmd = &cobra.Command{
	Use:   "foods",
	Short: "List the foods with a known calorie density",
	Args:  cobra.NoArgs,
	RunE:  runFoods,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import foods from a markdown table",
	Long: `Reads a markdown table whose first column is the food name and second
column its calories per 100g. Foods that are already known keep their value.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store the Gemini API key (reads stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeySet,
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an API key is stored",
	Args:  cobra.NoArgs,
	RunE:  runKeyStatus,
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.FoodLog.Today()
	if err != nil {
		return err
	}
	return render.Terminal(cmd.OutOrStdout(), view)
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.FoodLog.Delete(args[0])
	if errors.Is(err, core.ErrEntryNotFound) {
		return fmt.Errorf("no entry %q in today's log", args[0])
	}
	if err != nil {
		return err
	}
	return render.Terminal(cmd.OutOrStdout(), view)
}

func runFoods(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	foods, err := a.FoodLog.Foods()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(foods) == 0 {
		fmt.Fprintln(out, "No foods known yet.")
		return nil
	}
	for _, f := range foods {
		fmt.Fprintf(out, "%-24s %s kcal/100g\n", f.Name, render.FormatWeight(f.CaloriesPer100g))
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Store.ImportFoodsFromFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d foods, %d already known.\n", report.Imported, report.Existing)
	for _, row := range report.Skipped {
		fmt.Fprintf(out, "Skipped: %s\n", row)
	}
	return nil
}

func runKeySet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		key = line
	}

	if err := a.FoodLog.SetCredential(strings.TrimSpace(key)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
	return nil
}

func runKeyStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.FoodLog.HasCredential()
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(cmd.OutOrStdout(), "API key is configured.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), core.NoticeNeedCredential)
	}
	return nil
}

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGemini answers generateContent calls based on the words in the prompt.
func fakeGemini(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		prompt := string(body)

		reply := `{"error": "Could not parse"}`
		switch {
		case strings.Contains(prompt, "calories per 100 grams") && strings.Contains(prompt, "eighty nine"):
			reply = `{"calories": 89}`
		case strings.Contains(prompt, "calories per 100 grams"):
		case strings.Contains(prompt, "banana"):
			reply = "```json\n{\"food\": \"banana\", \"weight\": 120}\n```"
		case strings.Contains(prompt, "apple"):
			reply = `{"food": "Apple", "weight": 150}`
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": reply}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GEMINI_BASE_URL", srv.URL)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-test")
}

func setupCLI(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	dbPath = filepath.Join(t.TempDir(), "cli.db")
	t.Cleanup(func() { dbPath = "" })
	fakeGemini(t)
}

func newTestCmd(stdin string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	return cmd, out
}

func TestSayCmd_KnownFood(t *testing.T) {
	setupCLI(t)
	cmd, out := newTestCmd("")
	require.NoError(t, runImportFixture(t, "| Food | kcal |\n|---|---|\n| apple | 52 |\n"))

	require.NoError(t, runSay(cmd, []string{"150", "grams", "of", "apple"}))
	assert.Contains(t, out.String(), "Logged Apple: 78 kcal")
	assert.Contains(t, out.String(), "Total: 78 kcal")
}

func TestSayCmd_ReadsStdinWithoutArgs(t *testing.T) {
	setupCLI(t)
	require.NoError(t, runImportFixture(t, "| apple | 52 |\n"))

	cmd, out := newTestCmd("150 grams of apple\n")
	require.NoError(t, runSay(cmd, nil))
	assert.Contains(t, out.String(), "Logged Apple: 78 kcal")
}

func TestSayCmd_UnknownFoodPromptsUntilValid(t *testing.T) {
	setupCLI(t)

	cmd, out := newTestCmd("abc\n0\n89\n")
	require.NoError(t, runSay(cmd, []string{"120g", "banana"}))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "Please enter a valid calorie amount."))
	assert.Contains(t, text, "Logged banana: 107 kcal")

	foods, out2 := newTestCmd("")
	require.NoError(t, runFoods(foods, nil))
	assert.Contains(t, out2.String(), "banana")
	assert.Contains(t, out2.String(), "89 kcal/100g")
}

func TestSayCmd_DictatedDensity(t *testing.T) {
	setupCLI(t)

	cmd, out := newTestCmd("say eighty nine\n\n")
	require.NoError(t, runSay(cmd, []string{"120g", "banana"}))
	assert.Contains(t, out.String(), "Heard 89 kcal per 100g.")
	assert.Contains(t, out.String(), "Logged banana: 107 kcal")
}

func TestSayCmd_BlankDiscards(t *testing.T) {
	setupCLI(t)

	cmd, out := newTestCmd("\n")
	require.NoError(t, runSay(cmd, []string{"120g", "banana"}))
	assert.Contains(t, out.String(), "Discarded.")
	assert.Contains(t, out.String(), "Nothing logged today.")

	foods, out2 := newTestCmd("")
	require.NoError(t, runFoods(foods, nil))
	assert.Contains(t, out2.String(), "No foods known yet.")
}

func TestSayCmd_NotUnderstood(t *testing.T) {
	setupCLI(t)

	cmd, _ := newTestCmd("")
	err := runSay(cmd, []string{"hello", "there"})
	require.Error(t, err)
	assert.Equal(t, "Sorry, I couldn't understand the food and weight.", err.Error())
}

func TestSayCmd_EmptyInput(t *testing.T) {
	setupCLI(t)

	cmd, _ := newTestCmd("")
	assert.Error(t, runSay(cmd, nil))
}

func TestDeleteCmd(t *testing.T) {
	setupCLI(t)
	require.NoError(t, runImportFixture(t, "| apple | 52 |\n"))

	a, err := openApp()
	require.NoError(t, err)
	outcome, err := a.FoodLog.HandleTranscript(t.Context(), "150 grams of apple")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cmd, out := newTestCmd("")
	require.NoError(t, runDelete(cmd, []string{outcome.Entry.ID}))
	assert.Contains(t, out.String(), "Total: 0 kcal")

	cmd, _ = newTestCmd("")
	err = runDelete(cmd, []string{outcome.Entry.ID})
	assert.ErrorContains(t, err, "no entry")
}

func TestKeyCmds(t *testing.T) {
	setupCLI(t)
	t.Setenv("GEMINI_API_KEY", "")

	cmd, out := newTestCmd("")
	require.NoError(t, runKeyStatus(cmd, nil))
	assert.Contains(t, out.String(), "Please enter your Gemini API key first.")

	cmd, _ = newTestCmd("   \n")
	assert.Error(t, runKeySet(cmd, nil))

	cmd, out = newTestCmd("my-key\n")
	require.NoError(t, runKeySet(cmd, nil))
	assert.Contains(t, out.String(), "API key saved.")

	cmd, out = newTestCmd("")
	require.NoError(t, runKeyStatus(cmd, nil))
	assert.Contains(t, out.String(), "API key is configured.")
}

func TestListenCmd_MissingRecording(t *testing.T) {
	setupCLI(t)
	audioPath = filepath.Join(t.TempDir(), "missing.webm")
	t.Cleanup(func() { audioPath = "" })

	cmd, _ := newTestCmd("")
	assert.ErrorContains(t, runListen(cmd, nil), "failed to open recording")
}

func TestTodayCmd_Empty(t *testing.T) {
	setupCLI(t)

	cmd, out := newTestCmd("")
	require.NoError(t, runToday(cmd, nil))
	assert.Contains(t, out.String(), "Total: 0 kcal")
}

func runImportFixture(t *testing.T, table string) error {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foods.md")
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		return err
	}
	cmd, _ := newTestCmd("")
	return runImport(cmd, []string{path})
}

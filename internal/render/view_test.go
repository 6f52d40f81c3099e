package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/voice-calorie-log/internal/store"
)

func TestProject_Empty(t *testing.T) {
	view := Project(nil)
	assert.Equal(t, 0, view.Total)
	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
}

func TestProject_RowsAndTotal(t *testing.T) {
	entries := []store.LogEntry{
		{ID: "a", Food: "Banana", Weight: 120, Calories: 107},
		{ID: "b", Food: "egg", Weight: 50.5, Calories: 78},
	}

	view := Project(entries)

	require.Len(t, view.Rows, 2)
	assert.Equal(t, 185, view.Total)
	assert.Equal(t, Row{ID: "a", Food: "Banana", Weight: 120, Calories: 107, Info: "120g - 107 kcal"}, view.Rows[0])
	assert.Equal(t, "50.5g - 78 kcal", view.Rows[1].Info)
}

func TestProject_AfterDelete(t *testing.T) {
	entries := []store.LogEntry{
		{ID: "a", Food: "x", Weight: 1, Calories: 10},
		{ID: "b", Food: "y", Weight: 1, Calories: 20},
		{ID: "c", Food: "z", Weight: 1, Calories: 30},
	}
	remaining := append([]store.LogEntry{}, entries[0], entries[2])

	assert.Equal(t, 60, Project(entries).Total)
	view := Project(remaining)
	assert.Equal(t, 40, view.Total)
	assert.Equal(t, "a", view.Rows[0].ID)
	assert.Equal(t, "c", view.Rows[1].ID)
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	err := Terminal(&buf, Project([]store.LogEntry{{ID: "id-1", Food: "Banana", Weight: 120, Calories: 107}}))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Total: 107 kcal")
	assert.Contains(t, out, "Banana")
	assert.Contains(t, out, "120g - 107 kcal")
	assert.Contains(t, out, "id-1")
}

func TestTerminal_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, Project(nil)))
	assert.Contains(t, buf.String(), "Total: 0 kcal")
	assert.Contains(t, buf.String(), "Nothing logged today.")
}

func TestFormatWeight(t *testing.T) {
	assert.Equal(t, "120", FormatWeight(120))
	assert.Equal(t, "170.5", FormatWeight(170.5))
	assert.Equal(t, "0.25", FormatWeight(0.25))
}

// Package render projects the daily log into what the user sees.
package render

import (
	"fmt"
	"strconv"

	"gwi.com/voice-calorie-log/internal/store"
)

type Row struct {
	ID       string  `json:"id"` // delete key
	Food     string  `json:"food"`
	Weight   float64 `json:"weight"`
	Calories int     `json:"calories"`
	Info     string  `json:"info"`
}

type View struct {
	Rows  []Row `json:"rows"`
	Total int   `json:"total"`
}

// Project builds the full view from scratch; there is no incremental diff.
func Project(entries []store.LogEntry) View {
	view := View{Rows: make([]Row, 0, len(entries))}
	for _, e := range entries {
		view.Rows = append(view.Rows, Row{
			ID:       e.ID,
			Food:     e.Food,
			Weight:   e.Weight,
			Calories: e.Calories,
			Info:     fmt.Sprintf("%sg - %d kcal", FormatWeight(e.Weight), e.Calories),
		})
		view.Total += e.Calories
	}
	return view
}

// FormatWeight prints grams in the shortest exact form: "120", "170.5".
func FormatWeight(grams float64) string {
	return strconv.FormatFloat(grams, 'f', -1, 64)
}

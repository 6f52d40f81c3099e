package store

import (
	"strings"
	"time"
)

// LogEntry is one logged food item. Entries are never mutated once stored.
type LogEntry struct {
	ID        string    `json:"id"` // UUIDv7, ordered by creation time
	DateKey   string    `json:"date_key"`
	Food      string    `json:"food"` // display casing as extracted
	Weight    float64   `json:"weight"`
	Calories  int       `json:"calories"`
	CreatedAt time.Time `json:"created_at"`
}

type Food struct {
	Name            string    `json:"name"` // case-folded lookup key
	CaloriesPer100g float64   `json:"calories_per_100g"`
	CreatedAt       time.Time `json:"created_at"`
}

// DateKeyLayout partitions the daily log by local calendar date.
const DateKeyLayout = "2006-01-02"

func DateKey(t time.Time) string {
	return t.Local().Format(DateKeyLayout)
}

// NormalizeFoodName is the key used for density lookups and storage.
func NormalizeFoodName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

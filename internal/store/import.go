package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type ImportReport struct {
	Imported int      // new foods written
	Existing int      // foods already in the table, left untouched
	Skipped  []string // rows that could not be parsed
}

// ImportFoodsFromFile reads a Markdown table of food densities:
//
//	| food   | calories per 100g |
//	|--------|-------------------|
//	| apple  | 52                |
//
// Header and separator rows are skipped, as are rows without a positive
// finite number in the second column.
func (s *SQLiteStore) ImportFoodsFromFile(filePath string) (*ImportReport, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read foods file %s: %w", filePath, err)
	}

	report := &ImportReport{}
	seenRow := false
	for _, line := range strings.Split(string(contentBytes), "\n") {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}
		if !strings.HasPrefix(trimmedLine, "|") || !strings.HasSuffix(trimmedLine, "|") {
			report.Skipped = append(report.Skipped, trimmedLine)
			continue
		}
		if strings.Contains(trimmedLine, "---") {
			continue
		}

		parts := strings.Split(trimmedLine, "|")
		// "| a | b |" splits into ["", " a ", " b ", ""]
		if len(parts) < 4 {
			report.Skipped = append(report.Skipped, trimmedLine)
			continue
		}
		name := strings.TrimSpace(parts[1])
		density, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			if !seenRow {
				// header row
				seenRow = true
				continue
			}
			report.Skipped = append(report.Skipped, trimmedLine)
			continue
		}
		seenRow = true
		if name == "" || !validDensity(density) {
			report.Skipped = append(report.Skipped, trimmedLine)
			continue
		}

		inserted, err := s.SetDensity(name, density)
		if err != nil {
			return report, fmt.Errorf("failed to import food %q: %w", name, err)
		}
		if inserted {
			report.Imported++
		} else {
			report.Existing++
		}
	}
	return report, nil
}

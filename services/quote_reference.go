package services

import (
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase"
)

// formatQuoteReference constructs the reference from its components.
func formatQuoteReference(year, sequence int) string {
	return fmt.Sprintf("DEV-%d-%03d", year, sequence)
}

// GenerateQuoteReference returns the next quote reference for the calendar
// year of now. Format: DEV-{year}-{sequence}, the sequence being 3-digit
// zero-padded and counted per year across all projects.
func GenerateQuoteReference(app *pocketbase.PocketBase, now time.Time) (string, error) {
	year := now.Year()
	prefix := fmt.Sprintf("DEV-%d-", year)

	existing, err := app.FindRecordsByFilter(
		"projects",
		"reference_number ~ {:prefix}",
		"",
		0,
		0,
		map[string]any{"prefix": prefix + "%"},
	)
	if err != nil {
		return "", fmt.Errorf("count quote references: %w", err)
	}

	return formatQuoteReference(year, len(existing)+1), nil
}

package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/ranjitk/sensor-monitor/internal/store"
)

// DailySummarizer rolls each day's sensor readings up into per-source
// min/max rows.
type DailySummarizer struct {
	db *store.DB
}

// NewDailySummarizer creates a new daily summarizer.
func NewDailySummarizer(db *store.DB) *DailySummarizer {
	return &DailySummarizer{db: db}
}

// Summarize runs the rollup for the specified date.
func (d *DailySummarizer) Summarize(ctx context.Context, targetDate time.Time) error {
	date := targetDate.Truncate(24 * time.Hour)

	fmt.Printf("Running daily summary for %s\n", date.Format("2006-01-02"))

	rows, err := d.db.SummarizeDay(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to summarize %s: %w", date.Format("2006-01-02"), err)
	}

	fmt.Printf("Daily summary completed: %d sources processed\n", rows)
	return nil
}

// SummarizePreviousDay rolls up the previous full day.
func (d *DailySummarizer) SummarizePreviousDay(ctx context.Context) error {
	yesterday := time.Now().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	return d.Summarize(ctx, yesterday)
}

// CalculateNextRunTime calculates when the summary should next run. It
// runs at a fixed time of day (e.g. "00:05").
func (d *DailySummarizer) CalculateNextRunTime(timeOfDay string) (time.Time, error) {
	now := time.Now()

	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}

	todayRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if now.After(todayRun) {
		return todayRun.AddDate(0, 0, 1), nil
	}

	return todayRun, nil
}

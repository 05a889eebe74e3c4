package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertReading appends a sensor reading and assigns its identifier.
func (db *DB) InsertReading(ctx context.Context, r *SensorReading) error {
	query := `
		INSERT INTO sensor_readings (
			source_id, primary_metric, secondary_metric, timestamp, received_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return db.QueryRowContext(
		ctx,
		query,
		r.SourceID,
		r.PrimaryMetric,
		r.SecondaryMetric,
		r.Timestamp,
		r.ReceivedAt,
	).Scan(&r.ID)
}

// MarkAlertSent flags a stored reading after its alert was dispatched.
func (db *DB) MarkAlertSent(ctx context.Context, id int64) error {
	query := `
		UPDATE sensor_readings
		SET alert_sent = true
		WHERE id = $1
	`

	result, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("no reading with id %d", id)
	}
	return nil
}

// InsertDecisionLog appends an audited evaluation.
func (db *DB) InsertDecisionLog(ctx context.Context, d *DecisionLog) error {
	query := `
		INSERT INTO decision_log (
			record_id, source_id, location, timestamp,
			primary_metric, secondary_metric,
			ambient_temperature, ambient_humidity,
			window_aggregate, action_needed, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (record_id) DO NOTHING
		RETURNING id
	`

	err := db.QueryRowContext(
		ctx,
		query,
		d.RecordID,
		d.SourceID,
		d.Location,
		d.Timestamp,
		d.PrimaryMetric,
		d.SecondaryMetric,
		d.AmbientTemp,
		d.AmbientHumidity,
		d.WindowAggregate,
		d.ActionNeeded,
		d.Confidence,
	).Scan(&d.ID)

	// A duplicate record id means the audit topic redelivered; the row is
	// already there and that is fine.
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

// SummarizeDay rolls sensor_readings for one calendar day into
// daily_summary, one row per source.
func (db *DB) SummarizeDay(ctx context.Context, date time.Time) (int64, error) {
	query := `
		INSERT INTO daily_summary (
			source_id, date,
			min_primary, max_primary,
			min_secondary, max_secondary,
			sample_count
		)
		SELECT
			source_id,
			$1::date AS date,
			MIN(primary_metric) AS min_primary,
			MAX(primary_metric) AS max_primary,
			MIN(secondary_metric) AS min_secondary,
			MAX(secondary_metric) AS max_secondary,
			COUNT(*) AS sample_count
		FROM
			sensor_readings
		WHERE
			DATE(timestamp) = $1::date
		GROUP BY
			source_id
		ON CONFLICT (source_id, date) DO UPDATE
		SET
			min_primary = EXCLUDED.min_primary,
			max_primary = EXCLUDED.max_primary,
			min_secondary = EXCLUDED.min_secondary,
			max_secondary = EXCLUDED.max_secondary,
			sample_count = EXCLUDED.sample_count
	`

	result, err := db.ExecContext(ctx, query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to summarize day: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sensorvision/internal/models"
	"sensorvision/internal/stats"
)

// TelemetryRepository persists ingested samples and serves window queries.
// One row is stored per (sample, variable) pair so range queries by variable
// name stay a single indexed scan.
type TelemetryRepository struct {
	db *sql.DB
}

// NewTelemetryRepository returns repository.
func NewTelemetryRepository(db *sql.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// InsertSample stores all values of a sample in one transaction.
func (r *TelemetryRepository) InsertSample(ctx context.Context, sample *models.TelemetrySample) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("telemetry: begin tx: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO telemetry_points (device_id, variable, value, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	for variable, value := range sample.Values {
		if _, err := tx.ExecContext(ctx, query, sample.DeviceID, variable, value, sample.Timestamp); err != nil {
			return fmt.Errorf("telemetry: insert %s: %w", variable, err)
		}
	}

	return tx.Commit()
}

// QueryRange returns values of a variable in [from, to] inclusive, ascending.
// This is the window store interface the statistical aggregator consumes.
func (r *TelemetryRepository) QueryRange(ctx context.Context, deviceID, variable string, from, to time.Time) ([]stats.Point, error) {
	const query = `
		SELECT recorded_at, value
		FROM telemetry_points
		WHERE device_id = $1 AND variable = $2 AND recorded_at BETWEEN $3 AND $4
		ORDER BY recorded_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, deviceID, variable, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []stats.Point
	for rows.Next() {
		var p stats.Point
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

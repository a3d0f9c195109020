package repository

import (
	"context"
	"database/sql"
	"errors"

	"sensorvision/internal/models"
)

// ErrValueNotFound represents missing calculated value rows.
var ErrValueNotFound = errors.New("calculated value not found")

// CalculatedValueRepository persists evaluation results.
type CalculatedValueRepository struct {
	db *sql.DB
}

// NewCalculatedValueRepository returns repository.
func NewCalculatedValueRepository(db *sql.DB) *CalculatedValueRepository {
	return &CalculatedValueRepository{db: db}
}

// SaveCalculatedValue inserts one evaluation result. Rows are never updated.
func (r *CalculatedValueRepository) SaveCalculatedValue(ctx context.Context, value *models.CalculatedValue) error {
	const query = `
		INSERT INTO calculated_values (synthetic_variable_id, timestamp, value, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		value.SyntheticVariableID,
		value.Timestamp,
		value.Value,
		value.CreatedAt,
	).Scan(&value.ID)
}

// ListByVariable returns the most recent values first.
func (r *CalculatedValueRepository) ListByVariable(ctx context.Context, syntheticVariableID int64, limit int) ([]models.CalculatedValue, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const query = `
		SELECT id, synthetic_variable_id, timestamp, value, created_at
		FROM calculated_values
		WHERE synthetic_variable_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, syntheticVariableID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []models.CalculatedValue
	for rows.Next() {
		var v models.CalculatedValue
		if err := rows.Scan(&v.ID, &v.SyntheticVariableID, &v.Timestamp, &v.Value, &v.CreatedAt); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// LatestByVariable returns the newest value for a definition.
func (r *CalculatedValueRepository) LatestByVariable(ctx context.Context, syntheticVariableID int64) (*models.CalculatedValue, error) {
	const query = `
		SELECT id, synthetic_variable_id, timestamp, value, created_at
		FROM calculated_values
		WHERE synthetic_variable_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, syntheticVariableID)
	var v models.CalculatedValue
	if err := row.Scan(&v.ID, &v.SyntheticVariableID, &v.Timestamp, &v.Value, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrValueNotFound
		}
		return nil, err
	}
	return &v, nil
}

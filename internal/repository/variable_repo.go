package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"sensorvision/internal/models"
)

// ErrVariableNotFound represents missing synthetic variable rows.
var ErrVariableNotFound = errors.New("synthetic variable not found")

// ErrDuplicateVariableName signals a name collision within a device.
var ErrDuplicateVariableName = errors.New("synthetic variable name already exists for device")

const pgUniqueViolation = "23505"

// SyntheticVariableRepository handles CRUD for synthetic variable definitions.
type SyntheticVariableRepository struct {
	db *sql.DB
}

// NewSyntheticVariableRepository returns repository.
func NewSyntheticVariableRepository(db *sql.DB) *SyntheticVariableRepository {
	return &SyntheticVariableRepository{db: db}
}

// Insert stores a new definition. Names are unique per device.
func (r *SyntheticVariableRepository) Insert(ctx context.Context, variable *models.SyntheticVariable) error {
	const query = `
		INSERT INTO synthetic_variables (device_id, name, unit, expression, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		variable.DeviceID,
		variable.Name,
		variable.Unit,
		variable.Expression,
		variable.Enabled,
	).Scan(&variable.ID, &variable.CreatedAt, &variable.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateVariableName
		}
		return err
	}
	return nil
}

// FindEnabledForDevice returns enabled definitions in creation order. The
// scheduler relies on this ordering being deterministic.
func (r *SyntheticVariableRepository) FindEnabledForDevice(ctx context.Context, deviceID string) ([]models.SyntheticVariable, error) {
	const query = `
		SELECT id, device_id, name, unit, expression, enabled, created_at, updated_at
		FROM synthetic_variables
		WHERE device_id = $1 AND enabled = TRUE
		ORDER BY id ASC
	`
	return r.queryVariables(ctx, query, deviceID)
}

// FindByDevice returns all definitions of a device in creation order.
func (r *SyntheticVariableRepository) FindByDevice(ctx context.Context, deviceID string) ([]models.SyntheticVariable, error) {
	const query = `
		SELECT id, device_id, name, unit, expression, enabled, created_at, updated_at
		FROM synthetic_variables
		WHERE device_id = $1
		ORDER BY id ASC
	`
	return r.queryVariables(ctx, query, deviceID)
}

// FindByDeviceAndName returns a single definition addressed by its device
// scoped name.
func (r *SyntheticVariableRepository) FindByDeviceAndName(ctx context.Context, deviceID, name string) (*models.SyntheticVariable, error) {
	const query = `
		SELECT id, device_id, name, unit, expression, enabled, created_at, updated_at
		FROM synthetic_variables
		WHERE device_id = $1 AND name = $2
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, deviceID, name)
	var v models.SyntheticVariable
	if err := scanVariable(row.Scan, &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariableNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindByID returns a single definition.
func (r *SyntheticVariableRepository) FindByID(ctx context.Context, id int64) (*models.SyntheticVariable, error) {
	const query = `
		SELECT id, device_id, name, unit, expression, enabled, created_at, updated_at
		FROM synthetic_variables
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	var v models.SyntheticVariable
	if err := scanVariable(row.Scan, &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariableNotFound
		}
		return nil, err
	}
	return &v, nil
}

// SetEnabled flips the enabled flag.
func (r *SyntheticVariableRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	const query = `
		UPDATE synthetic_variables
		SET enabled = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, enabled)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a definition. Calculated history is kept.
func (r *SyntheticVariableRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM synthetic_variables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *SyntheticVariableRepository) queryVariables(ctx context.Context, query, deviceID string) ([]models.SyntheticVariable, error) {
	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variables []models.SyntheticVariable
	for rows.Next() {
		var v models.SyntheticVariable
		if err := scanVariable(rows.Scan, &v); err != nil {
			return nil, err
		}
		variables = append(variables, v)
	}
	return variables, rows.Err()
}

func scanVariable(scan func(...any) error, v *models.SyntheticVariable) error {
	return scan(&v.ID, &v.DeviceID, &v.Name, &v.Unit, &v.Expression, &v.Enabled, &v.CreatedAt, &v.UpdatedAt)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVariableNotFound
	}
	return nil
}

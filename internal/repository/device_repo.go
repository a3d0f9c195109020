package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"sensorvision/internal/models"
)

// ErrDeviceNotFound represents missing device rows.
var ErrDeviceNotFound = errors.New("device not found")

// ErrDuplicateDevice signals an external id collision.
var ErrDuplicateDevice = errors.New("device external id already registered")

// DeviceRepository handles CRUD for registered devices.
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository returns repository.
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create registers a device with its hashed ingest token.
func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	const query = `
		INSERT INTO devices (external_id, name, token_hash, active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		device.ExternalID,
		device.Name,
		device.TokenHash,
		device.Active,
	).Scan(&device.ID, &device.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateDevice
		}
		return err
	}
	return nil
}

// GetByExternalID fetches a device by its external id.
func (r *DeviceRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Device, error) {
	const query = `
		SELECT id, external_id, name, token_hash, active, created_at
		FROM devices
		WHERE external_id = $1
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, externalID)
	var device models.Device
	if err := row.Scan(&device.ID, &device.ExternalID, &device.Name, &device.TokenHash, &device.Active, &device.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

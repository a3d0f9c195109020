package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"sensorvision/internal/auth"
	"sensorvision/internal/models"
	"sensorvision/internal/repository"
)

// ErrDeviceUnauthorized signals a bad or inactive device credential.
var ErrDeviceUnauthorized = errors.New("device: unauthorized")

// DeviceService registers devices and authenticates their ingest tokens.
type DeviceService struct {
	devices *repository.DeviceRepository
	tokens  *auth.DeviceTokenHasher
	logger  *zap.Logger
}

// NewDeviceService returns service instance.
func NewDeviceService(devices *repository.DeviceRepository, tokens *auth.DeviceTokenHasher, logger *zap.Logger) *DeviceService {
	return &DeviceService{devices: devices, tokens: tokens, logger: logger}
}

// Register creates a device and returns its ingest token. The token is only
// ever available from this call; storage keeps the hash.
func (s *DeviceService) Register(ctx context.Context, externalID, name string) (*models.Device, string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, "", errors.New("device: external id is required")
	}

	token, hash, err := s.tokens.Generate()
	if err != nil {
		return nil, "", err
	}

	device := &models.Device{
		ExternalID: externalID,
		Name:       strings.TrimSpace(name),
		TokenHash:  hash,
		Active:     true,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, "", err
	}
	return device, token, nil
}

// Authenticate verifies an ingest token for a device.
func (s *DeviceService) Authenticate(ctx context.Context, externalID, token string) (*models.Device, error) {
	device, err := s.devices.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, ErrDeviceUnauthorized
		}
		return nil, err
	}
	if !device.Active {
		return nil, ErrDeviceUnauthorized
	}
	if err := s.tokens.Compare(device.TokenHash, token); err != nil {
		return nil, ErrDeviceUnauthorized
	}
	return device, nil
}

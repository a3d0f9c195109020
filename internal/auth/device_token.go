package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DeviceTokenHasher issues and verifies per-device ingest tokens. Tokens are
// shown once at registration and stored only as bcrypt hashes.
type DeviceTokenHasher struct {
	cost int
}

// NewDeviceTokenHasher returns a bcrypt-backed token hasher.
func NewDeviceTokenHasher(cost int) *DeviceTokenHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &DeviceTokenHasher{cost: cost}
}

// Generate creates a fresh token and its storable hash.
func (h *DeviceTokenHasher) Generate() (token, hash string, err error) {
	token = uuid.NewString()
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(token), h.cost)
	if err != nil {
		return "", "", err
	}
	return token, string(hashBytes), nil
}

// Compare checks a presented token against the stored hash.
func (h *DeviceTokenHasher) Compare(hash, token string) error {
	if token == "" {
		return errors.New("auth: empty device token")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}

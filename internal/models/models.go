package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Device is a registered telemetry source. Ingest requests authenticate with
// a per-device token stored as a bcrypt hash.
type Device struct {
	ID         int64     `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	TokenHash  string    `db:"token_hash" json:"-"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SyntheticVariable is a user-defined derived variable. Its expression is
// validated at save time and re-evaluated against every ingested sample
// while enabled.
type SyntheticVariable struct {
	ID         int64     `db:"id" json:"id"`
	DeviceID   string    `db:"device_id" json:"device_id"`
	Name       string    `db:"name" json:"name"`
	Unit       string    `db:"unit" json:"unit"`
	Expression string    `db:"expression" json:"expression"`
	Enabled    bool      `db:"enabled" json:"enabled"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TelemetrySample is one ingested reading: a set of named numeric values
// recorded by a device at a single instant. Immutable once persisted.
type TelemetrySample struct {
	DeviceID  string                     `json:"device_id"`
	Timestamp time.Time                  `json:"timestamp"`
	Values    map[string]decimal.Decimal `json:"values"`
}

// CalculatedValue is the output of evaluating one synthetic variable against
// one telemetry sample. Timestamp is copied from the triggering sample.
type CalculatedValue struct {
	ID                  int64           `db:"id" json:"id"`
	SyntheticVariableID int64           `db:"synthetic_variable_id" json:"synthetic_variable_id"`
	Timestamp           time.Time       `db:"timestamp" json:"timestamp"`
	Value               decimal.Decimal `db:"value" json:"value"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

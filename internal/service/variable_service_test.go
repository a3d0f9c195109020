package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensorvision/internal/expr"
	"sensorvision/internal/service"
)

// Validation runs before any storage access, so the rejection paths are
// exercised without wiring repositories.
func TestCreateRejectsInvalidExpression(t *testing.T) {
	s := service.NewVariableService(nil, nil, nil, nil, zap.NewNop())

	_, err := s.Create(context.Background(), service.CreateVariableInput{
		DeviceID:   "dev-1",
		Name:       "power",
		Expression: "voltage *",
	})
	var parseErr *expr.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	s := service.NewVariableService(nil, nil, nil, nil, zap.NewNop())

	for _, input := range []service.CreateVariableInput{
		{DeviceID: "dev-1", Name: "", Expression: "voltage * 2"},
		{DeviceID: "dev-1", Name: "power", Expression: ""},
		{DeviceID: "dev-1", Name: "   ", Expression: "voltage * 2"},
		{DeviceID: "dev-1", Name: "power", Expression: "   "},
	} {
		_, err := s.Create(context.Background(), input)
		assert.ErrorIs(t, err, service.ErrMissingFields)
	}
}

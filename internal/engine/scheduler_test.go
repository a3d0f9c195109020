package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensorvision/internal/engine"
	"sensorvision/internal/models"
	"sensorvision/internal/stats"
)

type fakeDefinitions struct {
	definitions []models.SyntheticVariable
	err         error
}

func (f *fakeDefinitions) FindEnabledForDevice(context.Context, string) ([]models.SyntheticVariable, error) {
	return f.definitions, f.err
}

type fakeSink struct {
	saved   []models.CalculatedValue
	failFor map[int64]error
}

func (f *fakeSink) SaveCalculatedValue(_ context.Context, value *models.CalculatedValue) error {
	if err := f.failFor[value.SyntheticVariableID]; err != nil {
		return err
	}
	value.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *value)
	return nil
}

type fakeStore struct {
	points []stats.Point
	err    error
}

func (f *fakeStore) QueryRange(context.Context, string, string, time.Time, time.Time) ([]stats.Point, error) {
	return f.points, f.err
}

func definition(id int64, name, expression string) models.SyntheticVariable {
	return models.SyntheticVariable{
		ID:         id,
		DeviceID:   "dev-1",
		Name:       name,
		Expression: expression,
		Enabled:    true,
	}
}

func sampleWith(values map[string]string) models.TelemetrySample {
	parsed := make(map[string]decimal.Decimal, len(values))
	for k, v := range values {
		parsed[k] = decimal.RequireFromString(v)
	}
	return models.TelemetrySample{
		DeviceID:  "dev-1",
		Timestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Values:    parsed,
	}
}

func newScheduler(defs *fakeDefinitions, sink *fakeSink, store *fakeStore) *engine.Scheduler {
	return engine.NewScheduler(defs, sink, stats.NewAggregator(store), zap.NewNop())
}

func TestOnSampleIngestedEvaluatesAllDefinitions(t *testing.T) {
	defs := &fakeDefinitions{definitions: []models.SyntheticVariable{
		definition(1, "power", "voltage * current"),
		definition(2, "overvoltage", "if(voltage > 230, 1, 0)"),
	}}
	sink := &fakeSink{}
	s := newScheduler(defs, sink, &fakeStore{})

	sample := sampleWith(map[string]string{"voltage": "230", "current": "9"})
	produced, err := s.OnSampleIngested(context.Background(), sample)
	require.NoError(t, err)
	require.Len(t, produced, 2)

	assert.EqualValues(t, 1, produced[0].SyntheticVariableID)
	assert.True(t, produced[0].Value.Equal(decimal.RequireFromString("2070")))
	assert.EqualValues(t, 2, produced[1].SyntheticVariableID)
	assert.True(t, produced[1].Value.IsZero())

	for _, v := range produced {
		assert.Equal(t, sample.Timestamp, v.Timestamp)
	}
	assert.Len(t, sink.saved, 2)
}

func TestOnSampleIngestedSkipsFailingDefinition(t *testing.T) {
	defs := &fakeDefinitions{definitions: []models.SyntheticVariable{
		definition(1, "power", "voltage * current"),
		definition(2, "broken", "voltage / 0"),
		definition(3, "doubled", "voltage * 2"),
	}}
	sink := &fakeSink{}
	s := newScheduler(defs, sink, &fakeStore{})

	produced, err := s.OnSampleIngested(context.Background(), sampleWith(map[string]string{
		"voltage": "220",
		"current": "5",
	}))
	require.NoError(t, err)
	require.Len(t, produced, 2)
	assert.EqualValues(t, 1, produced[0].SyntheticVariableID)
	assert.EqualValues(t, 3, produced[1].SyntheticVariableID)
}

func TestOnSampleIngestedUndefinedVariableSkipped(t *testing.T) {
	defs := &fakeDefinitions{definitions: []models.SyntheticVariable{
		definition(1, "needsTemp", "temperature + 1"),
	}}
	sink := &fakeSink{}
	s := newScheduler(defs, sink, &fakeStore{})

	produced, err := s.OnSampleIngested(context.Background(), sampleWith(map[string]string{"voltage": "220"}))
	require.NoError(t, err)
	assert.Empty(t, produced)
	assert.Empty(t, sink.saved)
}

func TestOnSampleIngestedNoDefinitions(t *testing.T) {
	s := newScheduler(&fakeDefinitions{}, &fakeSink{}, &fakeStore{})
	produced, err := s.OnSampleIngested(context.Background(), sampleWith(map[string]string{"voltage": "220"}))
	require.NoError(t, err)
	assert.Empty(t, produced)
}

func TestOnSampleIngestedDefinitionLookupFailure(t *testing.T) {
	cause := errors.New("db down")
	s := newScheduler(&fakeDefinitions{err: cause}, &fakeSink{}, &fakeStore{})
	_, err := s.OnSampleIngested(context.Background(), sampleWith(map[string]string{"voltage": "220"}))
	assert.ErrorIs(t, err, cause)
}

func TestOnSampleIngestedSinkFailureSkipsDefinition(t *testing.T) {
	defs := &fakeDefinitions{definitions: []models.SyntheticVariable{
		definition(1, "power", "voltage * 2"),
		definition(2, "halved", "voltage / 2"),
	}}
	sink := &fakeSink{failFor: map[int64]error{1: errors.New("disk full")}}
	s := newScheduler(defs, sink, &fakeStore{})

	produced, err := s.OnSampleIngested(context.Background(), sampleWith(map[string]string{"voltage": "220"}))
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.EqualValues(t, 2, produced[0].SyntheticVariableID)
}

func TestOnSampleIngestedAggregateQueriesStore(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{points: []stats.Point{
		{Timestamp: ts.Add(-4 * time.Minute), Value: decimal.RequireFromString("218")},
		{Timestamp: ts.Add(-2 * time.Minute), Value: decimal.RequireFromString("222")},
		{Timestamp: ts, Value: decimal.RequireFromString("220")},
	}}
	defs := &fakeDefinitions{definitions: []models.SyntheticVariable{
		definition(1, "avgVoltage", `avg("voltage", "5m")`),
	}}
	sink := &fakeSink{}
	s := newScheduler(defs, sink, store)

	produced, err := s.OnSampleIngested(context.Background(), sampleWith(map[string]string{"voltage": "220"}))
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.True(t, produced[0].Value.Equal(decimal.RequireFromString("220")))
}

package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorvision/internal/expr"
	"sensorvision/internal/stats"
)

type fakeWindowStore struct {
	points   []stats.Point
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastVar  string
}

func (s *fakeWindowStore) QueryRange(_ context.Context, _, variable string, from, to time.Time) ([]stats.Point, error) {
	s.lastVar = variable
	s.lastFrom = from
	s.lastTo = to
	if s.err != nil {
		return nil, s.err
	}
	return s.points, nil
}

var ref = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func pointsAt(values ...string) []stats.Point {
	points := make([]stats.Point, len(values))
	for i, v := range values {
		points[i] = stats.Point{
			Timestamp: ref.Add(time.Duration(i-len(values)) * time.Minute),
			Value:     decimal.RequireFromString(v),
		}
	}
	return points
}

func window(t *testing.T, code string) expr.Window {
	t.Helper()
	w, err := expr.ParseWindow(code)
	require.NoError(t, err)
	return w
}

func aggregate(t *testing.T, store *fakeWindowStore, fn stats.Func, code string) (decimal.Decimal, error) {
	t.Helper()
	agg := stats.NewAggregator(store)
	return agg.Aggregate(context.Background(), "dev-1", ref, fn, "voltage", window(t, code))
}

func requireAggregate(t *testing.T, store *fakeWindowStore, fn stats.Func, code, want string) {
	t.Helper()
	got, err := aggregate(t, store, fn, code)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "got %s, want %s", got, want)
}

func requireKind(t *testing.T, store *fakeWindowStore, fn stats.Func, code string, kind expr.EvalErrorKind) {
	t.Helper()
	_, err := aggregate(t, store, fn, code)
	var evalErr *expr.EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, kind, evalErr.Kind)
}

func TestAvg(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("220", "222", "218", "225", "215")}
	requireAggregate(t, store, stats.Avg, "5m", "220")
}

func TestAvgKeepsZeroReadings(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("0", "0", "30")}
	requireAggregate(t, store, stats.Avg, "5m", "10")
}

func TestSum(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("10", "15", "20", "25")}
	requireAggregate(t, store, stats.Sum, "1h", "70")
}

func TestCount(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("1", "2", "3")}
	requireAggregate(t, store, stats.Count, "1h", "3")
}

func TestMinMax(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("222", "218", "225", "215")}
	requireAggregate(t, store, stats.Min, "1h", "215")
	requireAggregate(t, store, stats.Max, "1h", "225")
}

func TestStdDev(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("220", "230", "210", "220")}
	got, err := aggregate(t, store, stats.StdDev, "1h")
	require.NoError(t, err)
	f, _ := got.Float64()
	assert.InDelta(t, 7.0710678, f, 1e-6)
}

func TestStdDevSinglePointIsZero(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("220")}
	requireAggregate(t, store, stats.StdDev, "1h", "0")
}

func TestRate(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("100", "115", "140")}
	requireAggregate(t, store, stats.Rate, "1h", "40")

	// Same values over a wider window halve the rate.
	requireAggregate(t, store, stats.Rate, "2h", "20")
}

func TestPercentChange(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("100", "120", "150")}
	requireAggregate(t, store, stats.PercentChange, "1h", "50")
}

func TestPercentChangeZeroBaseline(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("0", "150")}
	requireKind(t, store, stats.PercentChange, "1h", expr.DivisionByZero)
}

func TestEmptyWindow(t *testing.T) {
	store := &fakeWindowStore{}

	for _, fn := range []stats.Func{stats.Avg, stats.StdDev, stats.Min, stats.Max} {
		requireKind(t, store, fn, "5m", expr.EmptyWindow)
	}

	// Counting aggregates are defined on the empty window.
	requireAggregate(t, store, stats.Sum, "5m", "0")
	requireAggregate(t, store, stats.Count, "5m", "0")
}

func TestRateNeedsTwoPoints(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("100")}
	requireKind(t, store, stats.Rate, "1h", expr.EmptyWindow)
	requireKind(t, store, stats.PercentChange, "1h", expr.EmptyWindow)
}

func TestStoreFailureIsReported(t *testing.T) {
	cause := errors.New("connection reset")
	store := &fakeWindowStore{err: cause}
	_, err := aggregate(t, store, stats.Avg, "5m")
	var evalErr *expr.EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, expr.WindowQueryFailed, evalErr.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestQueryBounds(t *testing.T) {
	store := &fakeWindowStore{points: pointsAt("1")}
	_, err := aggregate(t, store, stats.Count, "30m")
	require.NoError(t, err)
	assert.Equal(t, ref, store.lastTo)
	assert.Equal(t, ref.Add(-30*time.Minute), store.lastFrom)
	assert.Equal(t, "voltage", store.lastVar)
}

func TestFuncFromName(t *testing.T) {
	for name, want := range map[string]stats.Func{
		"avg":           stats.Avg,
		"stddev":        stats.StdDev,
		"sum":           stats.Sum,
		"count":         stats.Count,
		"min":           stats.Min,
		"max":           stats.Max,
		"rate":          stats.Rate,
		"percentchange": stats.PercentChange,
	} {
		fn, ok := stats.FuncFromName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, fn, name)
	}

	_, ok := stats.FuncFromName("median")
	assert.False(t, ok)
}

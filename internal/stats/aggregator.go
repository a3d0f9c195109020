// Package stats computes windowed statistics over raw telemetry. Every call
// re-queries the window store; no running aggregates are kept, so results
// are a pure function of stored samples.
package stats

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"sensorvision/internal/expr"
)

// Point is one telemetry observation inside a window query result.
type Point struct {
	Timestamp time.Time
	Value     decimal.Decimal
}

// WindowStore is the range-query interface the aggregator needs from the
// time-series storage.
type WindowStore interface {
	// QueryRange returns all values of variable recorded by the device in
	// [from, to] inclusive, ordered by timestamp ascending.
	QueryRange(ctx context.Context, deviceID, variable string, from, to time.Time) ([]Point, error)
}

// Func identifies a statistical aggregation.
type Func int

const (
	Avg Func = iota
	StdDev
	Sum
	Count
	Min
	Max
	Rate
	PercentChange
)

var funcNames = map[string]Func{
	"avg":           Avg,
	"stddev":        StdDev,
	"sum":           Sum,
	"count":         Count,
	"min":           Min,
	"max":           Max,
	"rate":          Rate,
	"percentchange": PercentChange,
}

// FuncFromName resolves a lowercase function name to a Func.
func FuncFromName(name string) (Func, bool) {
	fn, ok := funcNames[name]
	return fn, ok
}

// Aggregator evaluates statistical functions over a trailing window ending
// at a reference timestamp.
type Aggregator struct {
	store WindowStore
}

// NewAggregator returns an aggregator reading from store.
func NewAggregator(store WindowStore) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate computes fn over the values of variable recorded by deviceID in
// the window [ref − window.Duration(), ref]. Failures are *expr.EvalError.
func (a *Aggregator) Aggregate(ctx context.Context, deviceID string, ref time.Time, fn Func, variable string, window expr.Window) (decimal.Decimal, error) {
	from := ref.Add(-window.Duration())
	points, err := a.store.QueryRange(ctx, deviceID, variable, from, ref)
	if err != nil {
		return decimal.Zero, &expr.EvalError{Kind: expr.WindowQueryFailed, Detail: variable, Err: err}
	}

	switch fn {
	case Avg:
		if len(points) == 0 {
			return decimal.Zero, emptyWindow("avg", variable, window)
		}
		return mean(points), nil

	case StdDev:
		if len(points) == 0 {
			return decimal.Zero, emptyWindow("stddev", variable, window)
		}
		return stddev(points), nil

	case Sum:
		return sum(points), nil

	case Count:
		return decimal.NewFromInt(int64(len(points))), nil

	case Min:
		if len(points) == 0 {
			return decimal.Zero, emptyWindow("min", variable, window)
		}
		result := points[0].Value
		for _, p := range points[1:] {
			if p.Value.Cmp(result) < 0 {
				result = p.Value
			}
		}
		return result, nil

	case Max:
		if len(points) == 0 {
			return decimal.Zero, emptyWindow("max", variable, window)
		}
		result := points[0].Value
		for _, p := range points[1:] {
			if p.Value.Cmp(result) > 0 {
				result = p.Value
			}
		}
		return result, nil

	case Rate:
		if len(points) < 2 {
			return decimal.Zero, emptyWindow("rate", variable, window)
		}
		// Two-point slope normalized by the window quantity in the unit as
		// written: rate("kwConsumption", "1h") over 100→140 is 40.
		diff := points[len(points)-1].Value.Sub(points[0].Value)
		return diff.Div(decimal.NewFromInt(window.Quantity)), nil

	case PercentChange:
		if len(points) < 2 {
			return decimal.Zero, emptyWindow("percentChange", variable, window)
		}
		first := points[0].Value
		last := points[len(points)-1].Value
		if first.IsZero() {
			return decimal.Zero, &expr.EvalError{Kind: expr.DivisionByZero, Detail: "percentChange: zero baseline"}
		}
		return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)), nil

	default:
		return decimal.Zero, &expr.EvalError{Kind: expr.UnknownFunction}
	}
}

func emptyWindow(fn, variable string, window expr.Window) *expr.EvalError {
	return &expr.EvalError{
		Kind:   expr.EmptyWindow,
		Detail: fn + "(" + variable + ", " + window.Code + ")",
	}
}

func sum(points []Point) decimal.Decimal {
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Value)
	}
	return total
}

func mean(points []Point) decimal.Decimal {
	return sum(points).Div(decimal.NewFromInt(int64(len(points))))
}

// stddev is the population standard deviation: squared deviations divided by
// N, not N−1. The square root goes through float64, matching the precision
// monitoring thresholds actually need.
func stddev(points []Point) decimal.Decimal {
	if len(points) == 1 {
		return decimal.Zero
	}
	m := mean(points)
	varianceSum := decimal.Zero
	for _, p := range points {
		d := p.Value.Sub(m)
		varianceSum = varianceSum.Add(d.Mul(d))
	}
	variance := varianceSum.Div(decimal.NewFromInt(int64(len(points))))
	f, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(f))
}

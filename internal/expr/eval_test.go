package expr_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorvision/internal/expr"
)

type fakeContext struct {
	values    map[string]string
	aggregate func(fn, variable string, window expr.Window) (decimal.Decimal, error)
}

func (c *fakeContext) Lookup(name string) (decimal.Decimal, bool) {
	raw, ok := c.values[name]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(raw), true
}

func (c *fakeContext) Aggregate(fn, variable string, window expr.Window) (decimal.Decimal, error) {
	if c.aggregate == nil {
		return decimal.Zero, &expr.EvalError{Kind: expr.EmptyWindow}
	}
	return c.aggregate(fn, variable, window)
}

func sampleValues(pairs map[string]string) *fakeContext {
	return &fakeContext{values: pairs}
}

func requireResult(t *testing.T, expression string, ctx expr.Context, want string) {
	t.Helper()
	got, err := expr.Evaluate(expression, ctx)
	require.NoError(t, err, expression)
	assert.True(t, got.Equal(decimal.RequireFromString(want)),
		"%s: got %s, want %s", expression, got, want)
}

func requireEvalError(t *testing.T, expression string, ctx expr.Context, kind expr.EvalErrorKind) {
	t.Helper()
	_, err := expr.Evaluate(expression, ctx)
	var evalErr *expr.EvalError
	require.ErrorAs(t, err, &evalErr, expression)
	assert.Equal(t, kind, evalErr.Kind, expression)
}

func TestEvaluateArithmetic(t *testing.T) {
	ctx := sampleValues(map[string]string{"voltage": "220.0", "current": "5.0"})

	cases := map[string]string{
		"voltage * current":       "1100",
		"voltage + current":       "225",
		"voltage - current":       "215",
		"voltage / current":       "44",
		"2 + 3 * 4":               "14",
		"(2 + 3) * 4":             "20",
		"10 / 4":                  "2.5",
		"-voltage + 230":          "10",
		"voltage * current / 10":  "110",
		"voltage - current - 5":   "210",
	}
	for expression, want := range cases {
		requireResult(t, expression, ctx, want)
	}
}

func TestEvaluateComparisons(t *testing.T) {
	ctx := sampleValues(map[string]string{"voltage": "220", "current": "5"})

	cases := map[string]string{
		"voltage > 230":        "0",
		"voltage < 230":        "1",
		"voltage >= 220":       "1",
		"voltage <= 219":       "0",
		"voltage == 220.00":    "1",
		"voltage != 220":       "0",
		"voltage > current":    "1",
		"voltage + 15 > 230":   "1",
	}
	for expression, want := range cases {
		requireResult(t, expression, ctx, want)
	}
}

func TestEvaluateRoundHalfUp(t *testing.T) {
	ctx := sampleValues(map[string]string{"voltage": "220.7", "current": "5.3"})
	requireResult(t, "round(voltage * current)", ctx, "1170")

	ctx = sampleValues(map[string]string{"x": "2.5"})
	requireResult(t, "round(x)", ctx, "3")
	requireResult(t, "round(x - 1)", ctx, "2")
}

func TestEvaluateConditional(t *testing.T) {
	normal := sampleValues(map[string]string{"voltage": "220"})
	requireResult(t, "if(voltage > 230, 1, 0)", normal, "0")

	over := sampleValues(map[string]string{"voltage": "235"})
	requireResult(t, "if(voltage > 230, 1, 0)", over, "1")
}

func TestConditionalOnlyEvaluatesTakenBranch(t *testing.T) {
	ctx := sampleValues(map[string]string{"voltage": "220"})
	requireResult(t, "if(voltage > 0, 10, 1 / 0)", ctx, "10")
	requireResult(t, "if(voltage > 300, missingVariable, 7)", ctx, "7")
}

func TestEvaluateMathFunctions(t *testing.T) {
	ctx := sampleValues(map[string]string{"voltage": "221.4"})

	cases := map[string]string{
		"abs(0 - voltage)":           "221.4",
		"floor(voltage)":             "221",
		"ceil(voltage)":              "222",
		"sqrt(9)":                    "3",
		"min(3, 1, 2)":               "1",
		"max(3, 1, 2)":               "3",
		"min(voltage, 230)":          "221.4",
		"and(1, voltage)":            "1",
		"and(1, 0)":                  "0",
		"or(0, 0, voltage)":          "1",
		"or(0, 0)":                   "0",
		"not(0)":                     "1",
		"not(voltage)":               "0",
	}
	for expression, want := range cases {
		requireResult(t, expression, ctx, want)
	}
}

func TestEvaluateErrors(t *testing.T) {
	ctx := sampleValues(map[string]string{"voltage": "220"})

	requireEvalError(t, "missingVariable * 2", ctx, expr.UndefinedVariable)
	requireEvalError(t, "voltage / 0", ctx, expr.DivisionByZero)
	requireEvalError(t, "bogus(voltage)", ctx, expr.UnknownFunction)
	requireEvalError(t, "if(voltage, 1)", ctx, expr.InvalidArgument)
	requireEvalError(t, "round(1, 2)", ctx, expr.InvalidArgument)
	requireEvalError(t, "sqrt(0 - 4)", ctx, expr.InvalidArgument)
	requireEvalError(t, `avg("voltage", "5x")`, ctx, expr.InvalidDurationLiteral)
	requireEvalError(t, `avg("voltage", "5m", "extra")`, ctx, expr.InvalidArgument)
	requireEvalError(t, `avg(voltage, "5m")`, ctx, expr.InvalidArgument)
}

func TestStatisticalDispatch(t *testing.T) {
	var gotFn, gotVariable string
	var gotWindow expr.Window
	ctx := &fakeContext{
		values: map[string]string{"kwConsumption": "120"},
		aggregate: func(fn, variable string, window expr.Window) (decimal.Decimal, error) {
			gotFn, gotVariable, gotWindow = fn, variable, window
			return decimal.RequireFromString("80"), nil
		},
	}

	requireResult(t, `avg("voltage", "5m")`, ctx, "80")
	assert.Equal(t, "avg", gotFn)
	assert.Equal(t, "voltage", gotVariable)
	assert.EqualValues(t, 5, gotWindow.Quantity)

	requireResult(t, `percentChange("kwConsumption", "1h")`, ctx, "80")
	assert.Equal(t, "percentchange", gotFn)

	requireResult(t, `min("voltage", "24h")`, ctx, "80")
	assert.Equal(t, "min", gotFn)
	assert.EqualValues(t, 24, gotWindow.Quantity)

	// Aggregates compose with expression arithmetic around them.
	requireResult(t, `if(kwConsumption > avg("kwConsumption", "1h") * 1.5, 1, 0)`, ctx, "0")
}

func TestAggregateErrorPropagates(t *testing.T) {
	ctx := &fakeContext{
		values: map[string]string{},
		aggregate: func(fn, variable string, window expr.Window) (decimal.Decimal, error) {
			return decimal.Zero, &expr.EvalError{Kind: expr.EmptyWindow}
		},
	}
	requireEvalError(t, `avg("voltage", "5m") + 1`, ctx, expr.EmptyWindow)
}

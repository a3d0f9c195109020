package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorvision/internal/expr"
)

func TestValidateAcceptsRealDefinitions(t *testing.T) {
	expressions := []string{
		"voltage * current",
		"round(voltage * current)",
		"if(voltage > 230, 1, 0)",
		`avg("voltage", "5m")`,
		`stddev("voltage", "5m")`,
		`sum("kwConsumption", "1h")`,
		`rate("kwConsumption", "1h")`,
		`percentChange("kwConsumption", "1h")`,
		`if(kwConsumption > avg("kwConsumption", "1h") * 1.5, 1, 0)`,
		`if(voltage > avg("voltage", "5m") * 1.2, 1, 0)`,
		"(voltage + 10) / 2",
		"-voltage + 230",
		"voltage >= 220",
		"current != 0",
		"abs(voltage - 230)",
		"min(voltage, current, 100)",
		`min("voltage", "24h")`,
		"and(voltage > 200, voltage < 250)",
	}

	for _, expression := range expressions {
		assert.NoError(t, expr.Validate(expression), expression)
	}
}

func TestValidateRejectsMalformedExpressions(t *testing.T) {
	expressions := []string{
		"",
		"voltage +",
		"* voltage",
		"voltage ++ *",
		"(voltage",
		"voltage)",
		`avg("voltage", "5m"`,
		"if(voltage > 230, 1, 0",
		"voltage = 230",
		"voltage ! current",
		`"voltage"`,
		`"voltage" + 1`,
		`avg("voltage, "5m")`,
		"voltage @ current",
		"1.",
		"round(voltage) 2",
	}

	for _, expression := range expressions {
		err := expr.Validate(expression)
		require.Error(t, err, expression)
		var parseErr *expr.ParseError
		require.ErrorAs(t, err, &parseErr, expression)
	}
}

func TestValidateIsPure(t *testing.T) {
	expressions := []string{
		"voltage * current",
		"voltage +",
		`avg("voltage", "5m")`,
		"",
	}

	for _, expression := range expressions {
		first := expr.Validate(expression)
		second := expr.Validate(expression)
		if first == nil {
			assert.NoError(t, second, expression)
			continue
		}
		require.Error(t, second, expression)
		assert.Equal(t, first.Error(), second.Error(), expression)
	}
}

func TestParseErrorCarriesOffset(t *testing.T) {
	_, err := expr.Parse("voltage * @")
	var parseErr *expr.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 10, parseErr.Pos)
}

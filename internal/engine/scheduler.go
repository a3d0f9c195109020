// Package engine drives synthetic variable evaluation on the ingest path.
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sensorvision/internal/expr"
	"sensorvision/internal/metrics"
	"sensorvision/internal/models"
	"sensorvision/internal/stats"
)

// DefinitionStore looks up synthetic variable definitions.
type DefinitionStore interface {
	FindEnabledForDevice(ctx context.Context, deviceID string) ([]models.SyntheticVariable, error)
}

// ValueSink persists calculated values.
type ValueSink interface {
	SaveCalculatedValue(ctx context.Context, value *models.CalculatedValue) error
}

// Scheduler evaluates every enabled synthetic variable of a device against a
// newly ingested sample. Evaluation is stateless per invocation.
type Scheduler struct {
	definitions DefinitionStore
	sink        ValueSink
	aggregator  *stats.Aggregator
	logger      *zap.Logger
}

// NewScheduler returns a scheduler.
func NewScheduler(definitions DefinitionStore, sink ValueSink, aggregator *stats.Aggregator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		definitions: definitions,
		sink:        sink,
		aggregator:  aggregator,
		logger:      logger,
	}
}

// OnSampleIngested evaluates enabled definitions for the sample's device in
// creation order and persists one CalculatedValue per success. A failing
// definition is logged and skipped; the rest of the batch still runs. The
// returned error covers only the definition lookup itself.
func (s *Scheduler) OnSampleIngested(ctx context.Context, sample models.TelemetrySample) ([]models.CalculatedValue, error) {
	definitions, err := s.definitions.FindEnabledForDevice(ctx, sample.DeviceID)
	if err != nil {
		return nil, err
	}
	if len(definitions) == 0 {
		return nil, nil
	}

	evalCtx := &sampleContext{ctx: ctx, sample: sample, aggregator: s.aggregator}
	produced := make([]models.CalculatedValue, 0, len(definitions))

	for _, definition := range definitions {
		started := time.Now()
		value, err := expr.Evaluate(definition.Expression, evalCtx)
		metrics.EvaluationDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.Evaluations.WithLabelValues(metrics.StatusError).Inc()
			s.logger.Warn("synthetic variable evaluation failed",
				zap.String("device_id", sample.DeviceID),
				zap.String("variable", definition.Name),
				zap.Error(err),
			)
			continue
		}

		calculated := models.CalculatedValue{
			SyntheticVariableID: definition.ID,
			Timestamp:           sample.Timestamp,
			Value:               value,
			CreatedAt:           time.Now().UTC(),
		}
		if err := s.sink.SaveCalculatedValue(ctx, &calculated); err != nil {
			metrics.Evaluations.WithLabelValues(metrics.StatusError).Inc()
			s.logger.Error("failed to persist calculated value",
				zap.String("device_id", sample.DeviceID),
				zap.String("variable", definition.Name),
				zap.Error(err),
			)
			continue
		}

		metrics.Evaluations.WithLabelValues(metrics.StatusOK).Inc()
		produced = append(produced, calculated)
	}

	return produced, nil
}

// sampleContext binds one sample and its reference timestamp to the
// expression evaluator.
type sampleContext struct {
	ctx        context.Context
	sample     models.TelemetrySample
	aggregator *stats.Aggregator
}

func (c *sampleContext) Lookup(name string) (decimal.Decimal, bool) {
	value, ok := c.sample.Values[name]
	return value, ok
}

func (c *sampleContext) Aggregate(fn string, variable string, window expr.Window) (decimal.Decimal, error) {
	f, ok := stats.FuncFromName(fn)
	if !ok {
		return decimal.Zero, &expr.EvalError{Kind: expr.UnknownFunction, Detail: fn}
	}
	return c.aggregator.Aggregate(c.ctx, c.sample.DeviceID, c.sample.Timestamp, f, variable, window)
}

package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tradeassist"

// Metrics holds all TradeAssist metric instruments.
type Metrics struct {
	QueriesStarted   metric.Int64Counter
	QueriesCompleted metric.Int64Counter
	QueriesFailed    metric.Int64Counter
	CacheHits        metric.Int64Counter
	RateLimited      metric.Int64Counter
	ToolCalls        metric.Int64Counter
	Fallbacks        metric.Int64Counter
	QueryDuration    metric.Float64Histogram
	ToolDuration     metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QueriesStarted, err = meter.Int64Counter("tradeassist.queries.started",
		metric.WithDescription("Number of queries started"))
	if err != nil {
		return nil, err
	}

	m.QueriesCompleted, err = meter.Int64Counter("tradeassist.queries.completed",
		metric.WithDescription("Number of queries completed"))
	if err != nil {
		return nil, err
	}

	m.QueriesFailed, err = meter.Int64Counter("tradeassist.queries.failed",
		metric.WithDescription("Number of queries failed"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("tradeassist.cache.hits",
		metric.WithDescription("Number of response cache hits"))
	if err != nil {
		return nil, err
	}

	m.RateLimited, err = meter.Int64Counter("tradeassist.ratelimited",
		metric.WithDescription("Number of rate limited queries"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("tradeassist.toolcalls",
		metric.WithDescription("Number of tool calls"))
	if err != nil {
		return nil, err
	}

	m.Fallbacks, err = meter.Int64Counter("tradeassist.fallbacks",
		metric.WithDescription("Number of fallback responses served"))
	if err != nil {
		return nil, err
	}

	m.QueryDuration, err = meter.Float64Histogram("tradeassist.query.duration_seconds",
		metric.WithDescription("End to end query duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ToolDuration, err = meter.Float64Histogram("tradeassist.tool.duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

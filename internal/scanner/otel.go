package scanner

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/kres-mod/kres/internal/scanner"

type metrics struct {
	steps    metric.Int64Counter
	starved  metric.Int64Counter
	finished metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)
	out.steps, err = m.Int64Counter(
		"kres.scanner.steps",
		metric.WithDescription("Simulation steps taken while scanning"),
	)
	if err != nil {
		return nil, err
	}
	out.starved, err = m.Int64Counter(
		"kres.scanner.starved",
		metric.WithDescription("Steps skipped for lack of input resources"),
	)
	if err != nil {
		return nil, err
	}
	out.finished, err = m.Int64Counter(
		"kres.scanner.finished",
		metric.WithDescription("Scans ended, by final state"),
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

package generator

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/kres-mod/kres/internal/generator"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	rows     metric.Int64Counter
	rasters  metric.Int64Counter
	skipped  metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)
	out.rows, err = m.Int64Counter(
		"kres.generator.rows",
		metric.WithDescription("Raster rows rendered"),
	)
	if err != nil {
		return nil, err
	}
	out.rasters, err = m.Int64Counter(
		"kres.generator.rasters",
		metric.WithDescription("Rasters written"),
	)
	if err != nil {
		return nil, err
	}
	out.skipped, err = m.Int64Counter(
		"kres.generator.skipped",
		metric.WithDescription("Jobs skipped, by reason"),
	)
	if err != nil {
		return nil, err
	}
	out.duration, err = m.Float64Histogram(
		"kres.generator.duration",
		metric.WithDescription("Time to render one raster"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

package generator

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/kres-mod/kres/internal/geo"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/noise"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/kres-mod/kres/internal/resource"
)

// SphereRadius is the radius of the sphere the noise is sampled on.
const SphereRadius = 10

const (
	minOpacity = 0.2
	maxOpacity = 0.8
)

// Opacity maps a local density to a pixel opacity. Non-positive densities are
// transparent; the rest ramp from 0.2 towards 1 and are capped at 0.8.
func Opacity(density, target float64) float32 {
	if density <= 0 || target <= 0 {
		return 0
	}
	return float32(math.Min(resource.Lerp(minOpacity, 1, density/target), maxOpacity))
}

// Task renders one raster row by row. It owns its raster until Done.
type Task struct {
	job  Job
	opts Options
	env  host.Environment

	field *noise.Normalized
	alt   host.AltitudeMap
	out   *raster.Raster
	row   int
}

// NewTask prepares a task. Inert definitions are rejected with resource.ErrInertDefinition.
func NewTask(job Job, env host.Environment, opts Options, logger *slog.Logger) (*Task, error) {
	if !job.Def.Type.Rasterized() {
		return nil, fmt.Errorf("%s is %s, only ore is rasterized", job.Def.Name, job.Def.Type)
	}
	if err := job.Def.Validate(); err != nil {
		return nil, err
	}
	return newTask(job, env, opts, logger)
}

func newTask(job Job, env host.Environment, opts Options, logger *slog.Logger) (*Task, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	p := noise.Params{
		Seed:        job.Def.Seed,
		Octaves:     max(1, job.Def.Octaves),
		Persistence: job.Def.Persistence,
		Frequency:   job.Def.Frequency,
	}
	field, err := noise.NewNormalized(opts.Noise, p, SphereRadius)
	if err != nil {
		return nil, err
	}

	t := &Task{
		job:   job,
		opts:  opts,
		env:   env,
		field: field,
		out:   raster.New(opts.Width, opts.Height),
	}

	if job.Def.HasAltitudeBand() && env != nil {
		if am, ok := env.AltitudeMap(job.Body); ok {
			if am.Width() == opts.Width && am.Height() == opts.Height {
				t.alt = am
			} else {
				logger.Warn("Heightmap size does not match map size, ignoring altitude band",
					"body", job.Body,
					"resource", job.Def.Name,
					"heightmap", fmt.Sprintf("%dx%d", am.Width(), am.Height()),
					"map", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
			}
		}
	}
	return t, nil
}

// Step renders at most maxRows rows and returns how many it did.
func (t *Task) Step(maxRows int) int {
	done := 0
	for ; done < maxRows && t.row < t.opts.Height; done++ {
		for x := 0; x < t.opts.Width; x++ {
			t.out.Set(x, t.row, t.pixel(x, t.row))
		}
		t.row++
	}
	return done
}

func (t *Task) pixel(x, y int) float32 {
	def := t.job.Def
	lat, lon := geo.PixelToLatLon(x, y, t.opts.Width, t.opts.Height)

	if t.alt != nil && !def.InAltitudeBand(t.alt.At(x, y)) {
		return 0
	}
	if def.HasBiomeFilter() && t.env != nil && !def.BiomeAllowed(t.env.Biome(t.job.Body, lat, lon)) {
		return 0
	}

	p := geo.SurfacePoint(SphereRadius, lat, lon)
	density := t.field.Value(p.X, p.Y, p.Z) - 1 + def.Density
	return Opacity(density, def.Density)
}

func (t *Task) Done() bool {
	return t.row >= t.opts.Height
}

// Progress is the fraction of rows rendered.
func (t *Task) Progress() float64 {
	return float64(t.row) / float64(t.opts.Height)
}

// Raster returns the output. It is only complete once Done reports true.
func (t *Task) Raster() *raster.Raster {
	return t.out
}

func (t *Task) Job() Job {
	return t.job
}

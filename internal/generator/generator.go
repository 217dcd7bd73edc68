package generator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/raster"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Skip reasons reported in Result.Reason.
const (
	ReasonExists = "exists"
	ReasonInert  = "inert"
	ReasonFailed = "failed"
)

// Result describes the outcome of one job.
type Result struct {
	Job      Job
	Coverage float64
	Duration time.Duration
	Skipped  bool
	Reason   string
	Err      error
}

// Dependencies holds the collaborators of a Generator.
type Dependencies struct {
	Env    host.Environment
	Logger *slog.Logger
	// OnResult, if set, is called once per finished or skipped job.
	OnResult func(Result)
}

// Generator works through a list of jobs one slice at a time.
type Generator struct {
	deps    Dependencies
	opts    Options
	jobs    []Job
	next    int
	current *Task
	started time.Time
	results []Result
	metrics *metrics
}

// New creates a generator for the given jobs.
func New(deps Dependencies, opts Options, jobs []Job) (*Generator, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	return &Generator{
		deps:    deps,
		opts:    opts.withDefaults(),
		jobs:    jobs,
		metrics: m,
	}, nil
}

// Step renders one slice of at most RowsPerSlice rows and reports whether all
// jobs are finished. Jobs that need no rendering are resolved within the same call.
func (g *Generator) Step(ctx context.Context) bool {
	for g.current == nil {
		if g.next >= len(g.jobs) {
			return true
		}
		job := g.jobs[g.next]
		g.next++
		g.start(ctx, job)
	}

	n := g.current.Step(g.opts.RowsPerSlice)
	g.metrics.rows.Add(ctx, int64(n), metric.WithAttributes(attribute.String("body", g.current.job.Body)))

	if g.current.Done() {
		g.finish(ctx)
	}
	return g.Done()
}

func (g *Generator) start(ctx context.Context, job Job) {
	log := g.deps.Logger.With("body", job.Body, "resource", job.Def.Name)

	existing, err := raster.Load(job.Path, g.opts.Width, g.opts.Height)
	switch {
	case err == nil:
		log.Debug("Raster already present, skipping", "path", job.Path)
		g.record(ctx, Result{Job: job, Coverage: existing.Coverage(), Skipped: true, Reason: ReasonExists})
		return
	case errors.Is(err, raster.ErrDimensionMismatch):
		log.Warn("Stored raster has the wrong size, regenerating", "error", err)
	case !errors.Is(err, os.ErrNotExist):
		log.Warn("Stored raster is unreadable, regenerating", "error", err)
	}

	task, err := NewTask(job, g.deps.Env, g.opts, g.deps.Logger)
	if err != nil {
		log.Warn("Skipping resource", "reason", ReasonInert, "error", err)
		g.record(ctx, Result{Job: job, Skipped: true, Reason: ReasonInert, Err: err})
		return
	}
	g.current = task
	g.started = time.Now()
}

func (g *Generator) finish(ctx context.Context) {
	task := g.current
	g.current = nil
	job := task.Job()
	out := task.Raster()

	res := Result{Job: job, Coverage: out.Coverage(), Duration: time.Since(g.started)}
	if err := raster.Save(job.Path, out, job.Colour); err != nil {
		g.deps.Logger.Error("Failed to write raster", "body", job.Body, "resource", job.Def.Name, "error", err)
		res.Skipped = true
		res.Reason = ReasonFailed
		res.Err = err
	} else {
		g.deps.Logger.Info("Generated raster",
			"body", job.Body,
			"resource", job.Def.Name,
			"coverage", res.Coverage,
			"duration", res.Duration)
		g.metrics.rasters.Add(ctx, 1)
		g.metrics.duration.Record(ctx, res.Duration.Seconds())
	}
	g.record(ctx, res)
}

func (g *Generator) record(ctx context.Context, res Result) {
	if res.Skipped {
		g.metrics.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", res.Reason)))
	}
	g.results = append(g.results, res)
	if g.deps.OnResult != nil {
		g.deps.OnResult(res)
	}
}

// Done reports whether every job has been resolved.
func (g *Generator) Done() bool {
	return g.current == nil && g.next >= len(g.jobs)
}

// Progress is the overall fraction of work done, in [0, 1].
func (g *Generator) Progress() float64 {
	if len(g.jobs) == 0 {
		return 1
	}
	done := float64(g.next)
	if g.current != nil {
		done = float64(g.next-1) + g.current.Progress()
	}
	return done / float64(len(g.jobs))
}

// Current names the job being rendered, if any.
func (g *Generator) Current() (Job, bool) {
	if g.current == nil {
		return Job{}, false
	}
	return g.current.Job(), true
}

// Results returns the outcomes recorded so far.
func (g *Generator) Results() []Result {
	return g.results
}

// Run steps until all jobs are done or ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.Step(ctx) {
			return nil
		}
	}
}

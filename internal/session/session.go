// Package session owns everything that lives for one loaded save: the selected
// pack, the generator and catalogue loader, the data body store and the
// sensors. It is created when a save loads and dropped when it unloads.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/kres-mod/kres/internal/catalogue"
	"github.com/kres-mod/kres/internal/databody"
	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/generator"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/scanner"
	"github.com/kres-mod/kres/internal/storage"
)

// ErrNotReady is returned for operations that need the catalogue before it is loaded.
var ErrNotReady = errors.New("session is not ready")

// Phase is the startup progress of a session.
type Phase int

const (
	Generating Phase = iota
	Loading
	Ready
)

func (p Phase) String() string {
	switch p {
	case Generating:
		return "generating"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// PointWriter receives progress points. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds the collaborators of a session.
type Dependencies struct {
	Env     host.Environment
	Library *defaults.Library
	Backend storage.Backend
	Logger  *slog.Logger
	// Points, if set, receives generation and scan progress.
	Points PointWriter
	// Now defaults to time.Now.
	Now func() time.Time
}

// Config selects the save and map settings.
type Config struct {
	SaveDir string
	// Pack is used for new saves. Existing saves keep the pack they were generated with.
	Pack string
	Map  generator.Options
	// Seed fixes the random source of derived item values; zero picks one.
	Seed uint64
	// ReportInterval is the simulated time between scan progress points.
	ReportInterval time.Duration
}

// Session is the live state of one save.
type Session struct {
	deps Dependencies
	cfg  Config
	log  *slog.Logger

	info     model.SaveInfo
	pack     *defaults.Pack
	store    *databody.Store
	expected []databody.Key

	phase  Phase
	gen    *generator.Generator
	loader *catalogue.Loader
	cat    *catalogue.Catalogue

	sensors    []*scanner.Sensor
	lastState  map[*scanner.Sensor]scanner.State
	sinceTally time.Duration
}

// Open loads the save header and data bodies and plans raster generation.
// The session starts in the Generating phase; call Tick or Run to advance it.
func Open(ctx context.Context, deps Dependencies, cfg Config) (*Session, error) {
	if deps.Env == nil || deps.Library == nil || deps.Backend == nil {
		return nil, errors.New("session: missing dependency")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = time.Minute
	}
	cfg.Map = withMapDefaults(cfg.Map)

	s := &Session{
		deps:      deps,
		cfg:       cfg,
		log:       deps.Logger.With("save", filepath.Base(cfg.SaveDir)),
		lastState: make(map[*scanner.Sensor]scanner.State),
	}

	if err := s.loadHeader(ctx); err != nil {
		return nil, err
	}

	s.expected = databody.ExpectedKeys(deps.Env)
	s.store = databody.NewStore(deps.Backend, s.log)
	rebuilt, err := s.store.Load(ctx, s.expected)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		s.log.Info("Data bodies rebuilt", "entries", len(s.expected))
	}

	jobs := generator.PlanJobs(s.pack, deps.Env, cfg.SaveDir)
	s.gen, err = generator.New(generator.Dependencies{
		Env:      deps.Env,
		Logger:   s.log,
		OnResult: s.onResult,
	}, cfg.Map, jobs)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	s.log.Info("Session opened", "pack", s.pack.Name, "jobs", len(jobs), "generated", s.info.Generated)
	return s, nil
}

func withMapDefaults(o generator.Options) generator.Options {
	d := generator.DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.RowsPerSlice <= 0 {
		o.RowsPerSlice = d.RowsPerSlice
	}
	if o.Noise == "" {
		o.Noise = d.Noise
	}
	return o
}

func (s *Session) loadHeader(ctx context.Context) error {
	info, err := s.deps.Backend.LoadSaveInfo(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		info = &model.SaveInfo{ID: model.SaveInfoID}
	case err != nil:
		return fmt.Errorf("load save header: %w", err)
	}

	if info.Pack != "" {
		if p, err := s.deps.Library.Pack(info.Pack); err == nil {
			s.pack = p
		} else {
			s.log.Warn("Save refers to a missing pack, selecting another", "error", err)
		}
	}
	if s.pack == nil {
		p, err := s.deps.Library.Select(s.cfg.Pack)
		if err != nil {
			return fmt.Errorf("select pack: %w", err)
		}
		s.pack = p
		info.Generated = false
	}
	if info.MapWidth != s.cfg.Map.Width || info.MapHeight != s.cfg.Map.Height {
		info.Generated = false
	}

	info.Pack = s.pack.Name
	info.MapWidth = s.cfg.Map.Width
	info.MapHeight = s.cfg.Map.Height
	s.info = *info
	return nil
}

// Tick performs one bounded unit of startup work and returns the phase after it.
func (s *Session) Tick(ctx context.Context) (Phase, error) {
	switch s.phase {
	case Generating:
		if s.gen.Step(ctx) {
			s.info.Generated = true
			if err := s.storeHeader(ctx); err != nil {
				return s.phase, err
			}
			s.loader = catalogue.NewLoader(catalogue.Dependencies{
				Env:     s.deps.Env,
				Pack:    s.pack,
				Backend: s.deps.Backend,
				Logger:  s.log,
				Rand:    s.rand(),
			}, catalogue.Options{SaveDir: s.cfg.SaveDir, Width: s.cfg.Map.Width, Height: s.cfg.Map.Height})
			s.phase = Loading
		}
	case Loading:
		done, err := s.loader.Step(ctx)
		if err != nil {
			return s.phase, err
		}
		if done {
			s.cat = s.loader.Catalogue()
			s.phase = Ready
			s.log.Info("Resources loaded", "bodies", len(s.cat.Bodies()), "items", s.cat.Len())
		}
	}
	return s.phase, nil
}

func (s *Session) rand() *rand.Rand {
	if s.cfg.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
}

// Run ticks until the session is ready or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for s.phase != Ready {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Phase() Phase { return s.phase }

// Progress is the startup progress in [0, 1]. Generation counts for most of it.
func (s *Session) Progress() float64 {
	switch s.phase {
	case Generating:
		return 0.8 * s.gen.Progress()
	case Loading:
		return 0.8 + 0.2*s.loader.Progress()
	default:
		return 1
	}
}

func (s *Session) Pack() *defaults.Pack            { return s.pack }
func (s *Session) Store() *databody.Store          { return s.store }
func (s *Session) SaveDir() string                 { return s.cfg.SaveDir }
func (s *Session) Name() string                    { return filepath.Base(s.cfg.SaveDir) }
func (s *Session) Info() model.SaveInfo            { return s.info }
func (s *Session) Generator() *generator.Generator { return s.gen }
func (s *Session) Environment() host.Environment   { return s.deps.Env }
func (s *Session) MapOptions() generator.Options   { return s.cfg.Map }
func (s *Session) ExpectedKeys() []databody.Key    { return s.expected }
func (s *Session) Catalogue() *catalogue.Catalogue { return s.cat }

func (s *Session) storeHeader(ctx context.Context) error {
	s.info.UpdatedAt = s.deps.Now()
	info := s.info
	if err := s.deps.Backend.StoreSaveInfo(ctx, &info); err != nil {
		return fmt.Errorf("store save header: %w", err)
	}
	return nil
}

// Save writes the touched data bodies and the save header.
func (s *Session) Save(ctx context.Context) error {
	err := s.store.Save(ctx)
	return errors.Join(err, s.storeHeader(ctx))
}

// Reset drops all scan progress of the save and returns mounted sensors to Idle.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx, s.expected); err != nil {
		return err
	}
	for _, sensor := range s.sensors {
		sensor.Reload()
		s.lastState[sensor] = sensor.State()
	}
	s.log.Info("Scan progress reset", "entries", len(s.expected), "sensors", len(s.sensors))
	return nil
}

// Close saves and releases the sensors. The backend belongs to the caller.
func (s *Session) Close(ctx context.Context) error {
	err := s.Save(ctx)
	s.sensors = nil
	s.lastState = make(map[*scanner.Sensor]scanner.State)
	return err
}

package catalogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage"
)

// Dependencies holds the collaborators of a Loader.
type Dependencies struct {
	Env     host.Environment
	Pack    *defaults.Pack
	Backend storage.Backend
	Logger  *slog.Logger
	// Rand draws values for items that have none persisted yet.
	Rand *rand.Rand
}

// Options locate the rasters.
type Options struct {
	SaveDir string
	Width   int
	Height  int
}

type itemKey struct {
	Type, Body, Name string
}

// Loader builds a Catalogue one body per step.
type Loader struct {
	deps Dependencies
	opts Options

	bodies    []defaults.Body
	next      int
	persisted map[itemKey]model.ResourceItem
	cat       *Catalogue
}

// NewLoader prepares a loader for the pack bodies the environment knows about.
func NewLoader(deps Dependencies, opts Options) *Loader {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	l := &Loader{deps: deps, opts: opts, cat: newCatalogue()}
	for _, b := range deps.Pack.Bodies {
		if _, ok := deps.Env.Capabilities(b.Name); !ok {
			deps.Logger.Warn("Pack body unknown to host, skipping", "pack", deps.Pack.Name, "body", b.Name)
			continue
		}
		l.bodies = append(l.bodies, b)
	}
	return l
}

// Step loads the persisted values on the first call and one body on each
// call after that.
func (l *Loader) Step(ctx context.Context) (bool, error) {
	if l.persisted == nil {
		rows, err := l.deps.Backend.LoadResourceItems(ctx)
		if err != nil {
			return false, fmt.Errorf("load resource items: %w", err)
		}
		l.persisted = make(map[itemKey]model.ResourceItem, len(rows))
		for _, r := range rows {
			l.persisted[itemKey{r.Type, r.Body, r.Name}] = r
		}
		return l.Done(), nil
	}
	if l.Done() {
		return true, nil
	}

	body := l.bodies[l.next]
	l.next++
	if err := l.loadBody(ctx, body); err != nil {
		return false, err
	}
	return l.Done(), nil
}

func (l *Loader) loadBody(ctx context.Context, body defaults.Body) error {
	caps, _ := l.deps.Env.Capabilities(body.Name)
	var changed []model.ResourceItem

	for _, def := range body.Resources {
		log := l.deps.Logger.With("body", body.Name, "resource", def.Name, "type", def.Type.String())
		if !def.Type.AppliesTo(caps) {
			log.Debug("Resource type does not apply to body, skipping")
			continue
		}

		key := itemKey{def.Type.String(), body.Name, def.Name}
		prev, havePrev := l.persisted[key]
		item := resource.Item{
			Name:   def.Name,
			Type:   def.Type,
			Colour: l.deps.Pack.Colour(def.Name),
		}

		switch def.Type {
		case resource.Mineral:
			path := raster.Path(l.opts.SaveDir, body.Name, def.Name)
			r, err := raster.Load(path, l.opts.Width, l.opts.Height)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					log.Warn("Skipping resource", "reason", "no raster")
				} else {
					log.Warn("Skipping resource", "reason", "unusable raster", "error", err)
				}
				continue
			}
			item.RasterPath = path
			item.ActualDensity = r.Coverage()
		case resource.Liquid, resource.Gaseous:
			if havePrev {
				item.ActualDensity = prev.ActualDensity
			} else {
				item.ActualDensity = resource.JitterDensity(def.Density, l.deps.Rand)
			}
		default:
			return fmt.Errorf("%w: %v", resource.ErrUnknownType, def.Type)
		}

		if havePrev {
			item.ActualError = prev.ActualError
		} else {
			item.ActualError = resource.DrawError(l.deps.Rand)
		}

		if !havePrev || prev.ActualDensity != item.ActualDensity {
			changed = append(changed, model.ResourceItem{
				Type:          key.Type,
				Body:          key.Body,
				Name:          key.Name,
				ActualDensity: item.ActualDensity,
				ActualError:   item.ActualError,
				UpdatedAt:     time.Now(),
			})
		}
		l.cat.add(body.Name, item)
	}

	if len(changed) > 0 {
		if err := l.deps.Backend.UpsertResourceItems(ctx, changed); err != nil {
			return fmt.Errorf("persist resource items for %s: %w", body.Name, err)
		}
	}
	return nil
}

// Done reports whether every body is loaded.
func (l *Loader) Done() bool {
	return l.persisted != nil && l.next >= len(l.bodies)
}

// Progress is the fraction of bodies loaded.
func (l *Loader) Progress() float64 {
	if l.persisted == nil {
		return 0
	}
	if len(l.bodies) == 0 {
		return 1
	}
	return float64(l.next) / float64(len(l.bodies))
}

// Catalogue returns the items loaded so far; complete once Done.
func (l *Loader) Catalogue() *Catalogue {
	return l.cat
}

// Run steps until done or ctx is cancelled.
func (l *Loader) Run(ctx context.Context) (*Catalogue, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done, err := l.Step(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			return l.cat, nil
		}
	}
}

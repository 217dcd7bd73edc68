// Package generator renders the mineral distribution rasters of a resource pack,
// a bounded number of rows per slice so the host can keep running between slices.
package generator

import (
	"image/color"

	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/noise"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/kres-mod/kres/internal/resource"
)

// Options control the raster size and the time slicing.
type Options struct {
	Width  int
	Height int
	// RowsPerSlice bounds the rows rendered before control returns to the host.
	RowsPerSlice int
	Noise        noise.Kind
}

// DefaultOptions match the stock map size.
func DefaultOptions() Options {
	return Options{Width: 1440, Height: 720, RowsPerSlice: 90, Noise: noise.KindSimplex}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
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

// Job is one raster to render.
type Job struct {
	Body   string
	Def    resource.Definition
	Colour color.NRGBA
	Path   string
}

// PlanJobs lists the ore rasters of a pack for the bodies the host knows about
// and that have a surface. Bodies the host does not know are skipped.
func PlanJobs(pack *defaults.Pack, env host.Environment, saveDir string) []Job {
	var jobs []Job
	for _, body := range pack.Bodies {
		caps, ok := env.Capabilities(body.Name)
		if !ok || !resource.Mineral.AppliesTo(caps) {
			continue
		}
		for _, def := range body.Resources {
			if def.Type != resource.Mineral {
				continue
			}
			jobs = append(jobs, Job{
				Body:   body.Name,
				Def:    def,
				Colour: pack.Colour(def.Name),
				Path:   raster.Path(saveDir, body.Name, def.Name),
			})
		}
	}
	return jobs
}

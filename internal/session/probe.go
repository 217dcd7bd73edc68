package session

import (
	"errors"
	"fmt"

	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/geo"
	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage"
)

// ErrUnknownResource is returned when a probe names no ore of the pack.
var ErrUnknownResource = errors.New("unknown resource")

// ProbeResult is the raster value at one location.
type ProbeResult struct {
	Body      string  `json:"body"`
	Resource  string  `json:"resource"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Opacity   float32 `json:"opacity"`
	// Location is the point in EPSG:3857, as WKT.
	Location string `json:"location"`
}

// Probe reads the generated raster of an ore at a latitude and longitude.
func (s *Session) Probe(body, name string, lat, lon float64) (ProbeResult, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ProbeResult{}, fmt.Errorf("%w: %v,%v", geo.ErrInvalidCoordinates, lat, lon)
	}
	if _, ok := s.pack.Definition(body, name, resource.Mineral); !ok {
		if hint := defaults.Suggest(name, s.pack.ResourceNames(resource.Mineral)); hint != "" {
			return ProbeResult{}, fmt.Errorf("%w: %s on %s (did you mean %q?)", ErrUnknownResource, name, body, hint)
		}
		return ProbeResult{}, fmt.Errorf("%w: %s on %s", ErrUnknownResource, name, body)
	}

	r, err := raster.Load(raster.Path(s.cfg.SaveDir, body, name), s.cfg.Map.Width, s.cfg.Map.Height)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("load raster: %w", err)
	}
	x, y := geo.LatLonToPixel(lat, lon, r.Width, r.Height)
	point := geo.ProbePoint(lat, lon)

	res := ProbeResult{
		Body:      body,
		Resource:  name,
		Latitude:  lat,
		Longitude: lon,
		X:         x,
		Y:         y,
		Opacity:   r.At(x, y),
		Location:  point.AsText(),
	}

	if rec, ok := s.deps.Backend.(storage.Recorder); ok {
		err := rec.RecordProbe(&model.ProbeReport{
			Time:      s.deps.Now(),
			Body:      body,
			Resource:  name,
			Latitude:  lat,
			Longitude: lon,
			Opacity:   res.Opacity,
			Location:  point,
		})
		if err != nil {
			s.log.Warn("Failed to record probe", "body", body, "resource", name, "error", err)
		}
	}
	return res, nil
}

package session

import (
	"encoding/json"
	"math"

	"github.com/kres-mod/kres/internal/generator"
	"github.com/kres-mod/kres/internal/influx"
	"github.com/kres-mod/kres/internal/model"
	"github.com/kres-mod/kres/internal/resource"
	"github.com/kres-mod/kres/internal/storage"
	"gorm.io/datatypes"
)

func (s *Session) onResult(res generator.Result) {
	now := s.deps.Now()

	if rec, ok := s.deps.Backend.(storage.Recorder); ok {
		run := &model.GenerationRun{
			Time:       now,
			Pack:       s.pack.Name,
			Body:       res.Job.Body,
			Resource:   res.Job.Def.Name,
			Coverage:   res.Coverage,
			DurationMs: float32(res.Duration.Milliseconds()),
			Skipped:    res.Skipped,
			Reason:     res.Reason,
			Params:     definitionParams(res.Job.Def),
		}
		if err := rec.RecordGenerationRun(run); err != nil {
			s.log.Warn("Failed to record generation run", "body", res.Job.Body, "resource", res.Job.Def.Name, "error", err)
		}
	}

	if s.deps.Points != nil {
		p := influx.GenerationPoint(s.pack.Name, res.Job.Body, res.Job.Def.Name, res.Coverage, res.Duration, res.Skipped, res.Reason, now)
		if err := s.deps.Points.WritePoint(p); err != nil {
			s.log.Debug("Failed to write generation point", "error", err)
		}
	}
}

// definitionParams snapshots the generation parameters. Unbounded altitudes
// are left out since JSON has no NaN.
func definitionParams(d resource.Definition) datatypes.JSON {
	params := map[string]any{
		"type":        d.Type.String(),
		"density":     d.Density,
		"octaves":     d.Octaves,
		"persistence": d.Persistence,
		"frequency":   d.Frequency,
		"seed":        d.Seed,
	}
	if !math.IsNaN(d.MinAltitude) {
		params["minAltitude"] = d.MinAltitude
	}
	if !math.IsNaN(d.MaxAltitude) {
		params["maxAltitude"] = d.MaxAltitude
	}
	if len(d.Biomes) > 0 {
		params["biomes"] = d.Biomes
	}
	if len(d.ExcludedBiomes) > 0 {
		params["excludedBiomes"] = d.ExcludedBiomes
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

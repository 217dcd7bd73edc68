package defaults

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/kres-mod/kres/internal/resource"
	"github.com/spf13/viper"
)

// ErrBadColour is returned for colour strings that are not "r, g, b[, a]".
var ErrBadColour = errors.New("invalid colour")

type packFile struct {
	Name         string      `mapstructure:"name"`
	Description  string      `mapstructure:"description"`
	ResourceInfo []infoEntry `mapstructure:"resourceInfo"`
	Bodies       []bodyEntry `mapstructure:"bodies"`
}

type infoEntry struct {
	Name     string `mapstructure:"name"`
	RealName string `mapstructure:"realName"`
	Colour   string `mapstructure:"colour"`
}

type bodyEntry struct {
	Name      string          `mapstructure:"name"`
	Resources []resourceEntry `mapstructure:"resources"`
}

type resourceEntry struct {
	Name           string   `mapstructure:"name"`
	Type           string   `mapstructure:"type"`
	Density        float64  `mapstructure:"density"`
	Octaves        float64  `mapstructure:"octaves"`
	Persistence    float64  `mapstructure:"persistence"`
	Frequency      float64  `mapstructure:"frequency"`
	MinAltitude    *float64 `mapstructure:"minAltitude"`
	MaxAltitude    *float64 `mapstructure:"maxAltitude"`
	Biomes         []string `mapstructure:"biomes"`
	ExcludedBiomes []string `mapstructure:"excludedBiomes"`
	Seed           *int64   `mapstructure:"seed"`
}

// ParsePack decodes a pack from a loaded viper instance. Resources that cannot be
// used are dropped and reported in the returned slice; the pack itself is only
// rejected when it has no name.
func ParsePack(v *viper.Viper) (*Pack, []error) {
	var raw packFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, []error{fmt.Errorf("decode pack: %w", err)}
	}
	if raw.Name == "" {
		return nil, []error{errors.New("pack has no name")}
	}

	var problems []error
	pack := &Pack{
		Name:        raw.Name,
		Description: raw.Description,
		Info:        make(map[string]ResourceInfo, len(raw.ResourceInfo)),
	}

	for _, e := range raw.ResourceInfo {
		c, err := ParseColour(e.Colour)
		if err != nil {
			problems = append(problems, fmt.Errorf("pack %s: resource info %s: %w", raw.Name, e.Name, err))
			c = defaultColour
		}
		pack.Info[e.Name] = ResourceInfo{Name: e.Name, RealName: e.RealName, Colour: c}
	}

	for _, b := range raw.Bodies {
		if b.Name == "" {
			problems = append(problems, fmt.Errorf("pack %s: body without a name", raw.Name))
			continue
		}
		body := Body{Name: b.Name}
		for _, r := range b.Resources {
			def, err := r.definition(raw.Name, b.Name)
			if err != nil {
				problems = append(problems, fmt.Errorf("pack %s: body %s: %w", raw.Name, b.Name, err))
				continue
			}
			body.Resources = append(body.Resources, def)
		}
		pack.Bodies = append(pack.Bodies, body)
	}
	return pack, problems
}

func (r resourceEntry) definition(pack, body string) (resource.Definition, error) {
	t, err := resource.ParseType(r.Type)
	if err != nil {
		if s := Suggest(r.Type, resource.TypeNames()); s != "" {
			return resource.Definition{}, fmt.Errorf("%s: %w (did you mean %q?)", r.Name, err, s)
		}
		return resource.Definition{}, fmt.Errorf("%s: %w", r.Name, err)
	}

	d := resource.NewDefinition(r.Name, t)
	d.Density = r.Density
	d.Octaves = int(r.Octaves)
	d.Persistence = r.Persistence
	d.Frequency = r.Frequency
	d.Biomes = r.Biomes
	d.ExcludedBiomes = r.ExcludedBiomes
	if r.MinAltitude != nil {
		d.MinAltitude = *r.MinAltitude
	}
	if r.MaxAltitude != nil {
		d.MaxAltitude = *r.MaxAltitude
	}
	if r.Seed != nil {
		d.Seed = *r.Seed
	} else if t.Rasterized() {
		d.Seed = DeriveSeed(pack, body, r.Name)
	}

	// inert definitions stay in the pack; the generator reports and skips them
	if err := d.Validate(); err != nil && !errors.Is(err, resource.ErrInertDefinition) {
		return resource.Definition{}, err
	}
	return d, nil
}

// DeriveSeed gives a stable seed for a resource that has none configured.
func DeriveSeed(pack, body, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(pack))
	h.Write([]byte{0})
	h.Write([]byte(body))
	h.Write([]byte{0})
	h.Write([]byte(name))
	return int64(h.Sum64() % 999999999)
}

// ParseColour reads "r, g, b" or "r, g, b, a" with components in [0, 1].
// An empty string yields white with zero alpha.
func ParseColour(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultColour, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrBadColour, s)
	}
	vals := [4]uint8{0, 0, 0, 255}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 || f > 1 || math.IsNaN(f) {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrBadColour, s)
		}
		vals[i] = uint8(math.Round(f * 255))
	}
	return color.NRGBA{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, nil
}

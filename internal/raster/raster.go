// Package raster stores per-pixel opacity grids for mineral distributions and
// persists them as PNG images.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// ErrDimensionMismatch is returned when a stored raster does not match the configured map size.
var ErrDimensionMismatch = errors.New("raster dimension mismatch")

// TextureDir is the directory under the save folder that holds generated rasters.
const TextureDir = "KRESTextures"

// Raster is a row-major grid of opacities in [0, 1]. Row 0 is the south pole.
type Raster struct {
	Width  int
	Height int
	Pix    []float32
}

// New allocates a transparent raster.
func New(w, h int) *Raster {
	return &Raster{Width: w, Height: h, Pix: make([]float32, w*h)}
}

func (r *Raster) At(x, y int) float32 {
	return r.Pix[y*r.Width+x]
}

func (r *Raster) Set(x, y int, v float32) {
	r.Pix[y*r.Width+x] = v
}

// NonZero counts the pixels with a nonzero opacity.
func (r *Raster) NonZero() int {
	n := 0
	for _, v := range r.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Coverage is the fraction of pixels with a nonzero opacity.
func (r *Raster) Coverage() float64 {
	if len(r.Pix) == 0 {
		return 0
	}
	return float64(r.NonZero()) / float64(len(r.Pix))
}

// Path returns where the raster for a body/resource pair lives.
func Path(saveDir, body, name string) string {
	return filepath.Join(saveDir, TextureDir, body, name+".png")
}

// Encode writes the raster as an image tinted with c. Opacity becomes the alpha
// channel and the image rows are flipped so north is up.
func Encode(w io.Writer, r *Raster, c color.NRGBA) error {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		row := r.Height - 1 - y
		for x := 0; x < r.Width; x++ {
			a := r.At(x, y)
			px := color.NRGBA{R: c.R, G: c.G, B: c.B, A: alphaOf(a)}
			if px.A == 0 {
				px = color.NRGBA{}
			}
			img.SetNRGBA(x, row, px)
		}
	}
	return png.Encode(w, img)
}

// alphaOf never rounds a nonzero opacity down to a transparent pixel.
func alphaOf(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	a := int(v*255 + 0.5)
	return uint8(max(1, min(255, a)))
}

// Decode reads an image written by Encode.
func Decode(rd io.Reader) (*Raster, error) {
	img, err := png.Decode(rd)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	r := New(b.Dx(), b.Dy())
	for y := 0; y < r.Height; y++ {
		row := b.Min.Y + r.Height - 1 - y
		for x := 0; x < r.Width; x++ {
			px := color.NRGBAModel.Convert(img.At(b.Min.X+x, row)).(color.NRGBA)
			r.Set(x, y, float32(px.A)/255)
		}
	}
	return r, nil
}

// Save writes the raster to path, creating parent directories. The file is
// replaced atomically so a crash never leaves a partial image behind.
func Save(path string, r *Raster, c color.NRGBA) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create raster dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".raster-*")
	if err != nil {
		return fmt.Errorf("create raster: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, r, c); err != nil {
		tmp.Close()
		return fmt.Errorf("encode raster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close raster: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a raster and checks it against the expected size.
func Load(path string, w, h int) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if r.Width != w || r.Height != h {
		return nil, fmt.Errorf("%w: %s is %dx%d, expected %dx%d", ErrDimensionMismatch, path, r.Width, r.Height, w, h)
	}
	return r, nil
}

// Exists reports whether a raster file is present.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

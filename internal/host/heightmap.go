package host

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrBadHeightmap is returned for truncated or malformed heightmap files.
var ErrBadHeightmap = errors.New("malformed heightmap")

// Heightmap is a row-major grid of terrain altitudes.
//
// On disk it is two little-endian uint16 values (width, height) followed by
// width*height little-endian float32 altitudes.
type Heightmap struct {
	w, h int
	data []float32
}

// NewHeightmap allocates a flat heightmap.
func NewHeightmap(w, h int) *Heightmap {
	return &Heightmap{w: w, h: h, data: make([]float32, w*h)}
}

func (m *Heightmap) Width() int  { return m.w }
func (m *Heightmap) Height() int { return m.h }

func (m *Heightmap) At(x, y int) float64 {
	return float64(m.data[y*m.w+x])
}

func (m *Heightmap) Set(x, y int, alt float64) {
	m.data[y*m.w+x] = float32(alt)
}

// ReadHeightmap decodes a heightmap stream.
func ReadHeightmap(r io.Reader) (*Heightmap, error) {
	var dims [2]uint16
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrBadHeightmap, err)
	}
	m := NewHeightmap(int(dims[0]), int(dims[1]))
	if err := binary.Read(r, binary.LittleEndian, m.data); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrBadHeightmap, err)
	}
	for _, v := range m.data {
		if math.IsNaN(float64(v)) {
			return nil, fmt.Errorf("%w: NaN altitude", ErrBadHeightmap)
		}
	}
	return m, nil
}

// WriteTo encodes the heightmap.
func (m *Heightmap) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, [2]uint16{uint16(m.w), uint16(m.h)}); err != nil {
		return 0, err
	}
	if err := binary.Write(bw, binary.LittleEndian, m.data); err != nil {
		return 0, err
	}
	return int64(4 + 4*len(m.data)), bw.Flush()
}

// LoadHeightmap reads a heightmap file.
func LoadHeightmap(path string) (*Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHeightmap(bufio.NewReader(f))
}

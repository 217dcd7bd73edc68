package main

import (
	"fmt"
	"image/color"

	"github.com/gdamore/tcell/v2"
	"github.com/kres-mod/kres/internal/config"
	"github.com/kres-mod/kres/internal/raster"
	"github.com/spf13/viper"
)

// shades are drawn from empty to full opacity.
var shades = []rune{' ', '░', '▒', '▓', '█'}

// downsample averages the raster into a cols x rows grid.
func downsample(r *raster.Raster, cols, rows int) [][]float32 {
	out := make([][]float32, rows)
	for y := range rows {
		out[y] = make([]float32, cols)
		y0, y1 := y*r.Height/rows, (y+1)*r.Height/rows
		if y1 == y0 {
			y1 = y0 + 1
		}
		for x := range cols {
			x0, x1 := x*r.Width/cols, (x+1)*r.Width/cols
			if x1 == x0 {
				x1 = x0 + 1
			}
			var sum float32
			n := 0
			for py := y0; py < y1 && py < r.Height; py++ {
				for px := x0; px < x1 && px < r.Width; px++ {
					sum += r.At(px, py)
					n++
				}
			}
			if n > 0 {
				out[y][x] = sum / float32(n)
			}
		}
	}
	return out
}

func shade(v float32) rune {
	if v <= 0 {
		return shades[0]
	}
	i := 1 + int(v*float32(len(shades)-1))
	if i >= len(shades) {
		i = len(shades) - 1
	}
	return shades[i]
}

// drawRaster renders the raster north up over the whole screen but the last
// line, which carries the title.
func drawRaster(screen tcell.Screen, r *raster.Raster, c color.NRGBA, title string) {
	screen.Clear()
	cols, rows := screen.Size()
	if cols <= 0 || rows <= 1 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	if c.A == 0 {
		style = tcell.StyleDefault
	}
	grid := downsample(r, cols, rows-1)
	for y, line := range grid {
		sy := len(grid) - 1 - y
		for x, v := range line {
			screen.SetContent(x, sy, shade(v), nil, style)
		}
	}
	for i, ch := range []rune(title) {
		if i >= cols {
			break
		}
		screen.SetContent(i, rows-1, ch, nil, tcell.StyleDefault.Reverse(true))
	}
	screen.Show()
}

func runPreview(body, name string) error {
	mapCfg := config.GetMapConfig()
	path := raster.Path(viper.GetString("saveDir"), body, name)
	r, err := raster.Load(path, mapCfg.Width, mapCfg.Height)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	title := fmt.Sprintf(" %s / %s  coverage %.2f%%  (q to quit) ", body, name, r.Coverage()*100)
	drawRaster(screen, r, c, title)

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			drawRaster(screen, r, c, title)
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				return nil
			}
		case nil:
			return nil
		}
	}
}

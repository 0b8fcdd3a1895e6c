/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package meter

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"hdxmeter/pkg/spec"
)

// Reading is what one frame showed.
type Reading struct {
	Level       float64
	NeedleAngle float64
	Label       string
}

// Zone colours the arc up to Upto (a fraction of the range).
type Zone struct {
	Upto  float64
	Color color.Color
}

// Gauge paints a needle meter over an arc from Start to End, in radians and
// screen coordinates.
type Gauge struct {
	Start, End float64
	Zones      []Zone

	Background color.Color
	Track      color.Color
	Needle     color.Color
	Text       color.Color
	Face       font.Face
}

func NewGauge() *Gauge {
	return &Gauge{
		Start: spec.GaugeStartAngle,
		End:   spec.GaugeEndAngle,
		Zones: []Zone{
			{Upto: spec.ZoneSafe, Color: colornames.Seagreen},
			{Upto: spec.ZoneCaution, Color: colornames.Goldenrod},
			{Upto: 1, Color: colornames.Crimson},
		},
		Background: colornames.Black,
		Track:      colornames.Dimgray,
		Needle:     colornames.White,
		Text:       colornames.Whitesmoke,
		Face:       basicfont.Face7x13,
	}
}

// Angle maps a level onto the arc.
func (g *Gauge) Angle(level float64) float64 {
	return g.Start + clampLevel(level)*(g.End-g.Start)
}

// geometry returns the pivot and radius for a canvas of size b.
func (g *Gauge) geometry(b image.Rectangle) (cx, cy, radius float64) {
	w, h := float64(b.Dx()), float64(b.Dy())
	cx = w / 2
	cy = h - 20
	radius = math.Min(cx, cy) - 8
	return cx, cy, math.Max(radius, 1)
}

// Draw repaints dst completely and returns the reading it shows.
func (g *Gauge) Draw(dst draw.Image, level float64) Reading {
	level = clampLevel(level)
	reading := Reading{
		Level:       level,
		NeedleAngle: g.Angle(level),
		Label:       fmt.Sprintf("%d%%", int(math.Round(level*100))),
	}

	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(g.Background), image.Point{}, draw.Src)
	if b.Empty() {
		return reading
	}
	cx, cy, radius := g.geometry(b)
	z := vector.NewRasterizer(b.Dx(), b.Dy())

	g.band(dst, z, cx, cy, radius*0.70, radius*0.74, g.Start, g.End, g.Track)
	from := 0.0
	for _, zone := range g.Zones {
		upto := clampLevel(zone.Upto)
		if upto <= from {
			continue
		}
		g.band(dst, z, cx, cy, radius*0.78, radius, g.Angle(from), g.Angle(upto), zone.Color)
		from = upto
	}

	// 3px needle with a round hub.
	length := radius * 0.9
	dx, dy := math.Cos(reading.NeedleAngle), math.Sin(reading.NeedleAngle)
	nx, ny := -dy*1.5, dx*1.5
	z.Reset(b.Dx(), b.Dy())
	z.MoveTo(float32(cx+nx), float32(cy+ny))
	z.LineTo(float32(cx+dx*length+nx), float32(cy+dy*length+ny))
	z.LineTo(float32(cx+dx*length-nx), float32(cy+dy*length-ny))
	z.LineTo(float32(cx-nx), float32(cy-ny))
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(g.Needle), image.Point{})
	g.band(dst, z, cx, cy, 0, 5, 0, 2*math.Pi, g.Needle)

	if g.Face != nil {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(g.Text),
			Face: g.Face,
		}
		width := d.MeasureString(reading.Label).Round()
		d.Dot = fixed.P(b.Min.X+int(cx)-width/2, b.Min.Y+int(cy)+g.Face.Metrics().Ascent.Ceil()+4)
		d.DrawString(reading.Label)
	}
	return reading
}

// band fills the ring sector between radii r0 and r1 from angle a0 to a1.
func (g *Gauge) band(dst draw.Image, z *vector.Rasterizer, cx, cy, r0, r1, a0, a1 float64, c color.Color) {
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
	steps := max(int(math.Abs(a1-a0)/(math.Pi/96))+1, 2)

	point := func(r, a float64) (float32, float32) {
		return float32(cx + r*math.Cos(a)), float32(cy + r*math.Sin(a))
	}
	z.MoveTo(point(r1, a0))
	for i := 1; i <= steps; i++ {
		z.LineTo(point(r1, a0+(a1-a0)*float64(i)/float64(steps)))
	}
	if r0 > 0 {
		for i := steps; i >= 0; i-- {
			z.LineTo(point(r0, a0+(a1-a0)*float64(i)/float64(steps)))
		}
	} else {
		z.LineTo(float32(cx), float32(cy))
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func clampLevel(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layout

import (
	"math"

	"github.com/gogpu/watermark/poisson"
)

// spread returns a value in [-width/2, width/2).
func (g *Generator) spread(width float64) float64 {
	return (g.rng.Float64() - 0.5) * width
}

// between returns a value in [lo, hi).
func (g *Generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Diagonal tiles [-width, 2·width)×[-height, 2·height) with the given
// spacing. The overflow guarantees edge coverage even after the whole layer
// is rotated. With jitter, each anchor moves by up to ±spacing·0.1 and the
// rotation varies by ±RotationVariance/2 around baseRotation.
func (g *Generator) Diagonal(width, height, spacing, baseRotation float64, jitter bool) []Placement {
	if spacing <= 0 {
		return nil
	}
	amount := spacing * 0.2

	var out []Placement
	for x := -width; x < width*2; x += spacing {
		for y := -height; y < height*2; y += spacing {
			p := Placement{X: x, Y: y, Rotation: baseRotation, Scale: 1, Opacity: 1}
			if jitter {
				p.X += g.spread(amount)
				p.Y += g.spread(amount)
				p.Rotation += g.spread(RotationVariance)
				p.Scale = g.between(0.9, 1.1)
				p.Opacity = g.between(0.9, 1.0)
			}
			out = append(out, p)
		}
	}
	return out
}

var gridRotations = [...]float64{0, 45, -45, 90}

// Grid places a stamp at every multiple of spacing strictly inside the page.
// Each stamp picks one of 0°, 45°, -45° or 90° on top of baseRotation.
func (g *Generator) Grid(width, height, spacing, baseRotation float64) []Placement {
	if spacing <= 0 {
		return nil
	}
	var out []Placement
	for x := spacing; x < width; x += spacing {
		for y := spacing; y < height; y += spacing {
			out = append(out, Placement{
				X:        x,
				Y:        y,
				Rotation: baseRotation + gridRotations[g.rng.IntN(len(gridRotations))],
				Scale:    g.between(0.8, 1.2),
				Opacity:  g.between(0.7, 1.0),
			})
		}
	}
	return out
}

// CornerLayers is the number of stacked stamps per corner.
const CornerLayers = 3

// Corners stacks CornerLayers stamps in each corner, margin px from both
// edges. Deeper layers are smaller, fainter and scattered further. Corners
// are emitted top-left, top-right, bottom-left, bottom-right, with base
// rotations 0°, 90°, -90° and 180°.
func (g *Generator) Corners(width, height, margin float64) []Placement {
	anchors := [4]struct{ x, y, rotation float64 }{
		{margin, margin, 0},
		{width - margin, margin, 90},
		{margin, height - margin, -90},
		{width - margin, height - margin, 180},
	}

	out := make([]Placement, 0, len(anchors)*CornerLayers)
	for _, a := range anchors {
		for layer := range CornerLayers {
			offset := float64(layer) * 20
			out = append(out, Placement{
				X:        a.x + g.spread(offset),
				Y:        a.y + g.spread(offset),
				Rotation: a.rotation + g.spread(30),
				Scale:    1 - float64(layer)*0.2,
				Opacity:  1 - float64(layer)*0.3,
			})
		}
	}
	return out
}

// Random scatters floor(width·height·density/10000) stamps with Poisson-disk
// sampling at MinSpacing. A zero target yields no stamps.
func (g *Generator) Random(width, height, density, baseRotation float64) ([]Placement, error) {
	target := int(math.Floor(width * height * density / 10000))
	if target <= 0 {
		return nil, nil
	}

	pts, err := poisson.Sample(g.rng, width, height, MinSpacing, target)
	if err != nil {
		return nil, err
	}

	out := make([]Placement, len(pts))
	for i, p := range pts {
		out[i] = Placement{
			X:        p.X,
			Y:        p.Y,
			Rotation: baseRotation + g.spread(RotationVariance),
			Scale:    g.between(0.8, 1.2),
			Opacity:  g.between(0.8, 1.0),
		}
	}
	return out, nil
}

// SpiralTurns is the number of revolutions of the spiral pattern.
const SpiralTurns = 3

// Spiral walks SpiralTurns revolutions outward from the page centre with
// floor(50·density) stamps per turn, each rotated tangent to the curve.
// The radius reaches min(width, height)/2 at the last turn. Points that
// leave the page are dropped rather than clamped.
func (g *Generator) Spiral(width, height, density float64) []Placement {
	perTurn := int(math.Floor(50 * density))
	if perTurn <= 0 {
		return nil
	}

	cx, cy := width/2, height/2
	maxRadius := math.Min(width, height) / 2

	var out []Placement
	for turn := range SpiralTurns {
		for point := range perTurn {
			t := float64(turn) + float64(point)/float64(perTurn)
			angle := t * 2 * math.Pi
			radius := t * maxRadius / SpiralTurns

			x := cx + math.Cos(angle)*radius
			y := cy + math.Sin(angle)*radius
			if x < 0 || x > width || y < 0 || y > height {
				continue
			}
			out = append(out, Placement{
				X:        x,
				Y:        y,
				Rotation: angle*180/math.Pi + 90,
				Scale:    g.between(0.8, 1.2),
				Opacity:  g.between(0.8, 1.0),
			})
		}
	}
	return out
}

// Adaptive tuning.
const (
	// AdaptiveCellSize is the edge of one adaptive grid cell.
	AdaptiveCellSize = 100.0

	// ContentStampChance is the probability that a cell over content
	// receives a stamp.
	ContentStampChance = 0.3

	adaptiveRotation = -45.0
)

// Adaptive lays a 100 px grid over the page. Cells whose centre falls in
// any content area get a faint, small, unjittered stamp with probability
// ContentStampChance; every other cell gets a standard stamp jittered
// within the cell.
func (g *Generator) Adaptive(width, height float64, contentAreas []Rect) []Placement {
	var out []Placement
	for x := 0.0; x < width; x += AdaptiveCellSize {
		for y := 0.0; y < height; y += AdaptiveCellSize {
			cx := x + AdaptiveCellSize/2
			cy := y + AdaptiveCellSize/2

			if !overlapsContent(cx, cy, contentAreas) {
				out = append(out, Placement{
					X:        cx + g.spread(AdaptiveCellSize*0.5),
					Y:        cy + g.spread(AdaptiveCellSize*0.5),
					Rotation: adaptiveRotation + g.spread(30),
					Scale:    g.between(0.7, 1.0),
					Opacity:  g.between(0.6, 0.8),
				})
				continue
			}

			if g.rng.Float64() < ContentStampChance {
				out = append(out, Placement{
					X:        cx,
					Y:        cy,
					Rotation: adaptiveRotation + g.spread(20),
					Scale:    g.between(0.5, 0.7),
					Opacity:  g.between(0.3, 0.5),
				})
			}
		}
	}
	return out
}

func overlapsContent(x, y float64, areas []Rect) bool {
	for _, a := range areas {
		if a.ContainsPoint(x, y) {
			return true
		}
	}
	return false
}

// Center returns a single full-size stamp in the middle of the page.
func Center(width, height, rotation float64) []Placement {
	return []Placement{{X: width / 2, Y: height / 2, Rotation: rotation, Scale: 1, Opacity: 1}}
}

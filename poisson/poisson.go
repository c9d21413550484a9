// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package poisson generates evenly spaced random points with Poisson-disk
// sampling.
//
// The sampler is the classic dart-throwing variant accelerated by a
// background grid. Every accepted point lies inside [0,width)×[0,height)
// and every pair of accepted points is at least minDistance apart.
//
// Randomness is always supplied by the caller, so a fixed seed reproduces
// the same point set:
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	pts, err := poisson.Sample(rng, 800, 600, 100, 40)
package poisson

import (
	"errors"
	"math"
	"math/rand/v2"
)

// MaxAttempts is the number of candidates tried around an active point
// before it is retired from the active list.
const MaxAttempts = 30

// ErrInvalidArgument is returned when a dimension, the spacing or the
// point budget is not positive.
var ErrInvalidArgument = errors.New("poisson: invalid argument")

// Point is a sampled position.
type Point struct {
	X, Y float64
}

// grid is the acceleration structure. Its cell size is minDistance/√2, so a
// cell can hold at most one accepted point.
type grid struct {
	cellSize float64
	cols     int
	rows     int
	cells    []int // index into points, -1 when empty
}

func newGrid(width, height, cellSize float64) *grid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	cells := make([]int, cols*rows)
	for i := range cells {
		cells[i] = -1
	}
	return &grid{cellSize: cellSize, cols: cols, rows: rows, cells: cells}
}

func (g *grid) cell(p Point) (int, int) {
	return int(p.X / g.cellSize), int(p.Y / g.cellSize)
}

func (g *grid) put(p Point, idx int) {
	cx, cy := g.cell(p)
	g.cells[cy*g.cols+cx] = idx
}

// fits reports whether p keeps minDistance to every accepted point in the
// 5×5 block of cells around it.
func (g *grid) fits(p Point, points []Point, minDistance float64) bool {
	cx, cy := g.cell(p)
	x0, x1 := max(0, cx-2), min(g.cols-1, cx+2)
	y0, y1 := max(0, cy-2), min(g.rows-1, cy+2)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			idx := g.cells[y*g.cols+x]
			if idx < 0 {
				continue
			}
			n := points[idx]
			if math.Hypot(p.X-n.X, p.Y-n.Y) < minDistance {
				return false
			}
		}
	}
	return true
}

// Sample returns up to maxPoints points inside [0,width)×[0,height) that
// are pairwise at least minDistance apart.
//
// Sampling starts from one uniformly random seed point. While active points
// remain and the budget is not exhausted, a random active point is chosen
// and up to MaxAttempts candidates are thrown around it at a distance in
// [minDistance, 2·minDistance). The first candidate that is in bounds and
// clear of its neighbours is accepted and becomes active; if none is, the
// chosen point is retired (it stays in the result).
func Sample(rng *rand.Rand, width, height, minDistance float64, maxPoints int) ([]Point, error) {
	if width <= 0 || height <= 0 || minDistance <= 0 || maxPoints <= 0 {
		return nil, ErrInvalidArgument
	}

	g := newGrid(width, height, minDistance/math.Sqrt2)

	first := Point{X: rng.Float64() * width, Y: rng.Float64() * height}
	points := make([]Point, 0, maxPoints)
	points = append(points, first)
	g.put(first, 0)
	active := []int{0}

	for len(active) > 0 && len(points) < maxPoints {
		slot := rng.IntN(len(active))
		origin := points[active[slot]]

		found := false
		for range MaxAttempts {
			angle := rng.Float64() * 2 * math.Pi
			dist := minDistance + rng.Float64()*minDistance
			cand := Point{
				X: origin.X + math.Cos(angle)*dist,
				Y: origin.Y + math.Sin(angle)*dist,
			}
			if cand.X < 0 || cand.X >= width || cand.Y < 0 || cand.Y >= height {
				continue
			}
			if !g.fits(cand, points, minDistance) {
				continue
			}
			points = append(points, cand)
			g.put(cand, len(points)-1)
			active = append(active, len(points)-1)
			found = true
			break
		}

		if !found {
			active[slot] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}

	return points, nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layout computes where watermark instances go on a page.
//
// A layout is a list of placements (position, rotation, scale, opacity)
// produced by one of several tiling patterns:
//
//   - diagonal: an overflowing lattice that still covers the page after the
//     whole layer is rotated
//   - grid: a regular in-page lattice with mixed rotations
//   - corners: three fading stamps in each corner
//   - random: Poisson-disk distributed stamps
//   - spiral: stamps along a three-turn spiral from the page centre
//   - adaptive: dense, visible stamps on empty regions and sparse, faint
//     ones over declared content areas
//   - center: a single stamp in the middle of the page
//
// Placements of the overflowing patterns may lie outside the page. Renderers
// draw them anyway; whatever falls outside the canvas is clipped naturally.
//
// All randomness comes from the *rand.Rand handed to NewGenerator, so a
// fixed seed reproduces a layout exactly.
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Sentinel errors.
var (
	// ErrInvalidDimensions is returned for a non-positive width or height,
	// a negative spacing, or a density outside (0,1].
	ErrInvalidDimensions = errors.New("layout: invalid dimensions")

	// ErrUnsupportedPattern is returned for an unknown pattern name.
	ErrUnsupportedPattern = errors.New("layout: unsupported pattern")
)

// PatternError reports an unknown pattern.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("layout: unsupported pattern %q", e.Pattern)
}

// Unwrap makes errors.Is(err, ErrUnsupportedPattern) work.
func (e *PatternError) Unwrap() error { return ErrUnsupportedPattern }

// Pattern names a tiling strategy.
type Pattern string

// Supported patterns.
const (
	PatternDiagonal Pattern = "diagonal"
	PatternGrid     Pattern = "grid"
	PatternCorners  Pattern = "corners"
	PatternRandom   Pattern = "random"
	PatternSpiral   Pattern = "spiral"
	PatternAdaptive Pattern = "adaptive"
	PatternCenter   Pattern = "center"
)

// Patterns lists every supported pattern.
var Patterns = []Pattern{
	PatternDiagonal, PatternGrid, PatternCorners, PatternRandom,
	PatternSpiral, PatternAdaptive, PatternCenter,
}

// ParsePattern maps a case-insensitive name to a Pattern.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Patterns {
		if p == known {
			return p, nil
		}
	}
	return "", &PatternError{Pattern: s}
}

// Tuning constants shared by the generators.
const (
	// MinSpacing is the Poisson-disk distance used by the random pattern.
	MinSpacing = 100.0

	// RotationVariance is the full width of the random rotation spread, in
	// degrees, applied around the base rotation.
	RotationVariance = 15.0

	// DefaultDensity applies when Config.Density is zero.
	DefaultDensity = 0.15

	// DefaultSpacing applies to every pattern except grid when
	// Config.Spacing is zero.
	DefaultSpacing = 200.0

	// DefaultGridSpacing applies to the grid pattern when Config.Spacing
	// is zero.
	DefaultGridSpacing = 150.0

	// DefaultBaseRotation applies when Config.BaseRotation is nil.
	DefaultBaseRotation = -45.0

	// watermarkArea approximates the footprint of one stamp (100×20 px)
	// for the coverage estimate.
	watermarkArea = 100 * 20
)

// Placement is the transform of one watermark instance. Rotation is in
// degrees; X and Y are the stamp centre in page pixels.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
	Opacity  float64 `json:"opacity"`
}

// Rect is an axis-aligned rectangle in page pixels.
type Rect struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// ContainsPoint reports whether (x, y) lies in r, edges included.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Config selects a pattern and its parameters.
//
// Zero Density and Spacing select the defaults; negative values are
// rejected. A nil BaseRotation means DefaultBaseRotation, so an explicit 0°
// can be expressed.
type Config struct {
	Pattern      Pattern  `yaml:"pattern" json:"pattern"`
	Density      float64  `yaml:"density,omitempty" json:"density,omitempty"`
	Spacing      float64  `yaml:"spacing,omitempty" json:"spacing,omitempty"`
	BaseRotation *float64 `yaml:"base-rotation,omitempty" json:"baseRotation,omitempty"`
	ContentAreas []Rect   `yaml:"content-areas,omitempty" json:"contentAreas,omitempty"`

	// NoJitter disables the optional position and rotation jitter of the
	// diagonal pattern, leaving the bare lattice anchors.
	NoJitter bool `yaml:"no-jitter,omitempty" json:"noJitter,omitempty"`
}

// Rotation returns a pointer to deg, for Config.BaseRotation literals.
func Rotation(deg float64) *float64 { return &deg }

// Layout is the result of Generate.
type Layout struct {
	Positions []Placement `json:"positions"`
	Pattern   Pattern     `json:"pattern"`

	// Density is the number of placements per 100×100 px of page.
	Density float64 `json:"density"`

	// Coverage is the approximate fraction of the page covered by stamps,
	// clamped to [0,1].
	Coverage float64 `json:"coverage"`
}

func (c Config) validate() error {
	if c.Density < 0 || c.Density > 1 || math.IsNaN(c.Density) {
		return fmt.Errorf("%w: density %v outside (0,1]", ErrInvalidDimensions, c.Density)
	}
	if c.Spacing < 0 || math.IsNaN(c.Spacing) {
		return fmt.Errorf("%w: spacing %v", ErrInvalidDimensions, c.Spacing)
	}
	return nil
}

func (c Config) density() float64 {
	if c.Density == 0 {
		return DefaultDensity
	}
	return c.Density
}

func (c Config) spacing(def float64) float64 {
	if c.Spacing == 0 {
		return def
	}
	return c.Spacing
}

func (c Config) baseRotation() float64 {
	if c.BaseRotation == nil {
		return DefaultBaseRotation
	}
	return *c.BaseRotation
}

// Generator produces placements from a caller-supplied random source.
// A Generator is not safe for concurrent use; create one per render.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from rng. A nil rng is replaced
// by a randomly seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng}
}

// Generate builds the layout for a width×height page.
//
// Dimension and parameter validation happens before any pattern logic runs.
// Density and Coverage are recomputed from the generated placements on every
// call.
func (g *Generator) Generate(width, height int, cfg Config) (*Layout, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	w, h := float64(width), float64(height)
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = PatternDiagonal
	}

	var positions []Placement
	switch pattern {
	case PatternDiagonal:
		positions = g.Diagonal(w, h, cfg.spacing(DefaultSpacing), cfg.baseRotation(), !cfg.NoJitter)
	case PatternGrid:
		positions = g.Grid(w, h, cfg.spacing(DefaultGridSpacing), cfg.baseRotation())
	case PatternCorners:
		positions = g.Corners(w, h, cfg.spacing(DefaultSpacing)/4)
	case PatternRandom:
		var err error
		positions, err = g.Random(w, h, cfg.density(), cfg.baseRotation())
		if err != nil {
			return nil, err
		}
	case PatternSpiral:
		positions = g.Spiral(w, h, cfg.density())
	case PatternAdaptive:
		positions = g.Adaptive(w, h, cfg.ContentAreas)
	case PatternCenter:
		positions = Center(w, h, cfg.baseRotation())
	default:
		return nil, &PatternError{Pattern: string(pattern)}
	}

	return newLayout(positions, pattern, w, h), nil
}

func newLayout(positions []Placement, pattern Pattern, w, h float64) *Layout {
	total := w * h
	n := float64(len(positions))
	return &Layout{
		Positions: positions,
		Pattern:   pattern,
		Density:   n / (total / 10000),
		Coverage:  math.Min(n*watermarkArea/total, 1),
	}
}

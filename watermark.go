// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package watermark

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/gogpu/watermark/compose"
	"github.com/gogpu/watermark/internal/logging"
	"github.com/gogpu/watermark/layout"
	"github.com/gogpu/watermark/overlay"
	"github.com/gogpu/watermark/raster"
)

// ErrInvalidImage is returned for an image without positive dimensions or
// with an unsupported format.
var ErrInvalidImage = errors.New("watermark: invalid image")

// Options describes one watermark layer. Text is placed in front of the
// identity fields.
type Options struct {
	Text   string        `yaml:"text" json:"text,omitempty"`
	Layout layout.Config `yaml:"layout" json:"layout"`
	Style  overlay.Style `yaml:"style" json:"style"`
}

// Watermarker applies watermarks to page images. It is safe for
// concurrent use.
type Watermarker struct {
	seed     *uint64
	renderer *overlay.Renderer
	logger   *slog.Logger
}

// New returns a Watermarker with the default overlay renderer.
func New(opts ...Option) *Watermarker {
	w := &Watermarker{}
	for _, opt := range opts {
		opt(w)
	}
	if w.renderer == nil {
		w.renderer = overlay.NewRenderer(overlay.WithLogger(w.logger))
	}
	return w
}

func (w *Watermarker) log() *slog.Logger { return logging.Or(w.logger) }

// rng returns a fresh source for one call.
func (w *Watermarker) rng() *rand.Rand {
	if w.seed != nil {
		return rand.New(rand.NewPCG(*w.seed, *w.seed^0x9e3779b97f4a7c15))
	}
	var b [16]byte
	_, _ = crand.Read(b[:])
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

func checkImage(img raster.Image) error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImage, img.Width, img.Height)
	}
	if !img.Format.Valid() {
		return fmt.Errorf("%w: format %q", ErrInvalidImage, img.Format)
	}
	return nil
}

// Apply composes the watermark text for id, lays it out over img and
// draws it. Invalid options are returned as errors together with the
// untouched image; drawing failures are not reported and leave the image
// unchanged.
func (w *Watermarker) Apply(img raster.Image, id compose.Identity, o Options) (raster.Image, *layout.Layout, error) {
	return w.apply(w.rng(), img, id, o)
}

func (w *Watermarker) apply(rng *rand.Rand, img raster.Image, id compose.Identity, o Options) (raster.Image, *layout.Layout, error) {
	if err := checkImage(img); err != nil {
		return img, nil, err
	}
	if err := o.Style.Validate(); err != nil {
		return img, nil, err
	}
	lay, err := layout.NewGenerator(rng).Generate(img.Width, img.Height, o.Layout)
	if err != nil {
		return img, nil, err
	}

	text := compose.Text(id, o.Text)
	w.log().Debug("watermark: layout generated",
		"pattern", lay.Pattern, "placements", len(lay.Positions), "coverage", lay.Coverage)

	return w.renderer.Render(img, text, lay.Positions, o.Style), lay, nil
}

// Layout generates placements for a width×height page without drawing
// anything.
func (w *Watermarker) Layout(width, height int, cfg layout.Config) (*layout.Layout, error) {
	return layout.NewGenerator(w.rng()).Generate(width, height, cfg)
}

// DefaultLayers returns the three layers ApplyLayers uses when none are
// given: a faint diagonal, a sparse random layer at +45° and corner
// stamps.
func DefaultLayers() []Options {
	return []Options{
		{
			Layout: layout.Config{Pattern: layout.PatternDiagonal},
			Style:  overlay.Style{FontSize: 12, Opacity: 0.05},
		},
		{
			Layout: layout.Config{Pattern: layout.PatternRandom, BaseRotation: layout.Rotation(45)},
			Style:  overlay.Style{FontSize: 10, Opacity: 0.03},
		},
		{
			Layout: layout.Config{Pattern: layout.PatternCorners},
			Style:  overlay.Style{FontSize: 8, Opacity: 0.1},
		},
	}
}

// ApplyLayers applies each layer in turn, every layer drawing on the
// result of the previous one. An empty list selects DefaultLayers. The
// layouts are returned in layer order. On an option error nothing is
// drawn.
func (w *Watermarker) ApplyLayers(img raster.Image, id compose.Identity, layers []Options) (raster.Image, []*layout.Layout, error) {
	if len(layers) == 0 {
		layers = DefaultLayers()
	}
	for i, o := range layers {
		if err := o.Style.Validate(); err != nil {
			return img, nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}

	rng := w.rng()
	out := img
	layouts := make([]*layout.Layout, 0, len(layers))
	for i, o := range layers {
		next, lay, err := w.apply(rng, out, id, o)
		if err != nil {
			return img, nil, fmt.Errorf("layer %d: %w", i, err)
		}
		out = next
		layouts = append(layouts, lay)
	}
	return out, layouts, nil
}

// FaintStyle is the barely visible style used by ApplyFaint.
var FaintStyle = overlay.Style{FontSize: 8, Opacity: 0.01}

// ApplyFaint draws a barely visible random layer carrying the identity
// payload (user, timestamp, document, page) instead of the display text.
func (w *Watermarker) ApplyFaint(img raster.Image, id compose.Identity) (raster.Image, *layout.Layout, error) {
	return w.Apply(img, compose.Identity{}, Options{
		Text:   compose.Payload(id),
		Layout: layout.Config{Pattern: layout.PatternRandom},
		Style:  FaintStyle,
	})
}

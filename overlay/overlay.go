// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package overlay draws watermark text onto page images.
//
// A Renderer rasterises the text once into a stamp, draws the stamp at every
// placement (translated, rotated, scaled and faded) onto a transparent
// layer, and multiply-blends that layer onto the page so the marks darken
// the content underneath instead of hiding it.
//
// Rendering is best effort: Render never fails. If anything in the image
// stack goes wrong the original image is returned untouched, because a page
// without a watermark is preferable to a page that does not load. Use
// TryRender to observe the error.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	ggtext "github.com/gogpu/gg/text"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/watermark/internal/logging"
	"github.com/gogpu/watermark/layout"
	"github.com/gogpu/watermark/raster"
)

// ErrRasterization wraps every failure of the drawing and compositing step.
var ErrRasterization = errors.New("overlay: rasterization failed")

// ErrInvalidStyle is returned for a non-positive font size, an opacity
// outside [0,1] or a malformed colour.
var ErrInvalidStyle = errors.New("overlay: invalid style")

// oversample is the factor the stamp is rasterised at before it is scaled
// down onto the layer, which keeps rotated glyph edges smooth.
const oversample = 2.0

// Style controls how the text looks. Opacity is global and multiplies the
// per-placement opacity.
type Style struct {
	FontSize float64 `yaml:"font-size" json:"fontSize"`
	Color    string  `yaml:"color" json:"color"`
	Opacity  float64 `yaml:"opacity" json:"opacity"`
}

// DefaultStyle returns 14 px black text at 10% opacity.
func DefaultStyle() Style {
	return Style{FontSize: 14, Color: "#000000", Opacity: 0.1}
}

// withDefaults fills zero fields from DefaultStyle.
func (s Style) withDefaults() Style {
	def := DefaultStyle()
	if s.FontSize == 0 {
		s.FontSize = def.FontSize
	}
	if s.Color == "" {
		s.Color = def.Color
	}
	if s.Opacity == 0 {
		s.Opacity = def.Opacity
	}
	return s
}

// Validate checks the style after defaults are applied.
func (s Style) Validate() error {
	s = s.withDefaults()
	if s.FontSize < 0 || math.IsNaN(s.FontSize) {
		return fmt.Errorf("%w: font size %v", ErrInvalidStyle, s.FontSize)
	}
	if s.Opacity < 0 || s.Opacity > 1 || math.IsNaN(s.Opacity) {
		return fmt.Errorf("%w: opacity %v", ErrInvalidStyle, s.Opacity)
	}
	if !validHex(s.Color) {
		return fmt.Errorf("%w: colour %q", ErrInvalidStyle, s.Color)
	}
	return nil
}

// validHex accepts #RGB, #RGBA, #RRGGBB and #RRGGBBAA, with or without '#'.
func validHex(s string) bool {
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFontData sets the TrueType/OpenType font used for the text. The data
// is parsed lazily on each render; unparsable data makes every render fall
// back to the original image.
func WithFontData(data []byte) Option {
	return func(r *Renderer) { r.fontData = data }
}

// WithCodecs replaces the image codecs.
func WithCodecs(c *raster.Codecs) Option {
	return func(r *Renderer) { r.codecs = c }
}

// WithQuality sets the encoder quality for lossy output formats.
func WithQuality(q int) Option {
	return func(r *Renderer) { r.quality = q }
}

// WithLogger sets a logger for this renderer instead of the shared one.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// Renderer draws watermark layers. It holds no per-render state and is safe
// for concurrent use.
type Renderer struct {
	fontData []byte
	codecs   *raster.Codecs
	quality  int
	logger   *slog.Logger
}

// NewRenderer returns a Renderer using the Go Regular font and the standard
// codecs.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		fontData: goregular.TTF,
		codecs:   raster.NewCodecs(),
		quality:  raster.DefaultQuality,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws text at every placement and multiply-blends the result onto
// base. The returned image has the same width, height and format as base.
// On any failure base itself is returned.
func (r *Renderer) Render(base raster.Image, text string, placements []layout.Placement, style Style) raster.Image {
	out, err := r.TryRender(base, text, placements, style)
	if err != nil {
		logging.Or(r.logger).Warn("overlay: watermark skipped",
			"format", base.Format, "width", base.Width, "height", base.Height, "err", err)
		return base
	}
	return out
}

// TryRender is Render without the fallback: it reports the failure instead
// of returning the original image. base is never modified.
func (r *Renderer) TryRender(base raster.Image, text string, placements []layout.Placement, style Style) (out raster.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrRasterization, p)
		}
	}()

	if err := style.Validate(); err != nil {
		return raster.Image{}, err
	}
	style = style.withDefaults()
	if text == "" || len(placements) == 0 {
		return base, nil
	}

	src, err := r.codecs.Decode(base)
	if err != nil {
		return raster.Image{}, fmt.Errorf("%w: %w", ErrRasterization, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() != base.Width || bounds.Dy() != base.Height {
		return raster.Image{}, fmt.Errorf("%w: decoded %dx%d, declared %dx%d",
			ErrRasterization, bounds.Dx(), bounds.Dy(), base.Width, base.Height)
	}

	stamp, err := r.stamp(text, style)
	if err != nil {
		return raster.Image{}, fmt.Errorf("%w: %w", ErrRasterization, err)
	}

	layer := image.NewRGBA(image.Rect(0, 0, base.Width, base.Height))
	for _, p := range placements {
		drawStamp(layer, stamp, p, style.Opacity)
	}

	composited := multiply(src, layer)
	out, err = r.codecs.Encode(composited, base.Format, r.quality)
	if err != nil {
		return raster.Image{}, fmt.Errorf("%w: %w", ErrRasterization, err)
	}

	logging.Or(r.logger).Debug("overlay: watermark drawn",
		"placements", len(placements), "width", out.Width, "height", out.Height, "bytes", out.Size())
	return out, nil
}

// stamp rasterises text once, centred on a transparent canvas with room
// for descenders, at oversample times the font size.
func (r *Renderer) stamp(text string, style Style) (image.Image, error) {
	source, err := ggtext.NewFontSource(r.fontData)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	defer func() { _ = source.Close() }()

	size := style.FontSize * oversample
	face := source.Face(size)
	w, h := ggtext.Measure(text, face)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("text %q measures %vx%v", text, w, h)
	}

	pad := math.Ceil(size / 2)
	sw := int(math.Ceil(w + 2*pad))
	sh := int(math.Ceil(h + 2*pad))

	dc := gg.NewContext(sw, sh)
	defer func() { _ = dc.Close() }()

	col := gg.Hex(style.Color)
	dc.SetFont(face)
	dc.SetColor(col)
	dc.DrawStringAnchored(text, float64(sw)/2, float64(sh)/2, 0.5, 0.5)
	return dc.Image(), nil
}

// drawStamp composites stamp onto layer so that its centre lands on
// (p.X, p.Y), rotated by p.Rotation degrees and scaled by p.Scale, at
// p.Opacity·global alpha. Parts outside the layer are clipped.
func drawStamp(layer draw.Image, stamp image.Image, p layout.Placement, global float64) {
	alpha := p.Opacity * global
	if alpha <= 0 || p.Scale <= 0 {
		return
	}
	alpha = math.Min(alpha, 1)

	sb := stamp.Bounds()
	s := p.Scale / oversample
	theta := p.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	// dst = T(x,y) · R(θ) · S(s) · T(-cx,-cy) · src
	a, b := s*cos, -s*sin
	c, d := s*sin, s*cos
	cx := float64(sb.Min.X) + float64(sb.Dx())/2
	cy := float64(sb.Min.Y) + float64(sb.Dy())/2
	m := f64.Aff3{
		a, b, p.X - (a*cx + b*cy),
		c, d, p.Y - (c*cx + d*cy),
	}

	mask := image.NewUniform(color.Alpha16{A: uint16(math.Round(alpha * 0xffff))})
	draw.BiLinear.Transform(layer, m, stamp, sb, draw.Over, &draw.Options{
		SrcMask:  mask,
		SrcMaskP: sb.Min,
	})
}

// multiply blends layer onto base through a gg multiply layer and returns
// the composited page. No channel of the result is brighter than base.
// base is copied, not modified.
func multiply(base image.Image, layer *image.RGBA) image.Image {
	dc := gg.NewContextForImage(base)
	defer func() { _ = dc.Close() }()

	dc.PushLayer(gg.BlendMultiply, 1)
	dc.DrawImage(gg.ImageBufFromImage(layer), 0, 0)
	dc.PopLayer()
	return dc.Image()
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"log/slog"
	"time"

	"github.com/gogpu/watermark/internal/cache"
	"github.com/gogpu/watermark/raster"
)

// Defaults for a Renderer.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxDimension = 4096
	MinDimension        = 50

	// PageGroupSize pages are rendered concurrently by RenderPages.
	PageGroupSize = 5
	// PageGroupDelay separates two page groups.
	PageGroupDelay = 100 * time.Millisecond

	// PlaceholderWidth and PlaceholderHeight are the size of the page
	// substituted for a failed render (US Letter in points).
	PlaceholderWidth  = 612
	PlaceholderHeight = 792
)

// Quality selects the rasterization resolution and encoder quality.
type Quality string

// Quality levels.
const (
	Low    Quality = "low"
	Medium Quality = "medium"
	High   Quality = "high"
)

// QualityConfig is what a Quality expands to.
type QualityConfig struct {
	DPI           float64
	EncodeQuality int
}

var qualityConfigs = map[Quality]QualityConfig{
	Low:    {DPI: 72, EncodeQuality: 60},
	Medium: {DPI: 150, EncodeQuality: 80},
	High:   {DPI: 300, EncodeQuality: 95},
}

// Config returns the settings for q and whether q is known.
func (q Quality) Config() (QualityConfig, bool) {
	c, ok := qualityConfigs[q]
	return c, ok
}

// PageOptions describes one page render. Zero Width or Height leaves that
// side unconstrained; the page is fitted inside the box and never enlarged.
type PageOptions struct {
	Quality Quality       `yaml:"quality" json:"quality"`
	Format  raster.Format `yaml:"format" json:"format"`
	Width   int           `yaml:"width,omitempty" json:"width,omitempty"`
	Height  int           `yaml:"height,omitempty" json:"height,omitempty"`
}

// Progress is reported after each page of a batch settles.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func newProgress(done, total int) Progress {
	return Progress{Current: done, Total: total, Percentage: (done*100 + total/2) / total}
}

// BatchOptions describes a multi-page render. Zero StartPage means the
// first page and zero EndPage the last.
type BatchOptions struct {
	PageOptions
	StartPage  int
	EndPage    int
	OnProgress func(Progress)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTimeout sets the per-page rasterization timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxDimension sets the largest allowed side of a rendered page.
func WithMaxDimension(px int) Option {
	return func(r *Renderer) {
		if px >= MinDimension {
			r.maxDimension = px
		}
	}
}

// WithRasterizer replaces the MuPDF rasterizer.
func WithRasterizer(rz Rasterizer) Option {
	return func(r *Renderer) { r.rasterizer = rz }
}

// WithInspector replaces the pdfcpu inspector.
func WithInspector(in Inspector) Option {
	return func(r *Renderer) { r.inspector = in }
}

// WithCodecs replaces the image codecs.
func WithCodecs(c *raster.Codecs) Option {
	return func(r *Renderer) { r.codecs = c }
}

// WithCache keeps rendered pages for ttl. A zero ttl uses the cache
// default of 24 hours.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(r *Renderer) {
		r.cache = cache.New[raster.Image](cache.Config{Capacity: capacity, TTL: ttl})
	}
}

// WithGroup sets the batch group size and the pause between groups.
func WithGroup(size int, delay time.Duration) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.groupSize = size
		}
		if delay >= 0 {
			r.groupDelay = delay
		}
	}
}

// WithLogger sets a logger for this renderer instead of the shared one.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

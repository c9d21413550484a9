// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"github.com/gogpu/watermark/internal/batch"
	"github.com/gogpu/watermark/internal/cache"
	"github.com/gogpu/watermark/raster"
)

// Thumbnail limits and batching.
const (
	ThumbnailGroupSize  = 3
	ThumbnailGroupDelay = 200 * time.Millisecond

	minThumbnailSide      = 50
	maxThumbnailWidth     = 1000
	maxThumbnailHeight    = 1400
	minThumbnailQuality   = 10
	maxThumbnailQuality   = 100
	thumbnailOversampling = 2

	// gridAspect approximates a portrait page for grid cells.
	gridAspect = 1.4
)

// ThumbnailOptions describes one thumbnail.
type ThumbnailOptions struct {
	Width   int           `yaml:"width" json:"width"`
	Height  int           `yaml:"height" json:"height"`
	Quality int           `yaml:"quality" json:"quality"`
	Format  raster.Format `yaml:"format" json:"format"`
}

// DefaultThumbnailOptions returns 150×210 WebP thumbnails at quality 75.
func DefaultThumbnailOptions() ThumbnailOptions {
	return ThumbnailOptions{Width: 150, Height: 210, Quality: 75, Format: raster.WebP}
}

func (o ThumbnailOptions) withDefaults() ThumbnailOptions {
	def := DefaultThumbnailOptions()
	if o.Width == 0 {
		o.Width = def.Width
	}
	if o.Height == 0 {
		o.Height = def.Height
	}
	if o.Quality == 0 {
		o.Quality = def.Quality
	}
	if o.Format == "" {
		o.Format = def.Format
	}
	return o
}

// Validate checks sizes, quality and format.
func (o ThumbnailOptions) Validate() error {
	switch {
	case o.Width < minThumbnailSide || o.Width > maxThumbnailWidth:
		return newError(InvalidPDF, 0, nil, "invalid thumbnail width: %d (must be between %d and %d)",
			o.Width, minThumbnailSide, maxThumbnailWidth)
	case o.Height < minThumbnailSide || o.Height > maxThumbnailHeight:
		return newError(InvalidPDF, 0, nil, "invalid thumbnail height: %d (must be between %d and %d)",
			o.Height, minThumbnailSide, maxThumbnailHeight)
	case o.Quality < minThumbnailQuality || o.Quality > maxThumbnailQuality:
		return newError(InvalidPDF, 0, nil, "invalid thumbnail quality: %d (must be between %d and %d)",
			o.Quality, minThumbnailQuality, maxThumbnailQuality)
	case !o.Format.Valid():
		return newError(InvalidPDF, 0, nil, "invalid thumbnail format: %q", o.Format)
	}
	return nil
}

// ThumbnailBatchOptions describes a range of thumbnails.
type ThumbnailBatchOptions struct {
	ThumbnailOptions
	StartPage  int
	EndPage    int
	OnProgress func(Progress)
}

// GridOptions describes a contact sheet of thumbnails. Cells are
// ThumbnailSize wide and 1.4 times as tall.
type GridOptions struct {
	Columns       int
	Rows          int
	ThumbnailSize int
	Spacing       int
	StartPage     int
	Format        raster.Format
	Quality       int
}

// ThumbnailOption configures a ThumbnailGenerator.
type ThumbnailOption func(*ThumbnailGenerator)

// WithThumbnailCache keeps generated thumbnails for ttl.
func WithThumbnailCache(capacity int, ttl time.Duration) ThumbnailOption {
	return func(g *ThumbnailGenerator) {
		g.cache = cache.New[raster.Image](cache.Config{Capacity: capacity, TTL: ttl})
	}
}

// WithThumbnailGroup sets the batch group size and pause.
func WithThumbnailGroup(size int, delay time.Duration) ThumbnailOption {
	return func(g *ThumbnailGenerator) {
		if size > 0 {
			g.groupSize = size
		}
		if delay >= 0 {
			g.groupDelay = delay
		}
	}
}

// ThumbnailGenerator renders small page previews through a Renderer.
type ThumbnailGenerator struct {
	renderer   *Renderer
	codecs     *raster.Codecs
	cache      *cache.Cache[raster.Image]
	groupSize  int
	groupDelay time.Duration
}

// NewThumbnailGenerator returns a generator that renders through r.
func NewThumbnailGenerator(r *Renderer, opts ...ThumbnailOption) *ThumbnailGenerator {
	g := &ThumbnailGenerator{
		renderer:   r,
		codecs:     r.codecs,
		groupSize:  ThumbnailGroupSize,
		groupDelay: ThumbnailGroupDelay,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders page at low quality and twice the thumbnail size, then
// scales it to fit inside Width×Height and encodes it.
func (g *ThumbnailGenerator) Generate(ctx context.Context, pdf []byte, page int, opts ThumbnailOptions) (raster.Image, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return raster.Image{}, err
	}

	var key string
	if g.cache != nil {
		key = cache.Key(pdf, fmt.Sprintf("thumb=%d %dx%d q=%d f=%s", page, opts.Width, opts.Height, opts.Quality, opts.Format))
		if img, ok := g.cache.Get(key); ok {
			g.renderer.log().Debug("pdfrender: thumbnail cache hit", "page", page)
			return img, nil
		}
	}

	rendered, err := g.renderer.RenderPage(ctx, pdf, page, PageOptions{
		Quality: Low,
		Format:  raster.PNG,
		Width:   min(opts.Width*thumbnailOversampling, g.renderer.maxDimension),
		Height:  min(opts.Height*thumbnailOversampling, g.renderer.maxDimension),
	})
	if err != nil {
		return raster.Image{}, err
	}

	pix, err := g.codecs.Decode(rendered)
	if err != nil {
		return raster.Image{}, newError(RenderingFailed, page, err, "failed to generate thumbnail")
	}
	out, err := g.codecs.Encode(fitInside(pix, opts.Width, opts.Height), opts.Format, opts.Quality)
	if err != nil {
		return raster.Image{}, newError(RenderingFailed, page, err, "failed to generate thumbnail")
	}
	if g.cache != nil {
		g.cache.Set(key, out)
	}
	return out, nil
}

// fitInside scales img, up or down, to the largest size inside w×h that
// keeps its aspect ratio.
func fitInside(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	scale := math.Min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	nw := max(1, int(math.Round(float64(b.Dx())*scale)))
	nh := max(1, int(math.Round(float64(b.Dy())*scale)))
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

// GenerateAll renders thumbnails for a page range in groups of three.
// Failed pages get a placeholder thumbnail and carry their error. If ctx
// is done between groups the thumbnails finished so far are returned with
// the context error.
func (g *ThumbnailGenerator) GenerateAll(ctx context.Context, pdf []byte, opts ThumbnailBatchOptions) ([]Page, error) {
	start, end, err := g.renderer.pageRange(pdf, opts.StartPage, opts.EndPage)
	if err != nil {
		return nil, err
	}
	topts := opts.ThumbnailOptions.withDefaults()

	var onSettled func(done, total int)
	if opts.OnProgress != nil {
		onSettled = func(done, total int) { opts.OnProgress(newProgress(done, total)) }
	}

	results, runErr := batch.Run(ctx, end-start+1, batch.Options{
		GroupSize: g.groupSize,
		Delay:     g.groupDelay,
		OnSettled: onSettled,
	}, func(ctx context.Context, i int) (raster.Image, error) {
		return g.Generate(ctx, pdf, start+i, topts)
	})

	pages := make([]Page, len(results))
	for i, res := range results {
		num := start + res.Index
		if res.Err == nil {
			pages[i] = Page{Number: num, Image: res.Value}
			continue
		}
		g.renderer.log().Warn("pdfrender: thumbnail failed, using placeholder", "page", num, "err", res.Err)
		pages[i] = Page{
			Number:      num,
			Image:       placeholder(topts.Width, topts.Height, num, "Thumbnail Error"),
			Placeholder: true,
			Err:         res.Err,
		}
	}
	return pages, runErr
}

// Grid lays out Columns×Rows thumbnails starting at StartPage on a white
// sheet, row by row. The range is cut at the last page of the document.
func (g *ThumbnailGenerator) Grid(ctx context.Context, pdf []byte, opts GridOptions) (raster.Image, error) {
	if opts.Columns < 1 || opts.Rows < 1 || opts.Spacing < 0 {
		return raster.Image{}, newError(InvalidPDF, 0, nil, "invalid grid %dx%d spacing %d",
			opts.Columns, opts.Rows, opts.Spacing)
	}
	cellW := opts.ThumbnailSize
	cellH := int(math.Round(float64(cellW) * gridAspect))
	if cellW < minThumbnailSide || cellW > maxThumbnailWidth || cellH > maxThumbnailHeight {
		return raster.Image{}, newError(InvalidPDF, 0, nil, "invalid thumbnail size %d (must be between %d and %d, cell height at most %d)",
			cellW, minThumbnailSide, maxThumbnailWidth, maxThumbnailHeight)
	}
	if opts.StartPage == 0 {
		opts.StartPage = 1
	}
	if opts.Format == "" {
		opts.Format = raster.PNG
	}
	if opts.Quality == 0 {
		opts.Quality = raster.DefaultQuality
	}

	total, err := g.renderer.PageCount(pdf)
	if err != nil {
		return raster.Image{}, err
	}
	end := min(opts.StartPage+opts.Columns*opts.Rows-1, total)

	thumbs, err := g.GenerateAll(ctx, pdf, ThumbnailBatchOptions{
		ThumbnailOptions: ThumbnailOptions{Width: cellW, Height: cellH, Quality: 80, Format: raster.PNG},
		StartPage:        opts.StartPage,
		EndPage:          end,
	})
	if err != nil {
		return raster.Image{}, err
	}

	gridW := cellW*opts.Columns + opts.Spacing*(opts.Columns-1)
	gridH := cellH*opts.Rows + opts.Spacing*(opts.Rows-1)
	sheet := imaging.New(gridW, gridH, image.White)

	for i, t := range thumbs {
		m, err := g.codecs.Decode(t.Image)
		if err != nil {
			return raster.Image{}, newError(RenderingFailed, t.Number, err, "failed to generate thumbnail grid")
		}
		row, col := i/opts.Columns, i%opts.Columns
		sheet = imaging.Paste(sheet, m, image.Pt(col*(cellW+opts.Spacing), row*(cellH+opts.Spacing)))
	}

	out, err := g.codecs.Encode(sheet, opts.Format, opts.Quality)
	if err != nil {
		return raster.Image{}, newError(RenderingFailed, 0, err, "failed to generate thumbnail grid")
	}
	return out, nil
}

// ThumbnailUse names a typical place thumbnails are shown.
type ThumbnailUse string

// Thumbnail uses understood by OptimalThumbnailOptions.
const (
	ThumbList       ThumbnailUse = "list"
	ThumbGrid       ThumbnailUse = "grid"
	ThumbPreview    ThumbnailUse = "preview"
	ThumbNavigation ThumbnailUse = "navigation"
)

// OptimalThumbnailOptions returns the usual settings for use with the
// non-zero fields of custom applied on top. Unknown uses get the
// navigation settings.
func OptimalThumbnailOptions(use ThumbnailUse, custom ThumbnailOptions) ThumbnailOptions {
	var base ThumbnailOptions
	switch use {
	case ThumbList:
		base = ThumbnailOptions{Width: 120, Height: 168, Quality: 70, Format: raster.JPEG}
	case ThumbGrid:
		base = ThumbnailOptions{Width: 150, Height: 210, Quality: 75, Format: raster.WebP}
	case ThumbPreview:
		base = ThumbnailOptions{Width: 200, Height: 280, Quality: 85, Format: raster.WebP}
	default:
		base = ThumbnailOptions{Width: 100, Height: 140, Quality: 65, Format: raster.JPEG}
	}
	if custom.Width != 0 {
		base.Width = custom.Width
	}
	if custom.Height != 0 {
		base.Height = custom.Height
	}
	if custom.Quality != 0 {
		base.Quality = custom.Quality
	}
	if custom.Format != "" {
		base.Format = custom.Format
	}
	return base
}

// Estimate is a rough processing time.
type Estimate struct {
	Seconds int `json:"estimatedSeconds"`
	Minutes int `json:"estimatedMinutes"`
}

var secondsPerThumbnail = map[Quality]float64{Low: 0.5, Medium: 1, High: 2}

// EstimateProcessingTime guesses how long pageCount thumbnails take at q.
// Unknown qualities are treated as medium.
func EstimateProcessingTime(pageCount int, q Quality) Estimate {
	per, ok := secondsPerThumbnail[q]
	if !ok {
		per = secondsPerThumbnail[Medium]
	}
	secs := int(math.Ceil(float64(pageCount) * per))
	return Estimate{Seconds: secs, Minutes: (secs + 59) / 60}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pdfrender converts PDF pages into raster images.
//
// A Renderer rasterizes one page at a time at a DPI chosen by the quality
// level, fits it into the requested box and encodes it. Every page render
// races a timeout; a slow page is reported as PROCESSING_TIMEOUT and its
// rasterization is left to finish in the background, its result
// discarded.
//
// RenderPages renders a page range in small concurrent groups. A page that
// fails is replaced by a placeholder so one bad page never fails the
// document.
package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"

	"github.com/gogpu/watermark/internal/batch"
	"github.com/gogpu/watermark/internal/cache"
	"github.com/gogpu/watermark/internal/logging"
	"github.com/gogpu/watermark/raster"
)

// Renderer renders PDF pages. It is safe for concurrent use.
type Renderer struct {
	rasterizer   Rasterizer
	inspector    Inspector
	codecs       *raster.Codecs
	cache        *cache.Cache[raster.Image]
	timeout      time.Duration
	maxDimension int
	groupSize    int
	groupDelay   time.Duration
	logger       *slog.Logger
}

// NewRenderer returns a Renderer backed by MuPDF and pdfcpu.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		rasterizer:   Fitz{},
		inspector:    PDFCPU{},
		codecs:       raster.NewCodecs(),
		timeout:      DefaultTimeout,
		maxDimension: DefaultMaxDimension,
		groupSize:    PageGroupSize,
		groupDelay:   PageGroupDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) log() *slog.Logger { return logging.Or(r.logger) }

// MaxDimension returns the largest allowed side of a rendered page.
func (r *Renderer) MaxDimension() int { return r.maxDimension }

// validate checks opts before any work is done.
func (r *Renderer) validate(page int, opts PageOptions) (QualityConfig, error) {
	qc, ok := opts.Quality.Config()
	if !ok {
		return qc, newError(InvalidPDF, page, nil, "invalid quality setting %q", opts.Quality)
	}
	if !opts.Format.Valid() {
		return qc, newError(InvalidPDF, page, nil, "invalid format %q", opts.Format)
	}
	if page < 1 {
		return qc, newError(InvalidPDF, page, nil, "invalid page number %d", page)
	}
	for _, d := range []struct {
		name string
		v    int
	}{{"width", opts.Width}, {"height", opts.Height}} {
		switch {
		case d.v == 0:
		case d.v < MinDimension:
			return qc, newError(InvalidPDF, page, nil, "invalid %s %d (must be between %d and %d)",
				d.name, d.v, MinDimension, r.maxDimension)
		case d.v > r.maxDimension:
			return qc, newError(TooLarge, page, nil, "%s %d exceeds %d", d.name, d.v, r.maxDimension)
		}
	}
	return qc, nil
}

// RenderPage renders one 1-based page. Errors are *Error values.
func (r *Renderer) RenderPage(ctx context.Context, pdf []byte, page int, opts PageOptions) (raster.Image, error) {
	qc, err := r.validate(page, opts)
	if err != nil {
		return raster.Image{}, err
	}

	var key string
	if r.cache != nil {
		key = cache.Key(pdf, fmt.Sprintf("page=%d q=%s f=%s w=%d h=%d",
			page, opts.Quality, opts.Format, opts.Width, opts.Height))
		if img, ok := r.cache.Get(key); ok {
			r.log().Debug("pdfrender: cache hit", "page", page)
			return img, nil
		}
	}

	start := time.Now()
	pix, err := r.rasterize(ctx, pdf, page, qc.DPI)
	if err != nil {
		return raster.Image{}, err
	}

	pix = fit(pix, opts.Width, opts.Height)
	if b := pix.Bounds(); b.Dx() > r.maxDimension || b.Dy() > r.maxDimension {
		return raster.Image{}, newError(TooLarge, page, nil,
			"rendered image dimensions too large: %dx%d (max: %dx%d)",
			b.Dx(), b.Dy(), r.maxDimension, r.maxDimension)
	}

	img, err := r.codecs.Encode(pix, opts.Format, qc.EncodeQuality)
	if err != nil {
		return raster.Image{}, newError(RenderingFailed, page, err, "encode %s", opts.Format)
	}

	r.log().Debug("pdfrender: page rendered", "page", page, "quality", opts.Quality,
		"width", img.Width, "height", img.Height, "bytes", img.Size(), "elapsed", time.Since(start))
	if r.cache != nil {
		r.cache.Set(key, img)
	}
	return img, nil
}

type rasterized struct {
	img image.Image
	err error
}

// rasterize runs the rasterizer in its own goroutine and waits for it,
// the timeout or ctx, whichever comes first. On timeout the goroutine is
// abandoned; the buffered channel lets it exit when it finishes.
func (r *Renderer) rasterize(ctx context.Context, pdf []byte, page int, dpi float64) (image.Image, error) {
	done := make(chan rasterized, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- rasterized{err: fmt.Errorf("rasterizer panic: %v", p)}
			}
		}()
		img, err := r.rasterizer.Rasterize(pdf, page, dpi)
		done <- rasterized{img: img, err: err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, classify(page, res.err)
		}
		if res.img == nil || res.img.Bounds().Empty() {
			return nil, newError(RenderingFailed, page, nil, "no image data returned")
		}
		return res.img, nil
	case <-timer.C:
		return nil, newError(ProcessingTimeout, page, nil, "page rendering timed out after %v", r.timeout)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(ProcessingTimeout, page, ctx.Err(), "page rendering timed out")
		}
		return nil, ctx.Err()
	}
}

// fit scales img down to fit inside w×h, keeping its aspect ratio. A zero
// side is unconstrained. Images that already fit are returned as is.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if w <= 0 {
		w = b.Dx()
	}
	if h <= 0 {
		h = b.Dy()
	}
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}

// Page is one page of a batch render.
type Page struct {
	Number      int          `json:"pageNumber"`
	Image       raster.Image `json:"-"`
	Placeholder bool         `json:"placeholder,omitempty"`
	Err         error        `json:"-"`
}

// pageRange resolves and checks a 1-based inclusive page range.
func (r *Renderer) pageRange(pdf []byte, start, end int) (int, int, error) {
	total, err := r.inspector.PageCount(pdf)
	if err != nil {
		return 0, 0, newError(CorruptedFile, 0, err, "cannot read page count")
	}
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = total
	}
	if start < 1 || end > total || start > end {
		return 0, 0, newError(InvalidPDF, 0, nil, "invalid page range: %d-%d (total pages: %d)", start, end, total)
	}
	return start, end, nil
}

// RenderPages renders a page range in groups. Pages that fail are
// replaced by a placeholder and carry their error in Page.Err. The
// returned pages are ordered by page number. An error is returned only
// for an unreadable document, an invalid range or a cancelled context; on
// cancellation the pages of the groups already finished come back with
// the context error.
func (r *Renderer) RenderPages(ctx context.Context, pdf []byte, opts BatchOptions) ([]Page, error) {
	start, end, err := r.pageRange(pdf, opts.StartPage, opts.EndPage)
	if err != nil {
		return nil, err
	}
	n := end - start + 1

	var onSettled func(done, total int)
	if opts.OnProgress != nil {
		onSettled = func(done, total int) { opts.OnProgress(newProgress(done, total)) }
	}

	results, runErr := batch.Run(ctx, n, batch.Options{
		GroupSize: r.groupSize,
		Delay:     r.groupDelay,
		OnSettled: onSettled,
	}, func(ctx context.Context, i int) (raster.Image, error) {
		return r.RenderPage(ctx, pdf, start+i, opts.PageOptions)
	})

	pages := make([]Page, len(results))
	failed := 0
	for i, res := range results {
		num := start + res.Index
		if res.Err == nil {
			pages[i] = Page{Number: num, Image: res.Value}
			continue
		}
		failed++
		r.log().Warn("pdfrender: page failed, using placeholder", "page", num, "err", res.Err)
		pages[i] = Page{
			Number:      num,
			Image:       placeholder(PlaceholderWidth, PlaceholderHeight, num, "Rendering Error"),
			Placeholder: true,
			Err:         res.Err,
		}
	}
	r.log().Info("pdfrender: pages rendered", "first", start, "last", end,
		"done", len(pages), "failed", failed, "err", runErr)
	return pages, runErr
}

// PageCount returns the number of pages in pdf.
func (r *Renderer) PageCount(pdf []byte) (int, error) {
	n, err := r.inspector.PageCount(pdf)
	if err != nil {
		return 0, newError(CorruptedFile, 0, err, "cannot read page count")
	}
	return n, nil
}

// PageDimensions returns the size in points of a 1-based page.
func (r *Renderer) PageDimensions(pdf []byte, page int) (Size, error) {
	sizes, err := r.inspector.PageSizes(pdf)
	if err != nil {
		return Size{}, newError(RenderingFailed, page, err, "failed to get page dimensions")
	}
	if page < 1 || page > len(sizes) {
		return Size{}, newError(InvalidPDF, page, nil, "invalid page number (total pages: %d)", len(sizes))
	}
	return sizes[page-1], nil
}

// ValidationResult reports whether a document can be rendered.
type ValidationResult struct {
	Valid     bool   `json:"isValid"`
	PageCount int    `json:"pageCount"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// Validate checks the document structure and test-renders page 1 at low
// quality.
func (r *Renderer) Validate(ctx context.Context, pdf []byte) ValidationResult {
	invalid := func(err error) ValidationResult {
		return ValidationResult{Error: err.Error(), Err: err}
	}
	if err := r.inspector.Validate(pdf); err != nil {
		return invalid(newError(CorruptedFile, 0, err, "validation failed"))
	}
	n, err := r.PageCount(pdf)
	if err != nil {
		return invalid(err)
	}
	if n < 1 {
		return invalid(newError(InvalidPDF, 0, nil, "document has no pages"))
	}
	if _, err := r.RenderPage(ctx, pdf, 1, PageOptions{Quality: Low, Format: raster.JPEG}); err != nil {
		return invalid(err)
	}
	return ValidationResult{Valid: true, PageCount: n}
}

// UseCase names a typical destination for rendered pages.
type UseCase string

// Use cases understood by OptimalOptions.
const (
	UseThumbnail UseCase = "thumbnail"
	UsePreview   UseCase = "preview"
	UsePrint     UseCase = "print"
	UseWeb       UseCase = "web"
)

// OptimalOptions returns the usual settings for use, with the non-zero
// fields of custom taking precedence. Unknown use cases get the web
// settings.
func OptimalOptions(use UseCase, custom PageOptions) PageOptions {
	var base PageOptions
	switch use {
	case UseThumbnail:
		base = PageOptions{Quality: Low, Format: raster.JPEG, Width: 200, Height: 280}
	case UsePreview:
		base = PageOptions{Quality: Medium, Format: raster.WebP, Width: 800, Height: 1120}
	case UsePrint:
		base = PageOptions{Quality: High, Format: raster.PNG}
	default:
		base = PageOptions{Quality: Medium, Format: raster.WebP, Width: 1024, Height: 1440}
	}
	if custom.Quality != "" {
		base.Quality = custom.Quality
	}
	if custom.Format != "" {
		base.Format = custom.Format
	}
	if custom.Width != 0 {
		base.Width = custom.Width
	}
	if custom.Height != 0 {
		base.Height = custom.Height
	}
	return base
}

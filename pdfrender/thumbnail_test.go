// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/watermark/raster"
)

func newTestThumbnails(rz *fakeRasterizer, pages int, opts ...ThumbnailOption) *ThumbnailGenerator {
	opts = append([]ThumbnailOption{WithThumbnailGroup(ThumbnailGroupSize, 0)}, opts...)
	return NewThumbnailGenerator(newTestRenderer(rz, pages), opts...)
}

func TestThumbnailGenerate(t *testing.T) {
	g := newTestThumbnails(&fakeRasterizer{}, 1)
	for _, f := range []raster.Format{raster.PNG, raster.JPEG, raster.WebP} {
		t.Run(string(f), func(t *testing.T) {
			img, err := g.Generate(context.Background(), doc, 1, ThumbnailOptions{Width: 100, Height: 140, Quality: 70, Format: f})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if img.Format != f || img.Width != 100 || img.Height > 140 {
				t.Errorf("Generate() = %dx%d %s, want 100 wide within 140, %s", img.Width, img.Height, img.Format, f)
			}
		})
	}
}

func TestThumbnailDefaults(t *testing.T) {
	g := newTestThumbnails(&fakeRasterizer{}, 1)
	img, err := g.Generate(context.Background(), doc, 1, ThumbnailOptions{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	def := DefaultThumbnailOptions()
	if img.Format != def.Format || img.Width > def.Width || img.Height > def.Height {
		t.Errorf("Generate() = %dx%d %s", img.Width, img.Height, img.Format)
	}
}

func TestThumbnailValidation(t *testing.T) {
	tests := []struct {
		name string
		opts ThumbnailOptions
	}{
		{"narrow", ThumbnailOptions{Width: 49, Height: 100, Quality: 50, Format: raster.PNG}},
		{"wide", ThumbnailOptions{Width: 1001, Height: 100, Quality: 50, Format: raster.PNG}},
		{"tall", ThumbnailOptions{Width: 100, Height: 1401, Quality: 50, Format: raster.PNG}},
		{"low quality", ThumbnailOptions{Width: 100, Height: 100, Quality: 9, Format: raster.PNG}},
		{"high quality", ThumbnailOptions{Width: 100, Height: 100, Quality: 101, Format: raster.PNG}},
		{"format", ThumbnailOptions{Width: 100, Height: 100, Quality: 50, Format: "bmp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); !errors.Is(err, ErrInvalidPDF) {
				t.Errorf("Validate() = %v, want INVALID_PDF", err)
			}
		})
	}
	ok := ThumbnailOptions{Width: 1000, Height: 1400, Quality: 100, Format: raster.WebP}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() of upper bounds = %v", err)
	}
}

func TestThumbnailGenerateAll(t *testing.T) {
	rz := &fakeRasterizer{delay: 2 * time.Millisecond, fail: map[int]error{2: errors.New("bad page")}}
	g := newTestThumbnails(rz, 5)

	calls := 0
	pages, err := g.GenerateAll(context.Background(), doc, ThumbnailBatchOptions{
		ThumbnailOptions: ThumbnailOptions{Width: 80, Height: 112, Quality: 60, Format: raster.JPEG},
		OnProgress:       func(Progress) { calls++ },
	})
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if len(pages) != 5 || calls != 5 {
		t.Fatalf("GenerateAll() = %d pages, %d progress calls; want 5, 5", len(pages), calls)
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("pages[%d].Number = %d", i, p.Number)
		}
	}
	ph := pages[1]
	if !ph.Placeholder || ph.Image.Width != 80 || ph.Image.Height != 112 || ph.Image.Format != raster.PNG {
		t.Errorf("placeholder = %+v", ph)
	}
	if peak := rz.peak.Load(); peak > ThumbnailGroupSize {
		t.Errorf("peak concurrency = %d, want <= %d", peak, ThumbnailGroupSize)
	}
}

func TestThumbnailGenerateAllCancelled(t *testing.T) {
	g := newTestThumbnails(&fakeRasterizer{}, 7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pages, err := g.GenerateAll(ctx, doc, ThumbnailBatchOptions{
		ThumbnailOptions: ThumbnailOptions{Width: 80, Height: 112, Quality: 60, Format: raster.PNG},
		OnProgress: func(p Progress) {
			if p.Current == ThumbnailGroupSize {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("GenerateAll() error = %v, want context.Canceled", err)
	}
	if len(pages) != ThumbnailGroupSize {
		t.Fatalf("GenerateAll() returned %d thumbnails, want %d", len(pages), ThumbnailGroupSize)
	}
	for i, p := range pages {
		if p.Number != i+1 || p.Placeholder || p.Image.Size() == 0 {
			t.Errorf("pages[%d] = %+v", i, p)
		}
	}
}

func TestThumbnailGrid(t *testing.T) {
	g := newTestThumbnails(&fakeRasterizer{}, 3)
	img, err := g.Grid(context.Background(), doc, GridOptions{Columns: 2, Rows: 2, ThumbnailSize: 60, Spacing: 10})
	if err != nil {
		t.Fatalf("Grid() error = %v", err)
	}
	// Cells are 60x84; the fourth cell stays blank on a three page document.
	if img.Width != 130 || img.Height != 178 || img.Format != raster.PNG {
		t.Errorf("Grid() = %dx%d %s, want 130x178 png", img.Width, img.Height, img.Format)
	}

	bad := []struct {
		name string
		opts GridOptions
	}{
		{"no columns", GridOptions{Columns: 0, Rows: 2, ThumbnailSize: 60}},
		{"zero cell", GridOptions{Columns: 2, Rows: 2, ThumbnailSize: 0}},
		{"cell below minimum", GridOptions{Columns: 2, Rows: 2, ThumbnailSize: 30}},
		{"cell above maximum", GridOptions{Columns: 1, Rows: 1, ThumbnailSize: 1001}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			img, err := g.Grid(context.Background(), doc, tt.opts)
			if !errors.Is(err, ErrInvalidPDF) {
				t.Errorf("Grid() = %dx%d, error = %v; want INVALID_PDF", img.Width, img.Height, err)
			}
		})
	}
}

func TestThumbnailCache(t *testing.T) {
	rz := &fakeRasterizer{}
	g := newTestThumbnails(rz, 1, WithThumbnailCache(8, time.Hour))
	opts := ThumbnailOptions{Width: 100, Height: 140, Quality: 70, Format: raster.PNG}
	for range 3 {
		if _, err := g.Generate(context.Background(), doc, 1, opts); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}
	if n := rz.calls.Load(); n != 1 {
		t.Errorf("rasterizer called %d times, want 1", n)
	}
}

func TestOptimalThumbnailOptions(t *testing.T) {
	tests := []struct {
		use  ThumbnailUse
		want ThumbnailOptions
	}{
		{ThumbList, ThumbnailOptions{120, 168, 70, raster.JPEG}},
		{ThumbGrid, ThumbnailOptions{150, 210, 75, raster.WebP}},
		{ThumbPreview, ThumbnailOptions{200, 280, 85, raster.WebP}},
		{ThumbNavigation, ThumbnailOptions{100, 140, 65, raster.JPEG}},
		{"other", ThumbnailOptions{100, 140, 65, raster.JPEG}},
	}
	for _, tt := range tests {
		if got := OptimalThumbnailOptions(tt.use, ThumbnailOptions{}); got != tt.want {
			t.Errorf("OptimalThumbnailOptions(%s) = %+v, want %+v", tt.use, got, tt.want)
		}
	}
	got := OptimalThumbnailOptions(ThumbList, ThumbnailOptions{Quality: 90})
	if got.Quality != 90 || got.Width != 120 {
		t.Errorf("custom override = %+v", got)
	}
}

func TestEstimateProcessingTime(t *testing.T) {
	tests := []struct {
		pages int
		q     Quality
		want  Estimate
	}{
		{0, Medium, Estimate{0, 0}},
		{3, Low, Estimate{2, 1}},
		{90, Medium, Estimate{90, 2}},
		{45, High, Estimate{90, 2}},
		{10, "unknown", Estimate{10, 1}},
	}
	for _, tt := range tests {
		if got := EstimateProcessingTime(tt.pages, tt.q); got != tt.want {
			t.Errorf("EstimateProcessingTime(%d, %s) = %+v, want %+v", tt.pages, tt.q, got, tt.want)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	img := placeholder(120, 90, 7, "Thumbnail Error")
	if img.Width != 120 || img.Height != 90 || img.Format != raster.PNG {
		t.Fatalf("placeholder() = %dx%d %s", img.Width, img.Height, img.Format)
	}
	m, err := raster.Decode(img)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if b := m.Bounds(); b.Dx() != 120 || b.Dy() != 90 {
		t.Errorf("decoded bounds = %v", b)
	}
}

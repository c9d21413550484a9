// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/watermark/raster"
)

// fakeRasterizer draws a flat page of Size points at the requested DPI.
type fakeRasterizer struct {
	size  Size
	delay time.Duration
	fail  map[int]error

	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeRasterizer) Rasterize(_ []byte, page int, dpi float64) (image.Image, error) {
	f.calls.Add(1)
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.fail[page]; ok {
		return nil, err
	}
	size := f.size
	if size.Width == 0 {
		size = Size{Width: 612, Height: 792}
	}
	w := int(size.Width * dpi / 72)
	h := int(size.Height * dpi / 72)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(w/2, h/2, color.RGBA{A: 0xff})
	return img, nil
}

type fakeInspector struct {
	pages   int
	sizes   []Size
	invalid error
}

func (f fakeInspector) PageCount([]byte) (int, error) {
	if f.invalid != nil {
		return 0, f.invalid
	}
	return f.pages, nil
}

func (f fakeInspector) PageSizes([]byte) ([]Size, error) {
	if f.invalid != nil {
		return nil, f.invalid
	}
	return f.sizes, nil
}

func (f fakeInspector) Validate([]byte) error { return f.invalid }

var doc = []byte("%PDF-1.7 fake")

func newTestRenderer(rz *fakeRasterizer, pages int, opts ...Option) *Renderer {
	base := []Option{
		WithRasterizer(rz),
		WithInspector(fakeInspector{pages: pages}),
		WithGroup(PageGroupSize, 0),
	}
	return NewRenderer(append(base, opts...)...)
}

func TestRenderPageValidation(t *testing.T) {
	r := newTestRenderer(&fakeRasterizer{}, 1)
	tests := []struct {
		name string
		page int
		opts PageOptions
		code Code
	}{
		{"unknown quality", 1, PageOptions{Quality: "ultra", Format: raster.PNG}, InvalidPDF},
		{"unknown format", 1, PageOptions{Quality: Low, Format: "gif"}, InvalidPDF},
		{"page zero", 0, PageOptions{Quality: Low, Format: raster.PNG}, InvalidPDF},
		{"width too small", 1, PageOptions{Quality: Low, Format: raster.PNG, Width: 49}, InvalidPDF},
		{"height too large", 1, PageOptions{Quality: Low, Format: raster.PNG, Height: 4097}, TooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RenderPage(context.Background(), doc, tt.page, tt.opts)
			if got := CodeOf(err); got != tt.code {
				t.Errorf("RenderPage() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRenderPageFitsBox(t *testing.T) {
	r := newTestRenderer(&fakeRasterizer{}, 1)
	img, err := r.RenderPage(context.Background(), doc, 1, PageOptions{Quality: Low, Format: raster.PNG, Width: 306})
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if img.Width != 306 || img.Height != 396 || img.Format != raster.PNG {
		t.Errorf("RenderPage() = %dx%d %s, want 306x396 png", img.Width, img.Height, img.Format)
	}
}

func TestRenderPageNeverEnlarges(t *testing.T) {
	r := newTestRenderer(&fakeRasterizer{}, 1)
	img, err := r.RenderPage(context.Background(), doc, 1, PageOptions{Quality: Low, Format: raster.JPEG, Width: 2000, Height: 2000})
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if img.Width != 612 || img.Height != 792 {
		t.Errorf("RenderPage() = %dx%d, want 612x792", img.Width, img.Height)
	}
}

func TestRenderPageResultTooLarge(t *testing.T) {
	r := newTestRenderer(&fakeRasterizer{size: Size{Width: 600, Height: 300}}, 1, WithMaxDimension(500))
	_, err := r.RenderPage(context.Background(), doc, 1, PageOptions{Quality: Low, Format: raster.PNG})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("RenderPage() error = %v, want TOO_LARGE", err)
	}
}

func TestRenderPageTimeout(t *testing.T) {
	rz := &fakeRasterizer{delay: 200 * time.Millisecond}
	r := newTestRenderer(rz, 1, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := r.RenderPage(context.Background(), doc, 1, PageOptions{Quality: Low, Format: raster.PNG})
	if !errors.Is(err, ErrProcessingTimeout) {
		t.Fatalf("RenderPage() error = %v, want PROCESSING_TIMEOUT", err)
	}
	if el := time.Since(start); el > 150*time.Millisecond {
		t.Errorf("RenderPage() waited %v for an abandoned task", el)
	}
}

func TestRenderPageClassifiesFailures(t *testing.T) {
	tests := []struct {
		err  error
		code Code
	}{
		{errors.New("invalid xref table"), CorruptedFile},
		{errors.New("out of memory"), TooLarge},
		{errors.New("font missing"), RenderingFailed},
		{ErrDocument, CorruptedFile},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := newTestRenderer(&fakeRasterizer{fail: map[int]error{1: tt.err}}, 1)
			_, err := r.RenderPage(context.Background(), doc, 1, PageOptions{Quality: Low, Format: raster.PNG})
			if CodeOf(err) != tt.code {
				t.Errorf("RenderPage() error = %v, want code %s", err, tt.code)
			}
			var pe *Error
			if errors.As(err, &pe) && pe.Page != 1 {
				t.Errorf("Error.Page = %d, want 1", pe.Page)
			}
		})
	}
}

func TestRenderPageCache(t *testing.T) {
	rz := &fakeRasterizer{}
	r := newTestRenderer(rz, 1, WithCache(4, time.Hour))
	opts := PageOptions{Quality: Low, Format: raster.PNG, Width: 100}

	a, err := r.RenderPage(context.Background(), doc, 1, opts)
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	b, err := r.RenderPage(context.Background(), doc, 1, opts)
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if rz.calls.Load() != 1 {
		t.Errorf("rasterizer called %d times, want 1", rz.calls.Load())
	}
	if a.Size() != b.Size() {
		t.Error("cached image differs")
	}

	opts.Width = 120
	if _, err := r.RenderPage(context.Background(), doc, 1, opts); err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if rz.calls.Load() != 2 {
		t.Errorf("different options served from cache")
	}
}

func TestRenderPages(t *testing.T) {
	rz := &fakeRasterizer{
		delay: 5 * time.Millisecond,
		fail:  map[int]error{3: errors.New("broken content stream")},
	}
	r := newTestRenderer(rz, 12)

	var mu sync.Mutex
	var progress []Progress
	pages, err := r.RenderPages(context.Background(), doc, BatchOptions{
		PageOptions: PageOptions{Quality: Low, Format: raster.PNG, Width: 100},
		StartPage:   2,
		EndPage:     9,
		OnProgress: func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("RenderPages() error = %v", err)
	}

	var numbers []int
	for _, p := range pages {
		numbers = append(numbers, p.Number)
	}
	if diff := cmp.Diff([]int{2, 3, 4, 5, 6, 7, 8, 9}, numbers); diff != "" {
		t.Errorf("page numbers mismatch (-want +got):\n%s", diff)
	}

	for _, p := range pages {
		if p.Number == 3 {
			if !p.Placeholder || p.Err == nil {
				t.Errorf("page 3 = %+v, want placeholder with error", p)
			}
			if p.Image.Width != PlaceholderWidth || p.Image.Height != PlaceholderHeight || p.Image.Size() == 0 {
				t.Errorf("placeholder = %dx%d (%d bytes)", p.Image.Width, p.Image.Height, p.Image.Size())
			}
			continue
		}
		if p.Placeholder || p.Err != nil || p.Image.Width != 100 {
			t.Errorf("page %d = %+v", p.Number, p)
		}
	}

	if peak := rz.peak.Load(); peak > PageGroupSize {
		t.Errorf("peak concurrency = %d, want <= %d", peak, PageGroupSize)
	}
	if len(progress) != 8 {
		t.Fatalf("progress reported %d times, want 8", len(progress))
	}
	if last := progress[7]; last != (Progress{Current: 8, Total: 8, Percentage: 100}) {
		t.Errorf("last progress = %+v", last)
	}
}

func TestRenderPagesRange(t *testing.T) {
	r := newTestRenderer(&fakeRasterizer{}, 4)
	for _, rng := range [][2]int{{0, 5}, {3, 2}, {-1, 2}} {
		_, err := r.RenderPages(context.Background(), doc, BatchOptions{
			PageOptions: PageOptions{Quality: Low, Format: raster.PNG},
			StartPage:   rng[0],
			EndPage:     rng[1],
		})
		if !errors.Is(err, ErrInvalidPDF) {
			t.Errorf("range %v: error = %v, want INVALID_PDF", rng, err)
		}
	}

	bad := NewRenderer(WithRasterizer(&fakeRasterizer{}), WithInspector(fakeInspector{invalid: ErrDocument}))
	if _, err := bad.RenderPages(context.Background(), doc, BatchOptions{}); !errors.Is(err, ErrCorruptedFile) {
		t.Errorf("unreadable document: error = %v, want CORRUPTED_FILE", err)
	}
}

func TestRenderPagesCancelledKeepsFinished(t *testing.T) {
	rz := &fakeRasterizer{fail: map[int]error{2: errors.New("broken content stream")}}
	r := newTestRenderer(rz, 12)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pages, err := r.RenderPages(ctx, doc, BatchOptions{
		PageOptions: PageOptions{Quality: Low, Format: raster.PNG, Width: 100},
		OnProgress: func(p Progress) {
			if p.Current == PageGroupSize {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RenderPages() error = %v, want context.Canceled", err)
	}

	var numbers []int
	for _, p := range pages {
		numbers = append(numbers, p.Number)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, numbers); diff != "" {
		t.Errorf("finished pages mismatch (-want +got):\n%s", diff)
	}
	if len(pages) > 1 && !pages[1].Placeholder {
		t.Errorf("page 2 = %+v, want placeholder", pages[1])
	}
	if n := rz.calls.Load(); n != PageGroupSize {
		t.Errorf("rasterizer called %d times, want %d", n, PageGroupSize)
	}
}

func TestPageDimensions(t *testing.T) {
	r := NewRenderer(WithInspector(fakeInspector{sizes: []Size{{612, 792}, {842, 595}}}))
	got, err := r.PageDimensions(doc, 2)
	if err != nil {
		t.Fatalf("PageDimensions() error = %v", err)
	}
	if got != (Size{Width: 842, Height: 595}) {
		t.Errorf("PageDimensions() = %+v", got)
	}
	if _, err := r.PageDimensions(doc, 3); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("PageDimensions(3) error = %v, want INVALID_PDF", err)
	}
}

func TestValidate(t *testing.T) {
	ok := newTestRenderer(&fakeRasterizer{}, 3).Validate(context.Background(), doc)
	if !ok.Valid || ok.PageCount != 3 || ok.Error != "" {
		t.Errorf("Validate() = %+v", ok)
	}

	broken := newTestRenderer(&fakeRasterizer{fail: map[int]error{1: errors.New("boom")}}, 3).
		Validate(context.Background(), doc)
	if broken.Valid || broken.Error == "" || !errors.Is(broken.Err, ErrRenderingFailed) {
		t.Errorf("Validate() = %+v", broken)
	}

	corrupt := NewRenderer(WithInspector(fakeInspector{invalid: errors.New("no trailer")})).
		Validate(context.Background(), doc)
	if corrupt.Valid || !errors.Is(corrupt.Err, ErrCorruptedFile) {
		t.Errorf("Validate() = %+v", corrupt)
	}
}

func TestOptimalOptions(t *testing.T) {
	tests := []struct {
		use    UseCase
		custom PageOptions
		want   PageOptions
	}{
		{UseThumbnail, PageOptions{}, PageOptions{Quality: Low, Format: raster.JPEG, Width: 200, Height: 280}},
		{UsePreview, PageOptions{}, PageOptions{Quality: Medium, Format: raster.WebP, Width: 800, Height: 1120}},
		{UsePrint, PageOptions{Format: raster.JPEG}, PageOptions{Quality: High, Format: raster.JPEG}},
		{"unknown", PageOptions{Width: 640}, PageOptions{Quality: Medium, Format: raster.WebP, Width: 640, Height: 1440}},
	}
	for _, tt := range tests {
		t.Run(string(tt.use), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, OptimalOptions(tt.use, tt.custom)); diff != "" {
				t.Errorf("OptimalOptions() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("cause")
	err := newError(TooLarge, 4, cause, "image %dx%d", 5000, 10)

	if !errors.Is(err, ErrTooLarge) {
		t.Error("errors.Is(err, ErrTooLarge) = false")
	}
	if errors.Is(err, ErrInvalidPDF) {
		t.Error("errors.Is(err, ErrInvalidPDF) = true")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	want := "pdfrender: TOO_LARGE: image 5000x10 (page 4): cause"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf(plain error) != \"\"")
	}
}

func TestQualityConfig(t *testing.T) {
	want := map[Quality]QualityConfig{
		Low:    {DPI: 72, EncodeQuality: 60},
		Medium: {DPI: 150, EncodeQuality: 80},
		High:   {DPI: 300, EncodeQuality: 95},
	}
	for q, w := range want {
		got, ok := q.Config()
		if !ok || got != w {
			t.Errorf("%s.Config() = %+v, %v", q, got, ok)
		}
	}
	if _, ok := Quality("max").Config(); ok {
		t.Error("unknown quality accepted")
	}
}

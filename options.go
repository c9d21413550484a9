// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package watermark

import (
	"log/slog"

	"github.com/gogpu/watermark/overlay"
)

// Option configures a Watermarker.
//
// Example:
//
//	wm := watermark.New(watermark.WithSeed(42))
type Option func(*Watermarker)

// WithSeed makes every layout reproducible: each call starts from the same
// PCG state.
func WithSeed(seed uint64) Option {
	return func(w *Watermarker) {
		w.seed = &seed
	}
}

// WithRenderer sets the overlay renderer, for example one with a custom
// font or codecs.
func WithRenderer(r *overlay.Renderer) Option {
	return func(w *Watermarker) {
		if r != nil {
			w.renderer = r
		}
	}
}

// WithLogger sets a logger for this Watermarker instead of the shared one.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watermarker) {
		w.logger = l
	}
}

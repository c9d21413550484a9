// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package watermark stamps identifying text onto rendered document pages.
//
// # Overview
//
// A watermark is built in three steps:
//
//   - the text is composed from the viewer's identity (compose),
//   - placements are generated for a tiling pattern (layout),
//   - the text is drawn at every placement and multiply-blended onto the
//     page image (overlay).
//
// Watermarker runs all three:
//
//	wm := watermark.New()
//	out, lay, err := wm.Apply(page, compose.Identity{
//		UserEmail:  "reader@example.com",
//		DocumentID: "doc123456",
//		PageNumber: 3,
//	}, watermark.Options{Layout: layout.Config{Pattern: layout.PatternGrid}})
//
// # Failure policy
//
// Invalid sizes, patterns and styles are returned as errors. Failures of
// the image stack while drawing are not: the page is returned without a
// watermark and a warning is logged, so a watermark problem never stops a
// document from being served.
//
// # Randomness
//
// Layouts are randomised. Each call draws from its own PCG source, seeded
// from crypto/rand by default or from WithSeed for reproducible output.
//
// # Logging
//
// The library is silent by default. SetLogger installs a *slog.Logger for
// this package and every sub-package.
//
// # Related packages
//
//   - layout, poisson: placement generation
//   - compose: watermark text
//   - overlay: drawing and compositing
//   - pdfrender: PDF pages to images, thumbnails
//   - config: YAML presets
package watermark

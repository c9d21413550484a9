// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrDocument is wrapped by rasterizers when the document itself cannot be
// opened.
var ErrDocument = errors.New("pdfrender: cannot open document")

// Rasterizer turns one PDF page into pixels. page is 1-based.
// Implementations must be safe for concurrent use.
type Rasterizer interface {
	Rasterize(pdf []byte, page int, dpi float64) (image.Image, error)
}

// Inspector reads document structure without rendering.
type Inspector interface {
	PageCount(pdf []byte) (int, error)
	PageSizes(pdf []byte) ([]Size, error)
	Validate(pdf []byte) error
}

// Size is a page size in PDF points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fitz rasterizes with MuPDF. Each call opens its own document handle.
type Fitz struct{}

// Rasterize renders page at dpi.
func (Fitz) Rasterize(pdf []byte, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	defer doc.Close()

	if n := doc.NumPage(); page < 1 || page > n {
		return nil, newError(InvalidPDF, page, nil, "invalid page number (total pages: %d)", n)
	}
	img, err := doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// PDFCPU inspects documents with pdfcpu.
type PDFCPU struct{}

func (PDFCPU) conf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages.
func (p PDFCPU) PageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), p.conf())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	return n, nil
}

// PageSizes returns the media box size of every page.
func (p PDFCPU) PageSizes(pdf []byte) ([]Size, error) {
	dims, err := api.PageDims(bytes.NewReader(pdf), p.conf())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	sizes := make([]Size, len(dims))
	for i, d := range dims {
		sizes[i] = Size{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// Validate runs pdfcpu's relaxed validation.
func (p PDFCPU) Validate(pdf []byte) error {
	if err := api.Validate(bytes.NewReader(pdf), p.conf()); err != nil {
		return fmt.Errorf("%w: %w", ErrDocument, err)
	}
	return nil
}

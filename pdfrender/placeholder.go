// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	ggtext "github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/watermark/raster"
)

var placeholderFont = sync.OnceValues(func() (*ggtext.FontSource, error) {
	return ggtext.NewFontSource(goregular.TTF)
})

var placeholderBackground = color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}

// placeholder returns a light grey PNG of w×h with "Page n" and label
// centred on it. It never fails: if text rendering is unavailable the
// page is left blank.
func placeholder(w, h, page int, label string) raster.Image {
	m, err := drawPlaceholder(w, h, page, label)
	if err != nil {
		m = imaging.New(w, h, placeholderBackground)
	}
	img, err := raster.Encode(m, raster.PNG, 0)
	if err != nil {
		return raster.Image{Width: w, Height: h, Format: raster.PNG}
	}
	return img
}

func drawPlaceholder(w, h, page int, label string) (m image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("placeholder: %v", p)
		}
	}()

	source, err := placeholderFont()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	defer func() { _ = dc.Close() }()

	dc.ClearWithColor(gg.Hex("#f0f0f0"))
	dc.SetHexColor("#cccccc")
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, float64(w)-2, float64(h)-2)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}

	dc.SetFont(source.Face(16))
	dc.SetHexColor("#666666")
	dc.DrawStringAnchored(fmt.Sprintf("Page %d", page), float64(w)/2, float64(h)*0.5, 0.5, 0.5)

	dc.SetFont(source.Face(12))
	dc.SetHexColor("#999999")
	dc.DrawStringAnchored(label, float64(w)/2, float64(h)*0.65, 0.5, 0.5)

	return dc.Image(), nil
}

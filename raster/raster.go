// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package raster holds encoded page images and the codecs that move them
// between bytes and pixels.
//
// An Image is what the pipeline passes around: the encoded buffer plus its
// pixel size and format. Watermarking keeps all three metadata fields and
// only changes pixel values.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	xwebp "golang.org/x/image/webp"
)

// Format is an encoded image format.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
)

// DefaultQuality is the lossy encoder quality used when none is given.
const DefaultQuality = 85

// ErrUnsupportedFormat is returned for a format without a codec.
var ErrUnsupportedFormat = errors.New("raster: unsupported format")

// ParseFormat maps a name (with or without a leading dot, "jpg" accepted)
// to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f == PNG || f == JPEG || f == WebP
}

// Ext returns the usual file extension, with the leading dot.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// Image is an encoded raster image.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Format Format
}

// Size returns the encoded size in bytes.
func (img Image) Size() int { return len(img.Data) }

// Codec decodes and encodes one format. quality is in [1,100] and is
// ignored by lossless encoders.
type Codec interface {
	Decode(r io.Reader) (image.Image, error)
	Encode(w io.Writer, img image.Image, quality int) error
}

// Codecs maps formats to codecs. The zero value is empty; use NewCodecs for
// the standard set.
type Codecs struct {
	byFormat map[Format]Codec
}

// NewCodecs returns the standard PNG, JPEG and WebP codecs.
func NewCodecs() *Codecs {
	return &Codecs{byFormat: map[Format]Codec{
		PNG:  pngCodec{},
		JPEG: jpegCodec{},
		WebP: webpCodec{},
	}}
}

// With returns a copy of c with f handled by codec.
func (c *Codecs) With(f Format, codec Codec) *Codecs {
	m := make(map[Format]Codec, len(c.byFormat)+1)
	for k, v := range c.byFormat {
		m[k] = v
	}
	m[f] = codec
	return &Codecs{byFormat: m}
}

func (c *Codecs) lookup(f Format) (Codec, error) {
	codec, ok := c.byFormat[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	return codec, nil
}

// Decode decodes img.Data with the codec for img.Format.
func (c *Codecs) Decode(img Image) (image.Image, error) {
	codec, err := c.lookup(img.Format)
	if err != nil {
		return nil, err
	}
	m, err := codec.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode %s: %w", img.Format, err)
	}
	return m, nil
}

// Encode encodes m as f.
func (c *Codecs) Encode(m image.Image, f Format, quality int) (Image, error) {
	codec, err := c.lookup(f)
	if err != nil {
		return Image{}, err
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := codec.Encode(&buf, m, quality); err != nil {
		return Image{}, fmt.Errorf("raster: encode %s: %w", f, err)
	}
	b := m.Bounds()
	return Image{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy(), Format: f}, nil
}

type pngCodec struct{}

func (pngCodec) Decode(r io.Reader) (image.Image, error) { return imaging.Decode(r) }

func (pngCodec) Encode(w io.Writer, img image.Image, _ int) error {
	return imaging.Encode(w, img, imaging.PNG)
}

type jpegCodec struct{}

func (jpegCodec) Decode(r io.Reader) (image.Image, error) { return imaging.Decode(r) }

func (jpegCodec) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

type webpCodec struct{}

func (webpCodec) Decode(r io.Reader) (image.Image, error) { return xwebp.Decode(r) }

func (webpCodec) Encode(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}

// Encode encodes m with the standard codecs.
func Encode(m image.Image, f Format, quality int) (Image, error) {
	return NewCodecs().Encode(m, f, quality)
}

// Decode decodes img with the standard codecs.
func Decode(img Image) (image.Image, error) {
	return NewCodecs().Decode(img)
}

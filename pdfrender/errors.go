// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pdfrender

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a processing failure.
type Code string

// Error codes. Callers may retry TOO_LARGE and PROCESSING_TIMEOUT at a
// lower quality.
const (
	InvalidPDF        Code = "INVALID_PDF"
	TooLarge          Code = "TOO_LARGE"
	ProcessingTimeout Code = "PROCESSING_TIMEOUT"
	RenderingFailed   Code = "RENDERING_FAILED"
	CorruptedFile     Code = "CORRUPTED_FILE"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its code.
var (
	ErrInvalidPDF        = &Error{Code: InvalidPDF}
	ErrTooLarge          = &Error{Code: TooLarge}
	ErrProcessingTimeout = &Error{Code: ProcessingTimeout}
	ErrRenderingFailed   = &Error{Code: RenderingFailed}
	ErrCorruptedFile     = &Error{Code: CorruptedFile}
)

// Error is a PDF processing failure. Page is 1-based and zero when the
// failure is not tied to a page.
type Error struct {
	Code    Code
	Message string
	Page    int
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("pdfrender: ")
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Page > 0 {
		fmt.Fprintf(&b, " (page %d)", e.Page)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare sentinel (code only) with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Page == 0 && t.Err == nil && t.Code == e.Code
}

func newError(code Code, page int, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Page: page, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// classify maps a rasterizer failure on page to an *Error.
func classify(page int, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, ErrDocument):
		return newError(CorruptedFile, page, err, "invalid or corrupted PDF data")
	case strings.Contains(msg, "memory"), strings.Contains(msg, "allocation"):
		return newError(TooLarge, page, err, "insufficient memory to render page")
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "corrupt"):
		return newError(CorruptedFile, page, err, "invalid or corrupted PDF data")
	}
	return newError(RenderingFailed, page, err, "failed to render page")
}

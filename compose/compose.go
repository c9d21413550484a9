// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compose builds the text stamped onto watermarked pages.
package compose

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	// Separator joins the parts of a watermark text.
	Separator = " • "

	// Fallback is used when neither base text nor any identity field is set.
	Fallback = "Protected Content"

	// TimestampLayout renders timestamps the way an en-US browser does.
	TimestampLayout = "1/2/2006, 3:04:05 PM"

	// docIDLength is the number of leading runes of a document id shown.
	docIDLength = 8
)

// Identity describes who is viewing what. Every field is optional; zero
// values are omitted from the text.
type Identity struct {
	UserID      string    `yaml:"user-id,omitempty" json:"userId,omitempty"`
	UserEmail   string    `yaml:"user-email,omitempty" json:"userEmail,omitempty"`
	UserName    string    `yaml:"user-name,omitempty" json:"userName,omitempty"`
	DocumentID  string    `yaml:"document-id,omitempty" json:"documentId,omitempty"`
	PageNumber  int       `yaml:"page,omitempty" json:"pageNumber,omitempty"`
	Timestamp   time.Time `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	AccessLevel string    `yaml:"access-level,omitempty" json:"accessLevel,omitempty"`
}

// Text returns the watermark string for id, prefixed by baseText.
//
// Parts appear in a fixed order: base text, e-mail (or name when there is
// no e-mail), timestamp, "Doc: " with the first eight characters of the
// document id, "Page: n" and "Access: level". Missing parts are skipped.
// The result depends only on its arguments.
func Text(id Identity, baseText string) string {
	parts := make([]string, 0, 6)
	add := func(s string) {
		if s = clean(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(baseText)
	if email := clean(id.UserEmail); email != "" {
		add(email)
	} else {
		add(id.UserName)
	}
	if !id.Timestamp.IsZero() {
		add(id.Timestamp.Format(TimestampLayout))
	}
	if doc := clean(id.DocumentID); doc != "" {
		add("Doc: " + truncate(doc, docIDLength))
	}
	if id.PageNumber > 0 {
		add("Page: " + strconv.Itoa(id.PageNumber))
	}
	if level := clean(id.AccessLevel); level != "" {
		add("Access: " + level)
	}

	if len(parts) == 0 {
		return Fallback
	}
	return strings.Join(parts, Separator)
}

// Payload returns the machine-oriented trace of id: user id, RFC 3339
// timestamp, document id and page, as space separated key=value pairs.
// Empty fields are skipped. It is used for faint forensic watermarks.
func Payload(id Identity) string {
	var b strings.Builder
	kv := func(k, v string) {
		if v = clean(v); v == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}

	kv("uid", id.UserID)
	if !id.Timestamp.IsZero() {
		kv("ts", id.Timestamp.UTC().Format(time.RFC3339))
	}
	kv("doc", id.DocumentID)
	if id.PageNumber > 0 {
		kv("p", strconv.Itoa(id.PageNumber))
	}
	return b.String()
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

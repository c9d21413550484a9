// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package watermark

import (
	"log/slog"

	"github.com/gogpu/watermark/internal/logging"
)

// SetLogger configures the logger for watermark and all its sub-packages.
// By default nothing is logged. Pass nil to restore silence.
//
// Log levels used:
//   - [slog.LevelDebug]: layout sizes, cache hits, per-page timings
//   - [slog.LevelInfo]: batch summaries
//   - [slog.LevelWarn]: skipped watermarks, placeholder pages
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}

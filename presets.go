// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package watermark

import (
	"fmt"
	"sort"

	"github.com/gogpu/watermark/layout"
	"github.com/gogpu/watermark/overlay"
)

// LayoutPresets are ready-made layout configurations.
var LayoutPresets = map[string]layout.Config{
	"LIGHT_DIAGONAL": {
		Pattern:      layout.PatternDiagonal,
		Density:      0.1,
		Spacing:      300,
		BaseRotation: layout.Rotation(-45),
	},
	"MEDIUM_GRID": {
		Pattern:      layout.PatternGrid,
		Density:      0.15,
		Spacing:      200,
		BaseRotation: layout.Rotation(0),
	},
	"HEAVY_RANDOM": {
		Pattern:      layout.PatternRandom,
		Density:      0.25,
		BaseRotation: layout.Rotation(-45),
	},
	"CORNER_STAMPS": {
		Pattern: layout.PatternCorners,
		Spacing: 80,
	},
	"SPIRAL_ARTISTIC": {
		Pattern: layout.PatternSpiral,
		Density: 0.12,
	},
	"ADAPTIVE_SMART": {
		Pattern: layout.PatternAdaptive,
		Density: 0.18,
	},
}

// StylePresets pair a look with a pattern.
var StylePresets = map[string]Options{
	"LIGHT": {
		Layout: layout.Config{Pattern: layout.PatternDiagonal},
		Style:  overlay.Style{FontSize: 12, Opacity: 0.05},
	},
	"MEDIUM": {
		Layout: layout.Config{Pattern: layout.PatternGrid},
		Style:  overlay.Style{FontSize: 14, Opacity: 0.1},
	},
	"HEAVY": {
		Layout: layout.Config{Pattern: layout.PatternRandom},
		Style:  overlay.Style{FontSize: 16, Opacity: 0.15},
	},
	"SECURE": {
		Layout: layout.Config{Pattern: layout.PatternDiagonal},
		Style:  overlay.Style{FontSize: 10, Opacity: 0.08},
	},
	"STAMP": {
		Layout: layout.Config{Pattern: layout.PatternCenter, BaseRotation: layout.Rotation(0)},
		Style:  overlay.Style{FontSize: 20, Opacity: 0.2},
	},
}

// Preset returns the style preset name combined with the layout preset
// layoutName, if given. The layout preset replaces the style preset's
// layout.
func Preset(name, layoutName string) (Options, error) {
	o, ok := StylePresets[name]
	if !ok {
		return Options{}, fmt.Errorf("watermark: unknown style preset %q (have %v)", name, presetNames(StylePresets))
	}
	if layoutName != "" {
		l, ok := LayoutPresets[layoutName]
		if !ok {
			return Options{}, fmt.Errorf("watermark: unknown layout preset %q (have %v)", layoutName, presetNames(LayoutPresets))
		}
		o.Layout = l
	}
	return o, nil
}

func presetNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

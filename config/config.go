// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads watermark presets and render settings from YAML.
//
// A file looks like:
//
//	presets:
//	  confidential:
//	    text: CONFIDENTIAL
//	    layout: {pattern: diagonal, spacing: 180}
//	    style: {font-size: 16, color: "#c00000", opacity: 0.12}
//	render:
//	  timeout: 20s
//	  max-dimension: 3000
//	  cache-ttl: 12h
//	logging:
//	  level: debug
//
// Every section is optional; missing values take the package defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/watermark/layout"
	"github.com/gogpu/watermark/overlay"
	"github.com/gogpu/watermark/pdfrender"
)

// ErrConfigurationError is wrapped by every *ConfigError.
var ErrConfigurationError = errors.New("configuration error")

// ConfigError is a configuration error with the offending field.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports every ConfigError as an ErrConfigurationError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigurationError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Preset is a named watermark: base text, placement and look.
type Preset struct {
	Text   string        `yaml:"text" json:"text,omitempty"`
	Layout layout.Config `yaml:"layout" json:"layout"`
	Style  overlay.Style `yaml:"style" json:"style"`
}

// Validate checks the pattern, the layout numbers and the style.
func (p *Preset) Validate(name string) error {
	field := "presets." + name
	if p.Layout.Pattern != "" {
		pat, err := layout.ParsePattern(string(p.Layout.Pattern))
		if err != nil {
			return &ConfigError{Field: field + ".layout.pattern", Message: err.Error(), Err: err}
		}
		p.Layout.Pattern = pat
	}
	if d := p.Layout.Density; d < 0 || d > 1 {
		return NewConfigError(field+".layout.density", fmt.Sprintf("must be in [0,1], got %v", d))
	}
	if p.Layout.Spacing < 0 {
		return NewConfigError(field+".layout.spacing", fmt.Sprintf("must not be negative, got %v", p.Layout.Spacing))
	}
	if err := p.Style.Validate(); err != nil {
		return &ConfigError{Field: field + ".style", Message: err.Error(), Err: err}
	}
	return nil
}

// RenderConfig holds page rendering settings.
type RenderConfig struct {
	Timeout             time.Duration `yaml:"timeout" json:"timeout,omitempty"`
	MaxDimension        int           `yaml:"max-dimension" json:"max_dimension,omitempty"`
	CacheCapacity       int           `yaml:"cache-capacity" json:"cache_capacity,omitempty"`
	CacheTTL            time.Duration `yaml:"cache-ttl" json:"cache_ttl,omitempty"`
	PageGroupSize       int           `yaml:"page-group-size" json:"page_group_size,omitempty"`
	PageGroupDelay      time.Duration `yaml:"page-group-delay" json:"page_group_delay,omitempty"`
	ThumbnailGroupSize  int           `yaml:"thumbnail-group-size" json:"thumbnail_group_size,omitempty"`
	ThumbnailGroupDelay time.Duration `yaml:"thumbnail-group-delay" json:"thumbnail_group_delay,omitempty"`
}

// SetDefaults fills zero fields with the pdfrender defaults. Caching is
// off unless CacheCapacity is set.
func (c *RenderConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = pdfrender.DefaultTimeout
	}
	if c.MaxDimension == 0 {
		c.MaxDimension = pdfrender.DefaultMaxDimension
	}
	if c.CacheCapacity > 0 && c.CacheTTL == 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.PageGroupSize == 0 {
		c.PageGroupSize = pdfrender.PageGroupSize
	}
	if c.PageGroupDelay == 0 {
		c.PageGroupDelay = pdfrender.PageGroupDelay
	}
	if c.ThumbnailGroupSize == 0 {
		c.ThumbnailGroupSize = pdfrender.ThumbnailGroupSize
	}
	if c.ThumbnailGroupDelay == 0 {
		c.ThumbnailGroupDelay = pdfrender.ThumbnailGroupDelay
	}
}

// Validate rejects negative values and out of range dimensions.
func (c *RenderConfig) Validate() error {
	switch {
	case c.Timeout < 0:
		return NewConfigError("render.timeout", "must not be negative")
	case c.MaxDimension != 0 && c.MaxDimension < pdfrender.MinDimension:
		return NewConfigError("render.max-dimension", fmt.Sprintf("must be at least %d", pdfrender.MinDimension))
	case c.CacheCapacity < 0:
		return NewConfigError("render.cache-capacity", "must not be negative")
	case c.PageGroupSize < 0:
		return NewConfigError("render.page-group-size", "must not be negative")
	case c.ThumbnailGroupSize < 0:
		return NewConfigError("render.thumbnail-group-size", "must not be negative")
	case c.PageGroupDelay < 0, c.ThumbnailGroupDelay < 0:
		return NewConfigError("render", "group delays must not be negative")
	}
	return nil
}

// RendererOptions converts the settings into pdfrender options.
func (c *RenderConfig) RendererOptions() []pdfrender.Option {
	opts := []pdfrender.Option{
		pdfrender.WithTimeout(c.Timeout),
		pdfrender.WithMaxDimension(c.MaxDimension),
		pdfrender.WithGroup(c.PageGroupSize, c.PageGroupDelay),
	}
	if c.CacheCapacity > 0 {
		opts = append(opts, pdfrender.WithCache(c.CacheCapacity, c.CacheTTL))
	}
	return opts
}

// ThumbnailOptions converts the settings into thumbnail generator options.
func (c *RenderConfig) ThumbnailOptions() []pdfrender.ThumbnailOption {
	opts := []pdfrender.ThumbnailOption{
		pdfrender.WithThumbnailGroup(c.ThumbnailGroupSize, c.ThumbnailGroupDelay),
	}
	if c.CacheCapacity > 0 {
		opts = append(opts, pdfrender.WithThumbnailCache(c.CacheCapacity, c.CacheTTL))
	}
	return opts
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format" json:"format,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

// Validate checks level and format names.
func (c *LoggingConfig) Validate() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Level), Err: err}
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return NewConfigError("logging.format", fmt.Sprintf("unknown format %q", c.Format))
	}
	return nil
}

// NewLogger builds a logger writing to w.
func (c *LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.Level))
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Config is the complete file.
type Config struct {
	Presets map[string]*Preset `yaml:"presets" json:"presets,omitempty"`
	Render  RenderConfig       `yaml:"render" json:"render"`
	Logging LoggingConfig      `yaml:"logging" json:"logging"`
}

// Default returns a configuration with no presets and default settings.
func Default() *Config {
	c := &Config{}
	c.Render.SetDefaults()
	c.Logging.SetDefaults()
	return c
}

// Load reads and parses a YAML file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML data, applies defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Message: fmt.Sprintf("failed to parse config: %v", err), Err: err}
	}

	if err := c.Render.Validate(); err != nil {
		return nil, err
	}
	c.Render.SetDefaults()
	c.Logging.SetDefaults()
	if err := c.Logging.Validate(); err != nil {
		return nil, err
	}
	for name, p := range c.Presets {
		if p == nil {
			return nil, NewConfigError("presets."+name, "empty preset")
		}
		if err := p.Validate(name); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// Preset returns the named preset.
func (c *Config) Preset(name string) (*Preset, bool) {
	p, ok := c.Presets[name]
	return p, ok
}

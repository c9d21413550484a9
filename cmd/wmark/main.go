// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command wmark renders PDF pages to images and stamps them with
// identity watermarks.
//
// Usage:
//
//	wmark <command> [options] <args>
//
// Commands:
//
//	render   Render pages of a PDF and watermark each one
//	thumbs   Render thumbnails or a thumbnail grid
//	layout   Print the placements a pattern produces, as JSON
//	version  Show version information
//
// Examples:
//
//	wmark render -preset SECURE -email alice@example.com -doc Q3-report report.pdf
//	wmark thumbs -grid 4x3 -out sheet.webp report.pdf
//	wmark layout -pattern spiral -width 800 -height 600
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gogpu/watermark"
	"github.com/gogpu/watermark/compose"
	"github.com/gogpu/watermark/config"
	"github.com/gogpu/watermark/layout"
	"github.com/gogpu/watermark/pdfrender"
	"github.com/gogpu/watermark/raster"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errUsage means the flags were wrong and usage has been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "render":
		err = renderCommand(ctx, args[1:], stdout, stderr)
	case "thumbs":
		err = thumbsCommand(ctx, args[1:], stdout, stderr)
	case "layout":
		err = layoutCommand(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "wmark %s\n", version)
	case "help", "-h", "-help", "--help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "wmark: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "wmark: %v\n", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: wmark <command> [options] <args>

Commands:
  render   Render pages of a PDF and watermark each one
  thumbs   Render thumbnails or a thumbnail grid
  layout   Print the placements a pattern produces, as JSON
  version  Show version information

Run "wmark <command> -h" for the options of a command.
`)
}

// common holds the flags every PDF command shares.
type common struct {
	configFile string
	outDir     string
	start, end int
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&c.outDir, "out", ".", "output directory")
	fs.IntVar(&c.start, "start", 0, "first page (default first)")
	fs.IntVar(&c.end, "end", 0, "last page (default last)")
}

// setup loads the configuration, installs the logger and reads the PDF.
func (c *common) setup(fs *flag.FlagSet, stderr io.Writer) (*config.Config, *slog.Logger, []byte, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, nil, nil, errUsage
	}

	cfg := config.Default()
	if c.configFile != "" {
		var err error
		if cfg, err = config.Load(c.configFile); err != nil {
			return nil, nil, nil, err
		}
	}
	logger := cfg.Logging.NewLogger(stderr)
	watermark.SetLogger(logger)

	pdf, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, pdf, nil
}

func newFlagSet(name, args string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wmark %s [options] %s\n\nOptions:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

func renderCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("render", "<input.pdf>", stderr)
	var (
		c          common
		quality    = fs.String("quality", string(pdfrender.Medium), "low, medium or high")
		format     = fs.String("format", string(raster.PNG), "png, jpeg or webp")
		width      = fs.Int("width", 0, "maximum page width in pixels")
		height     = fs.Int("height", 0, "maximum page height in pixels")
		preset     = fs.String("preset", "MEDIUM", "watermark preset from the config file or a built-in style preset")
		layoutName = fs.String("layout", "", "built-in layout preset overriding the preset's layout")
		text       = fs.String("text", "", "text placed before the identity fields")
		faint      = fs.Bool("faint", false, "add a barely visible layer carrying the identity payload")
		id         compose.Identity
	)
	c.register(fs)
	fs.StringVar(&id.UserID, "user-id", "", "user ID")
	fs.StringVar(&id.UserEmail, "email", "", "user email")
	fs.StringVar(&id.UserName, "name", "", "user name")
	fs.StringVar(&id.DocumentID, "doc", "", "document ID")
	fs.StringVar(&id.AccessLevel, "access", "", "access level")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, logger, pdf, err := c.setup(fs, stderr)
	if err != nil {
		return err
	}
	f, err := raster.ParseFormat(*format)
	if err != nil {
		return err
	}
	opts, err := watermarkOptions(cfg, *preset, *layoutName)
	if err != nil {
		return err
	}
	if *text != "" {
		opts.Text = *text
	}

	renderer := pdfrender.NewRenderer(append(cfg.Render.RendererOptions(), pdfrender.WithLogger(logger))...)
	pages, err := renderer.RenderPages(ctx, pdf, pdfrender.BatchOptions{
		PageOptions: pdfrender.PageOptions{
			Quality: pdfrender.Quality(*quality),
			Format:  f,
			Width:   *width,
			Height:  *height,
		},
		StartPage: c.start,
		EndPage:   c.end,
		OnProgress: func(p pdfrender.Progress) {
			logger.Info("page rendered", "current", p.Current, "total", p.Total, "percent", p.Percentage)
		},
	})
	if err != nil {
		return err
	}

	wm := watermark.New(watermark.WithLogger(logger))
	id.Timestamp = time.Now()
	for _, p := range pages {
		img := p.Image
		if !p.Placeholder {
			pageID := id
			pageID.PageNumber = p.Number
			if img, _, err = wm.Apply(img, pageID, opts); err != nil {
				return fmt.Errorf("page %d: %w", p.Number, err)
			}
			if *faint {
				if img, _, err = wm.ApplyFaint(img, pageID); err != nil {
					return fmt.Errorf("page %d: %w", p.Number, err)
				}
			}
		}
		name, err := write(c.outDir, fmt.Sprintf("page-%03d", p.Number), img)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, name)
	}
	return nil
}

// watermarkOptions looks name up in the config file first and in the
// built-in style presets second.
func watermarkOptions(cfg *config.Config, name, layoutName string) (watermark.Options, error) {
	if p, ok := cfg.Preset(name); ok {
		opts := watermark.Options{Text: p.Text, Layout: p.Layout, Style: p.Style}
		if layoutName != "" {
			l, ok := watermark.LayoutPresets[layoutName]
			if !ok {
				return watermark.Options{}, fmt.Errorf("unknown layout preset %q", layoutName)
			}
			opts.Layout = l
		}
		return opts, nil
	}
	return watermark.Preset(name, layoutName)
}

func thumbsCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("thumbs", "<input.pdf>", stderr)
	def := pdfrender.DefaultThumbnailOptions()
	var (
		c       common
		width   = fs.Int("width", def.Width, "thumbnail width")
		height  = fs.Int("height", def.Height, "thumbnail height")
		quality = fs.Int("quality", def.Quality, "encoder quality, 10 to 100")
		format  = fs.String("format", string(def.Format), "png, jpeg or webp")
		grid    = fs.String("grid", "", "write one contact sheet of COLSxROWS thumbnails instead")
		size    = fs.Int("cell", 150, "grid cell width")
		spacing = fs.Int("spacing", 10, "grid spacing")
	)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, logger, pdf, err := c.setup(fs, stderr)
	if err != nil {
		return err
	}
	f, err := raster.ParseFormat(*format)
	if err != nil {
		return err
	}

	renderer := pdfrender.NewRenderer(append(cfg.Render.RendererOptions(), pdfrender.WithLogger(logger))...)
	gen := pdfrender.NewThumbnailGenerator(renderer, cfg.Render.ThumbnailOptions()...)

	if *grid != "" {
		var cols, rows int
		if _, err := fmt.Sscanf(strings.ToLower(*grid), "%dx%d", &cols, &rows); err != nil {
			return fmt.Errorf("grid %q: want COLSxROWS", *grid)
		}
		sheet, err := gen.Grid(ctx, pdf, pdfrender.GridOptions{
			Columns:       cols,
			Rows:          rows,
			ThumbnailSize: *size,
			Spacing:       *spacing,
			StartPage:     c.start,
			Format:        f,
			Quality:       *quality,
		})
		if err != nil {
			return err
		}
		name, err := write(c.outDir, "grid", sheet)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, name)
		return nil
	}

	thumbs, err := gen.GenerateAll(ctx, pdf, pdfrender.ThumbnailBatchOptions{
		ThumbnailOptions: pdfrender.ThumbnailOptions{Width: *width, Height: *height, Quality: *quality, Format: f},
		StartPage:        c.start,
		EndPage:          c.end,
	})
	if err != nil {
		return err
	}
	for _, t := range thumbs {
		name, err := write(c.outDir, fmt.Sprintf("thumb-%03d", t.Number), t.Image)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func write(dir, base string, img raster.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Join(dir, base+img.Format.Ext())
	if err := os.WriteFile(name, img.Data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func layoutCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("layout", "", stderr)
	var (
		pattern  = fs.String("pattern", string(layout.PatternDiagonal), "one of "+patternList())
		width    = fs.Int("width", 800, "page width")
		height   = fs.Int("height", 600, "page height")
		density  = fs.Float64("density", 0, "placements per 100x100 px, in (0,1]")
		spacing  = fs.Float64("spacing", 0, "distance between placements")
		rotation = fs.String("rotation", "", "base rotation in degrees")
		noJitter = fs.Bool("no-jitter", false, "disable diagonal jitter")
		seed     = fs.Uint64("seed", 0, "random seed (0 picks one)")
	)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	p, err := layout.ParsePattern(*pattern)
	if err != nil {
		return err
	}
	cfg := layout.Config{Pattern: p, Density: *density, Spacing: *spacing, NoJitter: *noJitter}
	if *rotation != "" {
		var deg float64
		if _, err := fmt.Sscanf(*rotation, "%g", &deg); err != nil {
			return fmt.Errorf("rotation %q: %w", *rotation, err)
		}
		cfg.BaseRotation = layout.Rotation(deg)
	}

	var opts []watermark.Option
	if *seed != 0 {
		opts = append(opts, watermark.WithSeed(*seed))
	}
	lay, err := watermark.New(opts...).Layout(*width, *height, cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(lay)
}

func patternList() string {
	names := make([]string, len(layout.Patterns))
	for i, p := range layout.Patterns {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/imgextract/internal/document"
	"github.com/hyperifyio/imgextract/internal/extract"
	"github.com/hyperifyio/imgextract/internal/naming"
	"github.com/hyperifyio/imgextract/internal/report"
)

// ErrImagesFailed is returned by Run in strict mode when at least one matched
// image could not be extracted. The rewritten document is still written.
var ErrImagesFailed = errors.New("one or more images could not be extracted")

type App struct {
	cfg       Config
	extractor extract.Extractor
	last      extract.Report
}

// Option customizes an App.
type Option func(*App)

// WithNames makes the extractor use g for file names, e.g. a fixed clock.
func WithNames(g naming.Generator) Option {
	return func(a *App) {
		a.extractor = extract.New(extract.Options{OutputDir: a.cfg.ImagesDir, Names: g})
	}
}

// WithExtractor replaces the extraction strategy.
func WithExtractor(e extract.Extractor) Option {
	return func(a *App) { a.extractor = e }
}

func New(_ context.Context, cfg Config, opts ...Option) (*App, error) {
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = DefaultImagesDir
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = DeriveOutputPath(cfg.InputPath)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg}
	a.extractor = extract.New(extract.Options{OutputDir: cfg.ImagesDir})
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

// Config returns the effective configuration after defaults were applied.
func (a *App) Config() Config { return a.cfg }

// Report returns the report of the most recent Run.
func (a *App) Report() extract.Report { return a.last }

func (a *App) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := document.Load(a.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	rep := a.extractor.Extract(doc)
	a.last = rep

	out, err := doc.Render()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(a.cfg.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir output dir: %w", err)
		}
	}
	if err := os.WriteFile(a.cfg.OutputPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if err := a.writeArtifacts(rep); err != nil {
		return err
	}

	log.Info().
		Str("out", a.cfg.OutputPath).
		Str("images", rep.OutputDir).
		Int("written", rep.Written()).
		Int("failed", rep.Failed()).
		Msg("wrote output")

	if a.cfg.Strict && rep.Failed() > 0 {
		return ErrImagesFailed
	}
	return nil
}

// writeArtifacts writes the optional manifest, checksum list and contact sheet.
func (a *App) writeArtifacts(rep extract.Report) error {
	if a.cfg.ManifestPath == "" && !a.cfg.Checksums && a.cfg.ContactSheetPath == "" {
		return nil
	}
	m := report.Build(report.Meta{
		Tool:        "imgextract",
		Version:     BuildVersion,
		Input:       a.cfg.InputPath,
		Output:      a.cfg.OutputPath,
		GeneratedAt: time.Now().UTC(),
	}, rep)

	if a.cfg.ManifestPath != "" {
		if err := report.WriteManifest(a.cfg.ManifestPath, m); err != nil {
			return err
		}
		log.Info().Str("path", a.cfg.ManifestPath).Msg("wrote manifest")
	}

	written := m.Written()
	if a.cfg.Checksums && len(written) > 0 {
		names := make([]string, 0, len(written))
		for _, e := range written {
			names = append(names, filepath.Base(filepath.FromSlash(e.Path)))
		}
		p, err := report.WriteSHA256SUMS(rep.OutputDir, names)
		if err != nil {
			return err
		}
		log.Info().Str("path", p).Msg("wrote checksums")
	}

	if a.cfg.ContactSheetPath != "" {
		if err := report.WriteContactSheet(a.cfg.ContactSheetPath, written); err != nil {
			return err
		}
		log.Info().Str("path", a.cfg.ContactSheetPath).Msg("wrote contact sheet")
	}
	return nil
}

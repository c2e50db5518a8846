package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/imgextract/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		inputPath    string
		outputPath   string
		imagesDir    string
		configPath   string
		envFile      string
		manifestPath string
		checksums    bool
		contactSheet string
		strict       bool
		verbose      bool
		showVersion  bool
	)

	flag.StringVar(&inputPath, app.FlagInput, app.DefaultInputPath, "Path to the HTML document with embedded base64 images")
	flag.StringVar(&outputPath, app.FlagOutput, "", "Path for the rewritten HTML (default: <input>_new.html)")
	flag.StringVar(&imagesDir, app.FlagImagesDir, app.DefaultImagesDir, "Directory for extracted images; also the prefix written into src")
	flag.StringVar(&configPath, "config", "", "Optional YAML or JSON config file")
	flag.StringVar(&envFile, "env", ".env", "Optional dotenv file loaded before reading IMGEXTRACT_* variables")
	flag.StringVar(&manifestPath, app.FlagManifest, "", "Write a JSON (or .yaml) manifest of extracted images")
	flag.BoolVar(&checksums, app.FlagChecksums, false, "Write SHA256SUMS for extracted images into the images dir")
	flag.StringVar(&contactSheet, app.FlagContactSheet, "", "Write a PDF contact sheet of extracted images")
	flag.BoolVar(&strict, app.FlagStrict, false, "Exit with code 2 when any embedded image could not be extracted")
	flag.BoolVar(&verbose, app.FlagVerbose, false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(app.VersionString())
		return
	}

	if err := app.LoadEnvFiles(envFile); err != nil {
		log.Warn().Err(err).Str("file", envFile).Msg("dotenv load failed; continuing")
	}

	cfg := app.Config{
		InputPath:        inputPath,
		OutputPath:       outputPath,
		ImagesDir:        imagesDir,
		ManifestPath:     manifestPath,
		Checksums:        checksums,
		ContactSheetPath: contactSheet,
		Strict:           strict,
		Verbose:          verbose,
	}
	explicit := explicitFlags(flag.CommandLine)
	app.ApplyEnvToConfig(&cfg, explicit...)
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("load config failed")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc, explicit...)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	os.Exit(exitCode(run(cfg)))
}

// explicitFlags returns the names of the flags set on the command line, so
// env and file config do not override them even when they equal the default.
func explicitFlags(fs *flag.FlagSet) []string {
	var names []string
	fs.Visit(func(f *flag.Flag) { names = append(names, f.Name) })
	return names
}

// exitCode maps run errors to the process exit status: 2 for strict-mode
// image failures, 1 for anything fatal.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, app.ErrImagesFailed) {
		log.Warn().Err(err).Msg("finished with skipped images")
		return 2
	}
	log.Error().Err(err).Msg("run failed")
	return 1
}

func run(cfg app.Config) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return err
	}
	rep := a.Report()
	fmt.Fprintf(os.Stdout, "%d image(s) saved to %s\n", rep.Written(), a.Config().ImagesDir)
	return nil
}

package app

import "slices"

// Config holds runtime configuration for the application.
type Config struct {
	InputPath  string
	OutputPath string
	ImagesDir  string

	// Optional artifacts
	ManifestPath     string
	Checksums        bool
	ContactSheetPath string

	// Behavior
	Strict  bool
	Verbose bool
}

// Flag defaults shared by the CLI and the config file overlay.
const (
	DefaultInputPath = "page.html"
	DefaultImagesDir = "images"
)

// Flag names, used to tell which settings were given explicitly on the
// command line.
const (
	FlagInput        = "input"
	FlagOutput       = "output"
	FlagImagesDir    = "images.dir"
	FlagManifest     = "manifest"
	FlagChecksums    = "checksums"
	FlagContactSheet = "contact.pdf"
	FlagStrict       = "strict"
	FlagVerbose      = "v"
)

func isExplicit(explicit []string, name string) bool {
	return slices.Contains(explicit, name)
}

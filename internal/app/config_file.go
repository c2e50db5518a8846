package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
    Input  string `yaml:"input" json:"input"`
    Output string `yaml:"output" json:"output"`

    Images struct {
        Dir string `yaml:"dir" json:"dir"`
    } `yaml:"images" json:"images"`

    Report struct {
        Manifest     string `yaml:"manifest" json:"manifest"`
        Checksums    bool   `yaml:"checksums" json:"checksums"`
        ContactSheet string `yaml:"contactSheet" json:"contactSheet"`
    } `yaml:"report" json:"report"`

    Strict  bool `yaml:"strict" json:"strict"`
    Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// unset or still at their flag default. Settings named in explicit were given
// on the command line and always win.
func ApplyFileConfig(cfg *Config, fc FileConfig, explicit ...string) {
    if cfg == nil { return }
    free := func(name string) bool { return !isExplicit(explicit, name) }

    if free(FlagInput) && (cfg.InputPath == "" || cfg.InputPath == DefaultInputPath) && fc.Input != "" { cfg.InputPath = fc.Input }
    if free(FlagOutput) && cfg.OutputPath == "" && fc.Output != "" { cfg.OutputPath = fc.Output }
    if free(FlagImagesDir) && (cfg.ImagesDir == "" || cfg.ImagesDir == DefaultImagesDir) && fc.Images.Dir != "" { cfg.ImagesDir = fc.Images.Dir }

    if free(FlagManifest) && cfg.ManifestPath == "" && fc.Report.Manifest != "" { cfg.ManifestPath = fc.Report.Manifest }
    if free(FlagChecksums) && !cfg.Checksums && fc.Report.Checksums { cfg.Checksums = true }
    if free(FlagContactSheet) && cfg.ContactSheetPath == "" && fc.Report.ContactSheet != "" { cfg.ContactSheetPath = fc.Report.ContactSheet }

    if free(FlagStrict) && !cfg.Strict && fc.Strict { cfg.Strict = true }
    if free(FlagVerbose) && !cfg.Verbose && fc.Verbose { cfg.Verbose = true }
}

// ValidateConfig performs minimal validation for required settings.
func ValidateConfig(cfg Config) error {
    if strings.TrimSpace(cfg.InputPath) == "" {
        return errors.New("config: input path is required")
    }
    if strings.TrimSpace(cfg.ImagesDir) == "" {
        return errors.New("config: images dir is required")
    }
    if strings.TrimSpace(cfg.OutputPath) != "" && filepath.Clean(cfg.OutputPath) == filepath.Clean(cfg.InputPath) {
        return errors.New("config: output path must differ from input path")
    }
    return nil
}

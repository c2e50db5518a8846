package app

import (
    "bufio"
    "errors"
    "os"
    "strings"
)

// Environment variables understood by ApplyEnvToConfig.
const (
    EnvInput        = "IMGEXTRACT_INPUT"
    EnvOutput       = "IMGEXTRACT_OUTPUT"
    EnvImagesDir    = "IMGEXTRACT_IMAGES_DIR"
    EnvManifest     = "IMGEXTRACT_MANIFEST"
    EnvContactSheet = "IMGEXTRACT_CONTACT_SHEET"
    EnvVerbose      = "IMGEXTRACT_VERBOSE"
)

// ApplyEnvToConfig populates fields of cfg from environment variables when
// they are unset or at their flag default. Settings named in explicit (flag
// names, see Flag*) were given on the command line and are left alone.
func ApplyEnvToConfig(cfg *Config, explicit ...string) {
    if cfg == nil { return }

    setString := func(dst *string, key, def, flagName string) {
        if isExplicit(explicit, flagName) { return }
        if *dst != "" && *dst != def { return }
        if v := strings.TrimSpace(os.Getenv(key)); v != "" { *dst = v }
    }
    setString(&cfg.InputPath, EnvInput, DefaultInputPath, FlagInput)
    setString(&cfg.OutputPath, EnvOutput, "", FlagOutput)
    setString(&cfg.ImagesDir, EnvImagesDir, DefaultImagesDir, FlagImagesDir)
    setString(&cfg.ManifestPath, EnvManifest, "", FlagManifest)
    setString(&cfg.ContactSheetPath, EnvContactSheet, "", FlagContactSheet)

    if !cfg.Verbose && !isExplicit(explicit, FlagVerbose) {
        switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvVerbose))) {
        case "1", "true", "yes", "on":
            cfg.Verbose = true
        }
    }
}

// LoadEnvFiles loads dotenv files of KEY=VALUE lines into the process
// environment without replacing variables that are already set. Missing files
// are skipped.
func LoadEnvFiles(paths ...string) error {
    for _, p := range paths {
        if strings.TrimSpace(p) == "" { continue }
        f, err := os.Open(p)
        if errors.Is(err, os.ErrNotExist) { continue }
        if err != nil { return err }
        err = loadEnv(f)
        f.Close()
        if err != nil { return err }
    }
    return nil
}

func loadEnv(f *os.File) error {
    sc := bufio.NewScanner(f)
    for sc.Scan() {
        line := strings.TrimSpace(sc.Text())
        if line == "" || strings.HasPrefix(line, "#") { continue }
        line = strings.TrimPrefix(line, "export ")
        key, val, ok := strings.Cut(line, "=")
        if !ok { continue }
        key = strings.TrimSpace(key)
        val = strings.Trim(strings.TrimSpace(val), `"'`)
        if _, set := os.LookupEnv(key); set { continue }
        if err := os.Setenv(key, val); err != nil { return err }
    }
    return sc.Err()
}

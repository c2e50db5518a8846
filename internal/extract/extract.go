package extract

import (
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "strings"

    "github.com/gabriel-vasile/mimetype"
    "github.com/rs/zerolog/log"

    "github.com/hyperifyio/imgextract/internal/datauri"
    "github.com/hyperifyio/imgextract/internal/document"
    "github.com/hyperifyio/imgextract/internal/naming"
)

// DefaultOutputDir is used when Options.OutputDir is empty.
const DefaultOutputDir = "images"

// raceRetries bounds how often a write may lose an exclusive-create race
// against another writer before the image is given up.
const raceRetries = 16

// Options configures a DataURIExtractor.
type Options struct {
    OutputDir string
    Names     naming.Generator
    DirPerm   fs.FileMode
    FilePerm  fs.FileMode
}

// DataURIExtractor moves whitelisted base64 images out of a document and into
// files under OutputDir.
type DataURIExtractor struct {
    opts Options
}

// New returns a DataURIExtractor with defaults filled in.
func New(opts Options) *DataURIExtractor {
    if opts.OutputDir == "" {
        opts.OutputDir = DefaultOutputDir
    }
    if opts.DirPerm == 0 {
        opts.DirPerm = 0o755
    }
    if opts.FilePerm == 0 {
        opts.FilePerm = 0o644
    }
    return &DataURIExtractor{opts: opts}
}

// OutputDir returns the directory images are written to.
func (e *DataURIExtractor) OutputDir() string { return e.opts.OutputDir }

// SaveBase64Images processes the HTML file at htmlPath, writes each embedded
// image under outputDir and returns the rewritten document.
func SaveBase64Images(htmlPath, outputDir string) (string, error) {
    out, _, err := New(Options{OutputDir: outputDir}).ExtractFile(htmlPath)
    return out, err
}

// ExtractFile loads htmlPath, extracts its images and returns the rendered
// result with the per-image report. Only a load or render failure is returned
// as an error.
func (e *DataURIExtractor) ExtractFile(htmlPath string) (string, Report, error) {
    doc, err := document.Load(htmlPath)
    if err != nil {
        return "", Report{}, err
    }
    rep := e.Extract(doc)
    out, err := doc.Render()
    if err != nil {
        return "", rep, err
    }
    return out, rep, nil
}

// Extract rewrites doc in place. Failures are recorded per image and never
// stop the run.
func (e *DataURIExtractor) Extract(doc *document.Document) Report {
    rep := Report{OutputDir: e.opts.OutputDir}
    if err := os.MkdirAll(e.opts.OutputDir, e.opts.DirPerm); err != nil {
        // Every write below will fail and be recorded individually.
        log.Error().Err(err).Str("dir", e.opts.OutputDir).Msg("create output dir failed")
        rep.DirErr = err
    }

    for _, img := range doc.Images() {
        rep.Images++
        src := img.Src()
        ref, err := datauri.Parse(src)
        if err != nil {
            continue
        }
        res := e.extractOne(img.Index, ref)
        if res.Status == StatusWritten {
            img.SetSrc(res.Path)
        }
        rep.Results = append(rep.Results, res)
    }

    log.Info().
        Int("images", rep.Images).
        Int("matched", len(rep.Results)).
        Int("written", rep.Written()).
        Int("failed", rep.Failed()).
        Str("dir", rep.OutputDir).
        Msg("extraction finished")
    return rep
}

func (e *DataURIExtractor) extractOne(index int, ref datauri.Ref) Result {
    res := Result{Index: index, MIME: ref.MIME}
    data, err := datauri.Decode(ref)
    if err != nil {
        res.Status = StatusDecodeError
        res.Err = err
        log.Warn().Err(err).Int("index", index).Str("mime", ref.MIME).Msg("decode failed; skipping image")
        return res
    }
    res.Bytes = len(data)
    mt := mimetype.Detect(data)
    res.Detected = mt.String()
    if !mt.Is(ref.MIME) {
        log.Warn().Int("index", index).Str("declared", ref.MIME).Str("detected", res.Detected).Msg("content does not look like declared type")
    }

    name, err := e.persist(ref.Extension(), data)
    if err != nil {
        res.Status = StatusIOError
        res.Err = err
        log.Warn().Err(err).Int("index", index).Str("mime", ref.MIME).Msg("write failed; skipping image")
        return res
    }
    sum := sha256.Sum256(data)
    res.SHA256 = hex.EncodeToString(sum[:])
    res.Path = srcPath(e.opts.OutputDir, name)
    res.Status = StatusWritten
    log.Debug().Int("index", index).Str("path", res.Path).Int("bytes", res.Bytes).Msg("image written")
    return res
}

// persist picks a free name and writes data with an exclusive create, so a
// file that appeared after the existence probe is never overwritten. It
// returns the bare file name.
func (e *DataURIExtractor) persist(ext string, data []byte) (string, error) {
    dir := e.opts.OutputDir
    for i := 0; i < raceRetries; i++ {
        name, err := e.opts.Names.Name(dir, ext)
        if err != nil {
            return "", err
        }
        p := filepath.Join(dir, name)
        err = writeExclusive(p, data, e.opts.FilePerm)
        if errors.Is(err, fs.ErrExist) {
            continue
        }
        if err != nil {
            return "", err
        }
        return name, nil
    }
    return "", fmt.Errorf("%w: %s.%s kept colliding with concurrent writers", naming.ErrExhausted, dir, ext)
}

// srcPath joins dir and name the way they are written into src: forward
// slashes, and dir kept as configured (a leading "./" survives).
func srcPath(dir, name string) string {
    d := filepath.ToSlash(dir)
    if d == "" {
        return name
    }
    if !strings.HasSuffix(d, "/") {
        d += "/"
    }
    return d + name
}

func writeExclusive(path string, data []byte, perm fs.FileMode) error {
    f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
    if err != nil {
        return fmt.Errorf("create %s: %w", path, err)
    }
    if _, err := f.Write(data); err != nil {
        f.Close()
        _ = os.Remove(path)
        return fmt.Errorf("write %s: %w", path, err)
    }
    if err := f.Close(); err != nil {
        _ = os.Remove(path)
        return fmt.Errorf("close %s: %w", path, err)
    }
    return nil
}

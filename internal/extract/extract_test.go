package extract

import (
    "bytes"
    "encoding/base64"
    "os"
    "path/filepath"
    "regexp"
    "strings"
    "testing"
    "time"

    "github.com/hyperifyio/imgextract/internal/document"
    "github.com/hyperifyio/imgextract/internal/naming"
)

const pngSig = "iVBORw0KGgo="

var fixedTS = time.Unix(1700000000, 0)

func writeHTML(t *testing.T, dir, content string) string {
    t.Helper()
    p := filepath.Join(dir, "page.html")
    if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
        t.Fatalf("write input: %v", err)
    }
    return p
}

func TestExtractFile_PNGScenario(t *testing.T) {
    dir := t.TempDir()
    outDir := filepath.Join(dir, "images")
    in := writeHTML(t, dir, `<img src="data:image/png;base64,`+pngSig+`">`)

    e := New(Options{OutputDir: outDir, Names: naming.Generator{ID: naming.Sequence("deadbeef"), Now: naming.FixedClock(fixedTS)}})
    out, rep, err := e.ExtractFile(in)
    if err != nil {
        t.Fatalf("extract: %v", err)
    }
    wantPath := filepath.ToSlash(filepath.Join(outDir, "deadbeef_1700000000.png"))
    if out != `<img src="`+wantPath+`"/>` {
        t.Fatalf("unexpected output %q", out)
    }
    got, err := os.ReadFile(wantPath)
    if err != nil {
        t.Fatalf("read extracted: %v", err)
    }
    want, _ := base64.StdEncoding.DecodeString(pngSig)
    if !bytes.Equal(got, want) {
        t.Fatalf("expected %v, got %v", want, got)
    }
    if rep.Written() != 1 || rep.Failed() != 0 {
        t.Fatalf("unexpected report %+v", rep)
    }
    r := rep.Results[0]
    if r.Status != StatusWritten || r.MIME != "image/png" || r.Detected != "image/png" || r.Bytes != 8 || r.SHA256 == "" {
        t.Fatalf("unexpected result %+v", r)
    }
}

func TestSaveBase64Images_DefaultDirIsRelative(t *testing.T) {
    dir := t.TempDir()
    chdir(t, dir)
    in := writeHTML(t, dir, `<p>x</p><img src="data:image/jpeg;base64,/9j/4AAQSkZJRg==">`)

    out, err := SaveBase64Images(in, "")
    if err != nil {
        t.Fatalf("extract: %v", err)
    }
    re := regexp.MustCompile(`<img src="images/([0-9a-f]{8}_[0-9]+\.jpeg)"/>`)
    m := re.FindStringSubmatch(out)
    if m == nil {
        t.Fatalf("expected relative jpeg reference, got %q", out)
    }
    if _, err := os.Stat(filepath.Join(dir, "images", m[1])); err != nil {
        t.Fatalf("expected extracted file: %v", err)
    }
}

func TestExtract_SVGWrittenAsText(t *testing.T) {
    dir := t.TempDir()
    svg := `<svg xmlns="http://www.w3.org/2000/svg"><text>héllo</text></svg>`
    enc := base64.StdEncoding.EncodeToString([]byte(svg))
    doc, err := document.ParseBytes([]byte(`<img src="data:image/svg+xml;base64,` + enc + `">`))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    rep := New(Options{OutputDir: dir}).Extract(doc)
    if rep.Written() != 1 {
        t.Fatalf("expected one written image, got %+v", rep)
    }
    p := rep.Results[0].Path
    if !strings.HasSuffix(p, ".svg") {
        t.Fatalf("expected .svg extension, got %q", p)
    }
    b, err := os.ReadFile(p)
    if err != nil {
        t.Fatalf("read: %v", err)
    }
    if string(b) != svg {
        t.Fatalf("expected %q, got %q", svg, string(b))
    }
    if rep.Results[0].Detected != "image/svg+xml" {
        t.Fatalf("expected svg to be sniffed, got %q", rep.Results[0].Detected)
    }
}

func TestExtract_NonMatchingSourcesUntouched(t *testing.T) {
    dir := t.TempDir()
    in := `<img src="https://example.com/a.png"/><img src="data:image/gif;base64,R0lGODlhAQABAAAAACw="/><img src="DATA:image/png;base64,` + pngSig + `"/><img src="local/b.jpeg"/>`
    doc, err := document.ParseBytes([]byte(in))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    rep := New(Options{OutputDir: filepath.Join(dir, "images")}).Extract(doc)
    out, _ := doc.Render()
    if out != in {
        t.Fatalf("expected output unchanged\nwant %q\ngot  %q", in, out)
    }
    if rep.Images != 4 || len(rep.Results) != 0 || rep.Unmatched() != 4 {
        t.Fatalf("unexpected report %+v", rep)
    }
    entries, _ := os.ReadDir(filepath.Join(dir, "images"))
    if len(entries) != 0 {
        t.Fatalf("expected no files, got %d", len(entries))
    }
}

func TestExtract_MalformedPayloadSkippedAndRunContinues(t *testing.T) {
    dir := t.TempDir()
    bad := `data:image/png;base64,@@@not base64@@@`
    doc, err := document.ParseBytes([]byte(`<img src="` + bad + `"><img src="data:image/png;base64,` + pngSig + `">`))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    rep := New(Options{OutputDir: dir}).Extract(doc)
    if len(rep.Results) != 2 {
        t.Fatalf("expected two matched images, got %d", len(rep.Results))
    }
    if rep.Results[0].Status != StatusDecodeError || rep.Results[0].Err == nil {
        t.Fatalf("expected decode error first, got %+v", rep.Results[0])
    }
    if rep.Results[1].Status != StatusWritten {
        t.Fatalf("expected second image written, got %+v", rep.Results[1])
    }
    imgs := doc.Images()
    if imgs[0].Src() != bad {
        t.Fatalf("expected malformed src unchanged, got %q", imgs[0].Src())
    }
    entries, _ := os.ReadDir(dir)
    if len(entries) != 1 {
        t.Fatalf("expected exactly one file, got %d", len(entries))
    }
}

func TestExtract_IdenticalPayloadsGetDistinctFiles(t *testing.T) {
    dir := t.TempDir()
    img := `<img src="data:image/png;base64,` + pngSig + `">`
    doc, _ := document.ParseBytes([]byte(img + img))
    e := New(Options{OutputDir: dir, Names: naming.Generator{Now: naming.FixedClock(fixedTS)}})
    rep := e.Extract(doc)
    if rep.Written() != 2 {
        t.Fatalf("expected two files, got %+v", rep)
    }
    a, b := rep.Results[0].Path, rep.Results[1].Path
    if a == b {
        t.Fatalf("expected distinct names, got %q twice", a)
    }
    imgs := doc.Images()
    if imgs[0].Src() != a || imgs[1].Src() != b {
        t.Fatalf("expected each element to reference its own file")
    }
}

func TestExtract_RegeneratesOnSameTimestampCollision(t *testing.T) {
    dir := t.TempDir()
    img := `<img src="data:image/png;base64,` + pngSig + `">`
    doc, _ := document.ParseBytes([]byte(img + img))
    e := New(Options{OutputDir: dir, Names: naming.Generator{
        ID:  naming.Sequence("aaaaaaaa", "aaaaaaaa", "bbbbbbbb"),
        Now: naming.FixedClock(fixedTS),
    }})
    rep := e.Extract(doc)
    if rep.Written() != 2 {
        t.Fatalf("expected two files, got %+v", rep)
    }
    if filepath.Base(rep.Results[0].Path) != "aaaaaaaa_1700000000.png" {
        t.Fatalf("unexpected first name %q", rep.Results[0].Path)
    }
    if filepath.Base(rep.Results[1].Path) != "bbbbbbbb_1700000000.png" {
        t.Fatalf("unexpected second name %q", rep.Results[1].Path)
    }
}

func TestExtract_NeverOverwritesFileMissedByProbe(t *testing.T) {
    dir := t.TempDir()
    taken := filepath.Join(dir, "aaaaaaaa_1700000000.png")
    if err := os.WriteFile(taken, []byte("keep"), 0o644); err != nil {
        t.Fatalf("seed: %v", err)
    }
    doc, _ := document.ParseBytes([]byte(`<img src="data:image/png;base64,` + pngSig + `">`))
    e := New(Options{OutputDir: dir, Names: naming.Generator{
        ID:     naming.Sequence("aaaaaaaa", "bbbbbbbb"),
        Now:    naming.FixedClock(fixedTS),
        Exists: func(string) bool { return false },
    }})
    rep := e.Extract(doc)
    if rep.Written() != 1 || filepath.Base(rep.Results[0].Path) != "bbbbbbbb_1700000000.png" {
        t.Fatalf("expected retry with a new id, got %+v", rep.Results)
    }
    b, _ := os.ReadFile(taken)
    if string(b) != "keep" {
        t.Fatalf("existing file was overwritten")
    }
}

func TestExtract_WriteFailureLeavesSourceUnchanged(t *testing.T) {
    dir := t.TempDir()
    blocker := filepath.Join(dir, "images")
    if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
        t.Fatalf("seed: %v", err)
    }
    src := `data:image/png;base64,` + pngSig
    doc, _ := document.ParseBytes([]byte(`<img src="` + src + `">`))
    rep := New(Options{OutputDir: blocker}).Extract(doc)
    if rep.DirErr == nil {
        t.Fatalf("expected directory error")
    }
    if len(rep.Results) != 1 || rep.Results[0].Status != StatusIOError || rep.Results[0].Err == nil {
        t.Fatalf("expected io error, got %+v", rep.Results)
    }
    if doc.Images()[0].Src() != src {
        t.Fatalf("expected src unchanged")
    }
    if len(rep.Errors()) != 1 {
        t.Fatalf("expected one collected error")
    }
}

func TestExtractFile_MissingInputIsFatal(t *testing.T) {
    if _, _, err := New(Options{OutputDir: t.TempDir()}).ExtractFile(filepath.Join(t.TempDir(), "nope.html")); err == nil {
        t.Fatalf("expected error for missing input")
    }
}

func TestExtract_ImagesInsideNoscript(t *testing.T) {
    img := `<img src="data:image/png;base64,` + pngSig + `">`
    for _, in := range []string{
        `<noscript>` + img + `</noscript>`,
        `<!DOCTYPE html><html><head></head><body><noscript>` + img + `</noscript></body></html>`,
    } {
        dir := t.TempDir()
        doc, err := document.ParseBytes([]byte(in))
        if err != nil {
            t.Fatalf("parse: %v", err)
        }
        rep := New(Options{OutputDir: dir}).Extract(doc)
        if rep.Images != 1 || rep.Written() != 1 {
            t.Fatalf("expected the noscript image extracted for %q, got %+v", in, rep)
        }
        out, _ := doc.Render()
        if strings.Contains(out, "data:image/png") {
            t.Fatalf("expected data URI replaced, got %q", out)
        }
        if !strings.Contains(out, `src="`+rep.Results[0].Path+`"`) {
            t.Fatalf("expected reference to %q in %q", rep.Results[0].Path, out)
        }
    }
}

func TestExtract_KeepsConfiguredDirPrefix(t *testing.T) {
    dir := t.TempDir()
    chdir(t, dir)
    doc, _ := document.ParseBytes([]byte(`<img src="data:image/png;base64,` + pngSig + `">`))
    e := New(Options{OutputDir: "./images", Names: naming.Generator{ID: naming.Sequence("deadbeef"), Now: naming.FixedClock(fixedTS)}})
    rep := e.Extract(doc)
    if rep.Written() != 1 {
        t.Fatalf("expected one file, got %+v", rep)
    }
    if rep.Results[0].Path != "./images/deadbeef_1700000000.png" {
        t.Fatalf("expected ./images prefix kept, got %q", rep.Results[0].Path)
    }
    if _, err := os.Stat(filepath.Join(dir, "images", "deadbeef_1700000000.png")); err != nil {
        t.Fatalf("expected file on disk: %v", err)
    }
    if got := srcPath("images/", "a.png"); got != "images/a.png" {
        t.Fatalf("expected single separator, got %q", got)
    }
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the duration of the test and restores it after.
func chdir(t *testing.T, dir string) {
    t.Helper()
    prev, err := os.Getwd()
    if err != nil {
        t.Fatalf("getwd: %v", err)
    }
    if err := os.Chdir(dir); err != nil {
        t.Fatalf("chdir: %v", err)
    }
    t.Cleanup(func() { _ = os.Chdir(prev) })
}

// Package report turns an extraction report into files a user can keep next
// to the rewritten page: a manifest, a checksum list and a contact sheet.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/imgextract/internal/extract"
)

// Meta captures run-level details.
type Meta struct {
	Tool        string    `json:"tool" yaml:"tool"`
	Version     string    `json:"version" yaml:"version"`
	Input       string    `json:"input" yaml:"input"`
	Output      string    `json:"output" yaml:"output"`
	ImagesDir   string    `json:"images_dir" yaml:"images_dir"`
	Images      int       `json:"images" yaml:"images"`
	Matched     int       `json:"matched" yaml:"matched"`
	Written     int       `json:"written" yaml:"written"`
	Failed      int       `json:"failed" yaml:"failed"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Entry is a compact record of one matched image.
type Entry struct {
	Index    int    `json:"index" yaml:"index"`
	Status   string `json:"status" yaml:"status"`
	MIME     string `json:"mime" yaml:"mime"`
	Detected string `json:"detected,omitempty" yaml:"detected,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Bytes    int    `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	SHA256   string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Manifest is the document written by WriteManifest.
type Manifest struct {
	Meta    Meta    `json:"meta" yaml:"meta"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Build fills the counters of meta from rep and converts each result.
func Build(meta Meta, rep extract.Report) Manifest {
	meta.ImagesDir = rep.OutputDir
	meta.Images = rep.Images
	meta.Matched = len(rep.Results)
	meta.Written = rep.Written()
	meta.Failed = rep.Failed()
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	entries := make([]Entry, 0, len(rep.Results))
	for _, r := range rep.Results {
		e := Entry{
			Index:    r.Index,
			Status:   string(r.Status),
			MIME:     r.MIME,
			Detected: r.Detected,
			Path:     r.Path,
			Bytes:    r.Bytes,
			SHA256:   r.SHA256,
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		entries = append(entries, e)
	}
	return Manifest{Meta: meta, Entries: entries}
}

// Marshal encodes m as YAML for .yaml/.yml paths and as indented JSON otherwise.
func Marshal(path string, m Manifest) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(m)
	default:
		b, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
}

// WriteManifest writes m to path via a temporary file and rename.
func WriteManifest(path string, m Manifest) error {
	data, err := Marshal(path, m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir manifest dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// Written returns the entries whose image reached disk.
func (m Manifest) Written() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if e.Status == string(extract.StatusWritten) {
			out = append(out, e)
		}
	}
	return out
}

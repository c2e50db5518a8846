package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SumsFile is the name of the checksum list written into the images dir.
const SumsFile = "SHA256SUMS"

// WriteSHA256SUMS writes dir/SHA256SUMS in the format accepted by
// `sha256sum -c`, covering the given file names (relative to dir).
func WriteSHA256SUMS(dir string, names []string) (string, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, name := range sorted {
		sum, err := sha256File(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("checksum %s: %w", name, err)
		}
		b.WriteString(sum)
		b.WriteString("  ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	p := filepath.Join(dir, SumsFile)
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil { return "", err }
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil { return "", err }
	return hex.EncodeToString(h.Sum(nil)), nil
}

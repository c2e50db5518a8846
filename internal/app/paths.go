package app

import (
    "path/filepath"
    "strings"
)

// DeriveOutputPath returns the rewritten document's default location:
// "dir/page.html" becomes "dir/page_new.html".
func DeriveOutputPath(input string) string {
    ext := filepath.Ext(input)
    base := strings.TrimSuffix(input, ext)
    if ext == "" { ext = ".html" }
    return base + "_new" + ext
}

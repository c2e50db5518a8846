package extract

import "github.com/hyperifyio/imgextract/internal/document"

// Extractor defines a minimal interface for image extraction strategies.
// Callers only see the rewritten tree and the report.
type Extractor interface {
    // Extract rewrites doc in place and reports what happened per image.
    Extract(doc *document.Document) Report
}

var _ Extractor = (*DataURIExtractor)(nil)

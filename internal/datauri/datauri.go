// Package datauri recognizes and decodes the inline image data URIs the
// extractor is willing to handle.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotDataURI is returned by Parse when the value is not a whitelisted
	// base64 image data URI.
	ErrNotDataURI = errors.New("not a supported image data URI")
	// ErrDecode marks payloads that cannot be turned back into file content.
	ErrDecode = errors.New("decode failed")
)

// Pattern matches the header of the supported data URIs. The scheme is
// case-sensitive and the MIME list is exact.
var Pattern = regexp.MustCompile(`^data:(image/(png|jpeg|svg\+xml));base64,`)

// Ref is a parsed data URI taken from an image source attribute.
type Ref struct {
	// MIME is the full media type, e.g. "image/png".
	MIME string
	// Subtype is the part after the slash, e.g. "svg+xml".
	Subtype string
	// Header is everything before the first comma.
	Header string
	// Payload is the raw base64 text after the first comma.
	Payload string
}

// Parse splits src into header and payload when it is a supported data URI.
func Parse(src string) (Ref, error) {
	m := Pattern.FindStringSubmatch(src)
	if m == nil {
		return Ref{}, ErrNotDataURI
	}
	header, payload, _ := strings.Cut(src, ",")
	return Ref{MIME: m[1], Subtype: m[2], Header: header, Payload: payload}, nil
}

// Match reports whether src would be accepted by Parse.
func Match(src string) bool { return Pattern.MatchString(src) }

// Extension returns the file extension for the reference, without the dot.
func (r Ref) Extension() string {
	return strings.TrimSuffix(r.Subtype, "+xml")
}

// IsText reports whether the decoded content is text and must be valid UTF-8.
func (r Ref) IsText() bool {
	return strings.HasPrefix(r.Subtype, "svg")
}

// Decode returns the file content for r. ASCII whitespace inside the payload
// is dropped before decoding since data URIs are frequently line-wrapped.
func Decode(r Ref) ([]byte, error) {
	payload := stripSpace(r.Payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}
	if r.IsText() && !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s content is not valid UTF-8", ErrDecode, r.MIME)
	}
	return data, nil
}

func stripSpace(s string) string {
	if strings.IndexAny(s, " \t\r\n\f") == -1 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '\f':
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Package document wraps an HTML tree with the few operations the extractor
// needs: enumerate images, rewrite their source, and serialize the result.
package document

import (
    "bytes"
    "errors"
    "fmt"
    "io"
    "os"
    "unicode/utf8"

    "github.com/PuerkitoBio/goquery"
    "golang.org/x/net/html"
    "golang.org/x/net/html/atom"
    "golang.org/x/text/encoding/unicode"
    "golang.org/x/text/transform"
)

// ErrNotUTF8 is returned when the input is neither UTF-8 nor carries a BOM
// that identifies another Unicode encoding.
var ErrNotUTF8 = errors.New("input is not valid UTF-8")

// Document is a parsed, mutable HTML tree.
type Document struct {
    root     *html.Node
    doc      *goquery.Document
    fragment bool
}

// Image is one <img> element of a Document. SetSrc mutates the tree in place.
type Image struct {
    Index int
    sel   *goquery.Selection
}

// Load reads and parses the file at path.
func Load(path string) (*Document, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read html: %w", err)
    }
    return ParseBytes(b)
}

// Parse reads all of r and parses it.
func Parse(r io.Reader) (*Document, error) {
    b, err := io.ReadAll(r)
    if err != nil {
        return nil, fmt.Errorf("read html: %w", err)
    }
    return ParseBytes(b)
}

// ParseBytes parses raw input. A leading BOM is honored and removed. Inputs
// that do not open with a doctype or an <html>, <head> or <body> tag are
// parsed as a body fragment so rendering does not add wrappers. Scripting is
// off, so <noscript> content is parsed as markup.
func ParseBytes(b []byte) (*Document, error) {
    text, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), b)
    if err != nil {
        return nil, fmt.Errorf("decode html: %w", err)
    }
    if !utf8.Valid(text) {
        return nil, ErrNotUTF8
    }

    if isFullDocument(text) {
        root, err := html.ParseWithOptions(bytes.NewReader(text), html.ParseOptionEnableScripting(false))
        if err != nil {
            return nil, fmt.Errorf("parse html: %w", err)
        }
        return &Document{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
    }

    body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
    nodes, err := html.ParseFragmentWithOptions(bytes.NewReader(text), body, html.ParseOptionEnableScripting(false))
    if err != nil {
        return nil, fmt.Errorf("parse html fragment: %w", err)
    }
    root := &html.Node{Type: html.DocumentNode}
    for _, n := range nodes {
        root.AppendChild(n)
    }
    return &Document{root: root, doc: goquery.NewDocumentFromNode(root), fragment: true}, nil
}

// isFullDocument looks at the first token that is not a comment or blank text.
// Tags inside attribute values, comments or scripts never count.
func isFullDocument(text []byte) bool {
    z := html.NewTokenizer(bytes.NewReader(text))
    for {
        switch z.Next() {
        case html.ErrorToken:
            return false
        case html.CommentToken:
            continue
        case html.TextToken:
            if len(bytes.TrimSpace(z.Text())) == 0 {
                continue
            }
            return false
        case html.DoctypeToken:
            return true
        case html.StartTagToken, html.SelfClosingTagToken:
            name, _ := z.TagName()
            switch atom.Lookup(name) {
            case atom.Html, atom.Head, atom.Body:
                return true
            }
            return false
        default:
            return false
        }
    }
}

// Fragment reports whether the input was parsed as a fragment.
func (d *Document) Fragment() bool { return d.fragment }

// Images returns every <img> carrying a src attribute, in document order.
func (d *Document) Images() []*Image {
    var out []*Image
    d.doc.Find("img[src]").Each(func(i int, s *goquery.Selection) {
        out = append(out, &Image{Index: i, sel: s})
    })
    return out
}

// Render serializes the current tree.
func (d *Document) Render() (string, error) {
    var buf bytes.Buffer
    if !d.fragment {
        if err := html.Render(&buf, d.root); err != nil {
            return "", fmt.Errorf("render html: %w", err)
        }
        return buf.String(), nil
    }
    for c := d.root.FirstChild; c != nil; c = c.NextSibling {
        if err := html.Render(&buf, c); err != nil {
            return "", fmt.Errorf("render html: %w", err)
        }
    }
    return buf.String(), nil
}

// Src returns the current source attribute.
func (img *Image) Src() string {
    v, _ := img.sel.Attr("src")
    return v
}

// SetSrc replaces the source attribute.
func (img *Image) SetSrc(v string) {
    img.sel.SetAttr("src", v)
}

// Attr returns another attribute of the element, e.g. alt.
func (img *Image) Attr(name string) (string, bool) {
    return img.sel.Attr(name)
}

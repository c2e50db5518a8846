package report

import (
    "bytes"
    "fmt"
    "image"
    _ "image/jpeg"
    _ "image/png"
    "os"
    "path/filepath"

    "github.com/jung-kurt/gofpdf"
)

const (
    pageBottom = 280.0
    thumbMax   = 40.0
    margin     = 10.0
)

// WriteContactSheet renders a simple A4 PDF listing every written image with a
// thumbnail for PNG and JPEG content. Entries that cannot be drawn (SVG, or
// raster data the decoder rejects) are listed as text only so one bad image
// does not fail the whole sheet.
func WriteContactSheet(outPath string, entries []Entry) error {
    pdf := gofpdf.New("P", "mm", "A4", "")
    pdf.SetMargins(margin, margin, margin)
    pdf.SetAutoPageBreak(false, margin)
    pdf.AddPage()
    pdf.SetFont("Helvetica", "B", 14)
    pdf.CellFormat(0, 8, fmt.Sprintf("Extracted images (%d)", len(entries)), "", 1, "L", false, 0, "")
    pdf.Ln(2)
    pdf.SetFont("Helvetica", "", 10)

    for _, e := range entries {
        w, h, typ, ok := thumbnail(e)
        rowH := 6.0
        if ok && h > rowH {
            rowH = h
        }
        if pdf.GetY()+rowH > pageBottom {
            pdf.AddPage()
        }
        y := pdf.GetY()
        textX := margin
        if ok {
            pdf.ImageOptions(e.Path, margin, y, w, h, false, gofpdf.ImageOptions{ImageType: typ}, 0, "")
            textX = margin + thumbMax + 5
        }
        pdf.SetXY(textX, y)
        caption := fmt.Sprintf("#%d  %s\n%s, %d bytes", e.Index, filepath.Base(e.Path), e.MIME, e.Bytes)
        if !ok {
            caption += " (not rendered)"
        }
        pdf.MultiCell(0, 5, caption, "", "L", false)
        pdf.SetY(y + rowH + 4)
        if err := pdf.Error(); err != nil {
            return fmt.Errorf("contact sheet: %w", err)
        }
    }
    return pdf.OutputFileAndClose(outPath)
}

// thumbnail returns the drawn size and gofpdf image type for e, or ok=false
// when the file is not a raster image the PDF writer can embed.
func thumbnail(e Entry) (w, h float64, typ string, ok bool) {
    switch e.MIME {
    case "image/png":
        typ = "PNG"
    case "image/jpeg":
        typ = "JPG"
    default:
        return 0, 0, "", false
    }
    data, err := os.ReadFile(e.Path)
    if err != nil {
        return 0, 0, "", false
    }
    cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
    if err != nil || cfg.Width == 0 || cfg.Height == 0 {
        return 0, 0, "", false
    }
    if typ == "PNG" && !pngEmbeddable(data) {
        return 0, 0, "", false
    }
    scale := thumbMax / float64(max(cfg.Width, cfg.Height))
    return float64(cfg.Width) * scale, float64(cfg.Height) * scale, typ, true
}

// pngEmbeddable reports whether gofpdf can embed the PNG: it rejects 16-bit
// samples and interlaced images, and its errors are sticky for the document.
func pngEmbeddable(data []byte) bool {
    // IHDR: bit depth at offset 24, interlace method at offset 28.
    if len(data) < 29 {
        return false
    }
    return data[24] <= 8 && data[28] == 0
}

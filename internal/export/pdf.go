package export

import (
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
)

const (
	pdfMargin   = 14.0 // mm, about 40pt
	pdfWrapCols = 100
	pdfLineH    = 4.2
)

// Fixed document dates keep output byte-stable.
var pdfEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// WritePDF renders doc as a two-page A4 PDF: the snapshot, PFM and QA
// sections on page one, bottlenecks and recommendations on page two. Long
// items wrap at 100 characters.
func WritePDF(w io.Writer, doc *ProfileDocument) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Title(), true)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading := func(s string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 7, tr(s), "", 1, "L", false, 0, "")
	}
	block := func(title string, items []string) {
		if title != "" {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, 5.5, tr(title), "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", 10)
		for _, it := range items {
			for _, ln := range wrap(it, pdfWrapCols) {
				pdf.SetX(pdfMargin + 3)
				pdf.CellFormat(0, pdfLineH, tr("• "+ln), "", 1, "L", false, 0, "")
			}
			pdf.Ln(1.4)
		}
		pdf.Ln(2.8)
	}

	pdf.AddPage()
	heading(doc.Title())
	block("Procurement Architecture", fieldLines(doc.Procurement))
	block("PFM Snapshot", fieldLines(doc.PFM))
	block("Quality Assurance", fieldLines(doc.QA))

	pdf.AddPage()
	heading("Bottlenecks & Risks")
	block("", doc.Bottlenecks)
	heading("Recommendations & Opportunities")
	block("", doc.Recommendations)

	if err := pdf.Output(w); err != nil {
		return eris.Wrap(err, "export: render pdf")
	}
	return nil
}

// wrap breaks s into lines of at most width runes on word boundaries. Words
// longer than width are split.
func wrap(s string, width int) []string {
	var (
		lines []string
		cur   []rune
	)
	for _, word := range strings.Fields(s) {
		rw := []rune(word)
		for len(rw) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(rw[:width]))
			rw = rw[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, rw...)
		case len(cur)+1+len(rw) <= width:
			cur = append(append(cur, ' '), rw...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), rw...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

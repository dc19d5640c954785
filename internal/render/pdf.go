// Package render draws balance sheets as A4 PDFs.
package render

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/bilancio"
	"github.com/go-pdf/fpdf"
)

const (
	margin       = 15.0
	descWidth    = 120.0
	amountWidth  = 40.0
	rowPadding   = 1.0
	headerHeight = 7.0
)

type rgb struct{ r, g, b int }

var (
	colorTitle      = rgb{0x1a, 0x23, 0x7e}
	colorSubtitle   = rgb{0x28, 0x35, 0x93}
	colorSection    = rgb{0x0d, 0x47, 0xa1}
	colorNoteTitle  = rgb{0x15, 0x65, 0xc0}
	colorTotalFill  = rgb{0xe3, 0xf2, 0xfd}
	colorHeadFill   = rgb{0xf5, 0xf5, 0xf5}
	colorGrid       = rgb{0xbd, 0xbd, 0xbd}
	colorFooterText = rgb{0x80, 0x80, 0x80}
)

// Bytes renders text as a structured balance sheet, falling back to a plain
// listing when the structured layout fails.
func Bytes(text string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := PDF(&buf, bilancio.Parse(text), now)
	if err == nil {
		return buf.Bytes(), nil
	}
	slog.Warn("Structured PDF failed, creating simple PDF.", "error", err)

	buf.Reset()
	if err := PlainPDF(&buf, text); err != nil {
		return nil, fmt.Errorf("failed to create fallback PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// File writes the rendered balance sheet to path.
func File(path, text string, now time.Time) error {
	data, err := Bytes(text, now)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type writer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newWriter() *writer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreator("Document-ocr", true)
	return &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (w *writer) font(style string, size float64, c rgb) {
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.SetTextColor(c.r, c.g, c.b)
}

func (w *writer) fill(c rgb) {
	w.pdf.SetFillColor(c.r, c.g, c.b)
}

func (w *writer) contentWidth() float64 {
	pageW, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	return pageW - left - right
}

// fits reports whether h more millimetres fit above the bottom margin.
func (w *writer) fits(h float64) bool {
	_, pageH := w.pdf.GetPageSize()
	_, _, _, bottom := w.pdf.GetMargins()
	return w.pdf.GetY()+h <= pageH-bottom
}

// PDF draws doc: header, ATTIVO and PASSIVO tables, CONTO ECONOMICO on a new
// page, notes on another, then the closing statement.
func PDF(out io.Writer, doc *bilancio.Document, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	w := newWriter()
	w.pdf.SetTitle("Bilancio d'esercizio", true)
	w.pdf.SetFooterFunc(func() {
		w.pdf.SetY(-10)
		w.font("I", 7, colorFooterText)
		w.pdf.CellFormat(0, 4, fmt.Sprintf("Pagina %d", w.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	w.pdf.AddPage()

	w.header(doc)
	w.table(bilancio.SectionAttivo, doc.Attivo)
	w.table(bilancio.SectionPassivo, doc.Passivo)

	w.pdf.AddPage()
	w.table(bilancio.SectionContoEconomico, doc.ContoEconomico)

	if len(doc.Notes) > 0 {
		w.pdf.AddPage()
		w.notes(doc.Notes)
	}
	w.closing(now)

	return w.pdf.Output(out)
}

func (w *writer) header(doc *bilancio.Document) {
	w.font("B", 16, colorTitle)
	w.pdf.CellFormat(0, 8, w.tr("BILANCIO D'ESERCIZIO"), "", 1, "C", false, 0, "")
	w.pdf.Ln(2)
	w.font("B", 12, colorSubtitle)
	w.pdf.CellFormat(0, 6, w.tr("STATO PATRIMONIALE E CONTO ECONOMICO"), "", 1, "C", false, 0, "")
	w.pdf.Ln(7)

	w.font("", 10, rgb{})
	if len(doc.Company) > 0 {
		w.pdf.MultiCell(0, 5, w.tr(strings.Join(doc.Company, "\n")), "", "C", false)
		w.pdf.Ln(5)
	}
	if doc.DateLine != "" {
		w.pdf.MultiCell(0, 5, w.tr(doc.DateLine), "", "C", false)
		w.pdf.Ln(5)
	}
	w.pdf.Ln(15)
}

func (w *writer) tableHeader() {
	w.font("B", 9, rgb{255, 255, 255})
	w.fill(colorTitle)
	w.pdf.SetDrawColor(colorGrid.r, colorGrid.g, colorGrid.b)
	w.pdf.SetLineWidth(0.2)
	w.pdf.CellFormat(descWidth, headerHeight, w.tr("Voce"), "1", 0, "L", true, 0, "")
	w.pdf.CellFormat(amountWidth, headerHeight, w.tr("Importo (€)"), "1", 1, "R", true, 0, "")
}

func (w *writer) table(title string, rows []bilancio.Row) {
	if len(rows) == 0 {
		return
	}

	if !w.fits(12 + headerHeight + 5) {
		w.pdf.AddPage()
	}
	w.pdf.Ln(4)
	w.font("B", 12, colorSection)
	w.pdf.CellFormat(0, 7, w.tr(title), "", 1, "L", false, 0, "")
	w.pdf.Ln(3)
	w.tableHeader()

	const lineH = 3.8
	for _, row := range rows {
		style, size := "", 8.0
		if row.Heading || row.Total {
			style, size = "B", 8.5
		}
		w.font(style, size, rgb{})

		desc := w.tr(row.Description)
		lines := w.pdf.SplitLines([]byte(desc), descWidth)
		h := float64(len(lines))*lineH + 2*rowPadding

		if !w.fits(h) {
			w.pdf.AddPage()
			w.tableHeader()
			w.font(style, size, rgb{})
		}

		fill := false
		switch {
		case row.Total:
			w.fill(colorTotalFill)
			fill = true
		case row.Heading:
			w.fill(colorHeadFill)
			fill = true
		}

		x, y := w.pdf.GetX(), w.pdf.GetY()
		w.pdf.Rect(x, y, descWidth, h, rectStyle(fill))
		w.pdf.Rect(x+descWidth, y, amountWidth, h, rectStyle(fill))

		w.pdf.SetXY(x+1, y+rowPadding)
		w.pdf.MultiCell(descWidth-2, lineH, desc, "", "L", false)
		w.pdf.SetXY(x+descWidth, y+rowPadding)
		w.pdf.CellFormat(amountWidth-1, lineH, w.tr(row.Amount), "", 0, "R", false, 0, "")
		w.pdf.SetXY(x, y+h)
	}
	w.pdf.Ln(10)
}

func rectStyle(fill bool) string {
	if fill {
		return "FD"
	}
	return "D"
}

func (w *writer) notes(sections []bilancio.NoteSection) {
	w.font("B", 12, colorSection)
	w.pdf.CellFormat(0, 7, w.tr(bilancio.SectionNotes), "", 1, "L", false, 0, "")
	w.pdf.Ln(3)

	left, _, _, _ := w.pdf.GetMargins()
	width := w.contentWidth() - 10
	for _, section := range sections {
		if section.Title != "" {
			if !w.fits(15) {
				w.pdf.AddPage()
			}
			w.pdf.Ln(4)
			w.font("B", 10, colorNoteTitle)
			w.pdf.MultiCell(0, 5, w.tr(section.Title), "", "L", false)
			w.pdf.Ln(2)
		}
		w.font("", 8, rgb{})
		for _, p := range section.Paragraphs {
			w.pdf.SetX(left + 5)
			w.pdf.MultiCell(width, 3.6, w.tr(p), "", "J", false)
			w.pdf.Ln(1.5)
		}
		w.pdf.Ln(3)
	}
}

func (w *writer) closing(now time.Time) {
	w.pdf.Ln(15)
	if !w.fits(12) {
		w.pdf.AddPage()
	}
	w.font("I", 7, colorFooterText)
	for _, line := range []string{
		"Il presente bilancio è stato redatto in conformità con i principi contabili nazionali (OIC).",
		"Documento generato automaticamente il " + now.Format("02/01/2006") + " - Per approvazione.",
	} {
		w.pdf.MultiCell(0, 4, w.tr(line), "", "C", false)
	}
}

// PlainPDF writes text line by line with no structure.
func PlainPDF(out io.Writer, text string) error {
	w := newWriter()
	w.pdf.AddPage()
	w.font("", 10, rgb{})
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			w.pdf.Ln(4.5)
			continue
		}
		w.pdf.MultiCell(0, 4.5, w.tr(line), "", "L", false)
	}
	return w.pdf.Output(out)
}

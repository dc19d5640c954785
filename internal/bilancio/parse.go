// Package bilancio reads the plain-text balance sheet produced by the
// formatting phase into sections, table rows and notes.
package bilancio

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	SectionAttivo         = "STATO PATRIMONIALE - ATTIVO"
	SectionPassivo        = "STATO PATRIMONIALE - PASSIVO"
	SectionContoEconomico = "CONTO ECONOMICO"
	SectionNotes          = "NOTA INTEGRATIVA"
)

var (
	legalFormMarkers = []string{"S.R.L.", "S.P.A.", "S.R.L", "S.P.A", "SRL", "SPA"}
	dateMarkers      = []string{"31/12", "31/03", "30/06", "30/09"}
)

// Row is one line of a financial table.
type Row struct {
	Description string
	// Amount includes the leading "€ "; empty for headings.
	Amount string
	// Heading rows group the amounts below them, e.g. "B) IMMOBILIZZAZIONI".
	Heading bool
	Total   bool
}

type NoteSection struct {
	// Title is empty for notes that precede the first subsection header.
	Title      string
	Paragraphs []string
}

type Document struct {
	Company        []string
	DateLine       string
	Attivo         []Row
	Passivo        []Row
	ContoEconomico []Row
	Notes          []NoteSection
}

// Empty reports whether no table rows or notes were recognised.
func (d *Document) Empty() bool {
	return len(d.Attivo) == 0 && len(d.Passivo) == 0 && len(d.ContoEconomico) == 0 && len(d.Notes) == 0
}

func Parse(text string) *Document {
	lines := strings.Split(text, "\n")
	doc := &Document{
		Company:  companyLines(lines),
		DateLine: dateLine(lines),
	}

	var section string
	var noteLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		switch {
		case strings.Contains(upper, SectionAttivo):
			section = SectionAttivo
			continue
		case strings.Contains(upper, SectionPassivo):
			section = SectionPassivo
			continue
		case strings.Contains(upper, SectionContoEconomico):
			section = SectionContoEconomico
			continue
		case strings.Contains(upper, SectionNotes):
			section = SectionNotes
			continue
		}

		switch section {
		case SectionAttivo:
			doc.Attivo = appendRow(doc.Attivo, line)
		case SectionPassivo:
			doc.Passivo = appendRow(doc.Passivo, line)
		case SectionContoEconomico:
			doc.ContoEconomico = appendRow(doc.ContoEconomico, line)
		case SectionNotes:
			noteLines = append(noteLines, line)
		}
	}
	doc.Notes = groupNotes(noteLines)
	return doc
}

// companyLines looks at the first 10 lines. A line with a legal form ends
// the search; other short lines count unless they look like a heading.
func companyLines(lines []string) []string {
	var company []string
	for _, line := range head(lines, 10) {
		trimmed := strings.TrimSpace(line)
		if containsAny(strings.ToUpper(line), legalFormMarkers) {
			company = append(company, trimmed)
			break
		}
		if trimmed != "" && utf8.RuneCountInString(trimmed) < 100 &&
			!containsAny(line, []string{"STATO", "ATTIVO", "AL"}) {
			company = append(company, trimmed)
		}
	}
	if len(company) > 2 {
		company = company[:2]
	}
	return company
}

// dateLine finds the "... AL 31/12/2024" line among the first 15 lines.
func dateLine(lines []string) string {
	for _, line := range head(lines, 15) {
		if strings.Contains(strings.ToUpper(line), "AL") && containsAny(line, dateMarkers) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func appendRow(rows []Row, line string) []Row {
	if !strings.ContainsAny(line, "€)-") {
		return rows
	}
	if !strings.Contains(line, "€") {
		return append(rows, Row{Description: line, Heading: true})
	}

	parts := strings.Split(line, "€")
	description := strings.TrimSpace(strings.NewReplacer("**", "", "*", "").Replace(parts[0]))
	description = strings.TrimSpace(strings.TrimSuffix(description, ":"))
	return append(rows, Row{
		Description: description,
		Amount:      "€ " + strings.TrimSpace(parts[1]),
		Total:       isTotal(description),
	})
}

func isTotal(description string) bool {
	upper := strings.ToUpper(description)
	return strings.HasPrefix(upper, "TOTALE") ||
		strings.HasPrefix(upper, "UTILE (PERDITA)") ||
		strings.HasPrefix(upper, "DIFFERENZA") ||
		strings.HasPrefix(upper, "RISULTATO")
}

// groupNotes splits note lines into subsections. Short capitalised lines
// without amounts, colons or bullets are titles. Lines before the first
// title are printed under it, and a title with nothing under it is replaced
// by the next one. Paragraph lines of ten characters or fewer are dropped.
// Notes without any title form one untitled section.
func groupNotes(lines []string) []NoteSection {
	var sections []NoteSection
	var title string
	var content []string

	flush := func() {
		section := NoteSection{Title: title}
		for _, c := range content {
			if utf8.RuneCountInString(c) > 10 {
				section.Paragraphs = append(section.Paragraphs, c)
			}
		}
		if section.Title != "" || len(section.Paragraphs) > 0 {
			sections = append(sections, section)
		}
		content = nil
	}

	for _, line := range lines {
		if isNoteTitle(line) {
			if title != "" && len(content) > 0 {
				flush()
			}
			title = line
			continue
		}
		content = append(content, line)
	}
	if len(content) > 0 {
		flush()
	}
	return sections
}

func isNoteTitle(line string) bool {
	if line == "" || utf8.RuneCountInString(line) >= 100 || strings.HasPrefix(line, "-") {
		return false
	}
	if strings.ContainsAny(line, "€:•") {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	return unicode.IsUpper(first)
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

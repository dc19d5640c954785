package bilancio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `BILANCIO D'ESERCIZIO AL 31/12/2024
ROSSI COSTRUZIONI S.R.L.
Via Roma 1, Milano

STATO PATRIMONIALE - ATTIVO

A) CREDITI VERSO SOCI: € 0
B) IMMOBILIZZAZIONI
  I - Immobilizzazioni immateriali: € 12,500
  TOTALE IMMOBILIZZAZIONI (B): € 12,500
D) RATEI E RISCONTI: € 1,000
Nota libera senza importo
TOTALE ATTIVO: € 13,500

STATO PATRIMONIALE - PASSIVO

A) PATRIMONIO NETTO
  I - Capitale sociale: € 10,000
  IX - Utile (perdita) dell'esercizio: € (500)
TOTALE PASSIVO: € 13,500

CONTO ECONOMICO

A) VALORE DELLA PRODUZIONE
   1) Ricavi delle vendite: € 100,000
DIFFERENZA (A-B): € 2,000
UTILE (PERDITA) DELL'ESERCIZIO: € (500)

NOTA INTEGRATIVA

Premessa: il bilancio chiuso al 31/12/2024 è stato redatto secondo i principi contabili nazionali.
Criteri di valutazione
Le immobilizzazioni materiali sono iscritte al costo di acquisto, comprensivo degli oneri accessori, e sono ammortizzate sistematicamente.
Breve: ok
Crediti
Debiti
- I debiti sono esposti al valore nominale
`

func TestParseHeader(t *testing.T) {
	doc := Parse(sample)

	assert.Equal(t, []string{"ROSSI COSTRUZIONI S.R.L."}, doc.Company)
	assert.Equal(t, "BILANCIO D'ESERCIZIO AL 31/12/2024", doc.DateLine)
	assert.False(t, doc.Empty())
}

func TestParseCompanyWithoutLegalForm(t *testing.T) {
	doc := Parse("Rossi Mario\nDitta individuale\nTerza riga\nSTATO PATRIMONIALE - ATTIVO\n")
	assert.Equal(t, []string{"Rossi Mario", "Ditta individuale"}, doc.Company)
	assert.Empty(t, doc.DateLine)
}

func TestParseSections(t *testing.T) {
	doc := Parse(sample)

	require.Len(t, doc.Attivo, 6)
	assert.Equal(t, Row{Description: "A) CREDITI VERSO SOCI", Amount: "€ 0"}, doc.Attivo[0])
	assert.Equal(t, Row{Description: "B) IMMOBILIZZAZIONI", Heading: true}, doc.Attivo[1])
	assert.Equal(t, "I - Immobilizzazioni immateriali", doc.Attivo[2].Description)
	assert.Equal(t, "€ 12,500", doc.Attivo[2].Amount)
	assert.True(t, doc.Attivo[3].Total)
	assert.False(t, doc.Attivo[4].Total)
	assert.Equal(t, Row{Description: "TOTALE ATTIVO", Amount: "€ 13,500", Total: true}, doc.Attivo[5])

	require.Len(t, doc.Passivo, 4)
	assert.True(t, doc.Passivo[0].Heading)
	assert.Equal(t, "€ (500)", doc.Passivo[2].Amount)
	assert.True(t, doc.Passivo[3].Total)

	require.Len(t, doc.ContoEconomico, 4)
	assert.True(t, doc.ContoEconomico[2].Total)
	assert.True(t, doc.ContoEconomico[3].Total)
}

func TestParseNotes(t *testing.T) {
	doc := Parse(sample)

	require.Len(t, doc.Notes, 2)

	assert.Equal(t, "Criteri di valutazione", doc.Notes[0].Title)
	assert.Equal(t, []string{
		"Premessa: il bilancio chiuso al 31/12/2024 è stato redatto secondo i principi contabili nazionali.",
		"Le immobilizzazioni materiali sono iscritte al costo di acquisto, comprensivo degli oneri accessori, e sono ammortizzate sistematicamente.",
	}, doc.Notes[0].Paragraphs, "opening lines belong to the first title, short lines are dropped")

	// "Crediti" has nothing under it and is replaced by the next title.
	assert.Equal(t, "Debiti", doc.Notes[1].Title)
	assert.Equal(t, []string{"- I debiti sono esposti al valore nominale"}, doc.Notes[1].Paragraphs)
}

func TestGroupNotesWithoutTitles(t *testing.T) {
	notes := groupNotes([]string{
		"- Il bilancio è redatto in forma abbreviata",
		"- ok",
	})
	require.Len(t, notes, 1)
	assert.Empty(t, notes[0].Title)
	assert.Equal(t, []string{"- Il bilancio è redatto in forma abbreviata"}, notes[0].Paragraphs)
}

func TestParseEmpty(t *testing.T) {
	doc := Parse("")
	assert.True(t, doc.Empty())
	assert.Empty(t, doc.Company)
}

func TestIsNoteTitle(t *testing.T) {
	assert.True(t, isNoteTitle("Criteri di valutazione"))
	assert.False(t, isNoteTitle("criteri di valutazione"))
	assert.False(t, isNoteTitle("Crediti: € 1,000"))
	assert.False(t, isNoteTitle("• Punto"))
	assert.False(t, isNoteTitle("- Punto"))
	assert.False(t, isNoteTitle("2024 esercizio"))
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

// scriptedClient answers calls in order with canned text.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	errs      map[int]error
	requests  []*llm.Request
}

func (c *scriptedClient) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := len(c.requests)
	c.requests = append(c.requests, req)
	if err, ok := c.errs[i]; ok {
		return nil, err
	}
	if i >= len(c.responses) {
		return nil, errors.New("unexpected model call")
	}
	return &llm.Response{Text: c.responses[i], InputTokens: 100 * (i + 1), OutputTokens: 10}, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func testPDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, fmt.Sprintf("Pagina %d", i))
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

const (
	analysisAnswer = "```json\n{\"company_name\": \"ROSSI COSTRUZIONI S.R.L.\", \"fiscal_year\": \"2024\", \"document_pages\": 3, \"contains_stato_patrimoniale\": true, \"document_quality\": \"clear\"}\n```"

	extractionAnswer = `{
  "metadata": {"company_name": "ROSSI COSTRUZIONI S.R.L.", "balance_sheet_date": "31/12/2024", "fiscal_year": "2024"},
  "stato_patrimoniale_attivo": {"TOTALE_ATTIVO": 13500},
  "stato_patrimoniale_passivo": {"TOTALE_PASSIVO": 13000},
}`

	validationAnswer = `Here is the result:
{
  "is_balanced": false,
  "balance_difference": 500,
  "corrections_made": ["TOTALE_PASSIVO recalculated"],
  "corrected_data": {
    "metadata": {"company_name": "ROSSI COSTRUZIONI S.R.L."},
    "stato_patrimoniale_attivo": {"TOTALE_ATTIVO": 13500},
    "stato_patrimoniale_passivo": {"TOTALE_PASSIVO": 13500}
  }
}`

	formattingAnswer = "```\n**BILANCIO D'ESERCIZIO AL 31/12/2024**\nROSSI COSTRUZIONI S.R.L.\n\n\n\n## STATO PATRIMONIALE - ATTIVO\n\n| TOTALE ATTIVO: € 13,500 |\n\n## STATO PATRIMONIALE - PASSIVO\n\nTOTALE PASSIVO: € 13,500\n\nCONTO ECONOMICO\n\nUTILE (PERDITA) DELL'ESERCIZIO: € 500\n```"
)

func happyClient() *scriptedClient {
	return &scriptedClient{responses: []string{analysisAnswer, extractionAnswer, validationAnswer, formattingAnswer}}
}

var testGeneratorConfig = GeneratorConfig{
	AnalysisModel:   "claude-haiku-4-5",
	ExtractionModel: "claude-sonnet-4-5",
	MaxFiles:        5,
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocuments(t *testing.T, n int) []Document {
	t.Helper()
	docs := make([]Document, n)
	for i := range docs {
		doc, err := NewDocument("bilancio.pdf", testPDF(t, i+1))
		require.NoError(t, err)
		docs[i] = doc
	}
	return docs
}

func TestGeneratorRunsFourPhases(t *testing.T) {
	client := happyClient()
	gen := NewGenerator(client, testGeneratorConfig)

	var statuses []string
	hook := func(_ context.Context, status string) { statuses = append(statuses, status) }

	result, err := gen.GenerateDocuments(context.Background(), testDocuments(t, 2), hook)
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.StatusAnalyzing,
		models.StatusExtracting,
		models.StatusValidating,
		models.StatusFormatting,
	}, statuses)

	require.Len(t, client.requests, 4)
	analysis, extraction, validation, formatting := client.requests[0], client.requests[1], client.requests[2], client.requests[3]

	assert.Equal(t, "claude-haiku-4-5", analysis.Model)
	assert.Equal(t, 1500, analysis.MaxTokens)
	assert.Zero(t, analysis.Temperature)
	assert.Len(t, analysis.Documents, 2)
	assert.True(t, analysis.CachePrompt)
	assert.Equal(t, AnalysisPrompt, analysis.Prompt)

	assert.Equal(t, "claude-sonnet-4-5", extraction.Model)
	assert.Equal(t, 7000, extraction.MaxTokens)
	assert.Len(t, extraction.Documents, 2)
	assert.Contains(t, extraction.Prompt, `Info: {"company_name":"ROSSI COSTRUZIONI S.R.L."`)
	assert.Contains(t, extraction.Prompt, "NO trailing commas.")

	assert.Equal(t, "claude-haiku-4-5", validation.Model)
	assert.Equal(t, 6000, validation.MaxTokens)
	assert.Empty(t, validation.Documents)
	assert.Contains(t, validation.Prompt, `"TOTALE_PASSIVO": 13000`)

	assert.Equal(t, "claude-haiku-4-5", formatting.Model)
	assert.Equal(t, 6000, formatting.MaxTokens)
	assert.Contains(t, formatting.Prompt, `"TOTALE_PASSIVO": 13500`, "corrected data is formatted")

	assert.Equal(t, "ROSSI COSTRUZIONI S.R.L.", result.Summary.CompanyName)
	assert.Equal(t, 3, result.Summary.DocumentPages)
	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.IsBalanced)
	assert.Equal(t, 500.0, result.Validation.BalanceDifference)
	assert.Len(t, result.Validation.CorrectionsMade, 1)
	assert.Len(t, result.Phases, 4)

	assert.NotContains(t, result.Text, "**")
	assert.NotContains(t, result.Text, "```")
	assert.NotContains(t, result.Text, "|")
	assert.NotContains(t, result.Text, "\n\n\n")
	assert.Contains(t, result.Text, "BILANCIO D'ESERCIZIO AL 31/12/2024")
}

func TestGeneratorAnalysisFallback(t *testing.T) {
	client := happyClient()
	client.responses[0] = "Sorry, these look like scans."
	gen := NewGenerator(client, testGeneratorConfig)

	result, err := gen.GenerateDocuments(context.Background(), testDocuments(t, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.Summary.DocumentQuality)
	assert.Contains(t, client.requests[1].Prompt, `Info: {"document_quality":"unknown"}`)
}

func TestGeneratorExtractionFailureAborts(t *testing.T) {
	client := happyClient()
	client.responses[1] = "I cannot extract anything."
	gen := NewGenerator(client, testGeneratorConfig)

	_, err := gen.GenerateDocuments(context.Background(), testDocuments(t, 1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse extracted data")
	assert.Equal(t, 2, client.calls())
}

func TestGeneratorValidationFallback(t *testing.T) {
	for name, answer := range map[string]string{
		"unparseable":            "not json",
		"missing corrected data": `{"is_balanced": true, "balance_difference": 0, "corrections_made": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := happyClient()
			client.responses[2] = answer
			gen := NewGenerator(client, testGeneratorConfig)

			result, err := gen.GenerateDocuments(context.Background(), testDocuments(t, 1), nil)
			require.NoError(t, err)
			assert.Equal(t, result.Extracted, result.Validated)
			assert.Contains(t, client.requests[3].Prompt, `"TOTALE_PASSIVO": 13000`)
		})
	}
}

func TestGeneratorProviderError(t *testing.T) {
	client := happyClient()
	client.errs = map[int]error{0: llm.ErrMissingAPIKey}
	gen := NewGenerator(client, testGeneratorConfig)

	_, err := gen.GenerateDocuments(context.Background(), testDocuments(t, 1), nil)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.Equal(t, 1, client.calls())
}

func TestGeneratorEmptyFormatting(t *testing.T) {
	client := happyClient()
	client.responses[3] = "```\n```"
	gen := NewGenerator(client, testGeneratorConfig)

	_, err := gen.GenerateDocuments(context.Background(), testDocuments(t, 1), nil)
	assert.Error(t, err)
}

func TestGeneratorTooManyFiles(t *testing.T) {
	client := happyClient()
	gen := NewGenerator(client, testGeneratorConfig)

	paths := make([]string, 6)
	for i := range paths {
		paths[i] = filepath.Join(t.TempDir(), "missing.pdf")
	}
	_, err := gen.Generate(context.Background(), paths, nil)
	assert.True(t, errors.Is(err, ErrTooManyFiles))
	assert.Zero(t, client.calls())
}

func TestGeneratorGenerateFromPaths(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"uno.pdf", "DUE.PDF"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, testPDF(t, 2), 0o644))
		paths = append(paths, path)
	}

	client := happyClient()
	result, err := NewGenerator(client, testGeneratorConfig).Generate(context.Background(), paths, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Text)
	require.Len(t, client.requests[0].Documents, 2)
	assert.Equal(t, "uno.pdf", client.requests[0].Documents[0].Name)
	assert.Equal(t, "DUE.PDF", client.requests[0].Documents[1].Name)
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "bilancio.pdf")
	require.NoError(t, os.WriteFile(good, testPDF(t, 3), 0o644))

	docs, err := LoadDocuments(context.Background(), []string{good})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].Pages)
	assert.Len(t, docs[0].Hash, 64)

	_, err = LoadDocuments(context.Background(), []string{filepath.Join(dir, "missing.pdf")})
	assert.ErrorContains(t, err, "PDF file not found")

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	_, err = LoadDocuments(context.Background(), []string{txt})
	assert.ErrorContains(t, err, "File must be a PDF, got: .txt")

	fake := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("hello"), 0o644))
	_, err = LoadDocuments(context.Background(), []string{fake})
	assert.ErrorContains(t, err, "not a valid PDF")
}

func TestCheckBalance(t *testing.T) {
	data := map[string]any{
		"stato_patrimoniale_attivo":  map[string]any{"TOTALE_ATTIVO": float64(100)},
		"stato_patrimoniale_passivo": map[string]any{"TOTALE_PASSIVO": "1,100.50"},
	}
	attivo, passivo, ok := checkBalance(data)
	require.True(t, ok)
	assert.Equal(t, 100.0, attivo)
	assert.Equal(t, 1100.5, passivo)

	_, _, ok = checkBalance(map[string]any{})
	assert.False(t, ok)
}

func TestNewDocumentKeepsOriginalHash(t *testing.T) {
	data := testPDF(t, 2)
	doc, err := NewDocument("bilancio.pdf", data)
	require.NoError(t, err)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.Hash)
	assert.LessOrEqual(t, len(doc.Data), len(data))
	pages, err := pageCount(doc.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	again, err := NewDocument("copia.PDF", data)
	require.NoError(t, err)
	assert.Equal(t, doc.Hash, again.Hash)
}

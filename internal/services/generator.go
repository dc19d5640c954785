package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/adityasasidhar/Document-ocr/internal/models"
)

// ErrTooManyFiles is returned when more documents are passed than allowed.
var ErrTooManyFiles = errors.New("too many files")

const (
	analysisMaxTokens   = 1500
	extractionMaxTokens = 7000
	validationMaxTokens = 6000
	formattingMaxTokens = 6000
)

type GeneratorConfig struct {
	AnalysisModel   string
	ExtractionModel string
	MaxFiles        int
}

// PhaseHook is told the job status at the start of each phase.
type PhaseHook func(ctx context.Context, status string)

// PhaseUsage records one model call.
type PhaseUsage struct {
	Status       string
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Result is everything the four phases produced.
type Result struct {
	Text       string
	Summary    models.DocumentSummary
	Extracted  map[string]any
	Validated  map[string]any
	Validation *models.ValidationResult
	Phases     []PhaseUsage
}

// Generator turns financial PDFs into the plain-text Italian balance sheet.
type Generator struct {
	client llm.Client
	config GeneratorConfig
}

func NewGenerator(client llm.Client, config GeneratorConfig) *Generator {
	if config.MaxFiles <= 0 {
		config.MaxFiles = 5
	}
	return &Generator{client: client, config: config}
}

// Generate loads the PDFs at paths and runs the pipeline on them.
func (g *Generator) Generate(ctx context.Context, paths []string, hook PhaseHook) (*Result, error) {
	if len(paths) > g.config.MaxFiles {
		return nil, fmt.Errorf("%w: maximum %d files allowed, got %d", ErrTooManyFiles, g.config.MaxFiles, len(paths))
	}
	docs, err := LoadDocuments(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	return g.GenerateDocuments(ctx, docs, hook)
}

// GenerateDocuments runs analysis, extraction, validation and formatting.
func (g *Generator) GenerateDocuments(ctx context.Context, docs []Document, hook PhaseHook) (*Result, error) {
	if len(docs) > g.config.MaxFiles {
		return nil, fmt.Errorf("%w: maximum %d files allowed, got %d", ErrTooManyFiles, g.config.MaxFiles, len(docs))
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to process")
	}
	if hook == nil {
		hook = func(context.Context, string) {}
	}

	pdfs := make([]llm.Document, len(docs))
	for i, d := range docs {
		pdfs[i] = d.toLLM()
	}
	result := &Result{}

	// Phase 1: analysis.
	hook(ctx, models.StatusAnalyzing)
	summary, err := g.analyze(ctx, pdfs, result)
	if err != nil {
		return nil, err
	}

	// Phase 2: extraction.
	hook(ctx, models.StatusExtracting)
	extracted, err := g.extract(ctx, pdfs, summary, result)
	if err != nil {
		return nil, err
	}
	result.Extracted = extracted

	// Phase 3: validation.
	hook(ctx, models.StatusValidating)
	validated, err := g.validate(ctx, extracted, result)
	if err != nil {
		return nil, err
	}
	result.Validated = validated

	// Phase 4: formatting.
	hook(ctx, models.StatusFormatting)
	text, err := g.format(ctx, validated, result)
	if err != nil {
		return nil, err
	}
	result.Text = text
	return result, nil
}

func (g *Generator) call(ctx context.Context, status string, req *llm.Request, result *Result) (*llm.Response, error) {
	start := time.Now()
	resp, err := g.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	usage := PhaseUsage{
		Status:       status,
		Model:        req.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Duration:     time.Since(start),
	}
	result.Phases = append(result.Phases, usage)
	slog.Info("Model call complete.",
		"phase", status,
		"model", req.Model,
		"inputTokens", usage.InputTokens,
		"outputTokens", usage.OutputTokens,
		"durationMs", usage.Duration.Milliseconds())
	return resp, nil
}

func (g *Generator) analyze(ctx context.Context, pdfs []llm.Document, result *Result) (map[string]any, error) {
	resp, err := g.call(ctx, models.StatusAnalyzing, &llm.Request{
		Model:       g.config.AnalysisModel,
		MaxTokens:   analysisMaxTokens,
		Documents:   pdfs,
		Prompt:      AnalysisPrompt,
		CachePrompt: true,
	}, result)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze documents: %w", err)
	}

	summary, err := ExtractJSON(resp.Text)
	if err != nil {
		slog.Warn("Could not parse document analysis, continuing without it.", "error", err)
		summary = map[string]any{"document_quality": "unknown"}
	}
	result.Summary = decodeSummary(summary)
	return summary, nil
}

func (g *Generator) extract(ctx context.Context, pdfs []llm.Document, summary map[string]any, result *Result) (map[string]any, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document summary: %w", err)
	}
	resp, err := g.call(ctx, models.StatusExtracting, &llm.Request{
		Model:     g.config.ExtractionModel,
		MaxTokens: extractionMaxTokens,
		Documents: pdfs,
		Prompt:    extractionPrompt(string(summaryJSON)),
	}, result)
	if err != nil {
		return nil, fmt.Errorf("failed to extract financial data: %w", err)
	}

	data, err := ExtractJSON(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extracted data: %w", err)
	}
	return data, nil
}

func (g *Generator) validate(ctx context.Context, extracted map[string]any, result *Result) (map[string]any, error) {
	resp, err := g.call(ctx, models.StatusValidating, &llm.Request{
		Model:     g.config.AnalysisModel,
		MaxTokens: validationMaxTokens,
		Prompt:    validationPrompt(prettyJSON(extracted)),
	}, result)
	if err != nil {
		return nil, fmt.Errorf("failed to validate financial data: %w", err)
	}

	raw, err := ExtractJSON(resp.Text)
	if err != nil {
		slog.Warn("Could not parse validation result, using extracted data.", "error", err)
		return extracted, nil
	}

	validation := decodeValidation(raw)
	result.Validation = validation
	if validation.IsBalanced {
		slog.Info("Balance sheet is balanced.")
	} else {
		slog.Warn("Balance sheet is not balanced.", "difference", fmt.Sprintf("€%.2f", validation.BalanceDifference))
	}
	if n := len(validation.CorrectionsMade); n > 0 {
		slog.Info("Validator made corrections.", "count", n)
	}

	data := extracted
	if validation.CorrectedData != nil {
		data = validation.CorrectedData
	}
	if attivo, passivo, ok := checkBalance(data); ok && math.Abs(attivo-passivo) > 0.01 {
		slog.Warn("Totals do not match after validation.", "totaleAttivo", attivo, "totalePassivo", passivo)
	}
	return data, nil
}

func (g *Generator) format(ctx context.Context, validated map[string]any, result *Result) (string, error) {
	resp, err := g.call(ctx, models.StatusFormatting, &llm.Request{
		Model:     g.config.AnalysisModel,
		MaxTokens: formattingMaxTokens,
		Prompt:    formattingPrompt(prettyJSON(validated)),
	}, result)
	if err != nil {
		return "", fmt.Errorf("failed to format balance sheet: %w", err)
	}

	text := CleanupFormatting(resp.Text)
	if text == "" {
		return "", fmt.Errorf("failed to format balance sheet: empty response")
	}
	return text, nil
}

// prettyJSON indents with two spaces and keeps non-ASCII text readable.
func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSpace(buf.String())
}

func decodeSummary(m map[string]any) models.DocumentSummary {
	var s models.DocumentSummary
	s.CompanyName, _ = m["company_name"].(string)
	s.BalanceSheetDate, _ = m["balance_sheet_date"].(string)
	s.FiscalYear = stringValue(m["fiscal_year"])
	if n, ok := number(m["document_pages"]); ok {
		s.DocumentPages = int(n)
	}
	s.ContainsStatoPatrimoniale, _ = m["contains_stato_patrimoniale"].(bool)
	s.ContainsContoEconomico, _ = m["contains_conto_economico"].(bool)
	s.ContainsNotaIntegrativa, _ = m["contains_nota_integrativa"].(bool)
	s.Currency, _ = m["currency"].(string)
	s.DocumentQuality, _ = m["document_quality"].(string)
	return s
}

func decodeValidation(m map[string]any) *models.ValidationResult {
	v := &models.ValidationResult{}
	v.IsBalanced, _ = m["is_balanced"].(bool)
	v.BalanceDifference, _ = number(m["balance_difference"])
	v.CorrectionsMade, _ = m["corrections_made"].([]any)
	v.CorrectedData, _ = m["corrected_data"].(map[string]any)
	return v
}

// checkBalance reads TOTALE_ATTIVO and TOTALE_PASSIVO from extracted data.
func checkBalance(data map[string]any) (attivo, passivo float64, ok bool) {
	a, aok := data["stato_patrimoniale_attivo"].(map[string]any)
	p, pok := data["stato_patrimoniale_passivo"].(map[string]any)
	if !aok || !pok {
		return 0, 0, false
	}
	attivo, aok = number(a["TOTALE_ATTIVO"])
	passivo, pok = number(p["TOTALE_PASSIVO"])
	return attivo, passivo, aok && pok
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

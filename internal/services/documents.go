package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

const pdfMediaType = "application/pdf"

// Document is an input PDF ready to be sent to the model.
type Document struct {
	Name  string
	Data  []byte
	Hash  string
	Pages int
}

func (d Document) toLLM() llm.Document {
	return llm.Document{Name: d.Name, MediaType: pdfMediaType, Data: d.Data}
}

// NewDocument checks that data looks like a PDF and records its hash and
// page count. Files pdfcpu cannot parse are still accepted when they carry a
// PDF header; the model is more forgiving than the validator.
func NewDocument(name string, data []byte) (Document, error) {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return Document{}, fmt.Errorf("File must be a PDF, got: %s", filepath.Ext(name))
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return Document{}, fmt.Errorf("File %s is not a valid PDF", name)
	}

	sum := sha256.Sum256(data)
	doc := Document{
		Name: name,
		Data: data,
		Hash: hex.EncodeToString(sum[:]),
	}

	pages, err := pageCount(data)
	if err != nil {
		slog.Warn("PDF did not pass validation, sending it anyway.", "file", name, "error", err)
		return doc, nil
	}
	doc.Pages = pages

	// The hash stays that of the original bytes.
	optimized, err := optimizePDF(data)
	if err != nil {
		slog.Debug("Could not optimize PDF, sending the original.", "file", name, "error", err)
	} else if len(optimized) < len(data) {
		slog.Debug("Optimized PDF.", "file", name, "sizeKB", len(data)/1024, "optimizedKB", len(optimized)/1024)
		doc.Data = optimized
	}
	return doc, nil
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func pageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), relaxedConfig())
}

// optimizePDF drops duplicate and unused resources.
func optimizePDF(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, relaxedConfig()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadDocuments reads the PDFs at paths concurrently, keeping their order.
func LoadDocuments(ctx context.Context, paths []string) ([]Document, error) {
	docs := make([]Document, len(paths))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(5)
	for i, path := range paths {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("PDF file not found: %s", path)
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			doc, err := NewDocument(filepath.Base(path), data)
			if err != nil {
				return err
			}
			slog.Debug("Loaded document.", "file", doc.Name, "sizeKB", len(data)/1024, "pages", doc.Pages)
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// CombinedHash identifies a set of documents regardless of file names.
func CombinedHash(docs []Document) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

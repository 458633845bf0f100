// Package pdftext extracts plain text from uploaded PDF invoices.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf text", fmt.Errorf("empty upload"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf text", fmt.Errorf("parse pdf: %w", err))
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		// Scanned documents carry no text layer; OCR is out of scope here.
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf text", fmt.Errorf("pdf has no text layer"))
	}
	return text, nil
}

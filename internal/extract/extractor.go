// Package extract provides text extraction from PDF and plain text documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SourceTypeFor maps a file path to its source type by extension.
func SourceTypeFor(path string) models.SourceType {
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return models.SourcePDF
	}
	return models.SourceText
}

// Extract reads the file at path and returns its text content.
// For PDF files, pages selects zero-based page numbers (nil means all pages).
// For everything else the content is returned as-is (UTF-8 validated) and the
// pages argument is ignored.
// A readable file with no extractable text yields ("", nil), not an error.
func (e *Extractor) Extract(path string, pages []int) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if SourceTypeFor(path) == models.SourcePDF {
		return extractPDF(content, pages)
	}
	return extractPlain(content)
}

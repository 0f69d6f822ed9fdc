// Package parser turns uploaded survey documents into question lines.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Koyo-os/docusurvey/internal/entity"
)

// Extractor returns the raw text of one document format.
type Extractor func(data []byte) (string, error)

// Parser dispatches on the file extension.
type Parser struct {
	extractors map[string]Extractor
}

func Init() *Parser {
	return &Parser{
		extractors: map[string]Extractor{
			".docx": extractDocx,
			".pdf":  extractPDF,
			".txt":  extractText,
		},
	}
}

// Supported reports whether filename has an extension the parser reads.
func (p *Parser) Supported(filename string) bool {
	_, ok := p.extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Parse extracts the non-empty trimmed lines of the document in order. An
// unreadable document, an unknown extension or a document without text is a
// validation error.
func (p *Parser) Parse(filename string, data []byte) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	extract, ok := p.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported document type %q", entity.ErrValidation, ext)
	}

	text, err := extract(data)
	if err != nil {
		return nil, fmt.Errorf("%w: error read %s document: %v", entity.ErrValidation, ext, err)
	}

	lines := Lines(text)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: document contains no questions", entity.ErrValidation)
	}

	return lines, nil
}

// Lines splits text on line breaks and keeps the non-blank lines trimmed.
func Lines(text string) []string {
	lines := []string{}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

func extractText(data []byte) (string, error) {
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

// Package pdfextract pulls plain text out of uploaded PDF documents.
package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtractionFailed covers malformed input, parser failures and documents
// without any extractable text.
var ErrExtractionFailed = errors.New("pdf text extraction failed")

// Extractor spools uploads to a scratch file before parsing. The scratch
// file is removed on every return path.
type Extractor struct {
	ScratchDir string
}

func NewExtractor(scratchDir string) *Extractor {
	return &Extractor{ScratchDir: scratchDir}
}

// Extract parses data from a scratch file, or from memory when the scratch
// directory is unusable.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrExtractionFailed)
	}

	path, cleanup, err := e.spool(data)
	var text string
	if err != nil {
		slog.WarnContext(ctx, "scratch file unavailable, parsing upload in memory",
			"scratch_dir", e.ScratchDir, "error", err)
		text, err = extractBytes(data)
	} else {
		defer cleanup()
		text, err = extractFile(path)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found", ErrExtractionFailed)
	}
	return text, nil
}

func (e *Extractor) spool(data []byte) (string, func(), error) {
	if e.ScratchDir != "" {
		if err := os.MkdirAll(e.ScratchDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create scratch dir failed: %w", err)
		}
	}
	tmp, err := os.CreateTemp(e.ScratchDir, "upload-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch file failed: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write scratch file failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close scratch file failed: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func extractFile(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: parser panic: %v", ErrExtractionFailed, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()
	return plainText(reader)
}

// ExtractText parses a whole PDF from r without touching disk. A document
// with no text yields "" and a nil error.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}
	return extractBytes(b)
}

func extractBytes(b []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: parser panic: %v", ErrExtractionFailed, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return plainText(reader)
}

func plainText(reader *pdf.Reader) (string, error) {
	plainReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return string(out), nil
}

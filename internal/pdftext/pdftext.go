// Package pdftext turns uploaded PDF documents into plain subject text.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrorPrefix starts the text returned in place of a document that could not be read.
const ErrorPrefix = "Error reading PDF: "

type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

type readerPages struct {
	r *pdf.Reader
}

func (p readerPages) NumPage() int {
	return p.r.NumPage()
}

func (p readerPages) PageText(n int) (string, error) {
	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// Extract returns the text of every page in order, each followed by a newline,
// with surrounding whitespace trimmed. It never fails: a document that cannot be
// read yields a message starting with ErrorPrefix.
func Extract(r io.ReaderAt, size int64) string {
	text, err := ExtractText(r, size)
	if err != nil {
		slog.Warn("pdf extraction failed", "error", err)
		return ErrorPrefix + err.Error()
	}
	return text
}

// ExtractBytes is Extract over an in-memory document.
func ExtractBytes(data []byte) string {
	return Extract(bytes.NewReader(data), int64(len(data)))
}

// ExtractFile is Extract over a file on disk.
func ExtractFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return Extract(f, info.Size())
}

// ExtractText is the error-returning form of Extract.
func ExtractText(r io.ReaderAt, size int64) (text string, err error) {
	// The pdf package panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed document: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	return joinPages(readerPages{r: reader})
}

func joinPages(src pageSource) (string, error) {
	var sb strings.Builder
	for i := 1; i <= src.NumPage(); i++ {
		text, err := src.PageText(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// IsError reports whether text is an extraction failure message.
func IsError(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

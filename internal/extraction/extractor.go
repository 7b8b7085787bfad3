// Package extraction provides the document-extraction collaborator: given
// a file reference it returns ordered per-page plain text. The worker
// treats extraction failures as processing errors on the job.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// Common errors returned by the extraction package.
var (
	// ErrUnsupportedFile is returned for file references this extractor
	// cannot open (unknown scheme or non-PDF content).
	ErrUnsupportedFile = errors.New("unsupported file reference")

	// ErrExtractionFailed is returned when the document could not be parsed.
	ErrExtractionFailed = errors.New("failed to extract document text")
)

// Extractor returns ordered per-page plain text for a file reference.
type Extractor interface {
	ExtractPages(ctx context.Context, fileRef string) ([]domain.PageText, error)
}

// PDFExtractor reads page text from PDF files on the local filesystem.
// Object-storage fetch is the upload collaborator's concern; by the time a
// job runs, its file reference resolves to a local path or file:// URL.
type PDFExtractor struct {
	logger *slog.Logger
}

// NewPDFExtractor creates a PDFExtractor. If logger is nil, the default
// logger is used.
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{
		logger: logger.With(slog.String("component", "pdf_extractor")),
	}
}

var _ Extractor = (*PDFExtractor)(nil)

// ExtractPages implements Extractor. Pages that yield no text are still
// emitted (with empty text) so page numbering stays aligned with the
// source document.
func (e *PDFExtractor) ExtractPages(ctx context.Context, fileRef string) ([]domain.PageText, error) {
	path, err := resolveLocalPath(fileRef)
	if err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		e.logger.Error("failed to open PDF",
			slog.String("file_ref", fileRef),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("failed to close PDF file", slog.String("error", cerr.Error()))
		}
	}()

	totalPages := r.NumPage()
	pages := make([]domain.PageText, 0, totalPages)

	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			pages = append(pages, domain.PageText{PageNumber: pageIndex})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, pageIndex, err)
		}

		pages = append(pages, domain.PageText{
			PageNumber: pageIndex,
			Text:       strings.TrimSpace(text),
		})
	}

	e.logger.Debug("extracted document text",
		slog.String("file_ref", fileRef),
		slog.Int("pages", len(pages)))

	return pages, nil
}

// resolveLocalPath turns a plain path or file:// URL into a filesystem path.
func resolveLocalPath(fileRef string) (string, error) {
	if fileRef == "" {
		return "", fmt.Errorf("%w: empty file reference", ErrUnsupportedFile)
	}

	if strings.Contains(fileRef, "://") {
		u, err := url.Parse(fileRef)
		if err != nil || u.Scheme != "file" {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, fileRef)
		}
		return u.Path, nil
	}

	return fileRef, nil
}

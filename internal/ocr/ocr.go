// Package ocr converts filed PDF accounts into the raw text the extraction
// pipeline consumes. Conversion artifacts (missing pages, OCR noise) are out
// of the pipeline's control; downstream fields simply fail to match.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tp-screener/internal/config"
)

// Extractor extracts text content from PDF files. Page boundaries in the
// returned text are marked with form feeds so extraction can cite pages.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

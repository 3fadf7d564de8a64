package ocr

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// PdfToText converts a filing with the poppler pdftotext CLI. Most RCS
// deposits carry an embedded text layer, so this is the default provider;
// scanned filings come back near-empty and need the OCR provider instead.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText converter. If binPath is empty, "pdftotext"
// is resolved from PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext on the given PDF and returns stdout. -layout
// preserves the statement columns the caption patterns rely on, and the form
// feeds pdftotext emits between pages become the extractor's page citations.
// UTF-8 output keeps the accented French and German captions intact.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", "-enc", "UTF-8", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return stdout.String(), nil
}

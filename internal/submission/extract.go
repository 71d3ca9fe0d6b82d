package submission

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ExtractFunc is the external text-extraction collaborator. It reports the
// extracted text and whether extraction succeeded.
type ExtractFunc func(path string) (string, bool)

// Adapter wraps the extraction collaborator. Extraction failures never escape
// it: a single unreadable file must not abort the batch, so every outcome is
// captured on the returned Submission.
type Adapter struct {
	extract ExtractFunc
	logger  zerolog.Logger
}

// NewAdapter constructs an adapter around the given collaborator.
func NewAdapter(extract ExtractFunc, logger zerolog.Logger) *Adapter {
	return &Adapter{
		extract: extract,
		logger:  logger.With().Str("component", "extraction_adapter").Logger(),
	}
}

// Extract runs the collaborator and returns a copy of sub with RawText set on
// success or ExtractionError set on failure.
func (a *Adapter) Extract(sub Submission) Submission {
	text, ok := a.extract(sub.SourcePath)
	if !ok {
		sub.ExtractionError = fmt.Sprintf("text extraction failed for %s", sub.SourcePath)
		a.logger.Warn().Str("identity", sub.Identity).Msg("extraction failed")
		return sub
	}

	if strings.TrimSpace(text) == "" {
		sub.ExtractionError = "submission appears to be empty or contains only images/scans"
		a.logger.Warn().Str("identity", sub.Identity).Msg("extraction yielded no text")
		return sub
	}

	sub.RawText = text
	return sub
}

// FileTextExtract is the default collaborator used when no dedicated PDF
// toolchain is wired in. It reads files whose detected content type is
// text-based and rejects everything else.
func FileTextExtract(path string) (string, bool) {
	kind, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false
	}

	if !strings.HasPrefix(kind.String(), "text/") {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	return string(data), true
}

package ingest

import (
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/internal/stringutils"
)

type extractedDocument struct {
	Text     string
	NumPages int
	Metadata map[string]any
}

// extractPDF pulls the text layer out of a PDF page by page. Documents with
// no text layer at all (scans) are rejected; OCR is out of scope.
func extractPDF(data []byte) (*extractedDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrExtraction, "failed to open PDF: %v", err)
	}
	defer doc.Close()

	pdfMetadata := doc.Metadata()

	var pages []string
	pageCount := doc.NumPage()
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		text, err := doc.Text(pageNum)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrExtraction, "failed to extract text from page %d: %v", pageNum+1, err)
		}
		// PDF text layers often carry null bytes and stray control
		// characters that break downstream storage.
		text = stringutils.SanitizeUnicodeString(text)
		if strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}

	if len(pages) == 0 {
		return nil, errors.Wrapf(errors.ErrExtraction, "no text layer found in PDF (%d pages)", pageCount)
	}

	return &extractedDocument{
		Text:     strings.Join(pages, "\n\n"),
		NumPages: pageCount,
		Metadata: map[string]any{
			"title":    pdfMetadata["title"],
			"author":   pdfMetadata["author"],
			"subject":  pdfMetadata["subject"],
			"keywords": pdfMetadata["keywords"],
			"producer": pdfMetadata["producer"],
		},
	}, nil
}

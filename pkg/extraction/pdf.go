package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
)

// pdfLayoutStrategy is the first rung for PDFs. It pairs docconv's text
// extraction with pdfcpu's page accounting to produce page-marked text, then
// rewrites detected table regions into markdown so tables survive chunking
// as coherent blocks.
type pdfLayoutStrategy struct{}

func NewPDFLayoutStrategy() Strategy {
	return &pdfLayoutStrategy{}
}

func (s *pdfLayoutStrategy) Name() string { return "pdf-layout" }

func (s *pdfLayoutStrategy) Supports(fileType string) bool {
	return fileType == constant.FileTypePDF
}

func (s *pdfLayoutStrategy) Extract(ctx context.Context, filePath string) (*Result, error) {
	pageCount, err := api.PageCountFile(filePath)
	if err != nil {
		return nil, apperror.Extraction("failed to read pdf page count", err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, apperror.Extraction("failed to open pdf", err)
	}
	defer f.Close()

	body, _, err := docconv.ConvertPDF(f)
	if err != nil {
		return nil, apperror.Extraction("pdf text conversion failed", err)
	}

	// pdftotext delimits pages with form feeds; when they are missing the
	// whole body counts as one page and the markers degrade gracefully.
	pages := strings.Split(body, "\f")
	if len(pages) > pageCount && pageCount > 0 {
		pages = pages[:pageCount]
	}

	var sb strings.Builder
	tableCount := 0
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		pageNo := i + 1
		sb.WriteString(fmt.Sprintf("[Page %d of %d]\n", pageNo, pageCount))

		rewritten, tables := rewriteTables(page, pageNo, tableCount)
		tableCount += tables
		sb.WriteString(rewritten)
		sb.WriteString("\n\n")
	}

	return &Result{
		Text:       strings.TrimSpace(sb.String()),
		Pages:      pageCount,
		TableCount: tableCount,
	}, nil
}

// pdfTextStrategy is the second rung: the same converter without page
// markers or table rewriting, for PDFs whose structure defeats the layout
// pass.
type pdfTextStrategy struct{}

func NewPDFTextStrategy() Strategy {
	return &pdfTextStrategy{}
}

func (s *pdfTextStrategy) Name() string { return "pdf-text" }

func (s *pdfTextStrategy) Supports(fileType string) bool {
	return fileType == constant.FileTypePDF
}

func (s *pdfTextStrategy) Extract(ctx context.Context, filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, apperror.Extraction("failed to open pdf", err)
	}
	defer f.Close()

	body, _, err := docconv.ConvertPDF(f)
	if err != nil {
		return nil, apperror.Extraction("pdf text conversion failed", err)
	}

	body = strings.ReplaceAll(body, "\f", "\n\n")
	return &Result{Text: strings.TrimSpace(body)}, nil
}

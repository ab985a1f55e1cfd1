package extraction

import (
	"context"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
)

var mimeByType = map[string]string{
	constant.FileTypePDF:  "application/pdf",
	constant.FileTypeDocx: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	constant.FileTypeText: "text/plain",
	constant.FileTypeCSV:  "text/csv",
	constant.FileTypeMD:   "text/markdown",
}

// genericStrategy hands the file to docconv's format dispatcher. This is the
// primary path for docx and the safety net below the PDF strategies.
type genericStrategy struct{}

func NewGenericStrategy() Strategy {
	return &genericStrategy{}
}

func (s *genericStrategy) Name() string { return "docconv" }

func (s *genericStrategy) Supports(fileType string) bool {
	_, ok := mimeByType[fileType]
	return ok
}

func (s *genericStrategy) Extract(ctx context.Context, filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, apperror.Extraction("failed to open file", err)
	}
	defer f.Close()

	mimeType := docconv.MimeTypeByExtension(filePath)
	res, err := docconv.Convert(f, mimeType, false)
	if err != nil {
		return nil, apperror.Extraction("docconv conversion failed", err)
	}

	return &Result{Text: strings.TrimSpace(res.Body)}, nil
}

// plainTextStrategy reads the raw bytes and keeps whatever decodes as
// printable UTF-8. It is the primary path for txt, csv and md, and the
// next-to-last resort for binary formats whose converters all failed.
type plainTextStrategy struct{}

func NewPlainTextStrategy() Strategy {
	return &plainTextStrategy{}
}

func (s *plainTextStrategy) Name() string { return "plain-bytes" }

func (s *plainTextStrategy) Supports(fileType string) bool {
	return constant.IsSupportedFileType(fileType)
}

func (s *plainTextStrategy) Extract(ctx context.Context, filePath string) (*Result, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, apperror.Extraction("failed to read file", err)
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		raw = raw[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}

	return &Result{Text: strings.TrimSpace(sb.String())}, nil
}

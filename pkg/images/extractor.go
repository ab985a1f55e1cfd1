package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/pkg/logger"
)

// Filters applied before an extracted image is kept. Decorative artifacts
// (bullets, rules, letterhead strips) are small or extremely elongated.
const (
	minSizeKB      = 2.0
	minDimension   = 50
	maxAspectRatio = 20.0
)

var pageFromName = regexp.MustCompile(`(?:page[_-]?|_)(\d+)`)

// Extractor pulls embedded images out of PDFs, filters the decorative ones
// and packages the rest as records with fallback keywords. No OCR runs
// here; keywords come from position and context only.
type Extractor struct {
	maxImages int
	log       logger.ILogger
}

func NewExtractor(maxImages int, log logger.ILogger) *Extractor {
	if maxImages <= 0 {
		maxImages = 3
	}
	return &Extractor{maxImages: maxImages, log: log}
}

// Extract returns up to maxImages records for a PDF, empty for every other
// file type. Failures are reported but are never fatal to the caller's
// pipeline: a document without its figures is still searchable.
func (e *Extractor) Extract(ctx context.Context, filePath, fileType, fileName string) ([]*entity.ImageRecord, error) {
	if fileType != constant.FileTypePDF {
		return nil, nil
	}

	outDir, err := os.MkdirTemp("", "docimg-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create image scratch dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractImagesFile(filePath, outDir, nil, nil); err != nil {
		return nil, fmt.Errorf("pdf image extraction failed: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted images: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var records []*entity.ImageRecord
	perPageIndex := map[int]int{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(records) >= e.maxImages {
			break
		}
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(outDir, entry.Name())
		record, keep := e.buildRecord(path, entry.Name(), fileName, perPageIndex)
		if !keep {
			continue
		}
		records = append(records, record)
	}

	e.log.Info("Images", "images extracted", map[string]interface{}{
		"file":       fileName,
		"kept":       len(records),
		"candidates": len(entries),
	})
	return records, nil
}

func (e *Extractor) buildRecord(path, name, fileName string, perPageIndex map[int]int) (*entity.ImageRecord, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	sizeKB := float64(len(raw)) / 1024.0
	if sizeKB < minSizeKB {
		return nil, false
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return nil, false
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		return nil, false
	}
	aspect := float64(cfg.Width) / float64(cfg.Height)
	if aspect > maxAspectRatio || aspect < 1.0/maxAspectRatio {
		return nil, false
	}

	page := pageFromFileName(name)
	perPageIndex[page]++
	index := perPageIndex[page]

	return &entity.ImageRecord{
		Id:         uuid.New(),
		ImageId:    fmt.Sprintf("img_p%d_i%d_%s", page, index, uuid.New().String()[:8]),
		Page:       page,
		ImageIndex: index,
		Format:     format,
		SizeKB:     sizeKB,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Base64Data: base64.StdEncoding.EncodeToString(raw),
		Keywords:   FallbackKeywords(fileName, page),
	}, true
}

// pageFromFileName recovers the page number pdfcpu encodes into extracted
// file names, defaulting to 1 when no number is present.
func pageFromFileName(name string) int {
	match := pageFromName.FindStringSubmatch(strings.ToLower(name))
	if len(match) == 2 {
		if page, err := strconv.Atoi(match[1]); err == nil && page > 0 {
			return page
		}
	}
	return 1
}

// FallbackKeywords builds a lexical keyword list from the document name and
// page position so images stay findable without visual understanding.
func FallbackKeywords(fileName string, page int) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	parts := strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})

	keywords := []string{"image", "figure", "diagram", fmt.Sprintf("page %d", page)}
	for _, part := range parts {
		if len(part) >= 3 {
			keywords = append(keywords, part)
		}
	}
	return strings.Join(keywords, ", ")
}

package extraction

import (
	"context"
	"fmt"
	"strings"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/pkg/logger"
)

// Result carries the extracted text plus everything downstream stages want
// to know about how it was produced.
type Result struct {
	Text       string
	Pages      int
	Method     string
	TableCount int
	Degraded   bool
	Warnings   []string
}

// Strategy is one rung of the fallback ladder. Extract either returns usable
// text or an error, in which case the chain moves to the next rung.
type Strategy interface {
	Name() string
	Supports(fileType string) bool
	Extract(ctx context.Context, filePath string) (*Result, error)
}

// minUsableChars guards against extractors that "succeed" with a page worth
// of whitespace or a handful of stray glyphs.
const minUsableChars = 10

// Chain runs strategies in order until one produces usable text. The final
// rung never fails, so a document always leaves extraction with something.
type Chain struct {
	strategies []Strategy
	log        logger.ILogger
}

func NewChain(log logger.ILogger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, log: log}
}

// DefaultChain wires the production ladder: layout-aware PDF extraction,
// plain PDF text, the generic docconv converter, a raw byte sweep, and the
// placeholder of last resort.
func DefaultChain(log logger.ILogger) *Chain {
	return NewChain(log,
		NewPDFLayoutStrategy(),
		NewPDFTextStrategy(),
		NewGenericStrategy(),
		NewPlainTextStrategy(),
		NewPlaceholderStrategy(),
	)
}

func (c *Chain) Extract(ctx context.Context, filePath, fileType string) (*Result, error) {
	if !constant.IsSupportedFileType(fileType) {
		return nil, apperror.UnsupportedType(fileType)
	}

	var warnings []string
	for _, strategy := range c.strategies {
		if !strategy.Supports(fileType) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := strategy.Extract(ctx, filePath)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", strategy.Name(), err))
			c.log.Warn("Extraction", "strategy failed, falling through", map[string]interface{}{
				"strategy": strategy.Name(),
				"file":     filePath,
				"error":    err.Error(),
			})
			continue
		}
		if !usable(res) {
			warnings = append(warnings, fmt.Sprintf("%s: produced no usable text", strategy.Name()))
			continue
		}

		res.Method = strategy.Name()
		res.Warnings = warnings
		c.log.Info("Extraction", "text extracted", map[string]interface{}{
			"strategy": strategy.Name(),
			"file":     filePath,
			"chars":    len(res.Text),
			"pages":    res.Pages,
			"tables":   res.TableCount,
			"degraded": res.Degraded,
		})
		return res, nil
	}

	return nil, apperror.Extraction("all extraction strategies failed", fmt.Errorf("%s", strings.Join(warnings, "; ")))
}

func usable(res *Result) bool {
	return res != nil && len(strings.TrimSpace(res.Text)) >= minUsableChars
}

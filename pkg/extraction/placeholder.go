package extraction

import (
	"context"
	"fmt"
	"path/filepath"
)

// placeholderStrategy is the floor of the ladder. It fabricates a short
// notice naming the file so the document still lands in the store and can be
// reprocessed later, rather than failing the whole job over an unreadable
// source.
type placeholderStrategy struct{}

func NewPlaceholderStrategy() Strategy {
	return &placeholderStrategy{}
}

func (s *placeholderStrategy) Name() string { return "placeholder" }

func (s *placeholderStrategy) Supports(string) bool { return true }

func (s *placeholderStrategy) Extract(ctx context.Context, filePath string) (*Result, error) {
	name := filepath.Base(filePath)
	return &Result{
		Text: fmt.Sprintf(
			"Document %q was uploaded but its content could not be extracted. "+
				"The file may be scanned, corrupted, or in an unreadable encoding. "+
				"Re-upload a text-based version to make its content searchable.",
			name,
		),
		Degraded: true,
	}, nil
}

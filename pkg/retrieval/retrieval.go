package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/contract"
	"doc-rag-be/pkg/embedding"
	"doc-rag-be/pkg/vectorstore"
)

// Table-aware score boosts. A chunk carrying the exact code the query asked
// about outranks a chunk that merely contains some table.
const (
	exactTableBoost   = 1.5
	genericTableBoost = 1.2

	// table queries search this many times wider before boosting, so a
	// table chunk sitting just outside the top K can still surface
	tableWidenFactor = 3
)

const tableMarker = "### Extracted Table"

var tableCode = regexp.MustCompile(`\b\d+-\d+\b`)

// Engine answers queries against one user's slice of the store: embed the
// query, search, boost table chunks when the query smells tabular, and
// assemble a bounded context string.
type Engine struct {
	store           *vectorstore.Store
	generator       *embedding.Generator
	defaultTopK     int
	maxContextChars int
	maxImages       int
	log             logger.ILogger
}

func NewEngine(
	store *vectorstore.Store,
	generator *embedding.Generator,
	defaultTopK, maxContextChars, maxImages int,
	log logger.ILogger,
) *Engine {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if maxContextChars <= 0 {
		maxContextChars = 8000
	}
	return &Engine{
		store:           store,
		generator:       generator,
		defaultTopK:     defaultTopK,
		maxContextChars: maxContextChars,
		maxImages:       maxImages,
		log:             log,
	}
}

func (e *Engine) Retrieve(ctx context.Context, userId uuid.UUID, req *dto.RetrieveRequest) (*dto.RetrieveResponse, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = e.defaultTopK
	}

	tableQuery := isTableQuery(req.Query)
	searchLimit := topK
	if tableQuery {
		searchLimit = topK * tableWidenFactor
	}

	queryVector, err := e.generator.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	scored, err := e.store.SearchChunks(ctx, userId, queryVector, searchLimit)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		// an empty store answers with an empty context, not an error
		return &dto.RetrieveResponse{Sources: []dto.RetrievedSource{}}, nil
	}

	ranked := applyBoosts(scored, req.Query, tableQuery)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	resp := &dto.RetrieveResponse{
		Context: buildContext(ranked, e.maxContextChars),
	}
	for _, r := range ranked {
		resp.Sources = append(resp.Sources, dto.RetrievedSource{
			Text: r.chunk.Text,
			Metadata: map[string]interface{}{
				"document_id":   r.chunk.DocumentId.String(),
				"chunk_index":   r.chunk.ChunkIndex,
				"section_title": r.chunk.SectionTitle,
				"page":          r.chunk.Page,
			},
			Score:         r.score,
			ContainsTable: r.containsTable,
		})
	}

	images, err := e.store.SearchImages(ctx, userId, req.Query, e.maxImages)
	if err != nil {
		e.log.Warn("Retrieval", "image search failed", map[string]interface{}{
			"userId": userId.String(),
			"error":  err.Error(),
		})
	}
	for _, img := range images {
		resp.Images = append(resp.Images, dto.RetrievedImage{
			ImageId:  img.Record.ImageId,
			Base64:   img.Record.Base64Data,
			Keywords: img.Record.Keywords,
			Page:     img.Record.Page,
			Score:    img.Score,
		})
	}

	e.log.Info("Retrieval", "query answered", map[string]interface{}{
		"userId":     userId.String(),
		"tableQuery": tableQuery,
		"sources":    len(resp.Sources),
		"images":     len(resp.Images),
	})
	return resp, nil
}

// isTableQuery reports whether the query is after tabular data: it mentions
// tables outright or carries a part-number style code.
func isTableQuery(query string) bool {
	return strings.Contains(strings.ToLower(query), "table") || tableCode.MatchString(query)
}

type ranked struct {
	chunk         *entity.Chunk
	score         float64
	containsTable bool
}

// applyBoosts multiplies table-bearing chunks' similarity and re-sorts. The
// exact boost fires when the chunk contains a code the query named, with or
// without an extraction marker: a chunk labeled "Table 2-2" answers a
// "table 2-2" query. The generic boost needs the marker and a table query.
func applyBoosts(scored []*contract.ScoredChunk, query string, tableQuery bool) []ranked {
	queryCodes := tableCode.FindAllString(query, -1)

	out := make([]ranked, 0, len(scored))
	for _, sc := range scored {
		containsTable := strings.Contains(sc.Chunk.Text, tableMarker)
		score := sc.Similarity

		switch {
		case chunkHasAnyCode(sc.Chunk.Text, queryCodes):
			score *= exactTableBoost
		case tableQuery && containsTable:
			score *= genericTableBoost
		}
		out = append(out, ranked{
			chunk:         sc.Chunk,
			score:         score,
			containsTable: containsTable,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func chunkHasAnyCode(text string, codes []string) bool {
	for _, code := range codes {
		if strings.Contains(text, code) {
			return true
		}
	}
	return false
}

// buildContext concatenates ranked chunks up to the budget and marks the
// cut when the budget runs out.
func buildContext(rankedChunks []ranked, maxChars int) string {
	const separator = "\n\n---\n\n"
	const truncationMark = "... [truncated]"

	var sb strings.Builder
	for i, r := range rankedChunks {
		piece := r.chunk.Text
		if i > 0 {
			piece = separator + piece
		}
		if sb.Len()+len(piece) > maxChars {
			remaining := maxChars - sb.Len() - len(truncationMark)
			if remaining > 0 {
				sb.WriteString(piece[:remaining])
			}
			sb.WriteString(truncationMark)
			break
		}
		sb.WriteString(piece)
	}
	return sb.String()
}

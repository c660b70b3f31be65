package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/manualflow/core"
	"github.com/poiesic/manualflow/storage"
)

// GateResult is the advisory output of the quality gate.
type GateResult struct {
	// Score is a completeness heuristic bounded to [0, 100].
	Score int

	// Issues lists human-readable completeness problems.
	Issues []string

	// Passed reports whether the score cleared the pass threshold.
	Passed bool
}

// passThreshold is the minimum score the gate considers acceptable.
const passThreshold = 70

// QualityGate scores how complete a processed document looks. It only reads;
// the score and issues are attached to pipeline results for audit and never
// change a document's status.
type QualityGate struct {
	store  storage.Store
	logger *slog.Logger
}

// NewQualityGate creates a gate over the given store.
func NewQualityGate(store storage.Store) *QualityGate {
	return &QualityGate{
		store:  store,
		logger: slog.Default().With("component", "quality-gate"),
	}
}

// Score computes the completeness score for a document.
func (g *QualityGate) Score(ctx context.Context, docID core.ID) (*GateResult, error) {
	doc, err := g.store.Documents().GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	chunkCount, err := g.store.Chunks().CountChunks(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	embeddingCount, err := g.store.Embeddings().CountEmbeddingsForDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("counting embeddings: %w", err)
	}
	imageCount, err := g.store.Images().CountImages(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("counting images: %w", err)
	}

	result := &GateResult{Score: 100}

	if chunkCount == 0 {
		g.deduct(result, 40, "no text chunks extracted")
	}

	if embeddingCount == 0 {
		g.deduct(result, 30, "no embeddings generated")
	} else if chunkCount > 0 && embeddingCount < chunkCount {
		g.deduct(result, 10, fmt.Sprintf("embedding coverage incomplete (%d of %d chunks)", embeddingCount, chunkCount))
	}

	if doc.Manufacturer == "" {
		g.deduct(result, 10, "manufacturer not classified")
	}
	if doc.DocType == "" {
		g.deduct(result, 10, "document type not classified")
	}

	if imageCount == 0 {
		g.deduct(result, 5, "no images extracted")
	}

	result.Passed = result.Score >= passThreshold
	g.logger.Debug("quality gate scored document",
		"document_id", docID,
		"score", result.Score,
		"passed", result.Passed,
		"issues", len(result.Issues))
	return result, nil
}

func (g *QualityGate) deduct(result *GateResult, points int, issue string) {
	result.Score -= points
	if result.Score < 0 {
		result.Score = 0
	}
	result.Issues = append(result.Issues, issue)
}

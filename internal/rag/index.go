package rag

import (
	"context"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"skillmatch/internal/errors"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const collectionName = "resume"

// Chunk is one embedded piece of indexed text
type Chunk struct {
	Index  int
	Text   string
	Vector []float32
}

// Match is a retrieved chunk with its cosine similarity to the query
type Match struct {
	Chunk Chunk
	Score float64
}

// Index is an in-memory chromem collection over embedded chunks. It is
// immutable after BuildIndex returns and safe for concurrent use.
type Index struct {
	chunks     []Chunk
	collection *chromem.Collection
}

// BuildIndex embeds chunks with embedder in one batch and stores them in a
// fresh collection. Blank chunks are dropped.
func BuildIndex(ctx context.Context, embedder Embedder, chunks []string) (*Index, error) {
	ctx, span := otel.Tracer("skillmatch.rag").Start(ctx, "rag.build_index")
	defer span.End()

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			texts = append(texts, c)
		}
	}
	span.SetAttributes(
		attribute.String("embedding.provider", embedder.Name()),
		attribute.Int("chunks", len(texts)),
	)

	collection, err := chromem.NewDB().CreateCollection(collectionName, nil, queryEmbedding(embedder))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "failed to create vector collection", err)
	}
	idx := &Index{collection: collection, chunks: make([]Chunk, len(texts))}
	if len(texts) == 0 {
		return idx, nil
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "embedder returned a wrong number of vectors", nil)
	}

	docs := make([]chromem.Document, len(texts))
	for i, t := range texts {
		idx.chunks[i] = Chunk{Index: i, Text: t, Vector: vectors[i]}
		docs[i] = chromem.Document{ID: strconv.Itoa(i), Content: t, Embedding: vectors[i]}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		span.RecordError(err)
		return nil, errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "failed to index chunks", err)
	}
	return idx, nil
}

// queryEmbedding adapts the batch embedder to the single text function chromem
// calls for queries
func queryEmbedding(embedder Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "embedder returned no query vector", nil)
		}
		return vectors[0], nil
	}
}

// Len returns the number of indexed chunks
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Search returns the k chunks most similar to query, best first. Equal scores
// keep document order. A blank query matches nothing.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	k = min(k, ix.collection.Count())
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	results, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, errors.NewInternalError(errors.ErrCodeEmbeddingFailed, "vector search failed", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 || i >= len(ix.chunks) {
			continue
		}
		score := float64(r.Similarity)
		if math.IsNaN(score) {
			score = 0
		}
		matches = append(matches, Match{Chunk: ix.chunks[i], Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})
	return matches, nil
}

// Retrieve returns the texts of the k chunks most similar to query
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	matches, err := ix.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Chunk.Text
	}
	return texts, nil
}

// JoinContext concatenates retrieved chunks into a prompt context block
func JoinContext(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

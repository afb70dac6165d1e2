package rag

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"
)

// maxChunkChars caps how much of a document goes into one embedded chunk.
const maxChunkChars = 1500

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type chunk struct {
	source    string
	content   string
	embedding []float32
}

type scoredChunk struct {
	chunk
	score float64
}

// Index holds the embedded knowledge corpus and answers similarity queries
// over it. Documents are plain text or markdown files; they are chunked by
// paragraph and embedded once at load time.
type Index struct {
	client embeddingClient
	model  string
	logger *zerolog.Logger

	mu     sync.RWMutex
	chunks []chunk
}

func NewIndex(client embeddingClient, model string, logger *zerolog.Logger) *Index {
	return &Index{
		client: client,
		model:  model,
		logger: logger,
	}
}

// LoadDir reads every .txt and .md file under dir, chunks and embeds it.
// A missing directory is not an error: the index just stays empty.
func (idx *Index) LoadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			idx.logger.Warn().Str("dir", dir).Msg("Knowledge directory does not exist, index is empty")
			return nil
		}
		return fmt.Errorf("failed to read knowledge dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := idx.AddDocument(ctx, entry.Name(), string(data)); err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
	}

	idx.logger.Info().Str("dir", dir).Int("chunks", idx.Len()).Msg("Knowledge corpus loaded")
	return nil
}

// AddDocument chunks, embeds and stores one document.
func (idx *Index) AddDocument(ctx context.Context, source, content string) error {
	parts := splitChunks(content)
	if len(parts) == 0 {
		return nil
	}

	resp, err := idx.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(idx.model),
		Input: parts,
	})
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}
	if len(resp.Data) != len(parts) {
		return fmt.Errorf("embedding response size mismatch: %d vs %d", len(resp.Data), len(parts))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, item := range resp.Data {
		idx.chunks = append(idx.chunks, chunk{
			source:    source,
			content:   parts[i],
			embedding: item.Embedding,
		})
	}
	return nil
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Query returns the topK chunks most similar to the question, best first.
func (idx *Index) Query(ctx context.Context, question string, topK int) ([]scoredChunk, error) {
	if topK <= 0 {
		topK = 3
	}

	resp, err := idx.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(idx.model),
		Input: []string{question},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.chunks) == 0 {
		return nil, nil
	}

	results := make([]scoredChunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		results = append(results, scoredChunk{chunk: c, score: cosineSimilarity(queryVec, c.embedding)})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// splitChunks splits a document on blank lines and merges small paragraphs
// up to maxChunkChars so short FAQ entries travel together.
func splitChunks(content string) []string {
	paragraphs := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")

	var out []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p) > maxChunkChars {
			out = append(out, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Package vector implements similarity lookup over the extracted medical-text
// corpus used to ground treatment suggestions
package vector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/config"
	apperrors "github.com/regimen-health/regimen/internal/errors"
	"github.com/regimen-health/regimen/internal/store"
)

// Searcher provides corpus similarity search
type Searcher struct {
	config    *config.VectorConfig
	store     *store.Store
	logger    *zap.Logger
	mu        sync.RWMutex
	cache     map[string][]float32
	providers map[string]Provider
}

// Provider interface for embedding generation
type Provider interface {
	Name() string
	GenerateEmbedding(text string) ([]float32, error)
	Dimension() int
}

// Result represents a corpus match
type Result struct {
	EntryID    string
	Topic      string
	Content    string
	Source     string
	Similarity float64
}

// NewSearcher creates a new corpus searcher
func NewSearcher(cfg *config.VectorConfig, st *store.Store, logger *zap.Logger) (*Searcher, error) {
	if cfg == nil {
		cfg = &config.VectorConfig{Enabled: false, Provider: "local", Dimension: 384}
	}

	s := &Searcher{
		config:    cfg,
		store:     st,
		logger:    logger,
		cache:     make(map[string][]float32),
		providers: make(map[string]Provider),
	}

	s.providers["local"] = NewLocalProvider(cfg.Dimension)
	if cfg.OpenAIAPIKey != "" {
		s.providers["openai"] = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	}

	return s, nil
}

// IsEnabled returns whether corpus search is enabled
func (s *Searcher) IsEnabled() bool {
	return s.config.Enabled
}

func (s *Searcher) getProvider() Provider {
	if provider, ok := s.providers[s.config.Provider]; ok {
		return provider
	}
	return s.providers["local"]
}

// GenerateEmbedding creates an embedding for the given text
func (s *Searcher) GenerateEmbedding(text string) ([]float32, error) {
	if !s.config.Enabled {
		return nil, apperrors.ErrCorpusDisabled
	}
	return s.getProvider().GenerateEmbedding(text)
}

// IndexEntry embeds a corpus entry and persists the vector
func (s *Searcher) IndexEntry(entryID, content string) error {
	if !s.config.Enabled {
		return nil
	}

	embedding, err := s.GenerateEmbedding(content)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.store.UpdateCorpusEmbedding(entryID, float32SliceToBytes(embedding)); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	s.mu.Lock()
	s.cache[entryID] = embedding
	s.mu.Unlock()

	s.logger.Debug("Indexed corpus entry",
		zap.String("entry_id", entryID),
		zap.Int("dimension", len(embedding)),
	)

	return nil
}

// Search returns the corpus entries most similar to the query
func (s *Searcher) Search(query string, limit int) ([]Result, error) {
	if !s.config.Enabled {
		return nil, apperrors.ErrCorpusDisabled
	}

	queryEmbedding, err := s.GenerateEmbedding(query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	entries, err := s.store.ListCorpusEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus: %w", err)
	}

	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Embedding) == 0 {
			continue
		}

		embedding := bytesToFloat32Slice(entry.Embedding)
		if len(embedding) != len(queryEmbedding) {
			continue
		}

		similarity := cosineSimilarity(queryEmbedding, embedding)
		if similarity > 0.5 {
			results = append(results, Result{
				EntryID:    entry.ID,
				Topic:      entry.Topic,
				Content:    entry.Content,
				Source:     entry.Source,
				Similarity: similarity,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// ReindexAll re-embeds the whole corpus, useful after changing models
func (s *Searcher) ReindexAll() error {
	if !s.config.Enabled {
		return apperrors.ErrCorpusDisabled
	}

	entries, err := s.store.ListCorpusEntries()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := s.IndexEntry(entry.ID, entry.Content); err != nil {
			s.logger.Error("Failed to index corpus entry",
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Corpus reindex complete", zap.Int("count", len(entries)))
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func float32SliceToBytes(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		bits := math.Float32bits(v)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

func bytesToFloat32Slice(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}

	f := make([]float32, len(b)/4)
	for i := 0; i < len(f); i++ {
		bits := uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
		f[i] = math.Float32frombits(bits)
	}
	return f
}

// ==================== Providers ====================

// LocalProvider provides deterministic word-hash embeddings, good enough for
// small corpora and tests without an API key
type LocalProvider struct {
	dimension int
	vocab     map[string][]float32
	mu        sync.RWMutex
}

// NewLocalProvider creates a local embedding provider
func NewLocalProvider(dimension int) *LocalProvider {
	return &LocalProvider{
		dimension: dimension,
		vocab:     make(map[string][]float32),
	}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Dimension() int { return p.dimension }

func (p *LocalProvider) GenerateEmbedding(text string) ([]float32, error) {
	words := tokenize(text)
	embedding := make([]float32, p.dimension)

	for _, word := range words {
		vec := p.getWordVector(word)
		for i := range embedding {
			embedding[i] += vec[i]
		}
	}

	normalize(embedding)
	return embedding, nil
}

func (p *LocalProvider) getWordVector(word string) []float32 {
	p.mu.RLock()
	if vec, ok := p.vocab[word]; ok {
		p.mu.RUnlock()
		return vec
	}
	p.mu.RUnlock()

	vec := make([]float32, p.dimension)
	seed := hashString(word)
	for i := range vec {
		vec[i] = float32((seed+uint64(i)*6364136223846793005)%1000) / 1000.0
	}
	normalize(vec)

	p.mu.Lock()
	p.vocab[word] = vec
	p.mu.Unlock()

	return vec
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// OpenAIProvider uses OpenAI's embedding API
type OpenAIProvider struct {
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Dimension() int {
	if p.model == "text-embedding-3-large" {
		return 3072
	}
	return 1536
}

func (p *OpenAIProvider) GenerateEmbedding(text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"input": text,
		"model": p.model,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", "https://api.openai.com/v1/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error: %s", resp.Status)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return result.Data[0].Embedding, nil
}

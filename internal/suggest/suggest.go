// Package suggest generates evidence-based treatment suggestions for a
// condition via an LLM, optionally grounded by corpus similarity lookup
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/config"
	apperrors "github.com/regimen-health/regimen/internal/errors"
	"github.com/regimen-health/regimen/internal/llm"
	"github.com/regimen-health/regimen/internal/vector"
)

const systemPrompt = "You are a medical assistant helping to suggest evidence-based treatments " +
	"for medical conditions. Provide balanced recommendations including both pharmaceutical " +
	"and lifestyle interventions when appropriate."

// Suggestion is one proposed treatment
type Suggestion struct {
	Name        string `json:"name"`
	Type        string `json:"type"`      // pharmaceutical, non-pharmaceutical
	Frequency   string `json:"frequency"` // daily, weekly, monthly
	Description string `json:"description"`
}

// Result carries suggestions plus cache provenance
type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	FromCache   bool         `json:"from_cache"`
}

// Service produces treatment suggestions
type Service struct {
	config   *config.SuggestionsConfig
	client   *llm.Client
	searcher *vector.Searcher
	cache    *badger.DB
	logger   *zap.Logger
}

// New creates a suggestion service. cache and searcher may be nil; the
// service then skips caching and corpus grounding respectively.
func New(cfg *config.SuggestionsConfig, client *llm.Client, searcher *vector.Searcher, cache *badger.DB, logger *zap.Logger) *Service {
	return &Service{
		config:   cfg,
		client:   client,
		searcher: searcher,
		cache:    cache,
		logger:   logger,
	}
}

// Suggest returns treatment suggestions for a condition, serving from the
// 24h cache when possible
func (s *Service) Suggest(ctx context.Context, conditionName, description string) (*Result, error) {
	key := cacheKey(conditionName, description)

	if cached := s.readCache(key); cached != nil {
		s.logger.Debug("Suggestion cache hit", zap.String("condition", conditionName))
		return &Result{Suggestions: cached, FromCache: true}, nil
	}

	prompt := s.buildPrompt(conditionName, description)

	content, err := s.client.JSONChat(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	suggestions, err := parseSuggestions(content)
	if err != nil {
		return nil, err
	}

	s.writeCache(key, suggestions)

	return &Result{Suggestions: suggestions}, nil
}

func (s *Service) buildPrompt(conditionName, description string) string {
	var b strings.Builder

	count := s.config.Count
	if count <= 0 {
		count = 5
	}

	fmt.Fprintf(&b, "Generate %d evidence-based treatment options for the medical condition: %s.\n", count, conditionName)
	if description != "" {
		fmt.Fprintf(&b, "Additional context about the condition: %s\n", description)
	}

	if s.searcher != nil && s.searcher.IsEnabled() {
		results, err := s.searcher.Search(conditionName+" "+description, 3)
		if err != nil {
			s.logger.Warn("Corpus lookup failed, continuing ungrounded", zap.Error(err))
		} else if len(results) > 0 {
			b.WriteString("\nRelevant excerpts from trusted medical references:\n")
			for _, r := range results {
				fmt.Fprintf(&b, "- %s\n", r.Content)
			}
		}
	}

	b.WriteString(`
For each treatment, provide:
1. A specific name (medication name or lifestyle intervention)
2. Type (either "pharmaceutical" or "non-pharmaceutical")
3. Recommended frequency (daily, weekly, or monthly)
4. A brief description of how it works or benefits the condition

Format the response as a JSON object with a key named "suggestions" containing an array of objects.
Each object in the "suggestions" array must have keys: name, type, frequency, and description.
Only include treatments that are well-established and evidence-based.`)

	return b.String()
}

// parseSuggestions decodes the model's JSON, tolerating the alternate top-level
// keys the model sometimes uses
func parseSuggestions(content string) ([]Suggestion, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSuggestionParse.Code, "response is not a JSON object")
	}

	for _, key := range []string{"suggestions", "treatment_options", "treatments"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var suggestions []Suggestion
		if err := json.Unmarshal(raw, &suggestions); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrSuggestionParse.Code, fmt.Sprintf("key %q is not a suggestion array", key))
		}
		return suggestions, nil
	}

	return []Suggestion{}, nil
}

func cacheKey(conditionName, description string) []byte {
	return []byte("suggest:" + strings.ToLower(conditionName) + "-" + strings.ToLower(description))
}

func (s *Service) readCache(key []byte) []Suggestion {
	if s.cache == nil {
		return nil
	}

	var suggestions []Suggestion
	err := s.cache.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &suggestions)
		})
	})
	if err != nil {
		return nil
	}
	return suggestions
}

func (s *Service) writeCache(key []byte, suggestions []Suggestion) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(suggestions)
	if err != nil {
		return
	}

	ttl := time.Duration(s.config.CacheTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	err = s.cache.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		s.logger.Warn("Failed to cache suggestions", zap.Error(err))
	}
}

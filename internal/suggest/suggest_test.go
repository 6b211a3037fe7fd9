package suggest

import (
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/config"
	apperrors "github.com/regimen-health/regimen/internal/errors"
)

func TestParseSuggestions(t *testing.T) {
	content := `{"suggestions": [
		{"name": "Albuterol inhaler", "type": "pharmaceutical", "frequency": "daily", "description": "Bronchodilator"},
		{"name": "Breathing exercises", "type": "non-pharmaceutical", "frequency": "daily", "description": "Diaphragmatic breathing"}
	]}`

	suggestions, err := parseSuggestions(content)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "Albuterol inhaler", suggestions[0].Name)
	assert.Equal(t, "pharmaceutical", suggestions[0].Type)
}

func TestParseSuggestionsAlternateKeys(t *testing.T) {
	for _, key := range []string{"treatment_options", "treatments"} {
		content := `{"` + key + `": [{"name": "X", "type": "pharmaceutical", "frequency": "daily", "description": "d"}]}`
		suggestions, err := parseSuggestions(content)
		require.NoError(t, err, key)
		assert.Len(t, suggestions, 1, key)
	}
}

func TestParseSuggestionsNotJSON(t *testing.T) {
	_, err := parseSuggestions("Sure! Here are some treatments:")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSuggestionParse.Code, apperrors.GetCode(err))
}

func TestParseSuggestionsWrongShape(t *testing.T) {
	_, err := parseSuggestions(`{"suggestions": "none"}`)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSuggestionParse.Code, apperrors.GetCode(err))
}

func TestParseSuggestionsUnknownKey(t *testing.T) {
	suggestions, err := parseSuggestions(`{"advice": []}`)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestBuildPrompt(t *testing.T) {
	svc := New(&config.SuggestionsConfig{Count: 3}, nil, nil, nil, zap.NewNop())

	prompt := svc.buildPrompt("Asthma", "adult onset")
	assert.Contains(t, prompt, "Generate 3 evidence-based treatment options")
	assert.Contains(t, prompt, "Asthma")
	assert.Contains(t, prompt, "adult onset")
	assert.Contains(t, prompt, `"suggestions"`)
}

func TestBuildPromptDefaultCount(t *testing.T) {
	svc := New(&config.SuggestionsConfig{}, nil, nil, nil, zap.NewNop())
	assert.Contains(t, svc.buildPrompt("Asthma", ""), "Generate 5 evidence-based")
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	svc := New(&config.SuggestionsConfig{CacheTTLHours: 1}, nil, nil, cache, zap.NewNop())

	key := cacheKey("Asthma", "adult onset")
	assert.Nil(t, svc.readCache(key))

	want := []Suggestion{{Name: "Albuterol", Type: "pharmaceutical", Frequency: "daily", Description: "d"}}
	svc.writeCache(key, want)

	got := svc.readCache(key)
	require.Len(t, got, 1)
	assert.Equal(t, want[0], got[0])

	// A different description is a different key.
	assert.Nil(t, svc.readCache(cacheKey("Asthma", "childhood")))
}

func TestCacheKeyCaseInsensitive(t *testing.T) {
	assert.Equal(t, cacheKey("Asthma", "Mild"), cacheKey("asthma", "mild"))
	assert.True(t, strings.HasPrefix(string(cacheKey("Asthma", "")), "suggest:"))
}

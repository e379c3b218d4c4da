package spell

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDictionary(t *testing.T, words ...string) *Dictionary {
	t.Helper()
	path := filepath.Join(t.TempDir(), DictionaryFileName)
	dict, err := OpenDictionary(path)
	require.NoError(t, err)
	for _, word := range words {
		require.NoError(t, dict.Define(word))
	}
	return dict
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"top", "tob", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, editDistance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestOpenDictionary_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DictionaryFileName)

	dict, err := OpenDictionary(path)
	require.NoError(t, err)
	assert.Empty(t, dict.Entries())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenDictionary_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DictionaryFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	dict, err := OpenDictionary(path)
	require.NoError(t, err)
	assert.Empty(t, dict.Entries())
}

func TestDictionary_DefineStripsPunctuationAndDeduplicates(t *testing.T) {
	dict := newTestDictionary(t)

	require.NoError(t, dict.Define("hello,"))
	require.NoError(t, dict.Define("hello"))
	require.NoError(t, dict.Define("  "))

	entries := dict.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].HeadWord)
	assert.NotEmpty(t, entries[0].ID)
}

func TestDictionary_DefinePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), DictionaryFileName)
	dict, err := OpenDictionary(path)
	require.NoError(t, err)
	require.NoError(t, dict.Define("beginning"))

	reloaded, err := OpenDictionary(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("beginning"))
}

func TestDictionary_Remove(t *testing.T) {
	dict := newTestDictionary(t, "alpha", "beta")

	require.NoError(t, dict.Remove("alpha"))
	assert.False(t, dict.Contains("alpha"))
	assert.True(t, dict.Contains("beta"))
}

func TestChecker_IsCorrectionNeeded(t *testing.T) {
	checker := NewChecker(newTestDictionary(t, "beginning"))

	assert.False(t, checker.IsCorrectionNeeded("beginning"))
	assert.False(t, checker.IsCorrectionNeeded("Beginning,"))
	assert.False(t, checker.IsCorrectionNeeded("GEN"), "all-caps tokens are never flagged")
	assert.False(t, checker.IsCorrectionNeeded("3:16"), "verse references are never flagged")
	assert.True(t, checker.IsCorrectionNeeded("beginnning"))
}

func TestChecker_SuggestRanksByDistance(t *testing.T) {
	checker := NewChecker(newTestDictionary(t, "top", "table", "stop", "apple", "orange", "banana"))

	suggestions := checker.Suggest("tob")
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "top", suggestions[0])
	assert.LessOrEqual(t, len(suggestions), 5)
}

func TestChecker_SuggestKnownWordReturnsItself(t *testing.T) {
	checker := NewChecker(newTestDictionary(t, "light"))

	assert.Equal(t, []string{"light"}, checker.Suggest("Light."))
}

func TestChecker_SuggestEmptyDictionary(t *testing.T) {
	checker := NewChecker(newTestDictionary(t))

	assert.Empty(t, checker.Suggest("word"))
}

func TestChecker_CompleteShortestFirst(t *testing.T) {
	checker := NewChecker(newTestDictionary(t, "is", "island", "isaiah", "israel", "issue", "isthmus", "other"))

	completions := checker.Complete("is")
	require.NotEmpty(t, completions)
	assert.Equal(t, "", completions[0], "exact headword completes with the empty remainder")
	assert.Len(t, completions, 5)
	for i := 1; i < len(completions); i++ {
		assert.GreaterOrEqual(t, len(completions[i]), len(completions[i-1]))
	}
}

func TestChecker_CompleteHeadwordsWhoseLowercaseIsWider(t *testing.T) {
	// Lowercasing "Ⱥ" (U+023A, 2 bytes) yields "ⱥ" (U+2C65, 3 bytes), so the
	// fragment's byte length is not a valid offset into the headword.
	checker := NewChecker(newTestDictionary(t, "ȺB", "Ⱥbc"))

	completions := checker.Complete("ⱥb")
	require.Len(t, completions, 2)
	assert.Equal(t, "", completions[0])
	assert.Equal(t, "c", completions[1])
}

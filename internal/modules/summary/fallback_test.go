package summary

import (
	"testing"

	"github.com/daybook-app/core/internal/modules/entry"
	"github.com/stretchr/testify/assert"
)

func TestMoodBuckets(t *testing.T) {
	assert.Equal(t, "Great", moodBucket(4.0))
	assert.Equal(t, "Great", moodBucket(5.0))
	assert.Equal(t, "Good", moodBucket(3.0))
	assert.Equal(t, "Good", moodBucket(3.9))
	assert.Equal(t, "Mixed", moodBucket(2.5))
	assert.Equal(t, "Challenging", moodBucket(1.0))
}

func TestSentimentThresholds(t *testing.T) {
	assert.Equal(t, "positive", sentimentFor(3.5))
	assert.Equal(t, "neutral", sentimentFor(3.0))
	assert.Equal(t, "neutral", sentimentFor(2.5))
	assert.Equal(t, "negative", sentimentFor(2.4))
}

func TestFallbackAnalysisIsDeterministic(t *testing.T) {
	entries := []*entry.Entry{
		{Title: "Morning run", Mood: 4, Tags: []string{"health"}},
		{Title: "Late dinner", Mood: 5, Tags: []string{"food", "health"}},
	}

	a := fallbackAnalysis(entries)
	b := fallbackAnalysis(entries)
	assert.Equal(t, a, b)

	assert.Equal(t, "Great Day - 2 entries", a.Title)
	assert.Equal(t, "positive", a.Sentiment)
	assert.Equal(t, "stable", a.MoodTrend)
	assert.Equal(t, []string{"health", "food"}, a.Themes)
	assert.Contains(t, a.Summary, "average mood of 4.5")
	assert.Contains(t, a.Summary, "Morning run")
}

func TestFallbackSingularTitle(t *testing.T) {
	a := fallbackAnalysis([]*entry.Entry{{Title: "Alone", Mood: 2}})
	assert.Equal(t, "Mixed Day - 1 entry", a.Title)
}

func TestFallbackSkipsPlaceholderTitles(t *testing.T) {
	entries := []*entry.Entry{
		{Title: entry.CorruptedTitle, Mood: 3},
		{Title: entry.InvalidTitle, Mood: 3},
		{Title: "Real one", Mood: 3},
	}

	a := fallbackAnalysis(entries)
	assert.Contains(t, a.Summary, "Real one")
	assert.NotContains(t, a.Summary, entry.CorruptedTitle)
	assert.NotContains(t, a.Summary, entry.InvalidTitle)
}

func TestTopTagsOrdering(t *testing.T) {
	entries := []*entry.Entry{
		{Tags: []string{"b", "a"}},
		{Tags: []string{"b", "c"}},
		{Tags: []string{"b", "a", "d", "e", "f"}},
	}

	tags := topTags(entries, 4)
	// Frequency first, then alphabetical.
	assert.Equal(t, []string{"b", "a", "c", "d"}, tags)
}

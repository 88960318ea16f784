package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daybook-app/core/internal/modules/ai"
	"github.com/daybook-app/core/internal/modules/entry"
)

// fallbackAnalysis builds a deterministic summary from the entries alone.
// It stands in whenever the model is disabled or fails, so a day never shows
// an empty title.
func fallbackAnalysis(entries []*entry.Entry) *ai.PeriodAnalysis {
	avg := avgMood(entries)
	bucket := moodBucket(avg)

	return &ai.PeriodAnalysis{
		Title:      fmt.Sprintf("%s Day - %d %s", bucket, len(entries), plural(len(entries), "entry", "entries")),
		Summary:    fallbackSummaryText(entries, avg),
		Themes:     topTags(entries, 5),
		MoodTrend:  "stable",
		Sentiment:  sentimentFor(avg),
		Activities: []string{},
		Emotions:   []string{},
		People:     []string{},
		Places:     []string{},
	}
}

func avgMood(entries []*entry.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	total := 0
	for _, e := range entries {
		total += e.Mood
	}
	return float64(total) / float64(len(entries))
}

func moodBucket(avg float64) string {
	switch {
	case avg >= 4:
		return "Great"
	case avg >= 3:
		return "Good"
	case avg >= 2:
		return "Mixed"
	default:
		return "Challenging"
	}
}

func sentimentFor(avg float64) string {
	switch {
	case avg >= 3.5:
		return "positive"
	case avg >= 2.5:
		return "neutral"
	default:
		return "negative"
	}
}

func fallbackSummaryText(entries []*entry.Entry, avg float64) string {
	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title == "" || title == entry.CorruptedTitle || title == entry.InvalidTitle {
			continue
		}
		titles = append(titles, title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You wrote %d %s with an average mood of %.1f.",
		len(entries), plural(len(entries), "entry", "entries"), avg)
	if len(titles) > 0 {
		if len(titles) > 3 {
			titles = titles[:3]
		}
		fmt.Fprintf(&b, " Topics included: %s.", strings.Join(titles, ", "))
	}
	return b.String()
}

// topTags returns the most frequent tags, ties broken alphabetically.
func topTags(entries []*entry.Entry, limit int) []string {
	counts := make(map[string]int)
	for _, e := range entries {
		for _, tag := range e.Tags {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				counts[tag]++
			}
		}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

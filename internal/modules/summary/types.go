package summary

import (
	"time"

	"github.com/daybook-app/core/internal/models"
)

// Summary is the cached analysis of one owner-local day.
type Summary struct {
	OwnerID     string     `json:"owner_id"`
	Date        string     `json:"date"`
	EntryCount  int        `json:"entry_count"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Emotions    []string   `json:"emotions"`
	Themes      []string   `json:"themes"`
	People      []string   `json:"people"`
	Places      []string   `json:"places"`
	Activities  []string   `json:"activities"`
	MoodTrend   string     `json:"mood_trend"`
	Sentiment   string     `json:"sentiment"`
	AvgMood     *float64   `json:"avg_mood,omitempty"`
	Stale       bool       `json:"stale"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

func fromModel(row *models.DaySummaryModel) *Summary {
	return &Summary{
		OwnerID:     row.OwnerID,
		Date:        row.Date,
		EntryCount:  row.EntryCount,
		Title:       row.Title,
		Summary:     row.Summary,
		Emotions:    row.Emotions,
		Themes:      row.Themes,
		People:      row.People,
		Places:      row.Places,
		Activities:  row.Activities,
		MoodTrend:   row.MoodTrend,
		Sentiment:   row.Sentiment,
		AvgMood:     row.AvgMood,
		Stale:       row.NeedsRegeneration,
		GeneratedAt: row.GeneratedAt,
	}
}

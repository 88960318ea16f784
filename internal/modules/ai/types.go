package ai

import (
	"context"
	"time"
)

// Analyzer produces an AI analysis for a set of journal entries covering a
// period. Calls are not idempotent; two calls over the same entries may
// return different text.
type Analyzer interface {
	AnalyzePeriod(ctx context.Context, req *PeriodRequest) (*PeriodAnalysis, error)
}

// PeriodRequest describes the entries to analyze.
type PeriodRequest struct {
	PeriodType string         `json:"period_type"` // day | week | month | all
	StartDate  string         `json:"start_date"`  // YYYY-MM-DD
	EndDate    string         `json:"end_date"`
	Entries    []EntryContent `json:"entries"`
}

// EntryContent is the decrypted entry material handed to the model.
type EntryContent struct {
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Mood      int       `json:"mood"`
	Tags      []string  `json:"tags,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PeriodAnalysis is the structured model output.
type PeriodAnalysis struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Emotions   []string `json:"emotions"`
	Themes     []string `json:"themes"`
	People     []string `json:"people"`
	Places     []string `json:"places"`
	Activities []string `json:"activities"`
	MoodTrend  string   `json:"mood_trend"` // improving | declining | stable | mixed
	Insights   []string `json:"insights"`
	Highlights []string `json:"highlights"`
	Challenges []string `json:"challenges"`
	Sentiment  string   `json:"sentiment"` // positive | neutral | negative
}

package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriodAnalysis(t *testing.T) {
	raw := `{"title":"Quiet Momentum","summary":"A calm day.","emotions":["calm"],"themes":[],"people":["Sam"],"places":[],"activities":["running"],"mood_trend":"improving","insights":[],"highlights":["morning run"],"challenges":[],"sentiment":"positive"}`

	analysis, err := parsePeriodAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Quiet Momentum", analysis.Title)
	assert.Equal(t, "improving", analysis.MoodTrend)
	assert.Equal(t, "positive", analysis.Sentiment)
	assert.Equal(t, []string{"Sam"}, analysis.People)
	assert.Empty(t, analysis.Themes)
}

func TestParsePeriodAnalysisToleratesFences(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\",\"summary\":\"ok\"}\n```"

	analysis, err := parsePeriodAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Fenced", analysis.Title)
}

func TestParsePeriodAnalysisToleratesSurroundingProse(t *testing.T) {
	raw := `Here is the analysis you asked for: {"title":"Wrapped","summary":"ok"} hope it helps`

	analysis, err := parsePeriodAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Wrapped", analysis.Title)
}

func TestParsePeriodAnalysisNormalizesEnums(t *testing.T) {
	raw := `{"title":"T","summary":"S","mood_trend":"skyrocketing","sentiment":"ecstatic"}`

	analysis, err := parsePeriodAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "stable", analysis.MoodTrend)
	assert.Equal(t, "neutral", analysis.Sentiment)
}

func TestParsePeriodAnalysisRejectsEmpty(t *testing.T) {
	_, err := parsePeriodAnalysis(`{"title":"  ","summary":""}`)
	require.Error(t, err)

	_, err = parsePeriodAnalysis("not json at all")
	require.Error(t, err)
}

func TestBuildPeriodPromptSerializesEntries(t *testing.T) {
	req := &PeriodRequest{
		PeriodType: "day",
		StartDate:  "2026-03-01",
		EndDate:    "2026-03-01",
		Entries: []EntryContent{
			{Title: "Morning", Text: "Ran by the river", Mood: 4},
			{Text: strings.Repeat("x", analysisMaxEntryChars+50), Mood: 2},
		},
	}

	system, prompt := buildPeriodPrompt(req)
	assert.Contains(t, system, "valid JSON only")
	assert.Contains(t, prompt, "PERIOD: day 2026-03-01 to 2026-03-01")
	assert.Contains(t, prompt, "Ran by the river")
	// Long entry bodies are truncated before they reach the model.
	assert.NotContains(t, prompt, strings.Repeat("x", analysisMaxEntryChars+1))
}

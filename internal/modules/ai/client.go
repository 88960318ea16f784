package ai

import (
	"context"
	"errors"
	"strings"

	appcfg "github.com/daybook-app/core/internal/config"
	"go.uber.org/zap"
)

// ErrDisabled is returned when no AI provider is configured or enabled.
var ErrDisabled = errors.New("AI analysis is disabled")

// Client implements Analyzer against the configured provider registry.
type Client struct {
	cfg    appcfg.AIConfig
	logger *zap.Logger
}

func NewClient(cfg appcfg.AIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger.Named("AIClient")}
}

// AnalyzePeriod sends the entries to the first enabled provider and parses
// the structured result. Whitespace-only titles or summaries are treated as
// a failed call.
func (c *Client) AnalyzePeriod(ctx context.Context, req *PeriodRequest) (*PeriodAnalysis, error) {
	if !c.cfg.Enable {
		return nil, ErrDisabled
	}
	provider := selectProvider(c.cfg)
	if provider == nil {
		return nil, ErrDisabled
	}
	if len(req.Entries) == 0 {
		return nil, errors.New("no entries to analyze")
	}

	systemPrompt, prompt := buildPeriodPrompt(req)
	raw, err := callWithSystemPrompt(ctx, provider, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	analysis, err := parsePeriodAnalysis(raw)
	if err != nil {
		c.logger.Warn("unparseable AI response",
			zap.String("provider", provider.ID),
			zap.String("period", req.PeriodType),
			zap.Error(err))
		return nil, err
	}
	return analysis, nil
}

func parsePeriodAnalysis(raw string) (*PeriodAnalysis, error) {
	var analysis PeriodAnalysis
	if err := unmarshalAIJSON(raw, &analysis); err != nil {
		return nil, err
	}

	analysis.Title = strings.TrimSpace(analysis.Title)
	analysis.Summary = strings.TrimSpace(analysis.Summary)
	if analysis.Title == "" && analysis.Summary == "" {
		return nil, errors.New("empty analysis from AI")
	}

	analysis.Emotions = cleanList(analysis.Emotions)
	analysis.Themes = cleanList(analysis.Themes)
	analysis.People = cleanList(analysis.People)
	analysis.Places = cleanList(analysis.Places)
	analysis.Activities = cleanList(analysis.Activities)
	analysis.Insights = cleanList(analysis.Insights)
	analysis.Highlights = cleanList(analysis.Highlights)
	analysis.Challenges = cleanList(analysis.Challenges)

	switch strings.ToLower(strings.TrimSpace(analysis.MoodTrend)) {
	case "improving", "declining", "stable", "mixed":
		analysis.MoodTrend = strings.ToLower(strings.TrimSpace(analysis.MoodTrend))
	default:
		analysis.MoodTrend = "stable"
	}
	switch strings.ToLower(strings.TrimSpace(analysis.Sentiment)) {
	case "positive", "neutral", "negative":
		analysis.Sentiment = strings.ToLower(strings.TrimSpace(analysis.Sentiment))
	default:
		analysis.Sentiment = "neutral"
	}

	return &analysis, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

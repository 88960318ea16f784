package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/daybook-app/core/internal/models"
	"github.com/daybook-app/core/internal/modules/ai"
	"github.com/daybook-app/core/internal/modules/entry"
	"github.com/daybook-app/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	taskTypeRegenerate = "summary.regenerate"
	defaultAITimeout   = 30 * time.Second
)

// Service caches AI day summaries with stale-while-revalidate semantics.
// Only multi-entry days are cached; a single entry is its own best summary.
type Service struct {
	db       *gorm.DB
	entries  *entry.Service
	analyzer ai.Analyzer
	tasks    *taskqueue.Service
	logger   *zap.Logger

	aiTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
	spawn    func(fn func())
}

type Option func(*Service)

func WithAnalyzer(a ai.Analyzer) Option          { return func(s *Service) { s.analyzer = a } }
func WithTaskQueue(tq *taskqueue.Service) Option { return func(s *Service) { s.tasks = tq } }
func WithLogger(logger *zap.Logger) Option       { return func(s *Service) { s.logger = logger } }
func WithAITimeout(d time.Duration) Option       { return func(s *Service) { s.aiTimeout = d } }

// WithSpawn overrides how background regeneration runs. Tests use it to run
// the work inline or capture it.
func WithSpawn(spawn func(fn func())) Option { return func(s *Service) { s.spawn = spawn } }

func NewService(db *gorm.DB, entries *entry.Service, opts ...Option) *Service {
	s := &Service{
		db:        db,
		entries:   entries,
		logger:    zap.NewNop(),
		aiTimeout: defaultAITimeout,
		inflight:  make(map[string]struct{}),
		spawn:     func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("SummaryService")
	return s
}

// GetTitle returns the display title for a day. A fresh cached title is
// served as-is; a stale one is served immediately while regeneration runs in
// the background. Days with a single entry echo that entry's own title and
// are never cached.
func (s *Service) GetTitle(ctx context.Context, ownerID, date string) (string, error) {
	entries, err := s.entries.ListByDate(ctx, ownerID, date)
	if err != nil {
		return "", err
	}

	switch len(entries) {
	case 0:
		return "", nil
	case 1:
		return entries[0].Title, nil
	}

	row, err := s.find(ctx, ownerID, date)
	if err != nil {
		return "", err
	}

	if row != nil && !row.NeedsRegeneration {
		return row.Title, nil
	}

	s.scheduleRegeneration(ownerID, date)
	if row != nil {
		return row.Title, nil
	}
	return fallbackAnalysis(entries).Title, nil
}

// GetCached returns the cached summary row, or nil when the day has none.
// It never triggers generation.
func (s *Service) GetCached(ctx context.Context, ownerID, date string) (*Summary, error) {
	row, err := s.find(ctx, ownerID, date)
	if err != nil || row == nil {
		return nil, err
	}
	return fromModel(row), nil
}

// Analyze returns the full summary for a day, generating synchronously when
// the cache is missing or stale. Single-entry days get an uncached ad-hoc
// analysis.
func (s *Service) Analyze(ctx context.Context, ownerID, date string) (*Summary, error) {
	entries, err := s.entries.ListByDate(ctx, ownerID, date)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if len(entries) == 1 {
		analysis := s.analyzeEntries(ctx, "day", date, date, entries)
		avg := avgMood(entries)
		return &Summary{
			OwnerID:    ownerID,
			Date:       date,
			EntryCount: 1,
			Title:      entries[0].Title,
			Summary:    analysis.Summary,
			Emotions:   analysis.Emotions,
			Themes:     analysis.Themes,
			People:     analysis.People,
			Places:     analysis.Places,
			Activities: analysis.Activities,
			MoodTrend:  analysis.MoodTrend,
			Sentiment:  analysis.Sentiment,
			AvgMood:    &avg,
		}, nil
	}

	row, err := s.find(ctx, ownerID, date)
	if err != nil {
		return nil, err
	}
	if row != nil && !row.NeedsRegeneration {
		return fromModel(row), nil
	}

	row, err = s.regenerateAndCache(ctx, ownerID, date)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return fromModel(row), nil
}

// RangeAnalysis is an uncached analysis over a week, month or arbitrary
// range.
type RangeAnalysis struct {
	PeriodType string  `json:"period_type"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	EntryCount int     `json:"entry_count"`
	AvgMood    float64 `json:"avg_mood"`
	ai.PeriodAnalysis
}

// AnalyzeRange analyzes all entries in [start, end]. Results are never
// cached; week and month views are cheap to recompute and too volatile to
// keep fresh.
func (s *Service) AnalyzeRange(ctx context.Context, ownerID, periodType, start, end string) (*RangeAnalysis, error) {
	entries, err := s.entries.ListByDateRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	analysis := s.analyzeEntries(ctx, periodType, start, end, entries)
	return &RangeAnalysis{
		PeriodType:     periodType,
		StartDate:      start,
		EndDate:        end,
		EntryCount:     len(entries),
		AvgMood:        avgMood(entries),
		PeriodAnalysis: *analysis,
	}, nil
}

// Invalidate reconciles the cache row with the day's current entry count.
// Multi-entry days are marked stale (inserting a placeholder when no row
// exists yet); days that dropped to zero or one entry lose their row.
// Returns the entry count seen.
func (s *Service) Invalidate(ctx context.Context, ownerID, date string) (int64, error) {
	count, err := s.entries.CountForDate(ctx, ownerID, date)
	if err != nil {
		return 0, err
	}

	if count <= 1 {
		err := s.db.WithContext(ctx).Unscoped().
			Where("owner_id = ? AND date = ?", ownerID, date).
			Delete(&models.DaySummaryModel{}).Error
		return count, err
	}

	res := s.db.WithContext(ctx).Model(&models.DaySummaryModel{}).
		Where("owner_id = ? AND date = ?", ownerID, date).
		Updates(map[string]interface{}{
			"needs_regeneration": true,
			"entry_count":        count,
		})
	if res.Error != nil {
		return count, res.Error
	}
	if res.RowsAffected > 0 {
		return count, nil
	}

	// No row yet: park a placeholder so the day has a title while the real
	// summary is pending.
	entries, err := s.entries.ListByDate(ctx, ownerID, date)
	if err != nil {
		return count, err
	}
	fallback := fallbackAnalysis(entries)
	avg := avgMood(entries)

	row := models.DaySummaryModel{
		OwnerID:           ownerID,
		Date:              date,
		EntryCount:        int(count),
		Title:             fallback.Title,
		Summary:           fallback.Summary,
		Themes:            fallback.Themes,
		MoodTrend:         fallback.MoodTrend,
		Sentiment:         fallback.Sentiment,
		AvgMood:           &avg,
		NeedsRegeneration: true,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"entry_count", "needs_regeneration", "updated_at",
		}),
	}).Create(&row).Error
	return count, err
}

// Sweep regenerates up to limit stale summaries, oldest first. It stops
// early when ctx is cancelled and returns how many it processed.
func (s *Service) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []models.DaySummaryModel
	err := s.db.WithContext(ctx).
		Where("needs_regeneration = ?", true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if _, err := s.regenerateAndCache(ctx, rows[i].OwnerID, rows[i].Date); err != nil {
			s.logger.Warn("sweep regeneration failed",
				zap.String("owner", rows[i].OwnerID),
				zap.String("date", rows[i].Date),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

// regenerateAndCache rebuilds the summary for one day and upserts it. Days
// that no longer have two or more entries lose their cache row instead.
func (s *Service) regenerateAndCache(ctx context.Context, ownerID, date string) (*models.DaySummaryModel, error) {
	entries, err := s.entries.ListByDate(ctx, ownerID, date)
	if err != nil {
		return nil, err
	}

	if len(entries) <= 1 {
		err := s.db.WithContext(ctx).Unscoped().
			Where("owner_id = ? AND date = ?", ownerID, date).
			Delete(&models.DaySummaryModel{}).Error
		return nil, err
	}

	analysis := s.analyzeEntries(ctx, "day", date, date, entries)
	avg := avgMood(entries)
	now := time.Now()

	row := models.DaySummaryModel{
		OwnerID:           ownerID,
		Date:              date,
		EntryCount:        len(entries),
		Title:             analysis.Title,
		Summary:           analysis.Summary,
		Emotions:          analysis.Emotions,
		Themes:            analysis.Themes,
		People:            analysis.People,
		Places:            analysis.Places,
		Activities:        analysis.Activities,
		MoodTrend:         analysis.MoodTrend,
		Sentiment:         analysis.Sentiment,
		AvgMood:           &avg,
		NeedsRegeneration: false,
		GeneratedAt:       &now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"entry_count", "title", "summary", "emotions", "themes", "people",
			"places", "activities", "mood_trend", "sentiment", "avg_mood",
			"needs_regeneration", "generated_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("cache summary: %w", err)
	}
	return &row, nil
}

// analyzeEntries asks the model for an analysis and falls back to the
// deterministic summary on any failure, so callers always get a result.
func (s *Service) analyzeEntries(ctx context.Context, periodType, start, end string, entries []*entry.Entry) *ai.PeriodAnalysis {
	if s.analyzer == nil {
		return fallbackAnalysis(entries)
	}

	aictx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	analysis, err := s.analyzer.AnalyzePeriod(aictx, &ai.PeriodRequest{
		PeriodType: periodType,
		StartDate:  start,
		EndDate:    end,
		Entries:    toEntryContent(entries),
	})
	if err == nil {
		return analysis
	}

	if errors.Is(err, ai.ErrDisabled) {
		s.logger.Debug("AI disabled, using fallback summary")
	} else {
		s.logger.Warn("AI analysis failed, using fallback summary",
			zap.String("period", periodType),
			zap.String("start", start),
			zap.Error(err))
	}
	return fallbackAnalysis(entries)
}

// scheduleRegeneration kicks off a background rebuild for one day, at most
// once at a time per (owner, date). A task queue entry is recorded when
// Redis is available so the rebuild shows up in the maintenance task list.
func (s *Service) scheduleRegeneration(ownerID, date string) {
	key := ownerID + ":" + date

	s.mu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[key] = struct{}{}
	s.mu.Unlock()

	var taskID string
	if s.tasks != nil {
		task, err := s.tasks.Enqueue(context.Background(), taskTypeRegenerate,
			map[string]string{"owner_id": ownerID, "date": date}, key, ownerID)
		if err != nil {
			s.logger.Warn("failed to record regeneration task", zap.Error(err))
		} else if task != nil {
			taskID = task.ID
		}
	}

	s.spawn(func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.aiTimeout+10*time.Second)
		defer cancel()

		if taskID != "" {
			_ = s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")
		}

		row, err := s.regenerateAndCache(ctx, ownerID, date)
		if err != nil {
			s.logger.Warn("background regeneration failed",
				zap.String("owner", ownerID), zap.String("date", date), zap.Error(err))
			if taskID != "" {
				_ = s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
			}
			return
		}

		if taskID != "" {
			result := map[string]interface{}{"cached": row != nil}
			if row != nil {
				result["title"] = row.Title
			}
			_ = s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, result, "")
		}
	})
}

func (s *Service) find(ctx context.Context, ownerID, date string) (*models.DaySummaryModel, error) {
	var row models.DaySummaryModel
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND date = ?", ownerID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func toEntryContent(entries []*entry.Entry) []ai.EntryContent {
	out := make([]ai.EntryContent, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if title == entry.CorruptedTitle || title == entry.InvalidTitle {
			continue
		}
		location := ""
		if e.Location != nil {
			location = strings.TrimSpace(e.Location.Label)
		}
		out = append(out, ai.EntryContent{
			Title:     title,
			Text:      e.Text,
			Mood:      e.Mood,
			Tags:      e.Tags,
			Location:  location,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

package entry

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/daybook-app/core/internal/models"
	"github.com/daybook-app/core/internal/modules/blobstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Uploader stores attachment payloads and returns their public refs.
type Uploader interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Notifier is told about every entry mutation together with the affected
// date(s), so day summaries can be invalidated.
type Notifier interface {
	EntriesChanged(ctx context.Context, ownerID string, dates ...string)
}

// Service is the entry store: encrypted CRUD, grouping and search over one
// owner's journal.
type Service struct {
	db         *gorm.DB
	codec      *Codec
	blobs      Uploader
	notifier   Notifier
	stagingDir string
	logger     *zap.Logger
}

type Option func(*Service)

func WithUploader(u Uploader) Option       { return func(s *Service) { s.blobs = u } }
func WithNotifier(n Notifier) Option       { return func(s *Service) { s.notifier = n } }
func WithStagingDir(dir string) Option     { return func(s *Service) { s.stagingDir = dir } }
func WithLogger(logger *zap.Logger) Option { return func(s *Service) { s.logger = logger } }

func NewService(db *gorm.DB, codec *Codec, opts ...Option) *Service {
	s := &Service{db: db, codec: codec, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("EntryService")
	return s
}

// SetNotifier wires the change notifier after construction; the summary
// module depends on this service, so it registers itself once built.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Create persists a new encrypted entry. Local attachments are uploaded
// before the payload is sealed; a failed upload drops that attachment but
// never the entry.
func (s *Service) Create(ctx context.Context, ownerID string, dto *CreateEntryDTO) (*Entry, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrNoOwner
	}

	date := strings.TrimSpace(dto.Date)
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", dto.Date, err)
	}

	mood := 3
	if dto.Mood != nil {
		mood = clampMood(*dto.Mood)
	}

	// The id is assigned up front so attachment object keys can embed it
	// before the row exists.
	row := models.EntryModel{
		OwnerID:  ownerID,
		Date:     date,
		Mood:     mood,
		Location: dto.Location,
	}
	row.ID = uuid.New().String()

	e := &Entry{
		ID:            row.ID,
		OwnerID:       ownerID,
		Date:          date,
		Mood:          mood,
		Location:      dto.Location,
		Title:         dto.Title,
		Text:          dto.Text,
		Tags:          dto.Tags,
		AudioRef:      dto.AudioRef,
		Transcription: dto.Transcription,
	}
	e.Attachments = s.uploadPending(ctx, ownerID, row.ID, dto.Attachments)
	e.HasAttachments = len(e.Attachments) > 0

	payload, format, err := s.codec.Encode(ownerID, e)
	if err != nil {
		return nil, err
	}
	row.Payload = payload
	row.PayloadFormat = format
	row.HasAttachments = e.HasAttachments

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	e.CreatedAt = row.CreatedAt
	e.UpdatedAt = row.UpdatedAt
	s.notifyChanged(ctx, ownerID, date)
	return e, nil
}

// Update applies a partial update. Returns (nil, nil) when the entry does
// not exist for this owner. Moving an entry between dates dirties both days.
func (s *Service) Update(ctx context.Context, ownerID, id string, dto *UpdateEntryDTO) (*Entry, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrNoOwner
	}

	var row models.EntryModel
	err := s.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	current, err := s.codec.Decode(ownerID, &row)
	if err != nil {
		return nil, err
	}
	oldDate := row.Date
	oldAttachments := current.Attachments

	if dto.Title != nil {
		current.Title = *dto.Title
	}
	if dto.Text != nil {
		current.Text = *dto.Text
	}
	if dto.Date != nil {
		date := strings.TrimSpace(*dto.Date)
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", *dto.Date, err)
		}
		current.Date = date
	}
	if dto.Mood != nil {
		current.Mood = clampMood(*dto.Mood)
	}
	if dto.Tags != nil {
		current.Tags = *dto.Tags
	}
	if dto.AudioRef != nil {
		current.AudioRef = *dto.AudioRef
	}
	if dto.Transcription != nil {
		current.Transcription = *dto.Transcription
	}
	if dto.Location != nil {
		current.Location = dto.Location
	}
	if dto.Attachments != nil {
		next := s.uploadPending(ctx, ownerID, row.ID, *dto.Attachments)
		s.deleteRemoved(ctx, oldAttachments, next)
		current.Attachments = next
	}
	current.HasAttachments = len(current.Attachments) > 0

	payload, format, err := s.codec.Encode(ownerID, current)
	if err != nil {
		return nil, err
	}

	row.Date = current.Date
	row.Mood = current.Mood
	row.HasAttachments = current.HasAttachments
	row.Location = current.Location
	row.Payload = payload
	row.PayloadFormat = format

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	current.UpdatedAt = row.UpdatedAt
	if oldDate != current.Date {
		s.notifyChanged(ctx, ownerID, oldDate, current.Date)
	} else {
		s.notifyChanged(ctx, ownerID, current.Date)
	}
	return current, nil
}

// Delete soft-deletes an entry, leaving a tombstone row. Returns false when
// nothing matched.
func (s *Service) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return false, ErrNoOwner
	}

	var row models.EntryModel
	err := s.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.db.WithContext(ctx).Delete(&row).Error; err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}

	s.notifyChanged(ctx, ownerID, row.Date)
	return true, nil
}

// GetByID returns one decoded entry, or nil when absent.
func (s *Service) GetByID(ctx context.Context, ownerID, id string) (*Entry, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrNoOwner
	}

	var row models.EntryModel
	err := s.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(ownerID, &row)
}

// List returns all of an owner's entries, newest date first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*Entry, error) {
	return s.listWhere(ctx, ownerID, func(q *gorm.DB) *gorm.DB { return q })
}

// ListByDate returns the entries of a single owner-local day.
func (s *Service) ListByDate(ctx context.Context, ownerID, date string) ([]*Entry, error) {
	return s.listWhere(ctx, ownerID, func(q *gorm.DB) *gorm.DB {
		return q.Where("date = ?", date)
	})
}

// ListByDateRange returns entries with start <= date <= end.
func (s *Service) ListByDateRange(ctx context.Context, ownerID, start, end string) ([]*Entry, error) {
	return s.listWhere(ctx, ownerID, func(q *gorm.DB) *gorm.DB {
		return q.Where("date >= ? AND date <= ?", start, end)
	})
}

// CountForDate counts the live entries of one day.
func (s *Service) CountForDate(ctx context.Context, ownerID, date string) (int64, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, ErrNoOwner
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.EntryModel{}).
		Where("owner_id = ? AND date = ?", ownerID, date).
		Count(&count).Error
	return count, err
}

// GroupByDay buckets all entries per calendar day, newest day first.
func (s *Service) GroupByDay(ctx context.Context, ownerID string) ([]DayGroup, error) {
	entries, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	groups := groupBy(entries, func(e *Entry) string { return e.Date })
	out := make([]DayGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, DayGroup{Date: g.Key, Entries: g.Entries, AvgMood: g.AvgMood})
	}
	return out, nil
}

// GroupByWeek buckets entries per week. Weeks start on Monday and are keyed
// by that Monday's date.
func (s *Service) GroupByWeek(ctx context.Context, ownerID string) ([]PeriodGroup, error) {
	entries, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return groupBy(entries, func(e *Entry) string { return WeekStart(e.Date) }), nil
}

// GroupByMonth buckets entries per month, keyed YYYY-MM.
func (s *Service) GroupByMonth(ctx context.Context, ownerID string) ([]PeriodGroup, error) {
	entries, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return groupBy(entries, func(e *Entry) string {
		if len(e.Date) >= 7 {
			return e.Date[:7]
		}
		return e.Date
	}), nil
}

// Search decodes all entries and matches a case-insensitive substring over
// title, text and tags. Encrypted columns cannot be queried server-side, so
// filtering happens after decode.
func (s *Service) Search(ctx context.Context, ownerID, query string) ([]*Entry, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []*Entry{}, nil
	}

	entries, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	matched := make([]*Entry, 0)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), query) ||
			strings.Contains(strings.ToLower(e.Text), query) {
			matched = append(matched, e)
			continue
		}
		for _, tag := range e.Tags {
			if strings.Contains(strings.ToLower(tag), query) {
				matched = append(matched, e)
				break
			}
		}
	}
	return matched, nil
}

// WeekStart returns the Monday of the week containing date. Malformed dates
// map to themselves.
func WeekStart(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(dateLayout)
}

func (s *Service) listWhere(ctx context.Context, ownerID string, scope func(*gorm.DB) *gorm.DB) ([]*Entry, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrNoOwner
	}

	var rows []models.EntryModel
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("date DESC").Order("created_at DESC")
	if err := scope(q).Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(rows))
	for i := range rows {
		e, err := s.codec.Decode(ownerID, &rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// uploadPending pushes staged local attachments to the blob store. Refs that
// already carry an http(s) scheme are kept as-is. A failed read or upload
// drops the attachment with a logged warning.
func (s *Service) uploadPending(ctx context.Context, ownerID, entryID string, attachments []Attachment) []Attachment {
	if len(attachments) == 0 {
		return nil
	}

	out := make([]Attachment, 0, len(attachments))
	for _, att := range attachments {
		if isRemoteRef(att.Ref) {
			out = append(out, att)
			continue
		}
		if s.blobs == nil {
			s.logger.Warn("no blob store configured, dropping local attachment",
				zap.String("entry", entryID), zap.String("name", att.Name))
			continue
		}

		path := att.Ref
		if !filepath.IsAbs(path) && s.stagingDir != "" {
			path = filepath.Join(s.stagingDir, path)
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("unreadable staged attachment, dropping",
				zap.String("entry", entryID), zap.String("ref", att.Ref), zap.Error(err))
			continue
		}

		name := att.Name
		if name == "" {
			name = filepath.Base(path)
		}
		contentType := att.Type
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(name))
		}

		ref, err := s.blobs.Upload(ctx, blobstore.ObjectKey(ownerID, entryID, name), payload, contentType)
		if err != nil {
			s.logger.Warn("attachment upload failed, dropping",
				zap.String("entry", entryID), zap.String("name", name), zap.Error(err))
			continue
		}
		out = append(out, Attachment{Name: name, Ref: ref, Type: contentType})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// deleteRemoved removes remote blobs that were dropped by an update. Blob
// store failures are logged and ignored; the row is the source of truth.
func (s *Service) deleteRemoved(ctx context.Context, old, next []Attachment) {
	if s.blobs == nil {
		return
	}
	keep := make(map[string]struct{}, len(next))
	for _, att := range next {
		keep[att.Ref] = struct{}{}
	}
	for _, att := range old {
		if !isRemoteRef(att.Ref) {
			continue
		}
		if _, ok := keep[att.Ref]; ok {
			continue
		}
		if err := s.blobs.Delete(ctx, att.Ref); err != nil {
			s.logger.Warn("failed to delete removed attachment blob",
				zap.String("ref", att.Ref), zap.Error(err))
		}
	}
}

func (s *Service) notifyChanged(ctx context.Context, ownerID string, dates ...string) {
	if s.notifier == nil {
		return
	}
	s.notifier.EntriesChanged(ctx, ownerID, dates...)
}

func isRemoteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func clampMood(mood int) int {
	if mood < 1 {
		return 1
	}
	if mood > 5 {
		return 5
	}
	return mood
}

func groupBy(entries []*Entry, keyFn func(*Entry) string) []PeriodGroup {
	index := make(map[string]*PeriodGroup)
	order := make([]string, 0)
	for _, e := range entries {
		key := keyFn(e)
		g, ok := index[key]
		if !ok {
			g = &PeriodGroup{Key: key}
			index[key] = g
			order = append(order, key)
		}
		g.Entries = append(g.Entries, e)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(order)))
	out := make([]PeriodGroup, 0, len(order))
	for _, key := range order {
		g := index[key]
		total := 0
		for _, e := range g.Entries {
			total += e.Mood
		}
		if n := len(g.Entries); n > 0 {
			g.AvgMood = float64(total) / float64(n)
		}
		out = append(out, *g)
	}
	return out
}

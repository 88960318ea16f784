package entry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/daybook-app/core/internal/database"
	"github.com/daybook-app/core/internal/models"
	"github.com/daybook-app/core/internal/pkg/keyring"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeUploader struct {
	uploads map[string][]byte
	deleted []string
	failAll bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string][]byte)}
}

func (f *fakeUploader) Upload(_ context.Context, key string, payload []byte, _ string) (string, error) {
	if f.failAll {
		return "", errors.New("blob store down")
	}
	f.uploads[key] = payload
	return "https://blobs.test/" + key, nil
}

func (f *fakeUploader) Delete(_ context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

type fakeNotifier struct {
	changes []change
}

type change struct {
	ownerID string
	dates   []string
}

func (f *fakeNotifier) EntriesChanged(_ context.Context, ownerID string, dates ...string) {
	f.changes = append(f.changes, change{ownerID: ownerID, dates: dates})
}

func (f *fakeNotifier) dates() []string {
	var out []string
	for _, c := range f.changes {
		out = append(out, c.dates...)
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "entries.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	uploader *fakeUploader
	notifier *fakeNotifier
	staging  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	codec := NewCodec(keyring.New(t.TempDir(), zap.NewNop()), zap.NewNop())
	uploader := newFakeUploader()
	notifier := &fakeNotifier{}
	staging := t.TempDir()

	svc := NewService(db, codec,
		WithUploader(uploader),
		WithNotifier(notifier),
		WithStagingDir(staging),
	)
	return &fixture{svc: svc, db: db, uploader: uploader, notifier: notifier, staging: staging}
}

func (f *fixture) mustCreate(t *testing.T, ownerID string, dto *CreateEntryDTO) *Entry {
	t.Helper()
	e, err := f.svc.Create(context.Background(), ownerID, dto)
	require.NoError(t, err)
	return e
}

func TestCreateDefaultsAndEncryptsAtRest(t *testing.T) {
	f := newFixture(t)

	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{
		Title: "First entry",
		Text:  "the raw secret text",
		Tags:  []string{"start"},
	})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 3, e.Mood)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, e.Date)

	var row models.EntryModel
	require.NoError(t, f.db.First(&row, "id = ?", e.ID).Error)
	assert.Equal(t, models.EntryFormatAESGCM, row.PayloadFormat)
	assert.NotContains(t, row.Payload, "secret text")
	assert.NotContains(t, row.Payload, "First entry")

	assert.Equal(t, []string{e.Date}, f.notifier.dates())
}

func TestCreateRequiresOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "  ", &CreateEntryDTO{Title: "x"})
	assert.ErrorIs(t, err, ErrNoOwner)

	_, err = f.svc.Create(context.Background(), "owner-1", &CreateEntryDTO{Date: "03/01/2026"})
	assert.Error(t, err)
}

func TestCreateUploadsStagedAttachments(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.staging, "photo.jpg"), []byte("jpegbytes"), 0o644))

	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{
		Title: "With photo",
		Attachments: []Attachment{
			{Name: "photo.jpg", Ref: "photo.jpg"},
			{Name: "remote.png", Ref: "https://cdn.example.com/remote.png", Type: "image/png"},
		},
	})

	require.Len(t, e.Attachments, 2)
	assert.True(t, e.HasAttachments)
	assert.Contains(t, e.Attachments[0].Ref, "https://blobs.test/owners/owner-1/"+e.ID+"/photo.jpg")
	assert.Equal(t, "image/jpeg", e.Attachments[0].Type)
	// The already-remote ref passes through untouched.
	assert.Equal(t, "https://cdn.example.com/remote.png", e.Attachments[1].Ref)
	assert.Len(t, f.uploader.uploads, 1)
}

func TestCreateDropsFailedUploadsButKeepsEntry(t *testing.T) {
	f := newFixture(t)
	f.uploader.failAll = true
	require.NoError(t, os.WriteFile(filepath.Join(f.staging, "doomed.jpg"), []byte("x"), 0o644))

	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{
		Title:       "Survives",
		Attachments: []Attachment{{Name: "doomed.jpg", Ref: "doomed.jpg"}},
	})

	assert.Empty(t, e.Attachments)
	assert.False(t, e.HasAttachments)

	got, err := f.svc.GetByID(context.Background(), "owner-1", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Survives", got.Title)
}

func TestUpdateMergesPartialFields(t *testing.T) {
	f := newFixture(t)
	mood := 5
	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{
		Title: "Original", Text: "keep me", Date: "2026-03-01", Mood: &mood, Tags: []string{"one"},
	})

	newTitle := "Renamed"
	updated, err := f.svc.Update(context.Background(), "owner-1", e.ID, &UpdateEntryDTO{Title: &newTitle})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Text)
	assert.Equal(t, 5, updated.Mood)
	assert.Equal(t, []string{"one"}, updated.Tags)
}

func TestUpdateDateMoveNotifiesBothDays(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "Movable", Date: "2026-03-01"})
	f.notifier.changes = nil

	newDate := "2026-03-05"
	_, err := f.svc.Update(context.Background(), "owner-1", e.ID, &UpdateEntryDTO{Date: &newDate})
	require.NoError(t, err)

	require.Len(t, f.notifier.changes, 1)
	assert.ElementsMatch(t, []string{"2026-03-01", "2026-03-05"}, f.notifier.changes[0].dates)
}

func TestUpdateRemovedAttachmentDeletesBlob(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.staging, "a.jpg"), []byte("a"), 0o644))
	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{
		Title:       "Has blob",
		Attachments: []Attachment{{Name: "a.jpg", Ref: "a.jpg"}},
	})
	blobRef := e.Attachments[0].Ref

	empty := []Attachment{}
	updated, err := f.svc.Update(context.Background(), "owner-1", e.ID, &UpdateEntryDTO{Attachments: &empty})
	require.NoError(t, err)

	assert.Empty(t, updated.Attachments)
	assert.False(t, updated.HasAttachments)
	assert.Equal(t, []string{blobRef}, f.uploader.deleted)
}

func TestUpdateScopedToOwner(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "Mine"})

	title := "Stolen"
	got, err := f.svc.Update(context.Background(), "owner-2", e.ID, &UpdateEntryDTO{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteSoftDeletes(t *testing.T) {
	f := newFixture(t)
	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "Ephemeral", Date: "2026-03-01"})

	deleted, err := f.svc.Delete(context.Background(), "owner-1", e.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := f.svc.GetByID(context.Background(), "owner-1", e.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The tombstone row is still on disk.
	var count int64
	require.NoError(t, f.db.Unscoped().Model(&models.EntryModel{}).Where("id = ?", e.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	deleted, err = f.svc.Delete(context.Background(), "owner-1", e.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListOrderingAndOwnerIsolation(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "older", Date: "2026-03-01"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "newer", Date: "2026-03-03"})
	f.mustCreate(t, "owner-2", &CreateEntryDTO{Title: "other owner", Date: "2026-03-02"})

	entries, err := f.svc.List(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "newer", entries[0].Title)
	assert.Equal(t, "older", entries[1].Title)
}

func TestListByDateRange(t *testing.T) {
	f := newFixture(t)
	for _, date := range []string{"2026-02-27", "2026-03-01", "2026-03-04", "2026-03-09"} {
		f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: date, Date: date})
	}

	entries, err := f.svc.ListByDateRange(context.Background(), "owner-1", "2026-03-01", "2026-03-04")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-03-04", entries[0].Date)
	assert.Equal(t, "2026-03-01", entries[1].Date)
}

func TestGroupByDayComputesAvgMood(t *testing.T) {
	f := newFixture(t)
	m2, m4, m5 := 2, 4, 5
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "a", Date: "2026-03-01", Mood: &m2})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "b", Date: "2026-03-01", Mood: &m5})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "c", Date: "2026-03-02", Mood: &m4})

	groups, err := f.svc.GroupByDay(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "2026-03-02", groups[0].Date)
	assert.InDelta(t, 4.0, groups[0].AvgMood, 0.001)
	assert.Equal(t, "2026-03-01", groups[1].Date)
	assert.InDelta(t, 3.5, groups[1].AvgMood, 0.001)
	assert.Len(t, groups[1].Entries, 2)
}

func TestGroupByWeekUsesMondayKeys(t *testing.T) {
	f := newFixture(t)
	// 2026-03-02 is a Monday; 03-01 (Sunday) belongs to the prior week.
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "sun", Date: "2026-03-01"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "mon", Date: "2026-03-02"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "wed", Date: "2026-03-04"})

	groups, err := f.svc.GroupByWeek(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2026-03-02", groups[0].Key)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, "2026-02-23", groups[1].Key)
}

func TestGroupByMonth(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "feb", Date: "2026-02-28"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "mar1", Date: "2026-03-01"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "mar2", Date: "2026-03-20"})

	groups, err := f.svc.GroupByMonth(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2026-03", groups[0].Key)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, "2026-02", groups[1].Key)
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, "2026-03-02", WeekStart("2026-03-02")) // Monday maps to itself
	assert.Equal(t, "2026-03-02", WeekStart("2026-03-08")) // Sunday
	assert.Equal(t, "2026-02-23", WeekStart("2026-03-01"))
	assert.Equal(t, "bogus", WeekStart("bogus"))
}

func TestSearchMatchesDecodedContent(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "Coffee with Ana", Text: "long chat", Date: "2026-03-01"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "Gym", Text: "leg day", Tags: []string{"health", "CoFFee"}, Date: "2026-03-02"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "Nothing here", Date: "2026-03-03"})
	f.mustCreate(t, "owner-2", &CreateEntryDTO{Title: "coffee elsewhere", Date: "2026-03-01"})

	matches, err := f.svc.Search(context.Background(), "owner-1", "coffee")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	matches, err = f.svc.Search(context.Background(), "owner-1", "leg DAY")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Gym", matches[0].Title)

	matches, err = f.svc.Search(context.Background(), "owner-1", "   ")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCountForDate(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "a", Date: "2026-03-01"})
	e := f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "b", Date: "2026-03-01"})
	f.mustCreate(t, "owner-1", &CreateEntryDTO{Title: "c", Date: "2026-03-02"})

	count, err := f.svc.CountForDate(context.Background(), "owner-1", "2026-03-01")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = f.svc.Delete(context.Background(), "owner-1", e.ID)
	require.NoError(t, err)

	count, err = f.svc.CountForDate(context.Background(), "owner-1", "2026-03-01")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

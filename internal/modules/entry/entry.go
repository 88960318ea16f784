package entry

import (
	"errors"
	"time"

	"github.com/daybook-app/core/internal/models"
)

// ErrNoOwner is returned by store operations when no owner id is present,
// which means the request was not authenticated.
var ErrNoOwner = errors.New("no owner id: authentication missing")

// Placeholder titles for rows whose payload cannot be recovered. The rest of
// the entry keeps its clear columns so lists stay intact.
const (
	CorruptedTitle = "Corrupted Entry"
	InvalidTitle   = "Invalid Entry"
)

// Attachment references an uploaded blob (or, before save, a staged local
// file path that still needs uploading).
type Attachment struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
	Type string `json:"type,omitempty"`
}

// Entry is a fully decoded journal entry.
type Entry struct {
	ID             string           `json:"id"`
	OwnerID        string           `json:"owner_id"`
	Date           string           `json:"date"` // YYYY-MM-DD, owner-local
	Mood           int              `json:"mood"` // 1-5
	HasAttachments bool             `json:"has_attachments"`
	Location       *models.Location `json:"location,omitempty"`
	Title          string           `json:"title"`
	Text           string           `json:"text"`
	Attachments    []Attachment     `json:"attachments,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	AudioRef       string           `json:"audio_ref,omitempty"`
	Transcription  string           `json:"transcription,omitempty"`
	CreatedAt      time.Time        `json:"created"`
	UpdatedAt      time.Time        `json:"modified"`
}

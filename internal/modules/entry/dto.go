package entry

import "github.com/daybook-app/core/internal/models"

// CreateEntryDTO is the payload for creating an entry. Date defaults to
// today (owner-local) and mood to 3 when omitted.
type CreateEntryDTO struct {
	Title         string           `json:"title"`
	Text          string           `json:"text"`
	Date          string           `json:"date"`
	Mood          *int             `json:"mood"`
	Tags          []string         `json:"tags"`
	Attachments   []Attachment     `json:"attachments"`
	AudioRef      string           `json:"audio_ref"`
	Transcription string           `json:"transcription"`
	Location      *models.Location `json:"location"`
}

// UpdateEntryDTO carries a partial update; nil fields keep their current
// value.
type UpdateEntryDTO struct {
	Title         *string          `json:"title"`
	Text          *string          `json:"text"`
	Date          *string          `json:"date"`
	Mood          *int             `json:"mood"`
	Tags          *[]string        `json:"tags"`
	Attachments   *[]Attachment    `json:"attachments"`
	AudioRef      *string          `json:"audio_ref"`
	Transcription *string          `json:"transcription"`
	Location      *models.Location `json:"location"`
}

// DayGroup is one calendar day of entries with derived mood statistics.
type DayGroup struct {
	Date    string   `json:"date"`
	Entries []*Entry `json:"entries"`
	AvgMood float64  `json:"avg_mood"`
}

// PeriodGroup is a week (keyed by its Monday) or month (keyed YYYY-MM).
type PeriodGroup struct {
	Key     string   `json:"key"`
	Entries []*Entry `json:"entries"`
	AvgMood float64  `json:"avg_mood"`
}

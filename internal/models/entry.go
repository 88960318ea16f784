package models

// Payload format discriminants for journal entries.
const (
	EntryFormatAESGCM = "aes-gcm"
	EntryFormatPlain  = "plain"
)

// EntryModel is a journal entry row. Sensitive content (title, text,
// attachments, tags, audio, transcription) lives inside Payload, encrypted
// with the owner's key; only fields needed for querying stay in clear columns.
type EntryModel struct {
	Base
	OwnerID        string    `json:"owner_id"        gorm:"type:char(36);index:idx_entries_owner_date,priority:1;not null"`
	Date           string    `json:"date"            gorm:"type:char(10);index:idx_entries_owner_date,priority:2;not null"` // YYYY-MM-DD, owner-local
	Mood           int       `json:"mood"            gorm:"default:3"`                                                      // 1-5
	HasAttachments bool      `json:"has_attachments" gorm:"default:false"`
	Location       *Location `json:"location,omitempty" gorm:"serializer:json"`
	Payload        string    `json:"-"               gorm:"type:longtext"`
	PayloadFormat  string    `json:"-"               gorm:"type:varchar(16);default:'aes-gcm'"`
}

func (EntryModel) TableName() string { return "entries" }

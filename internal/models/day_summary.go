package models

import "time"

// DaySummaryModel caches the AI analysis of one owner-local calendar day.
// At most one row exists per (owner, date); week/month ranges are never cached.
type DaySummaryModel struct {
	Base
	OwnerID           string      `json:"owner_id"   gorm:"type:char(36);uniqueIndex:idx_day_summaries_owner_date,priority:1;not null"`
	Date              string      `json:"date"       gorm:"type:char(10);uniqueIndex:idx_day_summaries_owner_date,priority:2;not null"`
	EntryCount        int         `json:"entry_count"`
	Title             string      `json:"title"      gorm:"not null"`
	Summary           string      `json:"summary"    gorm:"type:text"`
	Emotions          StringArray `json:"emotions"   gorm:"type:longtext"`
	Themes            StringArray `json:"themes"     gorm:"type:longtext"`
	People            StringArray `json:"people"     gorm:"type:longtext"`
	Places            StringArray `json:"places"     gorm:"type:longtext"`
	Activities        StringArray `json:"activities" gorm:"type:longtext"`
	MoodTrend         string      `json:"mood_trend"`
	Sentiment         string      `json:"sentiment"`
	AvgMood           *float64    `json:"avg_mood,omitempty"`
	NeedsRegeneration bool        `json:"needs_regeneration" gorm:"index;default:false"`
	GeneratedAt       *time.Time  `json:"generated_at,omitempty"`
}

func (DaySummaryModel) TableName() string { return "day_summaries" }

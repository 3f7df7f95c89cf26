package model

import "time"

// DownloadRecord is one row of download history: the terminal outcome of a
// single track in a single run.
type DownloadRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string    `gorm:"size:36;index" json:"runId"`
	TrackID    string    `gorm:"size:64;index" json:"trackId"`
	Title      string    `gorm:"size:255" json:"title"`
	Format     string    `gorm:"size:8" json:"format"`
	OutputPath string    `gorm:"size:512" json:"outputPath"`
	Succeeded  bool      `json:"succeeded"`
	FailKind   string    `gorm:"size:16" json:"failKind,omitempty"`
	FailReason string    `gorm:"size:512" json:"failReason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName sets the gorm table name explicitly.
func (DownloadRecord) TableName() string {
	return "download_records"
}

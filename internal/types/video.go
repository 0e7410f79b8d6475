package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source kinds. The tag drives the completion strategy: a YouTube player
// reports a trustworthy playback position, a Drive embed cannot report one
// at all, so accumulated watch time stands in for it.
const (
	SourceYouTube = "youtube"
	SourceDrive   = "drive"
)

type Video struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	VideoURL    string    `gorm:"not null;column:video_url" json:"video_url"`
	Source      string    `gorm:"not null;index;column:source" json:"source"`
	Department  string    `gorm:"not null;index;column:department" json:"department"`
	Semester    int       `gorm:"not null;default:1;column:semester" json:"semester"`
	Subject     string    `gorm:"not null;column:subject" json:"subject"`
	TeacherID   uuid.UUID `gorm:"type:uuid;not null;index;column:teacher_id" json:"teacher_id"`
	// 0 means unknown: completion detection is disabled and percentages
	// report as 0 until the owning teacher supplies a real duration.
	DurationSeconds int       `gorm:"not null;default:0;column:duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (Video) TableName() string { return "video" }

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoProgress is the single cumulative engagement record for one
// (student, video) pair. WatchTimeSeconds and MaxPosition never decrease and
// IsCompleted never transitions back to false; the repo's upsert enforces all
// three inside one statement.
type VideoProgress struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID `gorm:"type:uuid;not null;index:idx_student_video,unique" json:"student_id"`
	VideoID          uuid.UUID `gorm:"type:uuid;not null;index:idx_student_video,unique" json:"video_id"`
	WatchTimeSeconds int       `gorm:"not null;default:0;column:watch_time_seconds" json:"watch_time"`
	// Resume point, overwritten by every heartbeat.
	LastPosition int `gorm:"not null;default:0;column:last_position" json:"last_position"`
	// High-water mark of the reported playback offset.
	MaxPosition int       `gorm:"not null;default:0;column:max_position" json:"max_position"`
	IsCompleted bool      `gorm:"not null;default:false;column:is_completed" json:"is_completed"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (VideoProgress) TableName() string { return "video_progress" }

func (p *VideoProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VideoClick is an append-only "student opened this video" event. Repeated
// clicks per pair are expected and meaningful (re-engagement signal), so
// there is no uniqueness constraint, only a composite index for teacher-side
// aggregation.
type VideoClick struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID   uuid.UUID `gorm:"type:uuid;not null;index:idx_video_student_click,priority:1" json:"video_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_video_student_click,priority:2" json:"student_id"`
	ClickedAt time.Time `gorm:"not null;column:clicked_at" json:"clicked_at"`
	// Optional client context (user agent, viewport), kept opaque.
	Meta      datatypes.JSON `gorm:"type:jsonb;column:meta" json:"meta,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (VideoClick) TableName() string { return "video_click" }

func (c *VideoClick) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ClickedAt.IsZero() {
		c.ClickedAt = time.Now()
	}
	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password    string    `gorm:"not null;column:password" json:"-"`
	Role        string    `gorm:"not null;index;column:role" json:"role"`
	CollegeName string    `gorm:"column:college_name" json:"college_name"`
	GroupName   string    `gorm:"column:group_name" json:"group_name"`
	Department  string    `gorm:"column:department" json:"department"`
	Semester    int       `gorm:"not null;default:1;column:semester" json:"semester"`
	// Teachers only: the class code students use to find their classroom.
	ClassCode string    `gorm:"index;column:class_code" json:"class_code,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

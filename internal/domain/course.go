package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id" yaml:"-"`
	Title       string         `gorm:"uniqueIndex;not null;column:title" json:"title" yaml:"title"`
	Description string         `gorm:"column:description" json:"description" yaml:"description"`
	Category    string         `gorm:"column:category;index" json:"category" yaml:"category"`
	Provider    string         `gorm:"column:provider" json:"provider" yaml:"provider"`
	Level       string         `gorm:"column:level" json:"level" yaml:"level"`
	URL         string         `gorm:"column:url" json:"url" yaml:"url"`
	Tags        datatypes.JSON `gorm:"column:tags" json:"tags" yaml:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at" yaml:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at" yaml:"-"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

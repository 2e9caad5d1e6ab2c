package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is a snapshot of one flow output owned by a user.
type Record struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_records_user_collection_created,priority:1" json:"user_id"`
	Collection  string            `gorm:"not null;index:idx_records_user_collection_created,priority:2" json:"collection"`
	Payload     datatypes.JSON    `gorm:"not null" json:"payload"`
	Correlation datatypes.JSONMap `json:"correlation,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index:idx_records_user_collection_created,priority:3,sort:desc" json:"created_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Record) TableName() string { return "records" }

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.Must(uuid.NewV7())
	}
	return nil
}

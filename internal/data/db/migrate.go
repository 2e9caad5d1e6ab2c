package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Record{},
		&domain.Course{},
	)
}

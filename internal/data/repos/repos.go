package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/data/repos/catalog"
	"github.com/yungbote/careerprep-backend/internal/data/repos/records"
	"github.com/yungbote/careerprep-backend/internal/data/repos/user"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type RecordRepo = records.RecordRepo
type CourseRepo = catalog.CourseRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return records.NewRecordRepo(db, baseLog)
}
func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return catalog.NewCourseRepo(db, baseLog)
}

package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/data/repos"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type Repos struct {
	User   repos.UserRepo
	Record repos.RecordRepo
	Course repos.CourseRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:   repos.NewUserRepo(db, log),
		Record: repos.NewRecordRepo(db, log),
		Course: repos.NewCourseRepo(db, log),
	}
}

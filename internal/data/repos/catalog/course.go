package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type CourseRepo interface {
	// SeedByTitle inserts the courses whose title is not stored yet and
	// returns how many were added.
	SeedByTitle(ctx context.Context, tx *gorm.DB, courses []*domain.Course) (int, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (cr *courseRepo) SeedByTitle(ctx context.Context, tx *gorm.DB, courses []*domain.Course) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if len(courses) == 0 {
		return 0, nil
	}

	titles := make([]string, 0, len(courses))
	for _, c := range courses {
		if c != nil && strings.TrimSpace(c.Title) != "" {
			titles = append(titles, c.Title)
		}
	}
	var existing []string
	if err := transaction.WithContext(ctx).
		Model(&domain.Course{}).
		Where("title IN ?", titles).
		Pluck("title", &existing).Error; err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}

	missing := make([]*domain.Course, 0, len(courses))
	for _, c := range courses {
		if c == nil || strings.TrimSpace(c.Title) == "" || seen[c.Title] {
			continue
		}
		seen[c.Title] = true
		missing = append(missing, c)
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := transaction.WithContext(ctx).Create(&missing).Error; err != nil {
		return 0, err
	}
	cr.log.Info("courses seeded", "added", len(missing))
	return len(missing), nil
}

func (cr *courseRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*domain.Course
	if err := transaction.WithContext(ctx).
		Order("category ASC, title ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

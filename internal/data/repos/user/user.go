package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

type UserRepo interface {
	// UpsertBySubject returns the user for candidate.Subject, creating it on
	// first sight. created reports whether this call inserted the row.
	UpsertBySubject(ctx context.Context, tx *gorm.DB, candidate *domain.User) (user *domain.User, created bool, err error)
	GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*domain.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*domain.User, error)
	UpdateProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID, patch domain.UserProfileUpdate) (*domain.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) UpsertBySubject(ctx context.Context, tx *gorm.DB, candidate *domain.User) (*domain.User, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if candidate == nil || strings.TrimSpace(candidate.Subject) == "" {
		return nil, false, errors.New("subject required")
	}

	existing, err := ur.GetBySubject(ctx, transaction, candidate.Subject)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if candidate.Email != "" && candidate.Email != existing.Email {
			if err := transaction.WithContext(ctx).
				Model(&domain.User{}).
				Where("id = ?", existing.ID).
				Update("email", candidate.Email).Error; err != nil {
				return nil, false, err
			}
			existing.Email = candidate.Email
		}
		return existing, false, nil
	}

	row := *candidate
	row.ID = uuid.Nil
	if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		// Lost a race with a concurrent first login.
		ur.log.Debug("user upsert raced, re-reading", "subject", candidate.Subject)
		again, gerr := ur.GetBySubject(ctx, transaction, candidate.Subject)
		if gerr != nil {
			return nil, false, gerr
		}
		if again == nil {
			return nil, false, fmt.Errorf("user %s vanished after unique violation: %w", candidate.Subject, err)
		}
		return again, false, nil
	}
	return &row, true, nil
}

func (ur *userRepo) GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*domain.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	var results []*domain.User
	if err := transaction.WithContext(ctx).
		Where("subject = ?", subject).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*domain.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*domain.User

	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) UpdateProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID, patch domain.UserProfileUpdate) (*domain.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if cols := patch.Columns(); len(cols) > 0 {
		res := transaction.WithContext(ctx).
			Model(&domain.User{}).
			Where("id = ?", userID).
			Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	users, err := ur.GetByIDs(ctx, transaction, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return users[0], nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/domain"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type RecordRepo interface {
	// Append inserts all records in one transaction.
	Append(ctx context.Context, tx *gorm.DB, records []*domain.Record) ([]*domain.Record, error)
	ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, collection string, limit int) ([]*domain.Record, error)
	Count(ctx context.Context, tx *gorm.DB, userID uuid.UUID, collection string) (int64, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	repoLog := baseLog.With("repo", "RecordRepo")
	return &recordRepo{db: db, log: repoLog}
}

func (rr *recordRepo) Append(ctx context.Context, tx *gorm.DB, records []*domain.Record) ([]*domain.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(records) == 0 {
		return []*domain.Record{}, nil
	}
	for _, r := range records {
		if r == nil {
			return nil, errors.New("nil record")
		}
		if r.UserID == uuid.Nil {
			return nil, errors.New("record missing user_id")
		}
		if err := domain.CheckCollection(r.Collection); err != nil {
			return nil, err
		}
	}

	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		return inner.Create(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (rr *recordRepo) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, collection string, limit int) ([]*domain.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// A batch shares one created_at; its v7 ids sort in append order.
	var results []*domain.Record
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND collection = ?", userID, collection).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *recordRepo) Count(ctx context.Context, tx *gorm.DB, userID uuid.UUID, collection string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := domain.CheckCollection(collection); err != nil {
		return 0, err
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.Record{}).
		Where("user_id = ? AND collection = ?", userID, collection).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

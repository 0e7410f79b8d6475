package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/types"
)

type ClickRepo interface {
	Create(ctx context.Context, tx *gorm.DB, click *types.VideoClick) (*types.VideoClick, error)
	GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.VideoClick, error)
	GetByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.VideoClick, error)
}

type clickRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClickRepo(db *gorm.DB, baseLog *logger.Logger) ClickRepo {
	repoLog := baseLog.With("repo", "ClickRepo")
	return &clickRepo{db: db, log: repoLog}
}

func (cr *clickRepo) Create(ctx context.Context, tx *gorm.DB, click *types.VideoClick) (*types.VideoClick, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if click == nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).Create(click).Error; err != nil {
		return nil, err
	}
	return click, nil
}

func (cr *clickRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.VideoClick, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.VideoClick
	if videoID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("clicked_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *clickRepo) GetByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.VideoClick, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.VideoClick
	if len(videoIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("video_id IN ?", videoIDs).
		Order("clicked_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

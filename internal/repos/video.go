package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/types"
)

type VideoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, video *types.Video) (*types.Video, error)
	GetByID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*types.Video, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.Video, error)
	GetByTeacherID(ctx context.Context, tx *gorm.DB, teacherID uuid.UUID) ([]*types.Video, error)
	ListForAudience(ctx context.Context, tx *gorm.DB, department string, semester int) ([]*types.Video, error)
	Update(ctx context.Context, tx *gorm.DB, video *types.Video) error
	Delete(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	repoLog := baseLog.With("repo", "VideoRepo")
	return &videoRepo{db: db, log: repoLog}
}

func (vr *videoRepo) Create(ctx context.Context, tx *gorm.DB, video *types.Video) (*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if video == nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).Create(video).Error; err != nil {
		return nil, err
	}
	return video, nil
}

func (vr *videoRepo) GetByID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) (*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result types.Video
	err := transaction.WithContext(ctx).
		Where("id = ?", videoID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (vr *videoRepo) GetByIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var results []*types.Video
	if len(videoIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", videoIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *videoRepo) GetByTeacherID(ctx context.Context, tx *gorm.DB, teacherID uuid.UUID) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var results []*types.Video
	if teacherID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListForAudience returns the catalog a student sees, newest first. Empty
// department or zero semester drops that filter.
func (vr *videoRepo) ListForAudience(ctx context.Context, tx *gorm.DB, department string, semester int) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	query := transaction.WithContext(ctx).Model(&types.Video{})
	if department != "" {
		query = query.Where("department = ?", department)
	}
	if semester > 0 {
		query = query.Where("semester = ?", semester)
	}

	var results []*types.Video
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *videoRepo) Update(ctx context.Context, tx *gorm.DB, video *types.Video) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if video == nil || video.ID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).Save(video).Error
}

// Delete removes the catalog row only. Progress and click history for the
// video stays behind; the analytics read side filters orphans out.
func (vr *videoRepo) Delete(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	if videoID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("id = ?", videoID).
		Delete(&types.Video{}).Error
}

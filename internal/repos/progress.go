package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/types"
)

// HeartbeatInput is one clamped telemetry sample ready to fold into the
// (student, video) record. Delta is already clamped by the service; Source
// and DurationSeconds come from the resolved video so the statement can
// apply the completion policy in-place.
type HeartbeatInput struct {
	StudentID       uuid.UUID
	VideoID         uuid.UUID
	Position        int
	Delta           int
	Source          string
	DurationSeconds int
}

type ProgressRepo interface {
	// ApplyHeartbeat folds one sample into the pair's record as a single
	// INSERT ... ON CONFLICT conditional update, so concurrent heartbeats
	// for the same pair serialize on the row and neither delta is lost.
	ApplyHeartbeat(ctx context.Context, tx *gorm.DB, in HeartbeatInput) (*types.VideoProgress, error)
	GetByStudentAndVideo(ctx context.Context, tx *gorm.DB, studentID, videoID uuid.UUID) (*types.VideoProgress, error)
	GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.VideoProgress, error)
	GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.VideoProgress, error)
	GetByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.VideoProgress, error)
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

func (pr *progressRepo) ApplyHeartbeat(ctx context.Context, tx *gorm.DB, in HeartbeatInput) (*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	driveCapped := in.Source == types.SourceDrive && in.DurationSeconds > 0

	// Row for the first heartbeat of the pair; ON CONFLICT folds every
	// later (or concurrently racing) sample into it.
	row := &types.VideoProgress{
		StudentID:        in.StudentID,
		VideoID:          in.VideoID,
		WatchTimeSeconds: in.Delta,
		LastPosition:     in.Position,
		MaxPosition:      in.Position,
	}
	if driveCapped && row.WatchTimeSeconds > in.DurationSeconds {
		row.WatchTimeSeconds = in.DurationSeconds
	}
	row.IsCompleted = types.CompletionReached(in.Source, in.DurationSeconds, row)

	// All expressions reference the existing row unqualified and stay
	// portable across postgres and sqlite (the test driver): CASE instead
	// of GREATEST/LEAST.
	var watchExpr clause.Expr
	if driveCapped {
		watchExpr = gorm.Expr(
			"CASE WHEN watch_time_seconds + ? > ? THEN ? ELSE watch_time_seconds + ? END",
			in.Delta, in.DurationSeconds, in.DurationSeconds, in.Delta)
	} else {
		watchExpr = gorm.Expr("watch_time_seconds + ?", in.Delta)
	}

	maxExpr := gorm.Expr(
		"CASE WHEN ? > max_position THEN ? ELSE max_position END",
		in.Position, in.Position)

	assignments := map[string]interface{}{
		"watch_time_seconds": watchExpr,
		"last_position":      in.Position,
		"max_position":       maxExpr,
		"updated_at":         gorm.Expr("CURRENT_TIMESTAMP"),
	}

	// is_completed is one-way: OR the threshold check over the post-update
	// metric into the stored flag. Which metric counts is the source's
	// completion policy; a zero duration leaves the flag untouched.
	if in.DurationSeconds > 0 {
		if in.Source == types.SourceDrive {
			assignments["is_completed"] = gorm.Expr(
				"is_completed OR ((10 * (CASE WHEN watch_time_seconds + ? > ? THEN ? ELSE watch_time_seconds + ? END)) >= ?)",
				in.Delta, in.DurationSeconds, in.DurationSeconds, in.Delta, 9*in.DurationSeconds)
		} else {
			assignments["is_completed"] = gorm.Expr(
				"is_completed OR ((10 * (CASE WHEN ? > max_position THEN ? ELSE max_position END)) >= ?)",
				in.Position, in.Position, 9*in.DurationSeconds)
		}
	}

	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "video_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}

	// Re-read for the response: the statement above may have updated an
	// existing row rather than inserted ours.
	return pr.GetByStudentAndVideo(ctx, transaction, in.StudentID, in.VideoID)
}

func (pr *progressRepo) GetByStudentAndVideo(ctx context.Context, tx *gorm.DB, studentID, videoID uuid.UUID) (*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result types.VideoProgress
	err := transaction.WithContext(ctx).
		Where("student_id = ? AND video_id = ?", studentID, videoID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (pr *progressRepo) GetByStudentID(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.VideoProgress
	if studentID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *progressRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID uuid.UUID) ([]*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.VideoProgress
	if videoID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("video_id = ?", videoID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *progressRepo) GetByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []uuid.UUID) ([]*types.VideoProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.VideoProgress
	if len(videoIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("video_id IN ?", videoIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

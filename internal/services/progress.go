package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/apierr"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/types"
)

// MaxHeartbeatDelta bounds the watch-time credit of a single sample.
// Heartbeats arrive on a fixed short interval; whatever a client claims
// (tab backgrounding, clock drift), one sample never credits more than one
// interval's worth.
const MaxHeartbeatDelta = 15

type HeartbeatInput struct {
	VideoID      uuid.UUID `json:"video_id"`
	LastPosition int       `json:"last_position"`
	Delta        int       `json:"delta"`
}

type ProgressService interface {
	// RecordHeartbeat folds one telemetry sample into the caller's record
	// for the video and runs completion detection.
	RecordHeartbeat(ctx context.Context, studentID uuid.UUID, in HeartbeatInput) (*types.VideoProgress, error)
	// RecordClick appends one watch-session-start event. Store errors are
	// swallowed after logging: click telemetry must never fail the
	// surrounding watch flow.
	RecordClick(ctx context.Context, studentID, videoID uuid.UUID, meta datatypes.JSON) (*types.VideoClick, error)
	// GetMyProgress returns the pair's record, or a zero-valued default
	// without creating one.
	GetMyProgress(ctx context.Context, studentID, videoID uuid.UUID) (*types.VideoProgress, error)
	GetAllMyProgress(ctx context.Context, studentID uuid.UUID) ([]*types.VideoProgress, error)
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	videoRepo    repos.VideoRepo
	progressRepo repos.ProgressRepo
	clickRepo    repos.ClickRepo
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	videoRepo repos.VideoRepo,
	progressRepo repos.ProgressRepo,
	clickRepo repos.ClickRepo,
) ProgressService {
	serviceLog := log.With("service", "ProgressService")
	return &progressService{
		db:           db,
		log:          serviceLog,
		videoRepo:    videoRepo,
		progressRepo: progressRepo,
		clickRepo:    clickRepo,
	}
}

func (ps *progressService) RecordHeartbeat(ctx context.Context, studentID uuid.UUID, in HeartbeatInput) (*types.VideoProgress, error) {
	if in.VideoID == uuid.Nil {
		return nil, apierr.Validation("video_id is required")
	}

	video, err := ps.videoRepo.GetByID(ctx, nil, in.VideoID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("resolve video: %w", err))
	}
	if video == nil {
		return nil, apierr.NotFound("video")
	}

	delta := in.Delta
	if delta < 0 {
		delta = 0
	}
	if delta > MaxHeartbeatDelta {
		delta = MaxHeartbeatDelta
	}
	position := in.LastPosition
	if position < 0 {
		position = 0
	}

	progress, err := ps.progressRepo.ApplyHeartbeat(ctx, nil, repos.HeartbeatInput{
		StudentID:       studentID,
		VideoID:         video.ID,
		Position:        position,
		Delta:           delta,
		Source:          video.Source,
		DurationSeconds: video.DurationSeconds,
	})
	if err != nil {
		ps.log.Error("Heartbeat upsert failed", "student_id", studentID, "video_id", video.ID, "error", err)
		return nil, apierr.Store(fmt.Errorf("apply heartbeat: %w", err))
	}
	return progress, nil
}

func (ps *progressService) RecordClick(ctx context.Context, studentID, videoID uuid.UUID, meta datatypes.JSON) (*types.VideoClick, error) {
	if videoID == uuid.Nil {
		return nil, apierr.Validation("video_id is required")
	}

	click := &types.VideoClick{
		VideoID:   videoID,
		StudentID: studentID,
		Meta:      meta,
	}
	created, err := ps.clickRepo.Create(ctx, nil, click)
	if err != nil {
		// Best-effort telemetry: log it, report success.
		ps.log.Warn("Click write failed", "student_id", studentID, "video_id", videoID, "error", err)
		return nil, nil
	}
	return created, nil
}

func (ps *progressService) GetMyProgress(ctx context.Context, studentID, videoID uuid.UUID) (*types.VideoProgress, error) {
	progress, err := ps.progressRepo.GetByStudentAndVideo(ctx, nil, studentID, videoID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("get progress: %w", err))
	}
	if progress == nil {
		return &types.VideoProgress{StudentID: studentID, VideoID: videoID}, nil
	}
	return progress, nil
}

func (ps *progressService) GetAllMyProgress(ctx context.Context, studentID uuid.UUID) ([]*types.VideoProgress, error) {
	records, err := ps.progressRepo.GetByStudentID(ctx, nil, studentID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("list progress: %w", err))
	}
	return records, nil
}

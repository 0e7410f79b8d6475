package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/apierr"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/types"
)

// Supported lecture sources, classified by URL shape.
var (
	youtubeURLPattern = regexp.MustCompile(`(?:youtu\.be/|youtube\.com/(?:watch\?.*v=|embed/|v/|shorts/))[a-zA-Z0-9_-]{11}`)
	driveURLPattern   = regexp.MustCompile(`(?:drive\.google\.com/(?:file/d/|open\?id=)|docs\.google\.com/file/d/)[a-zA-Z0-9_-]+`)
)

// ClassifyVideoSource pattern-matches a lecture URL into a source kind.
func ClassifyVideoSource(url string) (string, bool) {
	if youtubeURLPattern.MatchString(url) {
		return types.SourceYouTube, true
	}
	if driveURLPattern.MatchString(url) {
		return types.SourceDrive, true
	}
	return "", false
}

type CreateVideoInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	VideoURL        string `json:"video_url"`
	Department      string `json:"department"`
	Semester        int    `json:"semester"`
	Subject         string `json:"subject"`
	DurationSeconds int    `json:"duration_seconds"`
}

// UpdateVideoInput uses pointers so absent fields stay untouched.
type UpdateVideoInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	VideoURL        *string `json:"video_url"`
	Department      *string `json:"department"`
	Semester        *int    `json:"semester"`
	Subject         *string `json:"subject"`
	DurationSeconds *int    `json:"duration_seconds"`
}

type VideoService interface {
	CreateVideo(ctx context.Context, teacherID uuid.UUID, in CreateVideoInput) (*types.Video, error)
	GetVideo(ctx context.Context, videoID uuid.UUID) (*types.Video, error)
	ListVideos(ctx context.Context, caller *types.User, departmentOverride string, semesterOverride int) ([]*types.Video, error)
	UpdateVideo(ctx context.Context, callerID, videoID uuid.UUID, in UpdateVideoInput) (*types.Video, error)
	DeleteVideo(ctx context.Context, callerID, videoID uuid.UUID) error
}

type videoService struct {
	db        *gorm.DB
	log       *logger.Logger
	videoRepo repos.VideoRepo
}

func NewVideoService(db *gorm.DB, log *logger.Logger, videoRepo repos.VideoRepo) VideoService {
	serviceLog := log.With("service", "VideoService")
	return &videoService{db: db, log: serviceLog, videoRepo: videoRepo}
}

func (vs *videoService) CreateVideo(ctx context.Context, teacherID uuid.UUID, in CreateVideoInput) (*types.Video, error) {
	if in.Title == "" || in.VideoURL == "" || in.Department == "" || in.Semester <= 0 || in.Subject == "" {
		return nil, apierr.Validation("title, video_url, department, semester and subject are required")
	}

	source, ok := ClassifyVideoSource(in.VideoURL)
	if !ok {
		return nil, apierr.Validation("invalid video URL: only YouTube and Google Drive links are supported")
	}

	duration := in.DurationSeconds
	if duration < 0 {
		duration = 0
	}

	video := &types.Video{
		Title:           in.Title,
		Description:     in.Description,
		VideoURL:        in.VideoURL,
		Source:          source,
		Department:      in.Department,
		Semester:        in.Semester,
		Subject:         in.Subject,
		TeacherID:       teacherID,
		DurationSeconds: duration,
	}
	created, err := vs.videoRepo.Create(ctx, nil, video)
	if err != nil {
		vs.log.Error("Failed to create video", "error", err)
		return nil, apierr.Store(fmt.Errorf("create video: %w", err))
	}
	vs.log.Info("Video created", "video_id", created.ID, "source", created.Source)
	return created, nil
}

func (vs *videoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*types.Video, error) {
	video, err := vs.videoRepo.GetByID(ctx, nil, videoID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("get video: %w", err))
	}
	if video == nil {
		return nil, apierr.NotFound("video")
	}
	return video, nil
}

// ListVideos returns the teacher's own catalog, or for students the catalog
// scoped to their department/semester (query overrides allowed).
func (vs *videoService) ListVideos(ctx context.Context, caller *types.User, departmentOverride string, semesterOverride int) ([]*types.Video, error) {
	if caller.Role == types.RoleTeacher {
		videos, err := vs.videoRepo.GetByTeacherID(ctx, nil, caller.ID)
		if err != nil {
			return nil, apierr.Store(fmt.Errorf("list videos: %w", err))
		}
		return videos, nil
	}

	department := caller.Department
	if departmentOverride != "" {
		department = departmentOverride
	}
	semester := caller.Semester
	if semesterOverride > 0 {
		semester = semesterOverride
	}

	videos, err := vs.videoRepo.ListForAudience(ctx, nil, department, semester)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("list videos: %w", err))
	}
	return videos, nil
}

func (vs *videoService) UpdateVideo(ctx context.Context, callerID, videoID uuid.UUID, in UpdateVideoInput) (*types.Video, error) {
	video, err := vs.videoRepo.GetByID(ctx, nil, videoID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("get video: %w", err))
	}
	if video == nil {
		return nil, apierr.NotFound("video")
	}
	if video.TeacherID != callerID {
		return nil, apierr.Forbidden("not your video")
	}

	if in.VideoURL != nil {
		source, ok := ClassifyVideoSource(*in.VideoURL)
		if !ok {
			return nil, apierr.Validation("invalid video URL: only YouTube and Google Drive links are supported")
		}
		video.VideoURL = *in.VideoURL
		video.Source = source
	}
	if in.Title != nil {
		video.Title = *in.Title
	}
	if in.Description != nil {
		video.Description = *in.Description
	}
	if in.Department != nil {
		video.Department = *in.Department
	}
	if in.Semester != nil && *in.Semester > 0 {
		video.Semester = *in.Semester
	}
	if in.Subject != nil {
		video.Subject = *in.Subject
	}
	if in.DurationSeconds != nil && *in.DurationSeconds >= 0 {
		video.DurationSeconds = *in.DurationSeconds
	}

	if err := vs.videoRepo.Update(ctx, nil, video); err != nil {
		vs.log.Error("Failed to update video", "video_id", videoID, "error", err)
		return nil, apierr.Store(fmt.Errorf("update video: %w", err))
	}
	return video, nil
}

// DeleteVideo removes the catalog entry only; progress and click history
// stay behind as orphan rows the analytics read side filters out.
func (vs *videoService) DeleteVideo(ctx context.Context, callerID, videoID uuid.UUID) error {
	video, err := vs.videoRepo.GetByID(ctx, nil, videoID)
	if err != nil {
		return apierr.Store(fmt.Errorf("get video: %w", err))
	}
	if video == nil {
		return apierr.NotFound("video")
	}
	if video.TeacherID != callerID {
		return apierr.Forbidden("not your video")
	}

	if err := vs.videoRepo.Delete(ctx, nil, videoID); err != nil {
		vs.log.Error("Failed to delete video", "video_id", videoID, "error", err)
		return apierr.Store(fmt.Errorf("delete video: %w", err))
	}
	vs.log.Info("Video deleted", "video_id", videoID)
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/apierr"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/types"
)

type VideoSummary struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration"`
}

type VideoAnalyticsRow struct {
	StudentName       string `json:"studentName"`
	StudentEmail      string `json:"studentEmail"`
	Group             string `json:"group"`
	CollegeName       string `json:"collegeName"`
	Department        string `json:"department"`
	WatchTime         int    `json:"watchTime"`
	MaxPosition       int    `json:"maxPosition"`
	CompletionPercent int    `json:"completionPercent"`
	IsCompleted       bool   `json:"isCompleted"`
}

type VideoAnalytics struct {
	Video VideoSummary        `json:"video"`
	Rows  []VideoAnalyticsRow `json:"analytics"`
}

type ClassroomRow struct {
	StudentID         uuid.UUID `json:"studentId"`
	StudentName       string    `json:"studentName"`
	StudentEmail      string    `json:"studentEmail"`
	Group             string    `json:"group"`
	CollegeName       string    `json:"collegeName"`
	Department        string    `json:"department"`
	TotalWatchTime    int       `json:"totalWatchTime"`
	VideosCompleted   int       `json:"videosCompleted"`
	TotalVideos       int       `json:"totalVideos"`
	CompletionPercent int       `json:"completionPercent"`
}

type AnalyticsService interface {
	// GetVideoAnalytics returns one row per role=student progress record on
	// the video. Teacher-only.
	GetVideoAnalytics(ctx context.Context, caller *types.User, videoID uuid.UUID) (*VideoAnalytics, error)
	// GetClassroomAnalytics aggregates the caller's whole catalog per
	// student. Every registered student appears, 0/N included; rows are
	// ordered by group then name (display contract). Teacher-only.
	GetClassroomAnalytics(ctx context.Context, caller *types.User) ([]ClassroomRow, error)
}

type analyticsService struct {
	db           *gorm.DB
	log          *logger.Logger
	videoRepo    repos.VideoRepo
	progressRepo repos.ProgressRepo
	userRepo     repos.UserRepo
	cache        *goredis.Client
	cacheTTL     time.Duration
}

// NewAnalyticsService builds the read-side aggregator. cache may be nil:
// the classroom view then always reads through to the store.
func NewAnalyticsService(
	db *gorm.DB,
	log *logger.Logger,
	videoRepo repos.VideoRepo,
	progressRepo repos.ProgressRepo,
	userRepo repos.UserRepo,
	cache *goredis.Client,
	cacheTTL time.Duration,
) AnalyticsService {
	serviceLog := log.With("service", "AnalyticsService")
	return &analyticsService{
		db:           db,
		log:          serviceLog,
		videoRepo:    videoRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

func (as *analyticsService) GetVideoAnalytics(ctx context.Context, caller *types.User, videoID uuid.UUID) (*VideoAnalytics, error) {
	if caller == nil || caller.Role != types.RoleTeacher {
		return nil, apierr.Forbidden("teachers only")
	}

	var (
		video        *types.Video
		progressRows []*types.VideoProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := as.videoRepo.GetByID(gctx, nil, videoID)
		if err != nil {
			return fmt.Errorf("resolve video: %w", err)
		}
		video = v
		return nil
	})
	g.Go(func() error {
		rows, err := as.progressRepo.GetByVideoID(gctx, nil, videoID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		progressRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.Store(err)
	}
	if video == nil {
		return nil, apierr.NotFound("video")
	}

	studentIDs := make([]uuid.UUID, 0, len(progressRows))
	for _, p := range progressRows {
		studentIDs = append(studentIDs, p.StudentID)
	}
	users, err := as.userRepo.GetByIDs(ctx, nil, studentIDs)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load roster: %w", err))
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	rows := make([]VideoAnalyticsRow, 0, len(progressRows))
	for _, p := range progressRows {
		student, ok := byID[p.StudentID]
		if !ok || student.Role != types.RoleStudent {
			continue
		}
		rows = append(rows, VideoAnalyticsRow{
			StudentName:       student.Name,
			StudentEmail:      student.Email,
			Group:             student.GroupName,
			CollegeName:       student.CollegeName,
			Department:        student.Department,
			WatchTime:         p.WatchTimeSeconds,
			MaxPosition:       p.MaxPosition,
			CompletionPercent: types.CompletionPercent(video.Source, video.DurationSeconds, p),
			IsCompleted:       p.IsCompleted,
		})
	}

	return &VideoAnalytics{
		Video: VideoSummary{Title: video.Title, DurationSeconds: video.DurationSeconds},
		Rows:  rows,
	}, nil
}

func (as *analyticsService) GetClassroomAnalytics(ctx context.Context, caller *types.User) ([]ClassroomRow, error) {
	if caller == nil || caller.Role != types.RoleTeacher {
		return nil, apierr.Forbidden("teachers only")
	}

	if cached, ok := as.cacheGet(ctx, caller.ID); ok {
		return cached, nil
	}

	var (
		videos   []*types.Video
		students []*types.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := as.videoRepo.GetByTeacherID(gctx, nil, caller.ID)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		videos = v
		return nil
	})
	g.Go(func() error {
		s, err := as.userRepo.GetByRole(gctx, nil, types.RoleStudent)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		students = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.Store(err)
	}

	videoIDs := make([]uuid.UUID, 0, len(videos))
	for _, v := range videos {
		videoIDs = append(videoIDs, v.ID)
	}
	progressRows, err := as.progressRepo.GetByVideoIDs(ctx, nil, videoIDs)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load progress: %w", err))
	}

	type agg struct {
		watchTime int
		completed int
	}
	perStudent := make(map[uuid.UUID]*agg, len(students))
	for _, p := range progressRows {
		a := perStudent[p.StudentID]
		if a == nil {
			a = &agg{}
			perStudent[p.StudentID] = a
		}
		a.watchTime += p.WatchTimeSeconds
		if p.IsCompleted {
			a.completed++
		}
	}

	totalVideos := len(videos)
	rows := make([]ClassroomRow, 0, len(students))
	for _, student := range students {
		a := perStudent[student.ID]
		if a == nil {
			a = &agg{}
		}
		percent := 0
		if totalVideos > 0 {
			percent = (100*a.completed + totalVideos/2) / totalVideos
		}
		rows = append(rows, ClassroomRow{
			StudentID:         student.ID,
			StudentName:       student.Name,
			StudentEmail:      student.Email,
			Group:             student.GroupName,
			CollegeName:       student.CollegeName,
			Department:        student.Department,
			TotalWatchTime:    a.watchTime,
			VideosCompleted:   a.completed,
			TotalVideos:       totalVideos,
			CompletionPercent: percent,
		})
	}

	// Display contract: group ascending, then student name ascending.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Group != rows[j].Group {
			return rows[i].Group < rows[j].Group
		}
		return rows[i].StudentName < rows[j].StudentName
	})

	as.cacheSet(ctx, caller.ID, rows)
	return rows, nil
}

func classroomCacheKey(teacherID uuid.UUID) string {
	return "classpulse:analytics:classroom:" + teacherID.String()
}

func (as *analyticsService) cacheGet(ctx context.Context, teacherID uuid.UUID) ([]ClassroomRow, bool) {
	if as.cache == nil || as.cacheTTL <= 0 {
		return nil, false
	}
	raw, err := as.cache.Get(ctx, classroomCacheKey(teacherID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			as.log.Warn("Classroom cache read failed", "error", err)
		}
		return nil, false
	}
	var rows []ClassroomRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		as.log.Warn("Classroom cache entry corrupt, dropping", "error", err)
		return nil, false
	}
	return rows, true
}

func (as *analyticsService) cacheSet(ctx context.Context, teacherID uuid.UUID, rows []ClassroomRow) {
	if as.cache == nil || as.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := as.cache.Set(ctx, classroomCacheKey(teacherID), raw, as.cacheTTL).Err(); err != nil {
		as.log.Warn("Classroom cache write failed", "error", err)
	}
}

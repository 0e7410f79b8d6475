package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/apierr"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/types"
)

// CSVExport is a rendered tabular export ready to stream as an attachment.
type CSVExport struct {
	Filename string
	Content  string
}

type ExportService interface {
	ExportVideoCSV(ctx context.Context, caller *types.User, videoID uuid.UUID) (*CSVExport, error)
	ExportClassroomCSV(ctx context.Context, caller *types.User) (*CSVExport, error)
	ExportClicksCSV(ctx context.Context, caller *types.User, videoID uuid.UUID) (*CSVExport, error)
	ExportAllClicksCSV(ctx context.Context, caller *types.User) (*CSVExport, error)
}

type exportService struct {
	db        *gorm.DB
	log       *logger.Logger
	analytics AnalyticsService
	videoRepo repos.VideoRepo
	clickRepo repos.ClickRepo
	userRepo  repos.UserRepo
}

func NewExportService(
	db *gorm.DB,
	log *logger.Logger,
	analytics AnalyticsService,
	videoRepo repos.VideoRepo,
	clickRepo repos.ClickRepo,
	userRepo repos.UserRepo,
) ExportService {
	serviceLog := log.With("service", "ExportService")
	return &exportService{
		db:        db,
		log:       serviceLog,
		analytics: analytics,
		videoRepo: videoRepo,
		clickRepo: clickRepo,
		userRepo:  userRepo,
	}
}

// Column contract: string fields are always quoted (missing ones render as
// the column's placeholder), numeric fields are never quoted. This matches
// the sheets the teachers already import, so encoding/csv's quote-on-demand
// behavior is not an option here.

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (es *exportService) ExportVideoCSV(ctx context.Context, caller *types.User, videoID uuid.UUID) (*CSVExport, error) {
	analytics, err := es.analytics.GetVideoAnalytics(ctx, caller, videoID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Name,Email,Dept,Group,College,Watch Time (s),Completion %,Completed\n")
	for _, row := range analytics.Rows {
		completed := "No"
		if row.IsCompleted {
			completed = "Yes"
		}
		b.WriteString(strings.Join([]string{
			csvQuote(row.StudentName),
			csvQuote(row.StudentEmail),
			csvQuote(row.Department),
			csvQuote(row.Group),
			csvQuote(row.CollegeName),
			strconv.Itoa(row.WatchTime),
			strconv.Itoa(row.CompletionPercent),
			completed,
		}, ","))
		b.WriteString("\n")
	}

	return &CSVExport{
		Filename: fmt.Sprintf("%s-attendance.csv", analytics.Video.Title),
		Content:  b.String(),
	}, nil
}

func (es *exportService) ExportClassroomCSV(ctx context.Context, caller *types.User) (*CSVExport, error) {
	rows, err := es.analytics.GetClassroomAnalytics(ctx, caller)
	if err != nil {
		return nil, err
	}

	// "Watched Lectures" joins the click log: the set of distinct titles a
	// student opened, limited to videos that still resolve in the catalog.
	videos, err := es.videoRepo.GetByTeacherID(ctx, nil, caller.ID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load catalog: %w", err))
	}
	videoIDs := make([]uuid.UUID, 0, len(videos))
	titleByID := make(map[uuid.UUID]string, len(videos))
	for _, v := range videos {
		videoIDs = append(videoIDs, v.ID)
		titleByID[v.ID] = v.Title
	}
	clicks, err := es.clickRepo.GetByVideoIDs(ctx, nil, videoIDs)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load clicks: %w", err))
	}
	watched := make(map[uuid.UUID]map[string]bool)
	for _, click := range clicks {
		title, ok := titleByID[click.VideoID]
		if !ok {
			continue
		}
		if watched[click.StudentID] == nil {
			watched[click.StudentID] = make(map[string]bool)
		}
		watched[click.StudentID][title] = true
	}

	var b strings.Builder
	b.WriteString("Name,Email,Dept,College,Group,Total Watch Time (s),Videos Completed,Completion %,Watched Lectures\n")
	for _, row := range rows {
		titles := make([]string, 0, len(watched[row.StudentID]))
		for title := range watched[row.StudentID] {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		b.WriteString(strings.Join([]string{
			csvQuote(row.StudentName),
			csvQuote(row.StudentEmail),
			csvQuote(dashIfEmpty(row.Department)),
			csvQuote(dashIfEmpty(row.CollegeName)),
			csvQuote(dashIfEmpty(row.Group)),
			strconv.Itoa(row.TotalWatchTime),
			strconv.Itoa(row.VideosCompleted),
			strconv.Itoa(row.CompletionPercent),
			csvQuote(strings.Join(titles, " | ")),
		}, ","))
		b.WriteString("\n")
	}

	return &CSVExport{Filename: "Classroom-Overview.csv", Content: b.String()}, nil
}

// clickAggregate is the per-group rollup shared by both click exports.
type clickAggregate struct {
	count int
	first time.Time
	last  time.Time
}

func (a *clickAggregate) add(at time.Time) {
	a.count++
	if a.first.IsZero() || at.Before(a.first) {
		a.first = at
	}
	if at.After(a.last) {
		a.last = at
	}
}

func (es *exportService) ExportClicksCSV(ctx context.Context, caller *types.User, videoID uuid.UUID) (*CSVExport, error) {
	if caller == nil || caller.Role != types.RoleTeacher {
		return nil, apierr.Forbidden("teachers only")
	}

	video, err := es.videoRepo.GetByID(ctx, nil, videoID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("resolve video: %w", err))
	}
	if video == nil {
		return nil, apierr.NotFound("video")
	}

	clicks, err := es.clickRepo.GetByVideoID(ctx, nil, videoID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load clicks: %w", err))
	}

	perStudent := make(map[uuid.UUID]*clickAggregate)
	studentIDs := make([]uuid.UUID, 0)
	for _, click := range clicks {
		a := perStudent[click.StudentID]
		if a == nil {
			a = &clickAggregate{}
			perStudent[click.StudentID] = a
			studentIDs = append(studentIDs, click.StudentID)
		}
		a.add(click.ClickedAt)
	}

	students, err := es.userRepo.GetByIDs(ctx, nil, studentIDs)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load roster: %w", err))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })

	var b strings.Builder
	b.WriteString("Name,Email,Group,Clicks,First Click,Last Click\n")
	for _, student := range students {
		if student.Role != types.RoleStudent {
			continue
		}
		a := perStudent[student.ID]
		if a == nil {
			continue
		}
		b.WriteString(strings.Join([]string{
			csvQuote(student.Name),
			csvQuote(student.Email),
			csvQuote(dashIfEmpty(student.GroupName)),
			strconv.Itoa(a.count),
			csvQuote(a.first.Format(time.RFC3339)),
			csvQuote(a.last.Format(time.RFC3339)),
		}, ","))
		b.WriteString("\n")
	}

	return &CSVExport{
		Filename: fmt.Sprintf("%s-clicks.csv", video.Title),
		Content:  b.String(),
	}, nil
}

func (es *exportService) ExportAllClicksCSV(ctx context.Context, caller *types.User) (*CSVExport, error) {
	if caller == nil || caller.Role != types.RoleTeacher {
		return nil, apierr.Forbidden("teachers only")
	}

	videos, err := es.videoRepo.GetByTeacherID(ctx, nil, caller.ID)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load catalog: %w", err))
	}
	videoIDs := make([]uuid.UUID, 0, len(videos))
	titleByID := make(map[uuid.UUID]string, len(videos))
	for _, v := range videos {
		videoIDs = append(videoIDs, v.ID)
		titleByID[v.ID] = v.Title
	}

	clicks, err := es.clickRepo.GetByVideoIDs(ctx, nil, videoIDs)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load clicks: %w", err))
	}

	type pairKey struct {
		videoID   uuid.UUID
		studentID uuid.UUID
	}
	perPair := make(map[pairKey]*clickAggregate)
	studentSet := make(map[uuid.UUID]bool)
	for _, click := range clicks {
		key := pairKey{videoID: click.VideoID, studentID: click.StudentID}
		a := perPair[key]
		if a == nil {
			a = &clickAggregate{}
			perPair[key] = a
		}
		a.add(click.ClickedAt)
		studentSet[click.StudentID] = true
	}

	studentIDs := make([]uuid.UUID, 0, len(studentSet))
	for id := range studentSet {
		studentIDs = append(studentIDs, id)
	}
	students, err := es.userRepo.GetByIDs(ctx, nil, studentIDs)
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("load roster: %w", err))
	}
	studentByID := make(map[uuid.UUID]*types.User, len(students))
	for _, s := range students {
		studentByID[s.ID] = s
	}

	keys := make([]pairKey, 0, len(perPair))
	for key := range perPair {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := titleByID[keys[i].videoID], titleByID[keys[j].videoID]
		if ti != tj {
			return ti < tj
		}
		si, sj := studentByID[keys[i].studentID], studentByID[keys[j].studentID]
		var ni, nj string
		if si != nil {
			ni = si.Name
		}
		if sj != nil {
			nj = sj.Name
		}
		return ni < nj
	})

	var b strings.Builder
	b.WriteString("Video,Name,Email,Group,Clicks,First Click,Last Click\n")
	for _, key := range keys {
		student := studentByID[key.studentID]
		if student == nil || student.Role != types.RoleStudent {
			continue
		}
		a := perPair[key]
		b.WriteString(strings.Join([]string{
			csvQuote(titleByID[key.videoID]),
			csvQuote(student.Name),
			csvQuote(student.Email),
			csvQuote(dashIfEmpty(student.GroupName)),
			strconv.Itoa(a.count),
			csvQuote(a.first.Format(time.RFC3339)),
			csvQuote(a.last.Format(time.RFC3339)),
		}, ","))
		b.WriteString("\n")
	}

	return &CSVExport{Filename: "All-Clicks.csv", Content: b.String()}, nil
}

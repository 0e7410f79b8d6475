package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/classpulse/classpulse-backend/internal/platform/apierr"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/types"
)

// testEnv wires the full service stack onto a per-test in-memory store.
type testEnv struct {
	db        *gorm.DB
	users     repos.UserRepo
	videos    repos.VideoRepo
	progress  repos.ProgressRepo
	clicks    repos.ClickRepo
	auth      AuthService
	video     VideoService
	tracking  ProgressService
	analytics AnalyticsService
	exports   ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&types.User{}, &types.Video{}, &types.VideoProgress{}, &types.VideoClick{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	userRepo := repos.NewUserRepo(db, log)
	videoRepo := repos.NewVideoRepo(db, log)
	progressRepo := repos.NewProgressRepo(db, log)
	clickRepo := repos.NewClickRepo(db, log)

	policy := NewAllowlistTeacherPolicy("@college.edu")
	analytics := NewAnalyticsService(db, log, videoRepo, progressRepo, userRepo, nil, 0)

	return &testEnv{
		db:        db,
		users:     userRepo,
		videos:    videoRepo,
		progress:  progressRepo,
		clicks:    clickRepo,
		auth:      NewAuthService(db, log, userRepo, policy, "test-secret", time.Hour),
		video:     NewVideoService(db, log, videoRepo),
		tracking:  NewProgressService(db, log, videoRepo, progressRepo, clickRepo),
		analytics: analytics,
		exports:   NewExportService(db, log, analytics, videoRepo, clickRepo, userRepo),
	}
}

func (env *testEnv) seedUser(t *testing.T, role, name, email, group string) *types.User {
	t.Helper()
	user := &types.User{
		Name:       name,
		Email:      email,
		Password:   "x",
		Role:       role,
		GroupName:  group,
		Department: "CSE",
		Semester:   3,
	}
	created, err := env.users.Create(context.Background(), nil, []*types.User{user})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return created[0]
}

func (env *testEnv) seedVideo(t *testing.T, teacherID uuid.UUID, title, source string, duration int) *types.Video {
	t.Helper()
	video := &types.Video{
		Title:           title,
		VideoURL:        "https://youtu.be/dQw4w9WgXcQ",
		Source:          source,
		Department:      "CSE",
		Semester:        3,
		Subject:         "Networks",
		TeacherID:       teacherID,
		DurationSeconds: duration,
	}
	created, err := env.videos.Create(context.Background(), nil, video)
	if err != nil {
		t.Fatalf("seed video %s: %v", title, err)
	}
	return created
}

func wantAPIError(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T: %v", err, err)
	}
	if ae.Code != code {
		t.Fatalf("error code = %q, want %q (%v)", ae.Code, code, err)
	}
}

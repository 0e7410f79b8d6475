package repos

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/internal/types"
)

func TestApplyHeartbeatAccumulates(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))
	ctx := context.Background()

	studentID := uuid.New()
	videoID := uuid.New()

	base := HeartbeatInput{
		StudentID:       studentID,
		VideoID:         videoID,
		Source:          types.SourceYouTube,
		DurationSeconds: 200,
	}

	first := base
	first.Position = 30
	first.Delta = 15
	p, err := repo.ApplyHeartbeat(ctx, nil, first)
	if err != nil {
		t.Fatalf("first heartbeat: %v", err)
	}
	if p.WatchTimeSeconds != 15 || p.MaxPosition != 30 || p.LastPosition != 30 {
		t.Fatalf("after first: watch=%d max=%d last=%d", p.WatchTimeSeconds, p.MaxPosition, p.LastPosition)
	}
	if p.IsCompleted {
		t.Fatalf("completed too early")
	}

	second := base
	second.Position = 60
	second.Delta = 15
	p, err = repo.ApplyHeartbeat(ctx, nil, second)
	if err != nil {
		t.Fatalf("second heartbeat: %v", err)
	}
	if p.WatchTimeSeconds != 30 || p.MaxPosition != 60 {
		t.Fatalf("after second: watch=%d max=%d", p.WatchTimeSeconds, p.MaxPosition)
	}

	// Seeking backwards moves the resume point but never the high-water mark.
	third := base
	third.Position = 10
	third.Delta = 5
	p, err = repo.ApplyHeartbeat(ctx, nil, third)
	if err != nil {
		t.Fatalf("third heartbeat: %v", err)
	}
	if p.LastPosition != 10 {
		t.Fatalf("last position = %d, want 10", p.LastPosition)
	}
	if p.MaxPosition != 60 {
		t.Fatalf("max position = %d, want 60 (monotonic)", p.MaxPosition)
	}
	if p.WatchTimeSeconds != 35 {
		t.Fatalf("watch time = %d, want 35", p.WatchTimeSeconds)
	}
}

func TestApplyHeartbeatSingleRowPerPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))
	ctx := context.Background()

	studentID := uuid.New()
	videoID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := repo.ApplyHeartbeat(ctx, nil, HeartbeatInput{
			StudentID:       studentID,
			VideoID:         videoID,
			Position:        i * 10,
			Delta:           10,
			Source:          types.SourceYouTube,
			DurationSeconds: 600,
		})
		if err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&types.VideoProgress{}).
		Where("student_id = ? AND video_id = ?", studentID, videoID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows for pair = %d, want 1", count)
	}
}

func TestApplyHeartbeatConcurrentFirstHeartbeats(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))
	ctx := context.Background()

	studentID := uuid.New()
	videoID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.ApplyHeartbeat(ctx, nil, HeartbeatInput{
				StudentID:       studentID,
				VideoID:         videoID,
				Position:        n,
				Delta:           5,
				Source:          types.SourceYouTube,
				DurationSeconds: 600,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent heartbeat: %v", err)
		}
	}

	p, err := repo.GetByStudentAndVideo(ctx, nil, studentID, videoID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if p == nil {
		t.Fatalf("no row after concurrent heartbeats")
	}
	// Every delta must land exactly once.
	if p.WatchTimeSeconds != workers*5 {
		t.Fatalf("watch time = %d, want %d (no lost updates)", p.WatchTimeSeconds, workers*5)
	}

	var count int64
	if err := db.Model(&types.VideoProgress{}).
		Where("student_id = ? AND video_id = ?", studentID, videoID).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows for pair = %d, want 1", count)
	}
}

func TestApplyHeartbeatDriveWatchTimeCapped(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))
	ctx := context.Background()

	studentID := uuid.New()
	videoID := uuid.New()

	in := HeartbeatInput{
		StudentID:       studentID,
		VideoID:         videoID,
		Position:        0,
		Delta:           15,
		Source:          types.SourceDrive,
		DurationSeconds: 40,
	}

	var p *types.VideoProgress
	var err error
	for i := 0; i < 4; i++ {
		p, err = repo.ApplyHeartbeat(ctx, nil, in)
		if err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}
	if p.WatchTimeSeconds != 40 {
		t.Fatalf("watch time = %d, want capped at duration 40", p.WatchTimeSeconds)
	}
	if !p.IsCompleted {
		t.Fatalf("drive video at full watch time should be completed")
	}
}

func TestApplyHeartbeatCompletionOneWay(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))
	ctx := context.Background()

	studentID := uuid.New()
	videoID := uuid.New()

	base := HeartbeatInput{
		StudentID:       studentID,
		VideoID:         videoID,
		Source:          types.SourceYouTube,
		DurationSeconds: 100,
	}

	over := base
	over.Position = 95
	over.Delta = 15
	p, err := repo.ApplyHeartbeat(ctx, nil, over)
	if err != nil {
		t.Fatalf("completing heartbeat: %v", err)
	}
	if !p.IsCompleted {
		t.Fatalf("position 95/100 should complete")
	}

	// A later rewatch from the start must not clear the flag.
	rewatch := base
	rewatch.Position = 3
	rewatch.Delta = 3
	p, err = repo.ApplyHeartbeat(ctx, nil, rewatch)
	if err != nil {
		t.Fatalf("rewatch heartbeat: %v", err)
	}
	if !p.IsCompleted {
		t.Fatalf("is_completed regressed on rewatch")
	}
	if p.MaxPosition != 95 {
		t.Fatalf("max position = %d, want 95", p.MaxPosition)
	}
}

func TestApplyHeartbeatUnknownDurationNeverCompletes(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))
	ctx := context.Background()

	p, err := repo.ApplyHeartbeat(ctx, nil, HeartbeatInput{
		StudentID:       uuid.New(),
		VideoID:         uuid.New(),
		Position:        5000,
		Delta:           15,
		Source:          types.SourceYouTube,
		DurationSeconds: 0,
	})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if p.IsCompleted {
		t.Fatalf("completion fired with unknown duration")
	}
}

func TestGetByStudentAndVideoMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepo(db, newTestLogger(t))

	p, err := repo.GetByStudentAndVideo(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for missing pair, got %+v", p)
	}
}

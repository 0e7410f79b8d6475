package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/internal/types"
)

func TestExportVideoCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.seedUser(t, types.RoleTeacher, "Prof Rao", "rao@college.edu", "")
	asha := env.seedUser(t, types.RoleStudent, "Asha \"Ace\" Rao", "asha@x.com", "A")
	video := env.seedVideo(t, teacher.ID, "Routing Basics", types.SourceYouTube, 200)

	if _, err := env.tracking.RecordHeartbeat(ctx, asha.ID, HeartbeatInput{VideoID: video.ID, LastPosition: 190, Delta: 15}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	export, err := env.exports.ExportVideoCSV(ctx, teacher, video.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.Filename != "Routing Basics-attendance.csv" {
		t.Fatalf("filename = %q", export.Filename)
	}

	lines := strings.Split(strings.TrimRight(export.Content, "\n"), "\n")
	if lines[0] != "Name,Email,Dept,Group,College,Watch Time (s),Completion %,Completed" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	// Embedded quotes double, numerics stay bare, the flag renders Yes/No.
	if !strings.Contains(lines[1], `"Asha ""Ace"" Rao"`) {
		t.Fatalf("name not quoted/escaped: %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",15,95,Yes") {
		t.Fatalf("row tail wrong: %q", lines[1])
	}
}

func TestExportClassroomCSVWatchedLectures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.seedUser(t, types.RoleTeacher, "Prof Rao", "rao@college.edu", "")
	asha := env.seedUser(t, types.RoleStudent, "Asha", "asha@x.com", "A")
	env.seedUser(t, types.RoleStudent, "Idle Ivan", "ivan@x.com", "")

	v1 := env.seedVideo(t, teacher.ID, "Lecture 1", types.SourceYouTube, 100)
	v2 := env.seedVideo(t, teacher.ID, "Lecture 2", types.SourceYouTube, 100)

	// Repeat clicks collapse to one distinct title each.
	for _, id := range []uuid.UUID{v1.ID, v1.ID, v2.ID} {
		if _, err := env.tracking.RecordClick(ctx, asha.ID, id, nil); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	export, err := env.exports.ExportClassroomCSV(ctx, teacher)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.Filename != "Classroom-Overview.csv" {
		t.Fatalf("filename = %q", export.Filename)
	}

	lines := strings.Split(strings.TrimRight(export.Content, "\n"), "\n")
	if lines[0] != "Name,Email,Dept,College,Group,Total Watch Time (s),Videos Completed,Completion %,Watched Lectures" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 students", len(lines))
	}

	var ashaLine, idleLine string
	for _, line := range lines[1:] {
		if strings.Contains(line, "asha@x.com") {
			ashaLine = line
		}
		if strings.Contains(line, "ivan@x.com") {
			idleLine = line
		}
	}
	if !strings.Contains(ashaLine, `"Lecture 1 | Lecture 2"`) {
		t.Fatalf("watched lectures wrong: %q", ashaLine)
	}
	// Missing profile fields render as the dash placeholder.
	if !strings.Contains(idleLine, `"-"`) {
		t.Fatalf("idle row missing placeholders: %q", idleLine)
	}
	if !strings.HasSuffix(idleLine, `,""`) {
		t.Fatalf("idle watched lectures should be empty: %q", idleLine)
	}
}

func TestExportClicksCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.seedUser(t, types.RoleTeacher, "Prof Rao", "rao@college.edu", "")
	asha := env.seedUser(t, types.RoleStudent, "Asha", "asha@x.com", "A")
	video := env.seedVideo(t, teacher.ID, "Routing Basics", types.SourceYouTube, 200)

	for i := 0; i < 3; i++ {
		if _, err := env.tracking.RecordClick(ctx, asha.ID, video.ID, nil); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	export, err := env.exports.ExportClicksCSV(ctx, teacher, video.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.Filename != "Routing Basics-clicks.csv" {
		t.Fatalf("filename = %q", export.Filename)
	}

	lines := strings.Split(strings.TrimRight(export.Content, "\n"), "\n")
	if lines[0] != "Name,Email,Group,Clicks,First Click,Last Click" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 student", len(lines))
	}
	if !strings.Contains(lines[1], ",3,") {
		t.Fatalf("click count missing: %q", lines[1])
	}

	_, err = env.exports.ExportClicksCSV(ctx, teacher, uuid.New())
	wantAPIError(t, err, "not_found")
}

func TestExportAllClicksCSVGroupsPerPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.seedUser(t, types.RoleTeacher, "Prof Rao", "rao@college.edu", "")
	asha := env.seedUser(t, types.RoleStudent, "Asha", "asha@x.com", "A")
	vik := env.seedUser(t, types.RoleStudent, "Vik", "vik@x.com", "B")

	v1 := env.seedVideo(t, teacher.ID, "Alpha Lecture", types.SourceYouTube, 100)
	v2 := env.seedVideo(t, teacher.ID, "Beta Lecture", types.SourceYouTube, 100)

	clicks := []struct {
		student uuid.UUID
		video   uuid.UUID
	}{
		{vik.ID, v2.ID},
		{asha.ID, v1.ID},
		{asha.ID, v1.ID},
		{asha.ID, v2.ID},
	}
	for _, c := range clicks {
		if _, err := env.tracking.RecordClick(ctx, c.student, c.video, nil); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	export, err := env.exports.ExportAllClicksCSV(ctx, teacher)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimRight(export.Content, "\n"), "\n")
	if lines[0] != "Video,Name,Email,Group,Clicks,First Click,Last Click" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3 pairs", len(lines))
	}
	// Ordered by title then student name.
	if !strings.HasPrefix(lines[1], `"Alpha Lecture","Asha"`) {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], `"Beta Lecture","Asha"`) {
		t.Fatalf("row 2 = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], `"Beta Lecture","Vik"`) {
		t.Fatalf("row 3 = %q", lines[3])
	}
	// Asha clicked Alpha twice; the pair rolls up.
	if !strings.Contains(lines[1], ",2,") {
		t.Fatalf("pair rollup wrong: %q", lines[1])
	}

	student := env.seedUser(t, types.RoleStudent, "Nosy", "nosy@x.com", "")
	if _, err := env.exports.ExportAllClicksCSV(ctx, student); err == nil {
		t.Fatalf("student export allowed")
	}
}

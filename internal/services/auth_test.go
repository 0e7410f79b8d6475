package services

import (
	"context"
	"strings"
	"testing"

	"github.com/classpulse/classpulse-backend/internal/types"
)

func TestAllowlistTeacherPolicy(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		email string
		want  bool
	}{
		{"exact match", "prof@college.edu", "prof@college.edu", true},
		{"exact mismatch", "prof@college.edu", "other@college.edu", false},
		{"domain suffix", "@college.edu", "anyone@college.edu", true},
		{"domain suffix mismatch", "@college.edu", "anyone@other.edu", false},
		{"star pattern", "*.staff.college.edu", "a@cs.staff.college.edu", true},
		{"case insensitive", "@college.edu", "Prof@College.EDU", true},
		{"whitespace trimmed", " prof@college.edu , @dept.edu ", "head@dept.edu", true},
		{"empty list denies all", "", "prof@college.edu", false},
		{"empty email denied", "@college.edu", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewAllowlistTeacherPolicy(tt.raw)
			if got := policy.Allow(tt.email); got != tt.want {
				t.Fatalf("Allow(%q) with list %q = %v, want %v", tt.email, tt.raw, got, tt.want)
			}
		})
	}
}

func TestRegisterTeacherAllowlisted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, token, err := env.auth.Register(ctx, RegisterInput{
		Name:     "Prof Rao",
		Email:    "rao@college.edu",
		Password: "hunter2!",
		Role:     types.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatalf("no token issued")
	}
	if len(user.ClassCode) != classCodeLength {
		t.Fatalf("class code %q, want length %d", user.ClassCode, classCodeLength)
	}
	for _, ch := range user.ClassCode {
		if !strings.ContainsRune(classCodeAlphabet, ch) {
			t.Fatalf("class code %q contains %q outside alphabet", user.ClassCode, ch)
		}
	}
	if user.Password == "hunter2!" {
		t.Fatalf("password stored in plaintext")
	}
}

func TestRegisterTeacherDenied(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.auth.Register(context.Background(), RegisterInput{
		Name:     "Impostor",
		Email:    "someone@gmail.com",
		Password: "pw",
		Role:     types.RoleTeacher,
	})
	wantAPIError(t, err, "forbidden")
}

func TestRegisterStudentNoClassCode(t *testing.T) {
	env := newTestEnv(t)

	user, _, err := env.auth.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "asha@anywhere.com",
		Password: "pw",
		Role:     types.RoleStudent,
	})
	if err != nil {
		t.Fatalf("register student: %v", err)
	}
	if user.ClassCode != "" {
		t.Fatalf("student got a class code: %q", user.ClassCode)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := RegisterInput{Name: "Asha", Email: "asha@anywhere.com", Password: "pw", Role: types.RoleStudent}
	if _, _, err := env.auth.Register(ctx, in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err := env.auth.Register(ctx, in)
	wantAPIError(t, err, "validation_error")
}

func TestLoginAndVerifyToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, _, err := env.auth.Register(ctx, RegisterInput{
		Name: "Asha", Email: "asha@anywhere.com", Password: "correct-pw", Role: types.RoleStudent,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err = env.auth.Login(ctx, "asha@anywhere.com", "wrong-pw")
	wantAPIError(t, err, "unauthorized")

	_, token, err := env.auth.Login(ctx, "Asha@Anywhere.com", "correct-pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	verified, err := env.auth.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.ID != registered.ID {
		t.Fatalf("verified user %s, want %s", verified.ID, registered.ID)
	}

	_, err = env.auth.VerifyToken(ctx, token+"tampered")
	wantAPIError(t, err, "unauthorized")
}

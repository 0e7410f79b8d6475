package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/classpulse/classpulse-backend/internal/platform/apierr"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/types"
)

// TeacherPolicy decides which identities may register as teachers. The rule
// is configuration, not code: deployments swap the allowlist without
// touching the service.
type TeacherPolicy interface {
	Allow(email string) bool
}

// AllowlistTeacherPolicy matches an email against configured entries:
// exact addresses, "@domain" suffixes, or "*suffix" patterns.
type AllowlistTeacherPolicy struct {
	entries []string
}

// NewAllowlistTeacherPolicy parses a comma-separated allowlist. An empty
// list denies all teacher registration.
func NewAllowlistTeacherPolicy(raw string) *AllowlistTeacherPolicy {
	var entries []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			entries = append(entries, part)
		}
	}
	return &AllowlistTeacherPolicy{entries: entries}
}

func (p *AllowlistTeacherPolicy) Allow(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, entry := range p.entries {
		switch {
		case strings.HasPrefix(entry, "@"):
			if strings.HasSuffix(email, entry) {
				return true
			}
		case strings.HasPrefix(entry, "*"):
			if strings.HasSuffix(email, entry[1:]) {
				return true
			}
		default:
			if email == entry {
				return true
			}
		}
	}
	return false
}

// Class codes avoid O/0/I/1 so students can read them off a whiteboard.
const classCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const classCodeLength = 6

type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	CollegeName string `json:"college_name"`
	GroupName   string `json:"group_name"`
	Department  string `json:"department"`
	Semester    int    `json:"semester"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*types.User, string, error)
	Login(ctx context.Context, email, password string) (*types.User, string, error)
	// VerifyToken parses an access token and loads its user. The rest of
	// the core trusts the role it returns without re-validating.
	VerifyToken(ctx context.Context, tokenString string) (*types.User, error)
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	teacherPolicy TeacherPolicy
	jwtSecretKey  string
	accessTTL     time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	teacherPolicy TeacherPolicy,
	jwtSecretKey string,
	accessTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		teacherPolicy: teacherPolicy,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
	}
}

func (as *authService) Register(ctx context.Context, in RegisterInput) (*types.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, "", apierr.Validation("name, email and password are required")
	}
	if in.Role != types.RoleTeacher && in.Role != types.RoleStudent {
		return nil, "", apierr.Validation("role must be teacher or student")
	}
	if in.Role == types.RoleTeacher && !as.teacherPolicy.Allow(in.Email) {
		return nil, "", apierr.Forbidden("this email is not authorized to register as a teacher")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, in.Email)
	if err != nil {
		return nil, "", apierr.Store(fmt.Errorf("check email: %w", err))
	}
	if exists {
		return nil, "", apierr.Validation("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apierr.Store(fmt.Errorf("hash password: %w", err))
	}

	semester := in.Semester
	if semester <= 0 {
		semester = 1
	}
	user := &types.User{
		Name:        in.Name,
		Email:       in.Email,
		Password:    string(hashed),
		Role:        in.Role,
		CollegeName: in.CollegeName,
		GroupName:   in.GroupName,
		Department:  in.Department,
		Semester:    semester,
	}
	if in.Role == types.RoleTeacher {
		code, err := as.generateClassCode(ctx)
		if err != nil {
			return nil, "", apierr.Store(fmt.Errorf("generate class code: %w", err))
		}
		user.ClassCode = code
	}

	if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		as.log.Error("Failed to create user", "error", err)
		return nil, "", apierr.Store(fmt.Errorf("create user: %w", err))
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return nil, "", apierr.Store(fmt.Errorf("sign token: %w", err))
	}
	as.log.Info("User registered", "user_id", user.ID, "role", user.Role)
	return user, token, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apierr.Validation("email and password are required")
	}

	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, "", apierr.Store(fmt.Errorf("lookup user: %w", err))
	}
	if len(users) == 0 {
		return nil, "", apierr.Unauthorized("invalid credentials")
	}
	user := users[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", apierr.Unauthorized("invalid credentials")
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		return nil, "", apierr.Store(fmt.Errorf("sign token: %w", err))
	}
	return user, token, nil
}

func (as *authService) VerifyToken(ctx context.Context, tokenString string) (*types.User, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierr.Unauthorized("token invalid or expired")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierr.Unauthorized("token invalid or expired")
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, apierr.Unauthorized("token invalid or expired")
	}

	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, apierr.Store(fmt.Errorf("lookup user: %w", err))
	}
	if len(users) == 0 {
		return nil, apierr.Unauthorized("user not found")
	}
	return users[0], nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(as.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) generateClassCode(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, classCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		code := make([]byte, classCodeLength)
		for i, b := range buf {
			code[i] = classCodeAlphabet[int(b)%len(classCodeAlphabet)]
		}
		exists, err := as.userRepo.ClassCodeExists(ctx, nil, string(code))
		if err != nil {
			return "", err
		}
		if !exists {
			return string(code), nil
		}
	}
}

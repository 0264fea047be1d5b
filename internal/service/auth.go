package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
	"github.com/Skotchmaster/tg_landing/internal/mykafka"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	pkg_hash "github.com/Skotchmaster/tg_landing/pkg/hash"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
	"github.com/Skotchmaster/tg_landing/pkg/tokens"
)

type AuthService struct {
	Repo       *repo.GormRepo
	Secret     []byte
	SessionTTL time.Duration
	Events     mykafka.Publisher

	now func() time.Time
}

type ClientMeta struct {
	IP        string
	UserAgent string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func (s *AuthService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) ttl() time.Duration {
	if s.SessionTTL <= 0 {
		return 24 * time.Hour
	}
	return s.SessionTTL
}

// Login verifies the password and opens a server-side session. Unknown, inactive and
// wrong-password accounts all produce ErrUnauthenticated.
func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest, meta ClientMeta) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.Repo.UserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthenticated)
		}
		return nil, err
	}
	if !user.IsActive || !pkg_hash.CheckPassword(user.PasswordHash, req.Password) {
		return nil, fmt.Errorf("invalid username or password: %w", ErrUnauthenticated)
	}

	now := s.clock()
	if n, err := s.Repo.DeleteExpiredSessions(ctx, user.ID, now); err != nil {
		l.Warn("expired_sessions_purge_failed", "user_id", user.ID, "error", err)
	} else if n > 0 {
		l.Debug("expired_sessions_purged", "user_id", user.ID, "count", n)
	}

	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl()),
		IP:        meta.IP,
		UserAgent: truncate(meta.UserAgent, 512),
	}
	if err := s.Repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := tokens.SignSession(user.ID, sess.ID, sess.ExpiresAt, s.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.Repo.DeleteSession(ctx, sessionID)
}

// SessionIDFromToken extracts the session id from a cookie value without touching the DB.
func (s *AuthService) SessionIDFromToken(token string) (string, error) {
	claims, err := tokens.SessionClaimsFromToken(token, s.Secret)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrUnauthenticated)
	}
	return claims.ID, nil
}

// Authenticate resolves a live session to its active user. Role comes from the row, so
// role changes apply on the next request.
func (s *AuthService) Authenticate(ctx context.Context, sessionID string) (*models.User, error) {
	sess, err := s.Repo.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrUnauthenticated)
		}
		return nil, err
	}
	if !sess.ExpiresAt.After(s.clock()) {
		_ = s.Repo.DeleteSession(ctx, sessionID)
		return nil, fmt.Errorf("session %s expired: %w", sessionID, ErrUnauthenticated)
	}

	user, err := s.Repo.UserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session user %d: %w", sess.UserID, ErrUnauthenticated)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %d inactive: %w", user.ID, ErrUnauthenticated)
	}
	return user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Repo.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}

// Register creates an employee account. A taken username is a validation failure.
func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Username, req.Password, models.RoleEmployee)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, strconv.FormatUint(uint64(user.ID), 10), map[string]any{
		"type":     mykafka.EventUserRegistered,
		"userId":   user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fieldError("username", "Username already exists")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.Repo.ActiveUsers(ctx)
}

func (s *AuthService) ChangeRole(ctx context.Context, id uint, req transport.RoleRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.Repo.UpdateRole(ctx, id, models.Role(req.Role))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin unless the username already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	_, err := s.createUser(ctx, username, password, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tg_landing/pkg/logging"
	"github.com/Skotchmaster/tg_landing/pkg/tokens"
)

const (
	DefaultCookieName = "sid"

	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxUsername  = "username"
	ctxSessionID = "session_id"

	RoleAdmin = "admin"
)

// Principal is the identity resolved for a live session.
type Principal struct {
	UserID   uint
	Username string
	Role     string
}

// SessionLookupFunc resolves a session id to its user. It returns an error when the
// session is unknown, expired, or belongs to an inactive account.
type SessionLookupFunc func(ctx context.Context, sessionID string) (*Principal, error)

type SessionMiddleware struct {
	Secret       []byte
	CookieName   string
	CookieSecure bool
	Lookup       SessionLookupFunc
}

func NewSessionMiddleware(secret []byte, secure bool, lookup SessionLookupFunc) *SessionMiddleware {
	return &SessionMiddleware{
		Secret:       secret,
		CookieName:   DefaultCookieName,
		CookieSecure: secure,
		Lookup:       lookup,
	}
}

type ValidatorFunc func(p *Principal) error

func (m *SessionMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireWithValidator(next, nil)
}

func (m *SessionMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireWithValidator(next, func(p *Principal) error {
		if p.Role != RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *SessionMiddleware) requireWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "session")

		cookie, err := c.Cookie(m.cookieName())
		if err != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		claims, err := tokens.SessionClaimsFromToken(cookie.Value, m.Secret)
		if err != nil {
			l.Warn("session_rejected", "status", 401, "reason", "invalid token", "error", err)
			m.clearCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		principal, err := m.Lookup(ctx, claims.ID)
		if err != nil {
			l.Warn("session_rejected", "status", 401, "reason", "session lookup failed", "error", err)
			m.clearCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		if uid, err := claims.UserID(); err != nil || uid != principal.UserID {
			l.Warn("session_rejected", "status", 401, "reason", "subject mismatch")
			m.clearCookie(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		if validator != nil {
			if err := validator(principal); err != nil {
				l.Warn("session_forbidden", "status", 403, "user_id", principal.UserID, "role", principal.Role)
				return err
			}
		}

		setUserContext(c, principal)
		c.Set(ctxSessionID, claims.ID)
		return next(c)
	}
}

func (m *SessionMiddleware) cookieName() string {
	if m.CookieName == "" {
		return DefaultCookieName
	}
	return m.CookieName
}

func (m *SessionMiddleware) clearCookie(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(m.cookieName(), "/", m.CookieSecure))
}

func setUserContext(c echo.Context, p *Principal) {
	c.Set(ctxUserID, p.UserID)
	c.Set(ctxRole, p.Role)
	c.Set(ctxUsername, p.Username)
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok && id != 0
}

func SessionID(c echo.Context) string {
	sid, _ := c.Get(ctxSessionID).(string)
	return sid
}

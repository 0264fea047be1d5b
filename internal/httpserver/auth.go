package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tg_landing/internal/service"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
	middleware "github.com/Skotchmaster/tg_landing/pkg/middleware/auth"
	"github.com/Skotchmaster/tg_landing/pkg/tokens"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(l, "login_failed", err)
	}

	res, err := h.Svc.Login(ctx, req, service.ClientMeta{IP: c.RealIP(), UserAgent: c.Request().UserAgent()})
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		return mapError(l, "login_failed", err)
	}

	c.SetCookie(tokens.CreateCookie(middleware.DefaultCookieName, res.Token, "/", res.ExpiresAt, h.CookieSecure))
	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.NewUserResponse(res.User))
}

// Logout always succeeds; an unknown or invalid cookie is simply cleared.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if cookie, err := c.Cookie(middleware.DefaultCookieName); err == nil && cookie.Value != "" {
		if sid, err := h.Svc.SessionIDFromToken(cookie.Value); err == nil {
			if err := h.Svc.Logout(ctx, sid); err != nil {
				l.Error("logout_session_delete_failed", "error", err)
			}
		}
	}

	c.SetCookie(tokens.DeleteCookie(middleware.DefaultCookieName, "/", h.CookieSecure))
	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	uid, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.Svc.CurrentUser(ctx, uid)
	if err != nil {
		return mapError(l, "me_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(l, "register_failed", err)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return mapError(l, "register_failed", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, transport.NewUserResponse(user))
}

func (h *AuthHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return mapError(l, "list_users_failed", err)
	}
	out := make([]transport.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, transport.NewUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHTTP) ChangeRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.change_role")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		l.Warn("change_role_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req transport.RoleRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(l, "change_role_failed", err)
	}

	user, err := h.Svc.ChangeRole(ctx, uint(id), req)
	if err != nil {
		return mapError(l, "change_role_failed", err)
	}

	l.Info("change_role_success", "user_id", user.ID, "role", user.Role)
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/tg_landing/internal/metrics"
	middleware "github.com/Skotchmaster/tg_landing/pkg/middleware/auth"
	"github.com/Skotchmaster/tg_landing/pkg/middleware/csrf"
	"github.com/Skotchmaster/tg_landing/pkg/middleware/ratelimit"
)

type Deps struct {
	Auth     *AuthHTTP
	Pixel    *PixelHTTP
	Channels *ChannelHTTP
	Tracking *TrackingHTTP

	SessionSecret []byte
	CookieSecure  bool

	TrackLimiter *ratelimit.Store
	// CSRF is nil when the double-submit check is disabled.
	CSRF *csrf.Config

	Gatherer prometheus.Gatherer
	// UploadDir is served at /uploads when logos are stored locally.
	UploadDir string
	Ready     func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", readyHandler(d.Ready))
	if d.Gatherer != nil {
		e.GET("/metrics", metrics.Handler(d.Gatherer))
	}
	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}

	sessions := middleware.NewSessionMiddleware(d.SessionSecret, d.CookieSecure, lookupSession(d.Auth))

	api := e.Group("/api")
	if d.CSRF != nil {
		cfg := *d.CSRF
		if cfg.Skipper == nil {
			cfg.Skipper = func(c echo.Context) bool {
				return strings.HasSuffix(c.Path(), "/track-subscribe")
			}
		}
		api.Use(csrf.Middleware(cfg))
	}

	api.POST("/login", d.Auth.Login)
	api.POST("/logout", d.Auth.Logout)
	api.GET("/user", d.Auth.Me, sessions.RequireAuth)

	admin := api.Group("", sessions.RequireAdmin)
	admin.POST("/register", d.Auth.Register)
	admin.GET("/users", d.Auth.ListUsers)
	admin.POST("/users/:id/role", d.Auth.ChangeRole)

	authed := api.Group("", sessions.RequireAuth)
	authed.GET("/pixel-settings", d.Pixel.Get)
	authed.POST("/pixel-settings", d.Pixel.Save)

	channels := api.Group("/channels")
	channels.GET("/search", d.Channels.SearchChannels, sessions.RequireAuth)
	channels.GET("", d.Channels.GetChannels, sessions.RequireAuth)
	channels.POST("", d.Channels.CreateChannel, sessions.RequireAuth)
	channels.GET("/:id", d.Channels.GetChannel)
	channels.PATCH("/:id", d.Channels.PatchChannel, sessions.RequireAuth)
	channels.DELETE("/:id", d.Channels.DeleteChannel, sessions.RequireAuth)

	track := []echo.MiddlewareFunc{}
	if d.TrackLimiter != nil {
		track = append(track, ratelimit.PerIP(d.TrackLimiter))
	}
	channels.POST("/:id/track-subscribe", d.Tracking.TrackSubscribe, track...)
}

func readyHandler(ready func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ready == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
		}
		return c.NoContent(http.StatusOK)
	}
}

// lookupSession resolves the session row and reads the role from the user at request time.
func lookupSession(a *AuthHTTP) middleware.SessionLookupFunc {
	return func(ctx context.Context, sessionID string) (*middleware.Principal, error) {
		user, err := a.Svc.Authenticate(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{UserID: user.ID, Username: user.Username, Role: string(user.Role)}, nil
	}
}

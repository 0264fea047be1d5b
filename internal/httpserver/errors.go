package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tg_landing/internal/conversions"
	"github.com/Skotchmaster/tg_landing/internal/service"
)

// mapError logs err under event and converts it to the HTTP error the client receives.
func mapError(l *slog.Logger, event string, err error) error {
	var (
		verr  *service.ValidationError
		upErr *conversions.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"message": "invalid body", "fields": verr.Fields})
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	case errors.Is(err, service.ErrUnauthenticated):
		l.Warn(event, "status", http.StatusUnauthorized, "reason", "unauthenticated", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConfiguration):
		l.Error(event, "status", http.StatusInternalServerError, "reason", "pixel settings not configured", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"error": "Pixel settings not configured"})
	case errors.As(err, &upErr):
		l.Error(event, "status", http.StatusInternalServerError, "reason", "upstream rejected event", "upstream_status", upErr.StatusCode, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"error": "Failed to track event", "details": upErr.Body})
	default:
		l.Error(event, "status", http.StatusInternalServerError, "reason", "internal", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func invalidBody(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
}

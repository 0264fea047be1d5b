package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tg_landing/internal/service"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
	middleware "github.com/Skotchmaster/tg_landing/pkg/middleware/auth"
)

type PixelHTTP struct {
	Svc *service.PixelService
}

// Get answers JSON null when the user has not saved settings yet.
func (h *PixelHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pixel.get")

	uid, _ := middleware.UserID(c)
	ps, err := h.Svc.Get(ctx, uid)
	if err != nil {
		return mapError(l, "pixel_get_failed", err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *PixelHTTP) Save(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "pixel.save")

	var req transport.PixelSettingsRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(l, "pixel_save_failed", err)
	}

	uid, _ := middleware.UserID(c)
	ps, err := h.Svc.Upsert(ctx, uid, req)
	if err != nil {
		return mapError(l, "pixel_save_failed", err)
	}

	l.Info("pixel_save_success", "user_id", uid)
	return c.JSON(http.StatusOK, ps)
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tg_landing/internal/service"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
)

type TrackingHTTP struct {
	Svc *service.TrackingService
}

func (h *TrackingHTTP) TrackSubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	channelUUID := c.Param("id")
	l := logging.FromContext(ctx).With("handler", "tracking.subscribe", "uuid", channelUUID)

	if err := h.Svc.TrackSubscribe(ctx, channelUUID, visitorFrom(c)); err != nil {
		return mapError(l, "track_subscribe_failed", err)
	}

	l.Info("track_subscribe_success")
	return c.JSON(http.StatusOK, transport.TrackResponse{Success: true})
}

func visitorFrom(c echo.Context) service.Visitor {
	req := c.Request()
	v := service.Visitor{
		IP:        c.RealIP(),
		UserAgent: req.UserAgent(),
		Referer:   req.Referer(),
	}
	if ck, err := c.Cookie("_fbp"); err == nil {
		v.FBP = ck.Value
	}
	if ck, err := c.Cookie("_fbc"); err == nil {
		v.FBC = ck.Value
	}
	return v
}

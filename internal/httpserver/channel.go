package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tg_landing/internal/service"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	"github.com/Skotchmaster/tg_landing/internal/util"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
	middleware "github.com/Skotchmaster/tg_landing/pkg/middleware/auth"
)

const DefaultMaxLogoBytes int64 = 5 << 20

type ChannelHTTP struct {
	Svc          *service.ChannelService
	MaxLogoBytes int64
}

func (h *ChannelHTTP) maxLogo() int64 {
	if h.MaxLogoBytes <= 0 {
		return DefaultMaxLogoBytes
	}
	return h.MaxLogoBytes
}

func (h *ChannelHTTP) CreateChannel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel.create")

	var req transport.CreateChannelRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(l, "channel_create_failed", err)
	}

	logo, err := h.readLogo(c)
	if err != nil {
		return mapError(l, "channel_create_failed", err)
	}

	uid, _ := middleware.UserID(c)
	ch, err := h.Svc.Create(ctx, uid, req, logo)
	if err != nil {
		return mapError(l, "channel_create_failed", err)
	}

	l.Info("channel_create_success", "channel_id", ch.ID, "uuid", ch.UUID)
	return c.JSON(http.StatusCreated, ch)
}

func (h *ChannelHTTP) GetChannels(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel.list")

	uid, _ := middleware.UserID(c)
	channels, err := h.Svc.List(ctx, uid)
	if err != nil {
		return mapError(l, "channel_list_failed", err)
	}
	return c.JSON(http.StatusOK, channels)
}

func (h *ChannelHTTP) SearchChannels(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	uid, _ := middleware.UserID(c)
	channels, err := h.Svc.Search(ctx, uid, c.QueryParam("q"), offset, limit)
	if err != nil {
		return mapError(l, "channel_search_failed", err)
	}
	return c.JSON(http.StatusOK, channels)
}

// GetChannel is the public landing view, addressed by uuid.
func (h *ChannelHTTP) GetChannel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel.get")

	view, err := h.Svc.GetPublic(ctx, c.Param("id"))
	if err != nil {
		return mapError(l, "channel_get_failed", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *ChannelHTTP) PatchChannel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel.patch")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		l.Warn("channel_patch_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	form, err := c.FormParams()
	if err != nil {
		return invalidBody(l, "channel_patch_failed", err)
	}
	req, err := patchFromForm(form)
	if err != nil {
		return mapError(l, "channel_patch_failed", err)
	}

	logo, err := h.readLogo(c)
	if err != nil {
		return mapError(l, "channel_patch_failed", err)
	}

	uid, _ := middleware.UserID(c)
	ch, err := h.Svc.Update(ctx, uid, uint(id), req, logo)
	if err != nil {
		return mapError(l, "channel_patch_failed", err)
	}

	l.Info("channel_patch_success", "channel_id", ch.ID)
	return c.JSON(http.StatusOK, ch)
}

func (h *ChannelHTTP) DeleteChannel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel.delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		l.Warn("channel_delete_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	uid, _ := middleware.UserID(c)
	if err := h.Svc.Delete(ctx, uid, uint(id)); err != nil {
		return mapError(l, "channel_delete_failed", err)
	}

	l.Info("channel_delete_success", "channel_id", id)
	return c.NoContent(http.StatusNoContent)
}

// readLogo returns nil when the request carries no "logo" part.
func (h *ChannelHTTP) readLogo(c echo.Context) (*transport.LogoUpload, error) {
	fh, err := c.FormFile("logo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, logoError("could not read upload")
	}
	if fh.Size > h.maxLogo() {
		return nil, logoError(fmt.Sprintf("file must be at most %d bytes", h.maxLogo()))
	}

	data, err := readPart(fh, h.maxLogo())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, logoError("file is empty")
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, logoError("only image uploads are allowed")
	}

	return &transport.LogoUpload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, logoError(fmt.Sprintf("file must be at most %d bytes", limit))
	}
	return data, nil
}

func logoError(msg string) error {
	return &service.ValidationError{Fields: map[string]string{"logo": msg}}
}

// patchFromForm keeps presence information: a key sent with an empty value is distinct
// from a key that was not sent.
func patchFromForm(form map[string][]string) (transport.PatchChannelRequest, error) {
	var req transport.PatchChannelRequest
	get := func(key string) *string {
		vals, ok := form[key]
		if !ok || len(vals) == 0 {
			return nil
		}
		v := vals[0]
		return &v
	}

	req.Name = get("name")
	req.InviteLink = get("inviteLink")
	req.Description = get("description")
	req.CustomPixelID = get("customPixelId")
	req.CustomAccessToken = get("customAccessToken")

	if raw := get("subscribers"); raw != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil {
			return req, &service.ValidationError{Fields: map[string]string{"subscribers": "must be an integer"}}
		}
		req.Subscribers = &n
	}
	return req, nil
}

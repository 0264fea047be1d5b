package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/cache"
	"github.com/Skotchmaster/tg_landing/internal/metrics"
	"github.com/Skotchmaster/tg_landing/internal/models"
	"github.com/Skotchmaster/tg_landing/internal/mykafka"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/internal/transport"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
)

type LogoStorage interface {
	SaveLogo(ctx context.Context, filename, contentType string, data []byte) (string, error)
	RemoveLogo(ctx context.Context, url string) error
}

type ChannelIndexer interface {
	IndexChannel(ctx context.Context, ch *models.Channel) error
	RemoveChannel(ctx context.Context, uuid string) error
	SearchChannels(ctx context.Context, ownerID uint, query string, from, size int) ([]string, error)
}

type ChannelService struct {
	Repo    *repo.GormRepo
	Logos   LogoStorage
	Cache   cache.ChannelCache
	Index   ChannelIndexer
	Events  mykafka.Publisher
	Metrics *metrics.Metrics
}

func (s *ChannelService) channelCache() cache.ChannelCache {
	if s.Cache == nil {
		return cache.Nop{}
	}
	return s.Cache
}

func (s *ChannelService) Create(ctx context.Context, ownerID uint, req transport.CreateChannelRequest, logo *transport.LogoUpload) (*models.Channel, error) {
	l := logging.FromContext(ctx).With("svc", "channel.create")

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if logo == nil {
		return nil, fieldError("logo", "This field is required")
	}

	logoURL, err := s.Logos.SaveLogo(ctx, logo.Filename, logo.ContentType, logo.Data)
	if err != nil {
		return nil, fmt.Errorf("store logo: %w", err)
	}
	s.Metrics.LogoUploaded()

	ch := &models.Channel{
		UUID:              uuid.NewString(),
		Name:              req.Name,
		Subscribers:       req.Subscribers,
		Logo:              logoURL,
		InviteLink:        req.InviteLink,
		Description:       optional(req.Description),
		CustomPixelID:     optional(req.CustomPixelID),
		CustomAccessToken: optional(req.CustomAccessToken),
		UserID:            ownerID,
		Status:            models.ChannelActive,
	}
	if err := s.Repo.CreateChannel(ctx, ch); err != nil {
		if rmErr := s.Logos.RemoveLogo(ctx, logoURL); rmErr != nil {
			l.Warn("logo_cleanup_failed", "logo", logoURL, "error", rmErr)
		}
		return nil, fmt.Errorf("create channel: %w", err)
	}

	s.index(ctx, ch)
	s.publishChannel(ctx, mykafka.EventChannelCreated, ch)
	return ch, nil
}

func (s *ChannelService) List(ctx context.Context, ownerID uint) ([]models.Channel, error) {
	return s.Repo.ChannelsByOwner(ctx, ownerID)
}

// GetPublic serves the landing page view through the cache.
func (s *ChannelService) GetPublic(ctx context.Context, channelUUID string) (*transport.PublicChannel, error) {
	if cached, ok := s.channelCache().Get(ctx, channelUUID); ok {
		s.Metrics.CacheLookup(true)
		return cached, nil
	}
	s.Metrics.CacheLookup(false)

	ch, err := s.Repo.ActiveChannelByUUID(ctx, channelUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("channel %s: %w", channelUUID, ErrNotFound)
		}
		return nil, err
	}

	view := transport.NewPublicChannel(ch)
	s.channelCache().Set(ctx, channelUUID, &view)

	// A delete or update may have committed and invalidated between the read and
	// the fill. Check the row again and drop the entry if it moved on.
	cur, err := s.Repo.ActiveChannelByUUID(ctx, channelUUID)
	if err != nil || !cur.UpdatedAt.Equal(ch.UpdatedAt) {
		s.channelCache().Invalidate(ctx, channelUUID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", channelUUID, ErrNotFound)
		}
		view = transport.NewPublicChannel(cur)
	}
	return &view, nil
}

// Update merges present fields into the caller's channel. Channels of other users are
// reported as not found.
func (s *ChannelService) Update(ctx context.Context, ownerID, id uint, req transport.PatchChannelRequest, logo *transport.LogoUpload) (*models.Channel, error) {
	l := logging.FromContext(ctx).With("svc", "channel.update", "channel_id", id)

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Empty() && logo == nil {
		return nil, fieldError("body", "nothing to update")
	}

	ch, err := s.Repo.OwnedActiveChannel(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	if req.Name != nil {
		ch.Name = *req.Name
	}
	if req.Subscribers != nil {
		ch.Subscribers = *req.Subscribers
	}
	if req.InviteLink != nil {
		ch.InviteLink = *req.InviteLink
	}
	if req.Description != nil {
		ch.Description = optional(*req.Description)
	}
	if req.CustomPixelID != nil {
		ch.CustomPixelID = optional(*req.CustomPixelID)
	}
	if req.CustomAccessToken != nil {
		ch.CustomAccessToken = optional(*req.CustomAccessToken)
	}

	oldLogo := ""
	if logo != nil {
		newURL, err := s.Logos.SaveLogo(ctx, logo.Filename, logo.ContentType, logo.Data)
		if err != nil {
			return nil, fmt.Errorf("store logo: %w", err)
		}
		s.Metrics.LogoUploaded()
		oldLogo, ch.Logo = ch.Logo, newURL
	}

	if err := s.Repo.SaveChannel(ctx, ch); err != nil {
		if oldLogo != "" {
			_ = s.Logos.RemoveLogo(ctx, ch.Logo)
		}
		return nil, fmt.Errorf("save channel: %w", err)
	}

	if oldLogo != "" {
		if err := s.Logos.RemoveLogo(ctx, oldLogo); err != nil {
			l.Warn("old_logo_remove_failed", "logo", oldLogo, "error", err)
		}
	}

	s.channelCache().Invalidate(ctx, ch.UUID)
	s.index(ctx, ch)
	s.publishChannel(ctx, mykafka.EventChannelUpdated, ch)
	return ch, nil
}

// Delete marks the channel deleted. Removing the logo file is best-effort.
func (s *ChannelService) Delete(ctx context.Context, ownerID, id uint) error {
	l := logging.FromContext(ctx).With("svc", "channel.delete", "channel_id", id)

	ch, err := s.Repo.OwnedActiveChannel(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return err
	}

	if err := s.Repo.MarkChannelDeleted(ctx, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return err
	}

	if err := s.Logos.RemoveLogo(ctx, ch.Logo); err != nil {
		l.Warn("logo_remove_failed", "logo", ch.Logo, "error", err)
	}

	s.channelCache().Invalidate(ctx, ch.UUID)
	if s.Index != nil {
		if err := s.Index.RemoveChannel(ctx, ch.UUID); err != nil {
			l.Warn("search_unindex_failed", "uuid", ch.UUID, "error", err)
		}
	}
	ch.Status = models.ChannelDeleted
	s.publishChannel(ctx, mykafka.EventChannelDeleted, ch)
	return nil
}

// Search matches name and description of the caller's channels. Elasticsearch is used
// when configured; on failure or without it the database is queried. An empty q pages
// through all of them.
func (s *ChannelService) Search(ctx context.Context, ownerID uint, q string, offset, limit int) ([]models.Channel, error) {
	q = strings.TrimSpace(q)
	if q != "" && s.Index != nil {
		uuids, err := s.Index.SearchChannels(ctx, ownerID, q, offset, limit)
		if err == nil {
			return s.Repo.ChannelsByUUIDs(ctx, ownerID, uuids)
		}
		logging.FromContext(ctx).Warn("search_index_failed", "fallback", "sql", "error", err)
	}
	return s.Repo.SearchOwnerChannels(ctx, ownerID, q, offset, limit)
}

func (s *ChannelService) index(ctx context.Context, ch *models.Channel) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexChannel(ctx, ch); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "uuid", ch.UUID, "error", err)
	}
}

func (s *ChannelService) publishChannel(ctx context.Context, eventType string, ch *models.Channel) {
	publish(ctx, s.Events, ch.UUID, map[string]any{
		"type":      eventType,
		"channelId": ch.ID,
		"uuid":      ch.UUID,
		"userId":    ch.UserID,
		"name":      ch.Name,
		"status":    ch.Status,
	})
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

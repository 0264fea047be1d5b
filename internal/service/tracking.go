package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/conversions"
	"github.com/Skotchmaster/tg_landing/internal/metrics"
	"github.com/Skotchmaster/tg_landing/internal/models"
	"github.com/Skotchmaster/tg_landing/internal/mykafka"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
)

const (
	EventContact        = "Contact"
	actionSourceWebsite = "website"
	contentTypeChannel  = "channel"

	sourceChannel = "channel"
	sourceUser    = "user_default"
)

type EventSender interface {
	SendEvents(ctx context.Context, creds conversions.Credentials, events ...conversions.Event) error
}

// Visitor is the request context forwarded to the conversions endpoint.
type Visitor struct {
	IP        string
	UserAgent string
	Referer   string
	FBP       string
	FBC       string
}

type TrackingService struct {
	Repo    *repo.GormRepo
	Sender  EventSender
	Events  mykafka.Publisher
	Metrics *metrics.Metrics

	now func() time.Time
}

// TrackSubscribe reports a "Contact" conversion for the channel. Channel credentials win
// only when both id and token are set; otherwise the owner's defaults are used.
func (s *TrackingService) TrackSubscribe(ctx context.Context, channelUUID string, v Visitor) error {
	l := logging.FromContext(ctx).With("svc", "tracking.subscribe", "uuid", channelUUID)

	ch, err := s.Repo.ActiveChannelByUUID(ctx, channelUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.Metrics.ConversionDispatched(metrics.ResultNotFound)
			return fmt.Errorf("channel %s: %w", channelUUID, ErrNotFound)
		}
		s.Metrics.ConversionDispatched(metrics.ResultError)
		return err
	}

	creds, source, err := s.resolveCredentials(ctx, ch)
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			s.Metrics.ConversionDispatched(metrics.ResultNotConfigured)
		} else {
			s.Metrics.ConversionDispatched(metrics.ResultError)
		}
		return err
	}
	l.Debug("credentials_resolved", "source", source)

	if err := s.Sender.SendEvents(ctx, creds, s.buildEvent(ch, v)); err != nil {
		var upErr *conversions.UpstreamError
		if errors.As(err, &upErr) {
			s.Metrics.ConversionDispatched(metrics.ResultUpstream)
		} else {
			s.Metrics.ConversionDispatched(metrics.ResultError)
		}
		return fmt.Errorf("send conversion: %w", err)
	}
	s.Metrics.ConversionDispatched(metrics.ResultSuccess)

	publish(ctx, s.Events, ch.UUID, map[string]any{
		"type":   mykafka.EventConversionTracked,
		"uuid":   ch.UUID,
		"userId": ch.UserID,
		"source": source,
	})
	return nil
}

func (s *TrackingService) resolveCredentials(ctx context.Context, ch *models.Channel) (conversions.Credentials, string, error) {
	if ch.HasCustomPixel() {
		return conversions.Credentials{PixelID: *ch.CustomPixelID, AccessToken: *ch.CustomAccessToken}, sourceChannel, nil
	}

	ps, err := s.Repo.PixelSettingsByUser(ctx, ch.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversions.Credentials{}, "", fmt.Errorf("channel %s owner %d: %w", ch.UUID, ch.UserID, ErrConfiguration)
		}
		return conversions.Credentials{}, "", err
	}
	if ps.PixelID == "" || ps.AccessToken == "" {
		return conversions.Credentials{}, "", fmt.Errorf("channel %s owner %d: %w", ch.UUID, ch.UserID, ErrConfiguration)
	}
	return conversions.Credentials{PixelID: ps.PixelID, AccessToken: ps.AccessToken}, sourceUser, nil
}

func (s *TrackingService) buildEvent(ch *models.Channel, v Visitor) conversions.Event {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return conversions.Event{
		EventName:      EventContact,
		EventTime:      now().Unix(),
		ActionSource:   actionSourceWebsite,
		EventSourceURL: v.Referer,
		UserData: conversions.UserData{
			ClientIPAddress: v.IP,
			ClientUserAgent: v.UserAgent,
			FBP:             v.FBP,
			FBC:             v.FBC,
		},
		CustomData: conversions.CustomData{
			ContentName: ch.Name,
			ContentType: contentTypeChannel,
			ContentIDs:  []string{ch.UUID},
		},
	}
}

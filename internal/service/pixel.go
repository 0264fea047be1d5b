package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/internal/transport"
)

type PixelService struct {
	Repo *repo.GormRepo
}

// Get returns nil without error when the user has no settings yet.
func (s *PixelService) Get(ctx context.Context, userID uint) (*models.PixelSettings, error) {
	ps, err := s.Repo.PixelSettingsByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ps, nil
}

func (s *PixelService) Upsert(ctx context.Context, userID uint, req transport.PixelSettingsRequest) (*models.PixelSettings, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.Repo.UpsertPixelSettings(ctx, userID, req.PixelID, req.AccessToken)
}

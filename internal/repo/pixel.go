package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
)

func (r *GormRepo) PixelSettingsByUser(ctx context.Context, userID uint) (*models.PixelSettings, error) {
	var ps models.PixelSettings
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&ps).Error; err != nil {
		return nil, err
	}
	return &ps, nil
}

// UpsertPixelSettings updates the user's row when it exists and creates it otherwise.
func (r *GormRepo) UpsertPixelSettings(ctx context.Context, userID uint, pixelID, accessToken string) (*models.PixelSettings, error) {
	var out *models.PixelSettings
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ps models.PixelSettings
		err := tx.Where("user_id = ?", userID).First(&ps).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ps = models.PixelSettings{UserID: userID, PixelID: pixelID, AccessToken: accessToken}
			if err := tx.Create(&ps).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			ps.PixelID = pixelID
			ps.AccessToken = accessToken
			if err := tx.Save(&ps).Error; err != nil {
				return err
			}
		}
		out = &ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

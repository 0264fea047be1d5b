package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
)

func (r *GormRepo) CreateChannel(ctx context.Context, ch *models.Channel) error {
	if ch.Status == "" {
		ch.Status = models.ChannelActive
	}
	return r.DB.WithContext(ctx).Create(ch).Error
}

func (r *GormRepo) ActiveChannelByUUID(ctx context.Context, uuid string) (*models.Channel, error) {
	var ch models.Channel
	if err := r.DB.WithContext(ctx).Scopes(models.Active).Where("uuid = ?", uuid).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

// OwnedActiveChannel returns gorm.ErrRecordNotFound for channels of other users too.
func (r *GormRepo) OwnedActiveChannel(ctx context.Context, id, ownerID uint) (*models.Channel, error) {
	var ch models.Channel
	if err := r.DB.WithContext(ctx).Scopes(models.Active).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *GormRepo) ChannelsByOwner(ctx context.Context, ownerID uint) ([]models.Channel, error) {
	items := make([]models.Channel, 0)
	if err := r.DB.WithContext(ctx).Scopes(models.Active).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) SaveChannel(ctx context.Context, ch *models.Channel) error {
	return r.DB.WithContext(ctx).Save(ch).Error
}

// MarkChannelDeleted flips the lifecycle status; the row is retained.
func (r *GormRepo) MarkChannelDeleted(ctx context.Context, id, ownerID uint) error {
	res := r.DB.WithContext(ctx).Model(&models.Channel{}).Scopes(models.Active).
		Where("id = ? AND user_id = ?", id, ownerID).
		Update("status", models.ChannelDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SearchOwnerChannels pages through the owner's active channels. An empty q matches all of them.
func (r *GormRepo) SearchOwnerChannels(ctx context.Context, ownerID uint, q string, offset, limit int) ([]models.Channel, error) {
	items := make([]models.Channel, 0)
	tx := r.DB.WithContext(ctx).Scopes(models.Active).Where("user_id = ?", ownerID)
	if q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		tx = tx.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if err := tx.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ChannelsByUUIDs keeps the order of uuids and skips ones that are missing, deleted or foreign.
func (r *GormRepo) ChannelsByUUIDs(ctx context.Context, ownerID uint, uuids []string) ([]models.Channel, error) {
	out := make([]models.Channel, 0, len(uuids))
	if len(uuids) == 0 {
		return out, nil
	}
	var found []models.Channel
	if err := r.DB.WithContext(ctx).Scopes(models.Active).
		Where("user_id = ? AND uuid IN ?", ownerID, uuids).
		Find(&found).Error; err != nil {
		return nil, err
	}
	byUUID := make(map[string]models.Channel, len(found))
	for _, ch := range found {
		byUUID[ch.UUID] = ch
	}
	for _, id := range uuids {
		if ch, ok := byUUID[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package repo

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/tg_landing/internal/models"
)

func (r *GormRepo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUserIfNotExists inserts u unless the username is taken, in which case ErrDuplicate is returned.
func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", u.Username).FirstOrCreate(u)
	if tx.Error != nil {
		if isDuplicate(tx.Error) {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
	}
	return nil
}

func (r *GormRepo) ActiveUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) UpdateRole(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	user, err := r.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/avery-hart/librarysysbackend/models"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	err := r.db.Create(user).Error
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrEmailTaken
	}
	return err
}

func (r *GormUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("PermissionOverrides").First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("PermissionOverrides").
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) Update(user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	err := r.db.Save(user).Error
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrEmailTaken
	}
	return err
}

func (r *GormUserRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// overrides go first; they cascade with their owner
		if err := tx.Where("user_id = ?", id).Delete(&models.PermissionOverride{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (r *GormUserRepository) List(skip, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	err := r.db.Preload("PermissionOverrides").
		Order("created_at ASC").
		Offset(skip).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *GormUserRepository) CreateOverride(override *models.PermissionOverride) error {
	var count int64
	err := r.db.Model(&models.PermissionOverride{}).
		Where("user_id = ? AND permission = ?", override.UserID, override.Permission).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateOverride
	}
	return r.db.Create(override).Error
}

func (r *GormUserRepository) GetOverrideByID(id string) (*models.PermissionOverride, error) {
	var override models.PermissionOverride
	err := r.db.First(&override, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	return &override, nil
}

func (r *GormUserRepository) ListOverrides(userID string) ([]models.PermissionOverride, error) {
	overrides := []models.PermissionOverride{}
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&overrides).Error
	return overrides, err
}

func (r *GormUserRepository) DeleteOverride(id string) error {
	res := r.db.Where("id = ?", id).Delete(&models.PermissionOverride{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

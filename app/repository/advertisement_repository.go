package repository

import (
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
	"gorm.io/gorm"
)

type advertisementRepository struct {
	db *gorm.DB
}

// NewAdvertisementRepository creates a new advertisement repository instance
func NewAdvertisementRepository(db *gorm.DB) AdvertisementRepository {
	return &advertisementRepository{db: db}
}

func (r *advertisementRepository) GetByID(id uint) (*models.Advertisement, error) {
	var ad models.Advertisement
	if err := r.db.First(&ad, id).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}

// Approve publishes the advertisement and records the plan that funded it.
// A nil planID clears the reference.
func (r *advertisementRepository) Approve(id uint, planID *uint, publishedAt time.Time) error {
	res := r.db.Model(&models.Advertisement{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":               models.AdStatusApproved,
			"subscription_plan_id": planID,
			"published_at":         publishedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports changed rows, so an already approved ad also lands here
	var n int64
	if err := r.db.Model(&models.Advertisement{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

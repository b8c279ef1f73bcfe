package repository

import (
	"github.com/ManuelReschke/AdMarket/app/models"
	"gorm.io/gorm"
)

type subscriptionPlanRepository struct {
	db *gorm.DB
}

// NewSubscriptionPlanRepository creates a new subscription plan repository instance
func NewSubscriptionPlanRepository(db *gorm.DB) SubscriptionPlanRepository {
	return &subscriptionPlanRepository{db: db}
}

func (r *subscriptionPlanRepository) GetByID(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *subscriptionPlanRepository) List(onlyActive bool) ([]models.SubscriptionPlan, error) {
	query := r.db.Order("sort_order ASC").Order("id ASC")
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var plans []models.SubscriptionPlan
	err := query.Find(&plans).Error
	return plans, err
}

package repository

import (
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userSubscriptionRepository implements the UserSubscriptionRepository interface
type userSubscriptionRepository struct {
	db *gorm.DB
}

// NewUserSubscriptionRepository creates a new user subscription repository instance
func NewUserSubscriptionRepository(db *gorm.DB) UserSubscriptionRepository {
	return &userSubscriptionRepository{db: db}
}

// Create inserts a new subscription
func (r *userSubscriptionRepository) Create(sub *models.UserSubscription) error {
	return r.db.Omit(clause.Associations).Create(sub).Error
}

// GetActiveByUserID returns the user's active subscription with its plan
func (r *userSubscriptionRepository) GetActiveByUserID(userID uint) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Preload("SubscriptionPlan").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetActiveByUserIDForUpdate returns the user's active subscription and locks
// its row until the surrounding transaction ends
func (r *userSubscriptionRepository) GetActiveByUserIDForUpdate(userID uint) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Save persists all columns of the subscription
func (r *userSubscriptionRepository) Save(sub *models.UserSubscription) error {
	return r.db.Omit(clause.Associations).Save(sub).Error
}

// IncrementPostsUsed bumps posts_used by one in a single statement
func (r *userSubscriptionRepository) IncrementPostsUsed(id uint) error {
	return r.db.Model(&models.UserSubscription{}).
		Where("id = ?", id).
		UpdateColumn("posts_used", gorm.Expr("posts_used + ?", 1)).Error
}

// DeactivateIfExpired marks the subscription inactive and frees the user's
// active slot, but only while it is still active and ended before now. It
// reports whether a row was changed; a concurrent extension wins.
func (r *userSubscriptionRepository) DeactivateIfExpired(id uint, now time.Time) (bool, error) {
	res := deactivateExpiredQuery(r.db, id, now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func deactivateExpiredQuery(db *gorm.DB, id uint, now time.Time) *gorm.DB {
	return db.Model(&models.UserSubscription{}).
		Where("id = ? AND is_active = ? AND end_date < ?", id, true, now).
		UpdateColumns(map[string]interface{}{
			"is_active":      false,
			"active_user_id": nil,
		})
}

// List returns subscriptions matching the filter, newest first
func (r *userSubscriptionRepository) List(filter SubscriptionFilter) ([]models.UserSubscription, error) {
	query := r.db.Preload("SubscriptionPlan")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	var subs []models.UserSubscription
	err := query.Order("created_at DESC").Find(&subs).Error
	return subs, err
}

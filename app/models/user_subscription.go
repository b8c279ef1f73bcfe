package models

import (
	"time"

	"gorm.io/gorm"
)

// UserSubscription tracks the posting quota a user bought through a plan.
//
// ActiveUserID mirrors UserID while the subscription is active and is NULL
// otherwise; its unique index keeps a user at one active subscription.
type UserSubscription struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"index;not null" json:"user_id"`
	User               *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SubscriptionPlanID *uint             `gorm:"index" json:"subscription_plan_id,omitempty"`
	SubscriptionPlan   *SubscriptionPlan `gorm:"foreignKey:SubscriptionPlanID" json:"subscription_plan,omitempty"`
	PostsUsed          int               `gorm:"not null;default:0" json:"posts_used"`
	PostsLimit         int               `gorm:"not null;default:0" json:"posts_limit"`
	StartDate          time.Time         `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate            time.Time         `gorm:"type:timestamp;not null" json:"end_date"`
	IsActive           bool              `gorm:"default:true;index" json:"is_active"`
	ActiveUserID       *uint             `gorm:"uniqueIndex:ux_user_subscriptions_active_user" json:"-"`
	RenewedAt          *time.Time        `gorm:"type:timestamp;default:null" json:"renewed_at,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeSave keeps ActiveUserID in step with IsActive.
func (s *UserSubscription) BeforeSave(tx *gorm.DB) error {
	s.syncActiveUser()
	return nil
}

func (s *UserSubscription) syncActiveUser() {
	if s.IsActive {
		uid := s.UserID
		s.ActiveUserID = &uid
		return
	}
	s.ActiveUserID = nil
}

// IsExpired reports whether the subscription period ended before now.
func (s *UserSubscription) IsExpired(now time.Time) bool {
	return now.After(s.EndDate)
}

// Deactivate marks the subscription inactive and releases the active slot.
func (s *UserSubscription) Deactivate() {
	s.IsActive = false
	s.syncActiveUser()
}

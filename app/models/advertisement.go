package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AdStatusDraft    = "draft"
	AdStatusPending  = "pending"
	AdStatusApproved = "approved"
	AdStatusRejected = "rejected"
	AdStatusExpired  = "expired"
)

// Advertisement carries the fields of a classified ad that the payment
// workflow reads or mutates.
type Advertisement struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"index;not null" json:"user_id"`
	User               *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title              string            `gorm:"type:varchar(200);not null" json:"title"`
	Status             string            `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	SubscriptionPlanID *uint             `gorm:"index" json:"subscription_plan_id,omitempty"`
	SubscriptionPlan   *SubscriptionPlan `gorm:"foreignKey:SubscriptionPlanID" json:"subscription_plan,omitempty"`
	PublishedAt        *time.Time        `json:"published_at,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`
}

// IsOwnedBy reports whether the ad belongs to userID.
func (a *Advertisement) IsOwnedBy(userID uint) bool {
	return userID != 0 && a.UserID == userID
}

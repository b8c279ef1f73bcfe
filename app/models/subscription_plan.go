package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlanDuration is the billing period of a subscription plan.
type PlanDuration string

const (
	PlanDurationWeekly  PlanDuration = "weekly"
	PlanDurationMonthly PlanDuration = "monthly"
	PlanDurationYearly  PlanDuration = "yearly"
)

// Days returns the length of one billing period. ok is false for values
// outside the known set; callers must treat that as a configuration error.
func (d PlanDuration) Days() (days int, ok bool) {
	switch d {
	case PlanDurationWeekly:
		return 7, true
	case PlanDurationMonthly:
		return 30, true
	case PlanDurationYearly:
		return 365, true
	default:
		return 0, false
	}
}

// SubscriptionPlan is a purchasable package of advertisement posts.
type SubscriptionPlan struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"type:decimal(10,2);not null" json:"price" validate:"gte=0"`
	Duration    PlanDuration   `gorm:"type:varchar(16);not null;default:'monthly'" json:"duration" validate:"oneof=weekly monthly yearly"`
	PostLimit   int            `gorm:"not null;default:1" json:"post_limit" validate:"gte=0"`
	Features    datatypes.JSON `gorm:"type:json" json:"features,omitempty"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

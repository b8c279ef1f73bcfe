package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusFailed    = "failed"
)

// PaymentRequest is a user's claim of having paid for a plan, waiting for
// an admin to confirm it.
type PaymentRequest struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"index;not null" json:"user_id"`
	User               *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AdvertisementID    *uint             `gorm:"index" json:"advertisement_id,omitempty"`
	Advertisement      *Advertisement    `gorm:"foreignKey:AdvertisementID" json:"advertisement,omitempty"`
	SubscriptionPlanID *uint             `gorm:"index" json:"subscription_plan_id,omitempty"`
	SubscriptionPlan   *SubscriptionPlan `gorm:"foreignKey:SubscriptionPlanID" json:"subscription_plan,omitempty"`
	Amount             float64           `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status             string            `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod      string            `gorm:"type:varchar(100);default:''" json:"payment_method,omitempty"`
	TransactionID      string            `gorm:"type:varchar(191);default:''" json:"transaction_id,omitempty"`
	AdminNotes         string            `gorm:"type:text" json:"admin_notes,omitempty"`
	PaymentProofID     *uint             `gorm:"index" json:"payment_proof_id,omitempty"`
	PaymentProof       *UploadFile       `gorm:"foreignKey:PaymentProofID" json:"payment_proof,omitempty"`
	VerifiedByID       *uint             `gorm:"index" json:"verified_by_id,omitempty"`
	VerifiedBy         *User             `gorm:"foreignKey:VerifiedByID" json:"verified_by,omitempty"`
	PaidAt             *time.Time        `json:"paid_at,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`
}

// IsPending reports whether the request can still change status.
func (p *PaymentRequest) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// CanTransitionTo reports whether moving from the current status to next is
// allowed. Only pending requests move, and only to paid or cancelled.
func (p *PaymentRequest) CanTransitionTo(next string) bool {
	if !p.IsPending() {
		return false
	}
	switch next {
	case PaymentStatusPaid, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// IsOwnedBy reports whether the request belongs to userID.
func (p *PaymentRequest) IsOwnedBy(userID uint) bool {
	return userID != 0 && p.UserID == userID
}

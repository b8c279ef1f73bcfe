package billing

import (
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
)

// Actor is the authenticated caller of a billing operation.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// IsAuthenticated reports whether the actor carries an identity.
func (a Actor) IsAuthenticated() bool {
	return a.UserID != 0
}

// CreatePaymentRequestInput is the user-supplied part of a new payment
// request. The owning user always comes from the Actor.
type CreatePaymentRequestInput struct {
	AdvertisementID    *uint  `json:"advertisement_id"`
	SubscriptionPlanID uint   `json:"subscription_plan_id" validate:"required"`
	PaymentMethod      string `json:"payment_method" validate:"max=100"`
	TransactionID      string `json:"transaction_id" validate:"max=191"`
	PaymentProofID     *uint  `json:"payment_proof_id"`
}

// VerifyInput carries optional overrides applied when a payment is marked
// paid. Empty values keep what is already stored.
type VerifyInput struct {
	TransactionID string `json:"transaction_id" validate:"max=191"`
	PaymentMethod string `json:"payment_method" validate:"max=100"`
	AdminNotes    string `json:"admin_notes" validate:"max=5000"`
}

// PaymentRequestQuery selects a page of payment requests.
type PaymentRequestQuery struct {
	Status   string `validate:"omitempty,oneof=pending paid cancelled failed"`
	Page     int    `validate:"gte=0"`
	PageSize int    `validate:"gte=0"`
}

// Pagination describes the page returned by a listing.
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	PageCount int   `json:"page_count"`
	Total     int64 `json:"total"`
}

// LimitStatus is the posting quota of a user as reported by CheckLimit.
type LimitStatus struct {
	HasActiveSubscription bool                `json:"has_active_subscription"`
	CanPost               bool                `json:"can_post"`
	PostsUsed             int                 `json:"posts_used"`
	PostsLimit            int                 `json:"posts_limit"`
	PostsRemaining        int                 `json:"posts_remaining"`
	Subscription          *SubscriptionDigest `json:"subscription,omitempty"`
}

// SubscriptionDigest summarises the active subscription in a LimitStatus.
type SubscriptionDigest struct {
	ID        uint                     `json:"id"`
	StartDate time.Time                `json:"start_date"`
	EndDate   time.Time                `json:"end_date"`
	Plan      *models.SubscriptionPlan `json:"plan,omitempty"`
}

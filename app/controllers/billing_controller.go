package controllers

import (
	"context"
	"io"
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/internal/pkg/billing"
)

// PaymentService is the billing workflow as seen by the HTTP layer.
type PaymentService interface {
	Create(ctx context.Context, actor billing.Actor, in billing.CreatePaymentRequestInput) (*models.PaymentRequest, error)
	Find(ctx context.Context, actor billing.Actor, q billing.PaymentRequestQuery) ([]models.PaymentRequest, billing.Pagination, error)
	Get(ctx context.Context, actor billing.Actor, id uint) (*models.PaymentRequest, error)
	Cancel(ctx context.Context, actor billing.Actor, id uint) (*models.PaymentRequest, error)
	Verify(ctx context.Context, actor billing.Actor, id uint, in billing.VerifyInput) (*models.PaymentRequest, error)
	CheckLimit(ctx context.Context, actor billing.Actor) (*billing.LimitStatus, error)
	ListPlans(ctx context.Context, actor billing.Actor) ([]models.SubscriptionPlan, error)
	GetPlan(ctx context.Context, actor billing.Actor, id uint) (*models.SubscriptionPlan, error)
	ListSubscriptions(ctx context.Context, actor billing.Actor, isActive *bool) ([]models.UserSubscription, error)
}

// ProofUploader stores uploaded payment proofs.
type ProofUploader interface {
	SaveProof(ctx context.Context, userID uint, filename string, body io.Reader, size int64) (*models.UploadFile, error)
	Discard(ctx context.Context, file *models.UploadFile)
}

// JSONCache caches read-mostly responses. Misses are reported as errors.
type JSONCache interface {
	GetJSON(key string, dst interface{}) error
	SetJSON(key string, value interface{}, expiration time.Duration) error
}

// BillingController serves payment requests, subscriptions, plans and
// proof uploads.
type BillingController struct {
	payments PaymentService
	uploads  ProofUploader
	cache    JSONCache
}

// NewBillingController wires the handlers. cache may be nil.
func NewBillingController(payments PaymentService, uploads ProofUploader, cache JSONCache) *BillingController {
	return &BillingController{payments: payments, uploads: uploads, cache: cache}
}

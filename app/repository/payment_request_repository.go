package repository

import (
	"github.com/ManuelReschke/AdMarket/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRequestRepository implements the PaymentRequestRepository interface
type paymentRequestRepository struct {
	db *gorm.DB
}

// NewPaymentRequestRepository creates a new payment request repository instance
func NewPaymentRequestRepository(db *gorm.DB) PaymentRequestRepository {
	return &paymentRequestRepository{db: db}
}

func (r *paymentRequestRepository) withRelations() *gorm.DB {
	return r.db.
		Preload("User").
		Preload("Advertisement").
		Preload("SubscriptionPlan").
		Preload("PaymentProof").
		Preload("VerifiedBy")
}

// Create inserts a new payment request
func (r *paymentRequestRepository) Create(pr *models.PaymentRequest) error {
	return r.db.Create(pr).Error
}

// GetByID retrieves a payment request without relations
func (r *paymentRequestRepository) GetByID(id uint) (*models.PaymentRequest, error) {
	var pr models.PaymentRequest
	if err := r.db.First(&pr, id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

// GetByIDForUpdate retrieves a payment request and locks its row until the
// surrounding transaction ends. The plan is preloaded since the verification
// workflow needs it right away.
func (r *paymentRequestRepository) GetByIDForUpdate(id uint) (*models.PaymentRequest, error) {
	var pr models.PaymentRequest
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("SubscriptionPlan").
		First(&pr, id).Error
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// GetWithRelations retrieves a payment request with user, advertisement,
// plan, proof and verifying admin populated
func (r *paymentRequestRepository) GetWithRelations(id uint) (*models.PaymentRequest, error) {
	var pr models.PaymentRequest
	if err := r.withRelations().First(&pr, id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

// List returns one page of payment requests, newest first, and the total
// number of rows matching the filter
func (r *paymentRequestRepository) List(filter PaymentRequestFilter) ([]models.PaymentRequest, int64, error) {
	query := r.db.Model(&models.PaymentRequest{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.PaymentRequest
	page := query.Session(&gorm.Session{}).
		Preload("User").
		Preload("Advertisement").
		Preload("SubscriptionPlan").
		Preload("VerifiedBy").
		Order("created_at DESC").
		Order("id DESC")
	if filter.Limit > 0 {
		page = page.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := page.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update persists all columns of the payment request
func (r *paymentRequestRepository) Update(pr *models.PaymentRequest) error {
	return r.db.Omit(clause.Associations).Save(pr).Error
}

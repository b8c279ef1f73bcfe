package billing

import (
	"context"
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/app/repository"
	"gorm.io/gorm"
)

// Repository provides the store operations used by the billing service.
// Lookups return gorm.ErrRecordNotFound for missing rows.
type Repository interface {
	// Transaction runs fn against a repository bound to one database
	// transaction; any returned error rolls every write back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	// WithContext returns a repository whose queries carry ctx.
	WithContext(ctx context.Context) Repository

	GetPlan(id uint) (*models.SubscriptionPlan, error)
	ListPlans(onlyActive bool) ([]models.SubscriptionPlan, error)

	GetAdvertisement(id uint) (*models.Advertisement, error)
	ApproveAdvertisement(id uint, planID *uint, publishedAt time.Time) error

	GetUpload(id uint) (*models.UploadFile, error)

	CreatePaymentRequest(pr *models.PaymentRequest) error
	GetPaymentRequest(id uint) (*models.PaymentRequest, error)
	LockPaymentRequest(id uint) (*models.PaymentRequest, error)
	LoadPaymentRequest(id uint) (*models.PaymentRequest, error)
	ListPaymentRequests(filter repository.PaymentRequestFilter) ([]models.PaymentRequest, int64, error)
	UpdatePaymentRequest(pr *models.PaymentRequest) error

	GetActiveSubscription(userID uint) (*models.UserSubscription, error)
	LockActiveSubscription(userID uint) (*models.UserSubscription, error)
	CreateSubscription(sub *models.UserSubscription) error
	SaveSubscription(sub *models.UserSubscription) error
	IncrementPostsUsed(subscriptionID uint) error
	// DeactivateExpiredSubscription deactivates the subscription only while
	// it is still active and ended before now, and reports whether it did.
	DeactivateExpiredSubscription(subscriptionID uint, now time.Time) (bool, error)
	ListSubscriptions(filter repository.SubscriptionFilter) ([]models.UserSubscription, error)
}

type gormRepository struct {
	db    *gorm.DB
	repos *repository.Repositories
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db, repos: repository.NewRepositories(db)}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return repository.NewRepositories(r.db.WithContext(ctx)).Transaction(func(tx *repository.Repositories) error {
		return fn(&gormRepository{db: tx.DB(), repos: tx})
	})
}

func (r *gormRepository) WithContext(ctx context.Context) Repository {
	return NewRepository(r.db.WithContext(ctx))
}

func (r *gormRepository) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	return r.repos.SubscriptionPlan.GetByID(id)
}

func (r *gormRepository) ListPlans(onlyActive bool) ([]models.SubscriptionPlan, error) {
	return r.repos.SubscriptionPlan.List(onlyActive)
}

func (r *gormRepository) GetAdvertisement(id uint) (*models.Advertisement, error) {
	return r.repos.Advertisement.GetByID(id)
}

func (r *gormRepository) ApproveAdvertisement(id uint, planID *uint, publishedAt time.Time) error {
	return r.repos.Advertisement.Approve(id, planID, publishedAt)
}

func (r *gormRepository) GetUpload(id uint) (*models.UploadFile, error) {
	return r.repos.UploadFile.GetByID(id)
}

func (r *gormRepository) CreatePaymentRequest(pr *models.PaymentRequest) error {
	return r.repos.PaymentRequest.Create(pr)
}

func (r *gormRepository) GetPaymentRequest(id uint) (*models.PaymentRequest, error) {
	return r.repos.PaymentRequest.GetByID(id)
}

func (r *gormRepository) LockPaymentRequest(id uint) (*models.PaymentRequest, error) {
	return r.repos.PaymentRequest.GetByIDForUpdate(id)
}

func (r *gormRepository) LoadPaymentRequest(id uint) (*models.PaymentRequest, error) {
	return r.repos.PaymentRequest.GetWithRelations(id)
}

func (r *gormRepository) ListPaymentRequests(filter repository.PaymentRequestFilter) ([]models.PaymentRequest, int64, error) {
	return r.repos.PaymentRequest.List(filter)
}

func (r *gormRepository) UpdatePaymentRequest(pr *models.PaymentRequest) error {
	return r.repos.PaymentRequest.Update(pr)
}

func (r *gormRepository) GetActiveSubscription(userID uint) (*models.UserSubscription, error) {
	return r.repos.UserSubscription.GetActiveByUserID(userID)
}

func (r *gormRepository) LockActiveSubscription(userID uint) (*models.UserSubscription, error) {
	return r.repos.UserSubscription.GetActiveByUserIDForUpdate(userID)
}

func (r *gormRepository) CreateSubscription(sub *models.UserSubscription) error {
	return r.repos.UserSubscription.Create(sub)
}

func (r *gormRepository) SaveSubscription(sub *models.UserSubscription) error {
	return r.repos.UserSubscription.Save(sub)
}

func (r *gormRepository) IncrementPostsUsed(subscriptionID uint) error {
	return r.repos.UserSubscription.IncrementPostsUsed(subscriptionID)
}

func (r *gormRepository) DeactivateExpiredSubscription(subscriptionID uint, now time.Time) (bool, error) {
	return r.repos.UserSubscription.DeactivateIfExpired(subscriptionID, now)
}

func (r *gormRepository) ListSubscriptions(filter repository.SubscriptionFilter) ([]models.UserSubscription, error) {
	return r.repos.UserSubscription.List(filter)
}

package repository

import (
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id uint, at time.Time) error
}

// PaymentRequestRepository defines the interface for payment request operations
type PaymentRequestRepository interface {
	Create(pr *models.PaymentRequest) error
	GetByID(id uint) (*models.PaymentRequest, error)
	GetByIDForUpdate(id uint) (*models.PaymentRequest, error)
	GetWithRelations(id uint) (*models.PaymentRequest, error)
	List(filter PaymentRequestFilter) ([]models.PaymentRequest, int64, error)
	Update(pr *models.PaymentRequest) error
}

// UserSubscriptionRepository defines the interface for user subscription operations
type UserSubscriptionRepository interface {
	Create(sub *models.UserSubscription) error
	GetActiveByUserID(userID uint) (*models.UserSubscription, error)
	GetActiveByUserIDForUpdate(userID uint) (*models.UserSubscription, error)
	Save(sub *models.UserSubscription) error
	IncrementPostsUsed(id uint) error
	DeactivateIfExpired(id uint, now time.Time) (bool, error)
	List(filter SubscriptionFilter) ([]models.UserSubscription, error)
}

// SubscriptionPlanRepository defines the interface for subscription plan operations
type SubscriptionPlanRepository interface {
	GetByID(id uint) (*models.SubscriptionPlan, error)
	List(onlyActive bool) ([]models.SubscriptionPlan, error)
}

// AdvertisementRepository defines the interface for the advertisement fields
// touched by the payment workflow
type AdvertisementRepository interface {
	GetByID(id uint) (*models.Advertisement, error)
	Approve(id uint, planID *uint, publishedAt time.Time) error
}

// UploadFileRepository defines the interface for uploaded file records
type UploadFileRepository interface {
	Create(file *models.UploadFile) error
	GetByID(id uint) (*models.UploadFile, error)
	Delete(id uint) error
}

// PaymentRequestFilter narrows a payment request listing. A nil UserID
// means all users.
type PaymentRequestFilter struct {
	UserID *uint
	Status string
	Offset int
	Limit  int
}

// SubscriptionFilter narrows a subscription listing.
type SubscriptionFilter struct {
	UserID   *uint
	IsActive *bool
}

// Repositories struct holds all repository instances
type Repositories struct {
	db               *gorm.DB
	User             UserRepository
	PaymentRequest   PaymentRequestRepository
	UserSubscription UserSubscriptionRepository
	SubscriptionPlan SubscriptionPlanRepository
	Advertisement    AdvertisementRepository
	UploadFile       UploadFileRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:               db,
		User:             NewUserRepository(db),
		PaymentRequest:   NewPaymentRequestRepository(db),
		UserSubscription: NewUserSubscriptionRepository(db),
		SubscriptionPlan: NewSubscriptionPlanRepository(db),
		Advertisement:    NewAdvertisementRepository(db),
		UploadFile:       NewUploadFileRepository(db),
	}
}

// DB returns the handle the repositories are bound to.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn with repositories bound to a single database transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

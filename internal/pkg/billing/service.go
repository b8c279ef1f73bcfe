package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/app/repository"
	"github.com/ManuelReschke/AdMarket/internal/pkg/entitlements"
)

const verifyLockTTL = 30 * time.Second

// Locker serializes work per key across processes. Lock reports
// acquired=false without an error when somebody else holds the key.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Service implements payment requests, their verification and the
// subscription bookkeeping that follows.
type Service struct {
	repo     Repository
	locker   Locker
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a billing service from an injected repository. locker
// may be nil, in which case verifications rely on row locks alone.
func NewService(repo Repository, locker Locker) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		validate: validator.New(),
		now:      time.Now,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, locker Locker) *Service {
	return NewService(NewRepository(db), locker)
}

// Create records a new pending payment request owned by the actor.
func (s *Service) Create(ctx context.Context, actor Actor, in CreatePaymentRequestInput) (*models.PaymentRequest, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	repo := s.repo.WithContext(ctx)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	plan, err := repo.GetPlan(in.SubscriptionPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan %d: %w", in.SubscriptionPlanID, err)
	}

	if in.AdvertisementID != nil {
		ad, err := repo.GetAdvertisement(*in.AdvertisementID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("advertisement %d: %w", *in.AdvertisementID, ErrNotFound)
			}
			return nil, fmt.Errorf("load advertisement %d: %w", *in.AdvertisementID, err)
		}
		if !ad.IsOwnedBy(actor.UserID) {
			return nil, ErrForbidden
		}
	}

	if in.PaymentProofID != nil {
		file, err := repo.GetUpload(*in.PaymentProofID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("payment proof %d: %w", *in.PaymentProofID, ErrNotFound)
			}
			return nil, fmt.Errorf("load payment proof %d: %w", *in.PaymentProofID, err)
		}
		if file.UserID != actor.UserID {
			return nil, ErrForbidden
		}
	}

	planID := plan.ID
	pr := &models.PaymentRequest{
		UserID:             actor.UserID,
		AdvertisementID:    in.AdvertisementID,
		SubscriptionPlanID: &planID,
		Amount:             plan.Price,
		Status:             models.PaymentStatusPending,
		PaymentMethod:      in.PaymentMethod,
		TransactionID:      in.TransactionID,
		PaymentProofID:     in.PaymentProofID,
	}
	if err := repo.CreatePaymentRequest(pr); err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}

	return repo.LoadPaymentRequest(pr.ID)
}

// Find lists payment requests visible to the actor. Non-admins only ever see
// their own requests, whatever the query asks for.
func (s *Service) Find(ctx context.Context, actor Actor, q PaymentRequestQuery) ([]models.PaymentRequest, Pagination, error) {
	if !actor.IsAuthenticated() {
		return nil, Pagination{}, ErrUnauthorized
	}
	repo := s.repo.WithContext(ctx)
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	if err := s.validate.Struct(q); err != nil {
		return nil, Pagination{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	page, pageSize := normalizePage(q.Page, q.PageSize)
	filter := repository.PaymentRequestFilter{
		Status: q.Status,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	if !actor.IsAdmin {
		uid := actor.UserID
		filter.UserID = &uid
	}

	items, total, err := repo.ListPaymentRequests(filter)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list payment requests: %w", err)
	}
	return items, Pagination{
		Page:      page,
		PageSize:  pageSize,
		PageCount: pageCount(total, pageSize),
		Total:     total,
	}, nil
}

// Get returns a single payment request to its owner or an admin.
func (s *Service) Get(ctx context.Context, actor Actor, id uint) (*models.PaymentRequest, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	repo := s.repo.WithContext(ctx)
	pr, err := repo.LoadPaymentRequest(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load payment request %d: %w", id, err)
	}
	if !actor.IsAdmin && !pr.IsOwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return pr, nil
}

// Verify marks a pending payment request as paid, creates or extends the
// owner's subscription and publishes the linked advertisement. All writes
// happen in one transaction.
func (s *Service) Verify(ctx context.Context, actor Actor, id uint, in VerifyInput) (*models.PaymentRequest, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	repo := s.repo.WithContext(ctx)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	pr, err := repo.GetPaymentRequest(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load payment request %d: %w", id, err)
	}
	if !pr.CanTransitionTo(models.PaymentStatusPaid) {
		return nil, ErrInvalidState
	}

	release, err := s.lockUser(ctx, pr.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		sub      *models.UserSubscription
		extended bool
	)
	err = repo.Transaction(ctx, func(tx Repository) error {
		locked, err := tx.LockPaymentRequest(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock payment request %d: %w", id, err)
		}
		// re-check under the row lock; a concurrent verify or cancel may have won
		if !locked.CanTransitionTo(models.PaymentStatusPaid) {
			return ErrInvalidState
		}

		now := s.now()
		plan := locked.SubscriptionPlan
		var endDate time.Time
		if plan != nil {
			if endDate, err = periodEnd(plan, now); err != nil {
				return err
			}
		}

		adminID := actor.UserID
		locked.Status = models.PaymentStatusPaid
		locked.PaidAt = &now
		locked.VerifiedByID = &adminID
		locked.TransactionID = pickString(in.TransactionID, locked.TransactionID)
		locked.PaymentMethod = pickString(in.PaymentMethod, locked.PaymentMethod)
		locked.AdminNotes = pickString(in.AdminNotes, locked.AdminNotes)
		if err := tx.UpdatePaymentRequest(locked); err != nil {
			return fmt.Errorf("mark payment request %d paid: %w", id, err)
		}

		var planID *uint
		if plan != nil {
			pid := plan.ID
			planID = &pid
			sub, extended, err = s.provisionSubscription(tx, locked.UserID, plan, now, endDate)
			if err != nil {
				return err
			}
		}

		if locked.AdvertisementID == nil {
			return nil
		}
		if err := tx.ApproveAdvertisement(*locked.AdvertisementID, planID, now); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("advertisement %d: %w", *locked.AdvertisementID, ErrNotFound)
			}
			return fmt.Errorf("approve advertisement %d: %w", *locked.AdvertisementID, err)
		}
		if sub != nil {
			if err := tx.IncrementPostsUsed(sub.ID); err != nil {
				return fmt.Errorf("count post on subscription %d: %w", sub.ID, err)
			}
			sub.PostsUsed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sub != nil {
		log.Infof("[Billing] payment request %d verified by admin %d: subscription %d for user %d (extended=%t, posts %d/%d, ends %s)",
			id, actor.UserID, sub.ID, sub.UserID, extended, sub.PostsUsed, sub.PostsLimit, sub.EndDate.Format(time.RFC3339))
	} else {
		log.Infof("[Billing] payment request %d verified by admin %d without subscription plan", id, actor.UserID)
	}

	return repo.LoadPaymentRequest(id)
}

// provisionSubscription extends the user's active subscription or creates a
// new one. Extension keeps postsUsed.
func (s *Service) provisionSubscription(tx Repository, userID uint, plan *models.SubscriptionPlan, now, endDate time.Time) (*models.UserSubscription, bool, error) {
	planID := plan.ID
	existing, err := tx.LockActiveSubscription(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load active subscription for user %d: %w", userID, err)
	}

	if existing != nil {
		renewedAt := now
		existing.SubscriptionPlanID = &planID
		existing.PostsLimit = plan.PostLimit
		existing.EndDate = endDate
		existing.RenewedAt = &renewedAt
		if err := tx.SaveSubscription(existing); err != nil {
			return nil, false, fmt.Errorf("extend subscription %d: %w", existing.ID, err)
		}
		return existing, true, nil
	}

	sub := &models.UserSubscription{
		UserID:             userID,
		SubscriptionPlanID: &planID,
		PostsUsed:          0,
		PostsLimit:         plan.PostLimit,
		StartDate:          now,
		EndDate:            endDate,
		IsActive:           true,
	}
	if err := tx.CreateSubscription(sub); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, false, ErrConcurrentSubscription
		}
		return nil, false, fmt.Errorf("create subscription for user %d: %w", userID, err)
	}
	return sub, false, nil
}

// Cancel moves a pending request to cancelled. Owners and admins may cancel.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint) (*models.PaymentRequest, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	repo := s.repo.WithContext(ctx)

	err := repo.Transaction(ctx, func(tx Repository) error {
		pr, err := tx.LockPaymentRequest(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock payment request %d: %w", id, err)
		}
		if !actor.IsAdmin && !pr.IsOwnedBy(actor.UserID) {
			return ErrForbidden
		}
		if !pr.CanTransitionTo(models.PaymentStatusCancelled) {
			return ErrInvalidState
		}
		pr.Status = models.PaymentStatusCancelled
		if err := tx.UpdatePaymentRequest(pr); err != nil {
			return fmt.Errorf("cancel payment request %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return repo.LoadPaymentRequest(id)
}

// CheckLimit reports the actor's posting quota. An expired subscription is
// deactivated on the way, unless a verification extends it first.
func (s *Service) CheckLimit(ctx context.Context, actor Actor) (*LimitStatus, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	repo := s.repo.WithContext(ctx)

	sub, err := repo.GetActiveSubscription(actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LimitStatus{}, nil
		}
		return nil, fmt.Errorf("load active subscription for user %d: %w", actor.UserID, err)
	}

	now := s.now()
	quota := entitlements.Posting(sub, now)
	if quota.Active {
		return limitStatus(sub, quota), nil
	}

	deactivated, err := repo.DeactivateExpiredSubscription(sub.ID, now)
	if err != nil {
		return nil, fmt.Errorf("deactivate subscription %d: %w", sub.ID, err)
	}
	if deactivated {
		log.Infof("[Billing] subscription %d of user %d expired at %s, deactivated", sub.ID, sub.UserID, sub.EndDate.Format(time.RFC3339))
		return &LimitStatus{
			PostsUsed:  quota.Used,
			PostsLimit: quota.Limit,
		}, nil
	}

	// the row changed since we read it, report what is stored now
	sub, err = repo.GetActiveSubscription(actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LimitStatus{}, nil
		}
		return nil, fmt.Errorf("reload active subscription for user %d: %w", actor.UserID, err)
	}
	quota = entitlements.Posting(sub, now)
	if !quota.Active {
		return &LimitStatus{
			PostsUsed:  quota.Used,
			PostsLimit: quota.Limit,
		}, nil
	}
	return limitStatus(sub, quota), nil
}

func limitStatus(sub *models.UserSubscription, quota entitlements.PostingQuota) *LimitStatus {
	return &LimitStatus{
		HasActiveSubscription: true,
		CanPost:               quota.CanPost,
		PostsUsed:             quota.Used,
		PostsLimit:            quota.Limit,
		PostsRemaining:        quota.Remaining,
		Subscription: &SubscriptionDigest{
			ID:        sub.ID,
			StartDate: sub.StartDate,
			EndDate:   sub.EndDate,
			Plan:      sub.SubscriptionPlan,
		},
	}
}

// ListPlans returns active plans to everybody and all plans to admins.
func (s *Service) ListPlans(ctx context.Context, actor Actor) ([]models.SubscriptionPlan, error) {
	repo := s.repo.WithContext(ctx)
	plans, err := repo.ListPlans(!actor.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns one plan. Inactive plans are only visible to admins.
func (s *Service) GetPlan(ctx context.Context, actor Actor, id uint) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.WithContext(ctx).GetPlan(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load plan %d: %w", id, err)
	}
	if !plan.IsActive && !actor.IsAdmin {
		return nil, ErrNotFound
	}
	return plan, nil
}

// ListSubscriptions returns the actor's subscriptions, or everybody's for admins.
func (s *Service) ListSubscriptions(ctx context.Context, actor Actor, isActive *bool) ([]models.UserSubscription, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	repo := s.repo.WithContext(ctx)
	filter := repository.SubscriptionFilter{IsActive: isActive}
	if !actor.IsAdmin {
		uid := actor.UserID
		filter.UserID = &uid
	}
	subs, err := repo.ListSubscriptions(filter)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *Service) lockUser(ctx context.Context, userID uint) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, acquired, err := s.locker.Lock(ctx, userLockKey(userID), verifyLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire verification lock for user %d: %w", userID, err)
	}
	if !acquired {
		return nil, ErrBusy
	}
	return release, nil
}

package billing

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/app/repository"
)

// fakeRepo is an in-memory Repository. Transaction snapshots the state and
// restores it when fn fails.
type fakeRepo struct {
	plans    map[uint]*models.SubscriptionPlan
	ads      map[uint]*models.Advertisement
	uploads  map[uint]*models.UploadFile
	requests map[uint]*models.PaymentRequest
	subs     map[uint]*models.UserSubscription

	nextID        uint
	createSubErr  error
	lastFilter    repository.PaymentRequestFilter
	subsFilter    repository.SubscriptionFilter
	approvedCalls int
	boundCtx      context.Context
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:    map[uint]*models.SubscriptionPlan{},
		ads:      map[uint]*models.Advertisement{},
		uploads:  map[uint]*models.UploadFile{},
		requests: map[uint]*models.PaymentRequest{},
		subs:     map[uint]*models.UserSubscription{},
		nextID:   100,
	}
}

func (f *fakeRepo) id() uint {
	f.nextID++
	return f.nextID
}

type fakeSnapshot struct {
	ads      map[uint]models.Advertisement
	requests map[uint]models.PaymentRequest
	subs     map[uint]models.UserSubscription
}

func (f *fakeRepo) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		ads:      map[uint]models.Advertisement{},
		requests: map[uint]models.PaymentRequest{},
		subs:     map[uint]models.UserSubscription{},
	}
	for id, v := range f.ads {
		s.ads[id] = *v
	}
	for id, v := range f.requests {
		s.requests[id] = *v
	}
	for id, v := range f.subs {
		s.subs[id] = *v
	}
	return s
}

func (f *fakeRepo) restore(s fakeSnapshot) {
	f.ads = map[uint]*models.Advertisement{}
	f.requests = map[uint]*models.PaymentRequest{}
	f.subs = map[uint]*models.UserSubscription{}
	for id, v := range s.ads {
		v := v
		f.ads[id] = &v
	}
	for id, v := range s.requests {
		v := v
		f.requests[id] = &v
	}
	for id, v := range s.subs {
		v := v
		f.subs[id] = &v
	}
}

func (f *fakeRepo) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeRepo) WithContext(ctx context.Context) Repository {
	f.boundCtx = ctx
	return f
}

func (f *fakeRepo) GetPlan(id uint) (*models.SubscriptionPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ListPlans(onlyActive bool) ([]models.SubscriptionPlan, error) {
	var out []models.SubscriptionPlan
	for _, p := range f.plans {
		if onlyActive && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetAdvertisement(id uint) (*models.Advertisement, error) {
	a, ok := f.ads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ApproveAdvertisement(id uint, planID *uint, publishedAt time.Time) error {
	a, ok := f.ads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.approvedCalls++
	a.Status = models.AdStatusApproved
	a.PublishedAt = &publishedAt
	a.SubscriptionPlanID = planID
	return nil
}

func (f *fakeRepo) GetUpload(id uint) (*models.UploadFile, error) {
	u, ok := f.uploads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) CreatePaymentRequest(pr *models.PaymentRequest) error {
	pr.ID = f.id()
	cp := *pr
	f.requests[pr.ID] = &cp
	return nil
}

func (f *fakeRepo) GetPaymentRequest(id uint) (*models.PaymentRequest, error) {
	pr, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *pr
	return &cp, nil
}

func (f *fakeRepo) LockPaymentRequest(id uint) (*models.PaymentRequest, error) {
	pr, err := f.GetPaymentRequest(id)
	if err != nil {
		return nil, err
	}
	if pr.SubscriptionPlanID != nil {
		if p, ok := f.plans[*pr.SubscriptionPlanID]; ok {
			cp := *p
			pr.SubscriptionPlan = &cp
		}
	}
	return pr, nil
}

func (f *fakeRepo) LoadPaymentRequest(id uint) (*models.PaymentRequest, error) {
	pr, err := f.LockPaymentRequest(id)
	if err != nil {
		return nil, err
	}
	if pr.AdvertisementID != nil {
		pr.Advertisement, _ = f.GetAdvertisement(*pr.AdvertisementID)
	}
	return pr, nil
}

func (f *fakeRepo) ListPaymentRequests(filter repository.PaymentRequestFilter) ([]models.PaymentRequest, int64, error) {
	f.lastFilter = filter
	var all []models.PaymentRequest
	for _, pr := range f.requests {
		if filter.UserID != nil && pr.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		all = append(all, *pr)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], total, nil
}

func (f *fakeRepo) UpdatePaymentRequest(pr *models.PaymentRequest) error {
	cp := *pr
	cp.SubscriptionPlan = nil
	cp.Advertisement = nil
	f.requests[pr.ID] = &cp
	return nil
}

func (f *fakeRepo) activeSub(userID uint) (*models.UserSubscription, error) {
	for _, s := range f.subs {
		if s.UserID == userID && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetActiveSubscription(userID uint) (*models.UserSubscription, error) {
	return f.activeSub(userID)
}

func (f *fakeRepo) LockActiveSubscription(userID uint) (*models.UserSubscription, error) {
	return f.activeSub(userID)
}

func (f *fakeRepo) CreateSubscription(sub *models.UserSubscription) error {
	if f.createSubErr != nil {
		return f.createSubErr
	}
	sub.ID = f.id()
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeRepo) SaveSubscription(sub *models.UserSubscription) error {
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeRepo) IncrementPostsUsed(subscriptionID uint) error {
	s, ok := f.subs[subscriptionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.PostsUsed++
	return nil
}

func (f *fakeRepo) DeactivateExpiredSubscription(subscriptionID uint, now time.Time) (bool, error) {
	s, ok := f.subs[subscriptionID]
	if !ok || !s.IsActive || !s.IsExpired(now) {
		return false, nil
	}
	s.Deactivate()
	return true, nil
}

// renewingRepo runs renew right before the first deactivation reaches the
// store, like a verification committing between CheckLimit's read and write.
type renewingRepo struct {
	*fakeRepo
	renew func()
}

func (r *renewingRepo) WithContext(ctx context.Context) Repository {
	r.fakeRepo.WithContext(ctx)
	return r
}

func (r *renewingRepo) DeactivateExpiredSubscription(subscriptionID uint, now time.Time) (bool, error) {
	if r.renew != nil {
		renew := r.renew
		r.renew = nil
		renew()
	}
	return r.fakeRepo.DeactivateExpiredSubscription(subscriptionID, now)
}

func (f *fakeRepo) ListSubscriptions(filter repository.SubscriptionFilter) ([]models.UserSubscription, error) {
	f.subsFilter = filter
	var out []models.UserSubscription
	for _, s := range f.subs {
		if filter.UserID != nil && s.UserID != *filter.UserID {
			continue
		}
		if filter.IsActive != nil && s.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

type fakeLocker struct {
	held     map[string]bool
	released []string
	err      error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		delete(l.held, key)
		l.released = append(l.released, key)
	}, true, nil
}

var (
	fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	admin    = Actor{UserID: 1, IsAdmin: true}
	owner    = Actor{UserID: 7}
	stranger = Actor{UserID: 8}
)

const (
	monthlyPlanID = 10
	adID          = 20
)

func uintPtr(v uint) *uint { return &v }

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeLocker) {
	t.Helper()
	repo := newFakeRepo()
	repo.plans[monthlyPlanID] = &models.SubscriptionPlan{
		ID: monthlyPlanID, Name: "Monthly", Price: 49.5,
		Duration: models.PlanDurationMonthly, PostLimit: 5, IsActive: true,
	}
	repo.ads[adID] = &models.Advertisement{ID: adID, UserID: owner.UserID, Title: "Bike", Status: models.AdStatusPending}

	locker := &fakeLocker{}
	svc := NewService(repo, locker)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, locker
}

func seedRequest(repo *fakeRepo, userID uint, planID, adRef *uint, status string) *models.PaymentRequest {
	pr := &models.PaymentRequest{
		ID:                 repo.id(),
		UserID:             userID,
		SubscriptionPlanID: planID,
		AdvertisementID:    adRef,
		Amount:             49.5,
		Status:             status,
		PaymentMethod:      "bank_transfer",
		TransactionID:      "TX-ORIG",
	}
	repo.requests[pr.ID] = pr
	return pr
}

func TestVerify_NewSubscriptionAndApprovedAd(t *testing.T) {
	svc, repo, locker := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), uintPtr(adID), models.PaymentStatusPending)

	got, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{TransactionID: "TX-1"})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, got.Status)
	assert.Equal(t, "TX-1", got.TransactionID)
	assert.Equal(t, "bank_transfer", got.PaymentMethod)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, fixedNow, *got.PaidAt)
	require.NotNil(t, got.VerifiedByID)
	assert.Equal(t, admin.UserID, *got.VerifiedByID)

	sub, err := repo.activeSub(owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.PostsUsed)
	assert.Equal(t, 5, sub.PostsLimit)
	assert.Equal(t, fixedNow, sub.StartDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), sub.EndDate)
	require.NotNil(t, sub.SubscriptionPlanID)
	assert.Equal(t, uint(monthlyPlanID), *sub.SubscriptionPlanID)

	ad := repo.ads[adID]
	assert.Equal(t, models.AdStatusApproved, ad.Status)
	require.NotNil(t, ad.PublishedAt)
	assert.Equal(t, fixedNow, *ad.PublishedAt)
	assert.Equal(t, uint(monthlyPlanID), *ad.SubscriptionPlanID)

	assert.Equal(t, []string{"lock:subscription:user:7"}, locker.released)
}

func TestVerify_ExtendsActiveSubscription(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.subs[50] = &models.UserSubscription{
		ID: 50, UserID: owner.UserID, PostsUsed: 3, PostsLimit: 5,
		StartDate: fixedNow.AddDate(0, 0, -10), EndDate: fixedNow.AddDate(0, 0, 5), IsActive: true,
	}
	repo.plans[11] = &models.SubscriptionPlan{ID: 11, Duration: models.PlanDurationWeekly, PostLimit: 10, IsActive: true}
	pr := seedRequest(repo, owner.UserID, uintPtr(11), nil, models.PaymentStatusPending)

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	require.NoError(t, err)

	require.Len(t, repo.subs, 1)
	sub := repo.subs[50]
	assert.Equal(t, 3, sub.PostsUsed, "extension keeps used posts and no ad was approved")
	assert.Equal(t, 10, sub.PostsLimit)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), sub.EndDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, -10), sub.StartDate)
	require.NotNil(t, sub.RenewedAt)
	assert.Equal(t, uint(11), *sub.SubscriptionPlanID)
	assert.Equal(t, 0, repo.approvedCalls)
}

func TestVerify_AdWithoutPlanIsApproved(t *testing.T) {
	svc, repo, _ := newTestService(t)
	pr := seedRequest(repo, owner.UserID, nil, uintPtr(adID), models.PaymentStatusPending)

	got, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{AdminNotes: "ok"})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, got.Status)
	assert.Equal(t, "ok", got.AdminNotes)
	assert.Empty(t, repo.subs)
	assert.Equal(t, models.AdStatusApproved, repo.ads[adID].Status)
	assert.Nil(t, repo.ads[adID].SubscriptionPlanID)
}

func TestVerify_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		status  string
		id      uint
		wantErr error
	}{
		{name: "anonymous", actor: Actor{}, status: models.PaymentStatusPending, wantErr: ErrUnauthorized},
		{name: "not admin", actor: owner, status: models.PaymentStatusPending, wantErr: ErrForbidden},
		{name: "missing", actor: admin, status: models.PaymentStatusPending, id: 9999, wantErr: ErrNotFound},
		{name: "already paid", actor: admin, status: models.PaymentStatusPaid, wantErr: ErrInvalidState},
		{name: "cancelled", actor: admin, status: models.PaymentStatusCancelled, wantErr: ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), uintPtr(adID), tt.status)
			id := pr.ID
			if tt.id != 0 {
				id = tt.id
			}

			_, err := svc.Verify(context.Background(), tt.actor, id, VerifyInput{})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.subs)
			assert.Equal(t, models.AdStatusPending, repo.ads[adID].Status)
			assert.Equal(t, tt.status, repo.requests[pr.ID].Status)
		})
	}
}

func TestVerify_MissingAdvertisementRollsBack(t *testing.T) {
	svc, repo, _ := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), uintPtr(404), models.PaymentStatusPending)

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.PaymentStatusPending, repo.requests[pr.ID].Status)
	assert.Empty(t, repo.subs)
}

func TestVerify_SecondCallFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), uintPtr(adID), models.PaymentStatusPending)

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	assert.ErrorIs(t, err, ErrInvalidState)

	sub, err := repo.activeSub(owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.PostsUsed)
}

func TestVerify_UnknownDurationWritesNothing(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.plans[12] = &models.SubscriptionPlan{ID: 12, Duration: "daily", PostLimit: 3}
	pr := seedRequest(repo, owner.UserID, uintPtr(12), uintPtr(adID), models.PaymentStatusPending)

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	assert.ErrorIs(t, err, ErrInvalidPlanDuration)

	assert.Equal(t, models.PaymentStatusPending, repo.requests[pr.ID].Status)
	assert.Nil(t, repo.requests[pr.ID].PaidAt)
	assert.Empty(t, repo.subs)
	assert.Equal(t, models.AdStatusPending, repo.ads[adID].Status)
}

func TestVerify_DuplicateActiveSubscriptionRollsBack(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.createSubErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), uintPtr(adID), models.PaymentStatusPending)

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	assert.ErrorIs(t, err, ErrConcurrentSubscription)
	assert.Equal(t, models.PaymentStatusPending, repo.requests[pr.ID].Status)
	assert.Equal(t, models.AdStatusPending, repo.ads[adID].Status)
}

func TestVerify_BusyWhenUserLocked(t *testing.T) {
	svc, repo, locker := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)
	locker.held = map[string]bool{userLockKey(owner.UserID): true}

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, models.PaymentStatusPending, repo.requests[pr.ID].Status)
}

func TestVerify_LockerError(t *testing.T) {
	svc, repo, locker := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)
	locker.err = errors.New("redis down")

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusy)
	assert.Contains(t, err.Error(), "redis down")
}

func TestVerify_WithoutLocker(t *testing.T) {
	svc, repo, _ := newTestService(t)
	svc.locker = nil
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)

	_, err := svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	require.NoError(t, err)
	assert.Len(t, repo.subs, 1)
}

func TestCreate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.uploads[30] = &models.UploadFile{ID: 30, UserID: owner.UserID}

	got, err := svc.Create(context.Background(), owner, CreatePaymentRequestInput{
		AdvertisementID:    uintPtr(adID),
		SubscriptionPlanID: monthlyPlanID,
		PaymentMethod:      " bank_transfer ",
		TransactionID:      "TX-9",
		PaymentProofID:     uintPtr(30),
	})
	require.NoError(t, err)

	assert.Equal(t, owner.UserID, got.UserID)
	assert.Equal(t, models.PaymentStatusPending, got.Status)
	assert.Equal(t, 49.5, got.Amount)
	assert.Equal(t, "bank_transfer", got.PaymentMethod)
	require.NotNil(t, got.SubscriptionPlan)
	assert.Equal(t, uint(monthlyPlanID), got.SubscriptionPlan.ID)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		in      CreatePaymentRequestInput
		wantErr error
	}{
		{name: "anonymous", actor: Actor{}, in: CreatePaymentRequestInput{SubscriptionPlanID: monthlyPlanID}, wantErr: ErrUnauthorized},
		{name: "missing plan id", actor: owner, in: CreatePaymentRequestInput{}, wantErr: ErrInvalidInput},
		{name: "unknown plan", actor: owner, in: CreatePaymentRequestInput{SubscriptionPlanID: 404}, wantErr: ErrPlanNotFound},
		{name: "unknown ad", actor: owner, in: CreatePaymentRequestInput{SubscriptionPlanID: monthlyPlanID, AdvertisementID: uintPtr(404)}, wantErr: ErrNotFound},
		{name: "foreign ad", actor: stranger, in: CreatePaymentRequestInput{SubscriptionPlanID: monthlyPlanID, AdvertisementID: uintPtr(adID)}, wantErr: ErrForbidden},
		{name: "foreign proof", actor: stranger, in: CreatePaymentRequestInput{SubscriptionPlanID: monthlyPlanID, PaymentProofID: uintPtr(30)}, wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			repo.uploads[30] = &models.UploadFile{ID: 30, UserID: owner.UserID}

			_, err := svc.Create(context.Background(), tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.requests)
		})
	}
}

func TestFind_ScopesNonAdmins(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)
	seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPaid)
	seedRequest(repo, stranger.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)

	items, page, err := svc.Find(context.Background(), owner, PaymentRequestQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(2), page.Total)
	require.NotNil(t, repo.lastFilter.UserID)
	assert.Equal(t, owner.UserID, *repo.lastFilter.UserID)

	items, _, err = svc.Find(context.Background(), owner, PaymentRequestQuery{Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.PaymentStatusPaid, items[0].Status)

	items, page, err = svc.Find(context.Background(), admin, PaymentRequestQuery{Status: "pending", PageSize: 1})
	require.NoError(t, err)
	assert.Nil(t, repo.lastFilter.UserID)
	assert.Len(t, items, 1)
	assert.Equal(t, Pagination{Page: 1, PageSize: 1, PageCount: 2, Total: 2}, page)
}

func TestFind_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Find(context.Background(), Actor{}, PaymentRequestQuery{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = svc.Find(context.Background(), owner, PaymentRequestQuery{Status: "refunded"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet(t *testing.T) {
	svc, repo, _ := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)

	got, err := svc.Get(context.Background(), owner, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, pr.ID, got.ID)

	_, err = svc.Get(context.Background(), admin, pr.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), stranger, pr.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(context.Background(), owner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	svc, repo, _ := newTestService(t)
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)

	_, err := svc.Cancel(context.Background(), stranger, pr.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Cancel(context.Background(), owner, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, got.Status)

	_, err = svc.Cancel(context.Background(), owner, pr.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Verify(context.Background(), admin, pr.ID, VerifyInput{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCheckLimit(t *testing.T) {
	t.Run("no subscription", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		got, err := svc.CheckLimit(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, &LimitStatus{}, got)
	})

	t.Run("active subscription", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.subs[50] = &models.UserSubscription{
			ID: 50, UserID: owner.UserID, PostsUsed: 2, PostsLimit: 5,
			StartDate: fixedNow.AddDate(0, 0, -1), EndDate: fixedNow.AddDate(0, 0, 29), IsActive: true,
		}

		got, err := svc.CheckLimit(context.Background(), owner)
		require.NoError(t, err)
		assert.True(t, got.HasActiveSubscription)
		assert.True(t, got.CanPost)
		assert.Equal(t, 3, got.PostsRemaining)
		require.NotNil(t, got.Subscription)
		assert.Equal(t, uint(50), got.Subscription.ID)
	})

	t.Run("quota used up", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.subs[50] = &models.UserSubscription{
			ID: 50, UserID: owner.UserID, PostsUsed: 5, PostsLimit: 5,
			StartDate: fixedNow.AddDate(0, 0, -1), EndDate: fixedNow.AddDate(0, 0, 29), IsActive: true,
		}

		got, err := svc.CheckLimit(context.Background(), owner)
		require.NoError(t, err)
		assert.True(t, got.HasActiveSubscription)
		assert.False(t, got.CanPost)
		assert.Equal(t, 0, got.PostsRemaining)
	})

	t.Run("expired subscription is deactivated", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.subs[50] = &models.UserSubscription{
			ID: 50, UserID: owner.UserID, PostsUsed: 1, PostsLimit: 5,
			StartDate: fixedNow.AddDate(0, 0, -31), EndDate: fixedNow.Add(-time.Second), IsActive: true,
		}

		got, err := svc.CheckLimit(context.Background(), owner)
		require.NoError(t, err)
		assert.False(t, got.HasActiveSubscription)
		assert.False(t, got.CanPost)
		assert.Equal(t, 1, got.PostsUsed)
		assert.False(t, repo.subs[50].IsActive)
		assert.Nil(t, repo.subs[50].ActiveUserID)
	})

	t.Run("already deactivated elsewhere", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.subs[50] = &models.UserSubscription{
			ID: 50, UserID: owner.UserID, PostsUsed: 1, PostsLimit: 5,
			StartDate: fixedNow.AddDate(0, 0, -31), EndDate: fixedNow.Add(-time.Second), IsActive: true,
		}
		svc.repo = &renewingRepo{fakeRepo: repo, renew: func() { repo.subs[50].Deactivate() }}

		got, err := svc.CheckLimit(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, &LimitStatus{}, got)
	})

	t.Run("anonymous", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.CheckLimit(context.Background(), Actor{})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestCheckLimit_KeepsSubscriptionExtendedByConcurrentVerify(t *testing.T) {
	verifier, repo, _ := newTestService(t)
	repo.subs[50] = &models.UserSubscription{
		ID: 50, UserID: owner.UserID, PostsUsed: 2, PostsLimit: 5,
		StartDate: fixedNow.AddDate(0, 0, -31), EndDate: fixedNow.AddDate(0, 0, -1), IsActive: true,
	}
	pr := seedRequest(repo, owner.UserID, uintPtr(monthlyPlanID), nil, models.PaymentStatusPending)

	checker := NewService(&renewingRepo{fakeRepo: repo, renew: func() {
		_, err := verifier.Verify(context.Background(), admin, pr.ID, VerifyInput{})
		require.NoError(t, err)
	}}, nil)
	checker.now = func() time.Time { return fixedNow }

	got, err := checker.CheckLimit(context.Background(), owner)
	require.NoError(t, err)

	sub := repo.subs[50]
	assert.True(t, sub.IsActive, "paid extension must survive the stale expiry check")
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), sub.EndDate)
	assert.Equal(t, models.PaymentStatusPaid, repo.requests[pr.ID].Status)

	assert.True(t, got.HasActiveSubscription)
	assert.True(t, got.CanPost)
	assert.Equal(t, 3, got.PostsRemaining)
	require.NotNil(t, got.Subscription)
	assert.Equal(t, uint(50), got.Subscription.ID)
}

type ctxKey struct{}

func TestService_PassesRequestContextToRepository(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")

	_, err := svc.CheckLimit(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, repo.boundCtx)
	assert.Equal(t, "req-1", repo.boundCtx.Value(ctxKey{}))

	repo.boundCtx = nil
	_, err = svc.GetPlan(ctx, owner, monthlyPlanID)
	require.NoError(t, err)
	assert.Equal(t, "req-1", repo.boundCtx.Value(ctxKey{}))
}

func TestListPlans(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.plans[13] = &models.SubscriptionPlan{ID: 13, Duration: models.PlanDurationYearly, IsActive: false}

	plans, err := svc.ListPlans(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	plans, err = svc.ListPlans(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestGetPlan(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.plans[13] = &models.SubscriptionPlan{ID: 13, Duration: models.PlanDurationYearly, IsActive: false}

	plan, err := svc.GetPlan(context.Background(), owner, monthlyPlanID)
	require.NoError(t, err)
	assert.Equal(t, "Monthly", plan.Name)

	_, err = svc.GetPlan(context.Background(), owner, 13)
	assert.ErrorIs(t, err, ErrNotFound, "inactive plans are hidden from users")

	_, err = svc.GetPlan(context.Background(), Actor{}, 13)
	assert.ErrorIs(t, err, ErrNotFound)

	plan, err = svc.GetPlan(context.Background(), admin, 13)
	require.NoError(t, err)
	assert.Equal(t, uint(13), plan.ID)

	_, err = svc.GetPlan(context.Background(), admin, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSubscriptions(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.subs[50] = &models.UserSubscription{ID: 50, UserID: owner.UserID, IsActive: true}
	repo.subs[51] = &models.UserSubscription{ID: 51, UserID: stranger.UserID, IsActive: true}

	subs, err := svc.ListSubscriptions(context.Background(), owner, nil)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, uint(50), subs[0].ID)

	subs, err = svc.ListSubscriptions(context.Background(), admin, nil)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = svc.ListSubscriptions(context.Background(), Actor{}, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

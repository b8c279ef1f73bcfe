package billing

import "errors"

var (
	// ErrUnauthorized is returned when no caller identity is present.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the caller lacks the role or ownership.
	ErrForbidden = errors.New("not allowed")
	// ErrNotFound is returned when the payment request or a referenced entity is missing.
	ErrNotFound = errors.New("not found")
	// ErrPlanNotFound is returned when a payment request references an unknown plan.
	ErrPlanNotFound = errors.New("subscription plan not found")
	// ErrInvalidState is returned when a status transition is attempted on a non-pending request.
	ErrInvalidState = errors.New("payment request is not in pending status")
	// ErrInvalidInput wraps payload validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidPlanDuration is returned when a plan carries a duration outside weekly/monthly/yearly.
	ErrInvalidPlanDuration = errors.New("subscription plan has an unsupported duration")
	// ErrBusy is returned when another verification for the same user holds the lock.
	ErrBusy = errors.New("another verification for this user is in progress")
	// ErrConcurrentSubscription is returned when a second active subscription would be created.
	ErrConcurrentSubscription = errors.New("user already has an active subscription")
)

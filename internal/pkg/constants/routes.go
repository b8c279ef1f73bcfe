package constants

// API route constants
const (
	APIRoute            = "/api"
	APIv1Route          = "/v1"
	PaymentRequestsPath = "/payment-requests"
	SubscriptionsPath   = "/user-subscriptions"
	PlansPath           = "/subscription-plans"
	UploadPath          = "/upload"
	DocsBasePath        = "/docs/api/"
)

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AdMarket/app/controllers"
	"github.com/ManuelReschke/AdMarket/internal/pkg/constants"
	"github.com/ManuelReschke/AdMarket/internal/pkg/middleware"
)

// Dependencies are the collaborators the API routes are built from.
type Dependencies struct {
	Payments controllers.PaymentService
	Uploads  controllers.ProofUploader
	Cache    controllers.JSONCache
	Tokens   middleware.TokenValidator
	Users    middleware.UserLookup
	// RateLimit guards /api/v1 after authentication; nil disables it.
	RateLimit fiber.Handler
}

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute)
	api.Get("/ping", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	v1 := api.Group(constants.APIv1Route, middleware.BearerAuthMiddleware(h.deps.Tokens, h.deps.Users))
	if h.deps.RateLimit != nil {
		v1.Use(h.deps.RateLimit)
	}

	billing := controllers.NewBillingController(h.deps.Payments, h.deps.Uploads, h.deps.Cache)

	v1.Get(constants.PlansPath, billing.HandleListPlans)
	v1.Get(constants.PlansPath+"/:id<int>", billing.HandleGetPlan)

	pr := v1.Group(constants.PaymentRequestsPath, middleware.RequireAuth)
	pr.Post("/", billing.HandleCreatePaymentRequest)
	pr.Get("/", billing.HandleListPaymentRequests)
	pr.Get("/:id<int>", billing.HandleGetPaymentRequest)
	pr.Post("/:id<int>/verify", middleware.RequireAdmin, billing.HandleVerifyPaymentRequest)
	pr.Post("/:id<int>/cancel", billing.HandleCancelPaymentRequest)

	subs := v1.Group(constants.SubscriptionsPath, middleware.RequireAuth)
	subs.Get("/", billing.HandleListSubscriptions)
	subs.Get("/check-limit", billing.HandleCheckLimit)

	v1.Post(constants.UploadPath, middleware.RequireAuth, billing.HandleUpload)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

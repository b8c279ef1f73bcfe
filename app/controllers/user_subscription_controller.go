package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AdMarket/app/models"
)

// HandleCheckLimit reports the caller's posting quota.
func (h *BillingController) HandleCheckLimit(c *fiber.Ctx) error {
	status, err := h.payments.CheckLimit(c.UserContext(), actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": status})
}

// HandleListSubscriptions lists subscriptions, optionally filtered by ?is_active=.
func (h *BillingController) HandleListSubscriptions(c *fiber.Ctx) error {
	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_query", "is_active must be true or false")
		}
		isActive = &v
	}

	subs, err := h.payments.ListSubscriptions(c.UserContext(), actorFrom(c), isActive)
	if err != nil {
		return respondError(c, err)
	}
	if subs == nil {
		subs = []models.UserSubscription{}
	}
	return c.JSON(fiber.Map{"data": subs})
}

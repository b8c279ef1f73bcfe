package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdMarket/app/models"
)

const (
	activePlansCacheKey = "plans:active"
	activePlansCacheTTL = 5 * time.Minute
)

// HandleListPlans lists purchasable plans. Admins also see inactive ones.
// The public list is cached.
func (h *BillingController) HandleListPlans(c *fiber.Ctx) error {
	actor := actorFrom(c)
	cacheable := h.cache != nil && !actor.IsAdmin

	if cacheable {
		var cached []models.SubscriptionPlan
		if err := h.cache.GetJSON(activePlansCacheKey, &cached); err == nil {
			return c.JSON(fiber.Map{"data": cached})
		}
	}

	plans, err := h.payments.ListPlans(c.UserContext(), actor)
	if err != nil {
		return respondError(c, err)
	}
	if plans == nil {
		plans = []models.SubscriptionPlan{}
	}

	if cacheable {
		if err := h.cache.SetJSON(activePlansCacheKey, plans, activePlansCacheTTL); err != nil {
			log.Warnf("[API] failed to cache plan list: %v", err)
		}
	}
	return c.JSON(fiber.Map{"data": plans})
}

// HandleGetPlan returns one plan. Inactive plans are 404 for non-admins.
func (h *BillingController) HandleGetPlan(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "invalid subscription plan id")
	}

	plan, err := h.payments.GetPlan(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": plan})
}

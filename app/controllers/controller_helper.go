package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdMarket/internal/pkg/billing"
	"github.com/ManuelReschke/AdMarket/internal/pkg/upload"
	"github.com/ManuelReschke/AdMarket/internal/pkg/usercontext"
)

// actorFrom turns the request's user context into a billing actor.
func actorFrom(c *fiber.Ctx) billing.Actor {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return billing.Actor{}
	}
	return billing.Actor{UserID: uc.UserID, IsAdmin: uc.IsAdmin}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// respondError maps workflow errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without details.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrUnauthorized):
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, billing.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, billing.ErrPlanNotFound):
		return errorJSON(c, fiber.StatusBadRequest, "plan_not_found", err.Error())
	case errors.Is(err, billing.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, billing.ErrInvalidState):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_state", err.Error())
	case errors.Is(err, billing.ErrInvalidInput):
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, billing.ErrBusy), errors.Is(err, billing.ErrConcurrentSubscription):
		return errorJSON(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, upload.ErrTooLarge):
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, "file_too_large", err.Error())
	case errors.Is(err, upload.ErrUnsupportedType), errors.Is(err, upload.ErrEmptyFile):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_file", err.Error())
	case errors.Is(err, billing.ErrInvalidPlanDuration):
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
		return errorJSON(c, fiber.StatusInternalServerError, "plan_misconfigured", "subscription plan is misconfigured")
	default:
		log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "internal error")
	}
}

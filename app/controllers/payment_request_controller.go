package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/internal/pkg/billing"
)

// proofField is the multipart field carrying a payment proof on create.
const proofField = "proof"

type createPaymentRequestEnvelope struct {
	Data *billing.CreatePaymentRequestInput `json:"data"`
}

type verifyEnvelope struct {
	Data *billing.VerifyInput `json:"data"`
}

// HandleCreatePaymentRequest creates a pending payment request for the caller.
// The body is JSON ({"data": {...}} or the bare object) or multipart with the
// same JSON in a "data" field and an optional proof file.
func (h *BillingController) HandleCreatePaymentRequest(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if !actor.IsAuthenticated() {
		return respondError(c, billing.ErrUnauthorized)
	}

	var in billing.CreatePaymentRequestInput
	var proof *models.UploadFile

	if isMultipart(c) {
		if raw := c.FormValue("data"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in); err != nil {
				return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "data field is not valid JSON")
			}
		}
		fh, err := c.FormFile(proofField)
		if err == nil {
			f, err := fh.Open()
			if err != nil {
				return respondError(c, err)
			}
			proof, err = h.uploads.SaveProof(c.UserContext(), actor.UserID, fh.Filename, f, fh.Size)
			f.Close()
			if err != nil {
				return respondError(c, err)
			}
			in.PaymentProofID = &proof.ID
		}
	} else {
		var env createPaymentRequestEnvelope
		if err := c.BodyParser(&env); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
		if env.Data != nil {
			in = *env.Data
		} else if err := c.BodyParser(&in); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
	}

	pr, err := h.payments.Create(c.UserContext(), actor, in)
	if err != nil {
		if proof != nil {
			h.uploads.Discard(c.UserContext(), proof)
		}
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": pr})
}

// HandleListPaymentRequests lists the caller's payment requests, or all of
// them for admins.
func (h *BillingController) HandleListPaymentRequests(c *fiber.Ctx) error {
	pageSize := c.QueryInt("pageSize", 0)
	if pageSize == 0 {
		pageSize = c.QueryInt("page_size", 0)
	}
	q := billing.PaymentRequestQuery{
		Status:   c.Query("status"),
		Page:     c.QueryInt("page", 1),
		PageSize: pageSize,
	}

	items, page, err := h.payments.Find(c.UserContext(), actorFrom(c), q)
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []models.PaymentRequest{}
	}

	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{"pagination": page},
	})
}

// HandleGetPaymentRequest returns one payment request to its owner or an admin.
func (h *BillingController) HandleGetPaymentRequest(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "invalid payment request id")
	}

	pr, err := h.payments.Get(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": pr})
}

// HandleVerifyPaymentRequest marks a pending payment as paid. The body is
// optional.
func (h *BillingController) HandleVerifyPaymentRequest(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "invalid payment request id")
	}

	var in billing.VerifyInput
	if len(strings.TrimSpace(string(c.Body()))) > 0 {
		var env verifyEnvelope
		if err := c.BodyParser(&env); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
		if env.Data != nil {
			in = *env.Data
		} else if err := c.BodyParser(&in); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
	}

	pr, err := h.payments.Verify(c.UserContext(), actorFrom(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":    pr,
		"message": "Payment verified and subscription activated",
	})
}

// HandleCancelPaymentRequest cancels a pending payment request.
func (h *BillingController) HandleCancelPaymentRequest(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "invalid payment request id")
	}

	pr, err := h.payments.Cancel(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": pr})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

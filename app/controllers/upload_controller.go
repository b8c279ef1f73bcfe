package controllers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/internal/pkg/billing"
)

type uploadedFile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int64  `json:"size"`
}

// HandleUpload stores the multipart "files" (or "file") entries as payment
// proofs. Either all files are stored or none.
func (h *BillingController) HandleUpload(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if !actor.IsAuthenticated() {
		return respondError(c, billing.ErrUnauthorized)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "multipart form expected")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_body", "no files uploaded")
	}

	saved := make([]*models.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := h.saveOne(c, actor.UserID, fh)
		if err != nil {
			for _, prev := range saved {
				h.uploads.Discard(c.UserContext(), prev)
			}
			return respondError(c, err)
		}
		saved = append(saved, file)
	}

	out := make([]uploadedFile, 0, len(saved))
	for _, f := range saved {
		out = append(out, uploadedFile{ID: f.ID, Name: f.OriginalName, Mime: f.MimeType, Size: f.Size})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *BillingController) saveOne(c *fiber.Ctx, userID uint, fh *multipart.FileHeader) (*models.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return h.uploads.SaveProof(c.UserContext(), userID, fh.Filename, f, fh.Size)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gabrielgalarza/orgmapper/internal/api/dto"
	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/service"
	apperrors "github.com/gabrielgalarza/orgmapper/pkg/util/errorutil"
)

// DocumentHandler exposes the current document and its commands.
type DocumentHandler struct {
	service *service.OrgService
}

// NewDocumentHandler constructs handler.
func NewDocumentHandler(orgService *service.OrgService) *DocumentHandler {
	return &DocumentHandler{service: orgService}
}

// GetDocument GET /api/document. The ETag is the document fingerprint.
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	doc := h.service.Document()
	sum, err := codec.Fingerprint(doc)
	if err != nil {
		return apperrors.MapError(err)
	}
	etag := `"` + sum + `"`
	c.Set(fiber.HeaderETag, etag)
	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}
	return c.JSON(fiber.Map{"data": doc})
}

// ApplyCommand POST /api/document/commands.
func (h *DocumentHandler) ApplyCommand(c *fiber.Ctx) error {
	var req dto.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Type == "" {
		return apperrors.NewValidationError("type required", nil)
	}
	cmd, err := req.ToCommand()
	if err != nil {
		return apperrors.NewValidationError("invalid command", map[string]any{"reason": err.Error()})
	}

	doc, changed := h.service.Apply(c.UserContext(), cmd)
	return c.JSON(fiber.Map{"data": dto.CommandResponse{Changed: changed, Document: doc}})
}

// Reset POST /api/document/reset deletes every organization and starts over.
func (h *DocumentHandler) Reset(c *fiber.Ctx) error {
	record := h.service.Reset(c.UserContext())
	return c.JSON(fiber.Map{"data": dto.NewOrganizationResponse(record, record.ID)})
}

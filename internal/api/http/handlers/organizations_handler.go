package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gabrielgalarza/orgmapper/internal/api/dto"
	"github.com/gabrielgalarza/orgmapper/internal/service"
	apperrors "github.com/gabrielgalarza/orgmapper/pkg/util/errorutil"
)

// OrganizationsHandler manages the organization catalog.
type OrganizationsHandler struct {
	service  *service.OrgService
	activity *service.ActivityService
}

// NewOrganizationsHandler constructs handler.
func NewOrganizationsHandler(orgService *service.OrgService, activity *service.ActivityService) *OrganizationsHandler {
	return &OrganizationsHandler{service: orgService, activity: activity}
}

// List GET /api/organizations.
func (h *OrganizationsHandler) List(c *fiber.Ctx) error {
	currentID := h.service.Current().ID
	records := h.service.ListOrganizations()
	items := make([]dto.OrganizationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewOrganizationResponse(record, currentID))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /api/organizations.
func (h *OrganizationsHandler) Create(c *fiber.Ctx) error {
	var req dto.OrganizationNameRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.service.CreateOrganization(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrganizationResponse(record, record.ID)})
}

// Rename PUT /api/organizations/:id.
func (h *OrganizationsHandler) Rename(c *fiber.Ctx) error {
	var req dto.OrganizationNameRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.service.RenameOrganization(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrganizationResponse(record, h.service.Current().ID)})
}

// Delete DELETE /api/organizations/:id.
func (h *OrganizationsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteOrganization(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Switch POST /api/organizations/:id/switch.
func (h *OrganizationsHandler) Switch(c *fiber.Ctx) error {
	record, err := h.service.SwitchOrganization(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrganizationResponse(record, record.ID)})
}

// Activity GET /api/activity?limit=.
func (h *OrganizationsHandler) Activity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	return c.JSON(fiber.Map{"data": h.activity.Recent(limit)})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gabrielgalarza/orgmapper/internal/api/dto"
	"github.com/gabrielgalarza/orgmapper/internal/query"
	"github.com/gabrielgalarza/orgmapper/internal/service"
	apperrors "github.com/gabrielgalarza/orgmapper/pkg/util/errorutil"
)

// QueryHandler serves read-only views derived from the current document.
type QueryHandler struct {
	service *service.OrgService
}

// NewQueryHandler constructs handler.
func NewQueryHandler(orgService *service.OrgService) *QueryHandler {
	return &QueryHandler{service: orgService}
}

// ListTeams GET /api/teams.
func (h *QueryHandler) ListTeams(c *fiber.Ctx) error {
	doc := h.service.Document()
	teams := query.Teams(doc)
	items := make([]dto.TeamResponse, 0, len(teams))
	for _, team := range teams {
		items = append(items, dto.TeamResponse{Team: team, Members: query.TeamMembers(doc, team.ID)})
	}
	return c.JSON(fiber.Map{"data": items})
}

// TeamPeople GET /api/teams/:id/people.
func (h *QueryHandler) TeamPeople(c *fiber.Ctx) error {
	doc := h.service.Document()
	id := c.Params("id")
	if _, ok := doc.Teams[id]; !ok {
		return apperrors.NewNotFound("team", map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{"data": query.TeamMembers(doc, id)})
}

// ListPeople GET /api/people, ordered by level.
func (h *QueryHandler) ListPeople(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": query.PeopleByLevel(h.service.Document())})
}

// GetPerson GET /api/people/:id.
func (h *QueryHandler) GetPerson(c *fiber.Ctx) error {
	id := c.Params("id")
	person, ok := query.Person(h.service.Document(), id)
	if !ok {
		return apperrors.NewNotFound("person", map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{"data": person})
}

// DirectReports GET /api/people/:id/reports.
func (h *QueryHandler) DirectReports(c *fiber.Ctx) error {
	doc := h.service.Document()
	id := c.Params("id")
	if _, ok := query.Person(doc, id); !ok {
		return apperrors.NewNotFound("person", map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{"data": query.DirectReports(doc, id)})
}

// ManagementChain GET /api/people/:id/chain.
func (h *QueryHandler) ManagementChain(c *fiber.Ctx) error {
	doc := h.service.Document()
	id := c.Params("id")
	if _, ok := query.Person(doc, id); !ok {
		return apperrors.NewNotFound("person", map[string]any{"id": id})
	}
	return c.JSON(fiber.Map{"data": query.ManagementChain(doc, id)})
}

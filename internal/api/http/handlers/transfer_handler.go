package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gabrielgalarza/orgmapper/internal/api/dto"
	"github.com/gabrielgalarza/orgmapper/internal/codec"
	"github.com/gabrielgalarza/orgmapper/internal/service"
	apperrors "github.com/gabrielgalarza/orgmapper/pkg/util/errorutil"
)

// TransferHandler serves share links and file import/export.
type TransferHandler struct {
	service *service.OrgService
	baseURL string
}

// NewTransferHandler constructs handler. baseURL prefixes generated share links.
func NewTransferHandler(orgService *service.OrgService, baseURL string) *TransferHandler {
	return &TransferHandler{service: orgService, baseURL: baseURL}
}

// Share GET /api/share?base=.
func (h *TransferHandler) Share(c *fiber.Ctx) error {
	base := c.Query("base", h.baseURL)
	link, err := h.service.ShareURL(base)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ShareResponse{URL: link, Name: h.service.Current().Name}})
}

// Ingest POST /api/share/ingest. The shared state comes from the request
// query or from a {"url": ...} body.
func (h *TransferHandler) Ingest(c *fiber.Ctx) error {
	values, err := ingestValues(c)
	if err != nil {
		return err
	}
	record, ok, err := h.service.IngestShare(c.UserContext(), values)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("no shared organization in request", map[string]any{"param": codec.ParamDocument})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrganizationResponse(record, record.ID)})
}

func ingestValues(c *fiber.Ctx) (url.Values, error) {
	values := url.Values{}
	for key, value := range c.Queries() {
		values.Set(key, value)
	}
	if values.Get(codec.ParamDocument) != "" || len(c.Body()) == 0 {
		return values, nil
	}

	var req dto.IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid url", map[string]any{"url": req.URL})
	}
	return u.Query(), nil
}

// Export GET /api/export?format=json|yaml.
func (h *TransferHandler) Export(c *fiber.Ctx) error {
	format, err := codec.ParseFormat(c.Query("format", string(codec.FormatJSON)))
	if err != nil {
		return apperrors.NewValidationError("unsupported export format", map[string]any{"format": c.Query("format")})
	}
	filename, data, err := h.service.ExportFile(format)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

// Import POST /api/import?name=&format=&filename=. The body is the raw file.
func (h *TransferHandler) Import(c *fiber.Ctx) error {
	format := codec.FormatFromFilename(c.Query("filename"))
	if raw := c.Query("format"); raw != "" {
		parsed, err := codec.ParseFormat(raw)
		if err != nil {
			return apperrors.NewValidationError("unsupported import format", map[string]any{"format": raw})
		}
		format = parsed
	}
	if len(c.Body()) == 0 {
		return apperrors.NewValidationError("file body required", nil)
	}

	record, err := h.service.ImportFile(c.UserContext(), c.Query("name"), c.Body(), format)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrganizationResponse(record, record.ID)})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-report-service/internal/api/dto"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/repository"
	"github.com/spec-kit/incident-report-service/internal/service"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// ReportsHandler exposes report submission and tracking endpoints.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reportService}
}

// Submit handles POST /api/reports (multipart form). Submission is
// anonymous; an authenticated caller just gets ownership recorded.
func (h *ReportsHandler) Submit(c *fiber.Ctx) error {
	input := service.SubmitReportInput{
		IncidentType: c.FormValue("incidentType"),
		Title:        c.FormValue("reportTitle"),
		Description:  c.FormValue("description"),
	}
	if loc := c.FormValue("location"); loc != "" {
		input.Location = &loc
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		input.OwnerUserID = &principal.User.ID
	}

	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return apperrors.NewValidationError("unable to read uploaded image", nil)
		}
		defer file.Close()
		input.Image = &service.ImageUpload{
			FileName: fileHeader.Filename,
			Size:     fileHeader.Size,
			Content:  file,
		}
	}

	report, err := h.reports.SubmitReport(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.SubmitReportResponse{TrackNumber: report.TrackNumber})
}

// Get handles GET /api/reports/:trackNumber.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	report, err := h.reports.GetByTrackNumber(c.UserContext(), c.Params("trackNumber"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewReportResponse(report))
}

// ListAll handles GET /api/reports/all for the admin dashboard.
func (h *ReportsHandler) ListAll(c *fiber.Ctx) error {
	filter := repository.ReportFilter{
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if status := c.Query("status"); status != "" {
		st := domain.ReportStatus(status)
		if !domain.ValidReportStatus(st) {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
		filter.Status = &st
	}

	reports, err := h.reports.ListReports(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewReportResponses(reports))
}

// UpdateStatus handles PUT /api/reports/:trackNumber/status.
func (h *ReportsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}

	var changedBy *string
	if principal, ok := auth.PrincipalFromContext(c); ok {
		changedBy = &principal.User.ID
	}

	report, err := h.reports.UpdateStatus(c.UserContext(), c.Params("trackNumber"), domain.ReportStatus(req.Status), changedBy)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewReportResponse(report))
}

// History handles GET /api/reports/:trackNumber/history.
func (h *ReportsHandler) History(c *fiber.Ctx) error {
	entries, err := h.reports.History(c.UserContext(), c.Params("trackNumber"),
		parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewStatusAuditResponses(entries))
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

package dto

import (
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// SubmitReportResponse returns the issued tracking number.
type SubmitReportResponse struct {
	TrackNumber string `json:"trackNumber"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ReportResponse is the public report shape.
type ReportResponse struct {
	TrackNumber  string    `json:"trackNumber"`
	IncidentType string    `json:"incidentType"`
	Title        string    `json:"reportTitle"`
	Description  string    `json:"description"`
	Location     *string   `json:"location,omitempty"`
	ImageURL     *string   `json:"imageUrl,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewReportResponse maps a domain report.
func NewReportResponse(report *domain.Report) ReportResponse {
	return ReportResponse{
		TrackNumber:  report.TrackNumber,
		IncidentType: report.IncidentType,
		Title:        report.Title,
		Description:  report.Description,
		Location:     report.Location,
		ImageURL:     report.ImageURL,
		Status:       string(report.Status),
		CreatedAt:    report.CreatedAt,
		UpdatedAt:    report.UpdatedAt,
	}
}

// NewReportResponses maps a slice of reports.
func NewReportResponses(reports []domain.Report) []ReportResponse {
	result := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		result = append(result, NewReportResponse(&reports[i]))
	}
	return result
}

// StatusAuditResponse is one entry of a report's status trail.
type StatusAuditResponse struct {
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ChangedBy *string   `json:"changedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewStatusAuditResponses maps audit entries.
func NewStatusAuditResponses(entries []domain.ReportStatusAudit) []StatusAuditResponse {
	result := make([]StatusAuditResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, StatusAuditResponse{
			OldStatus: string(entry.OldStatus),
			NewStatus: string(entry.NewStatus),
			ChangedBy: entry.ChangedBy,
			CreatedAt: entry.CreatedAt,
		})
	}
	return result
}

package domain

import "time"

// ReportStatus enumerates the three-stage report lifecycle.
type ReportStatus string

const (
	ReportStatusReceived   ReportStatus = "received"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
)

// ValidReportStatus reports whether s is a known lifecycle value.
func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportStatusReceived, ReportStatusProcessing, ReportStatusCompleted:
		return true
	}
	return false
}

// Report is the aggregate for submitted incidents, publicly addressable by
// its unique 7-digit track number.
type Report struct {
	ID           string
	TrackNumber  string
	IncidentType string
	Title        string
	Description  string
	Location     *string
	ImageURL     *string
	Status       ReportStatus
	OwnerUserID  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportStatusAudit records a single status change on a report.
type ReportStatusAudit struct {
	ID        string
	ReportID  string
	ChangedBy *string
	OldStatus ReportStatus
	NewStatus ReportStatus
	CreatedAt time.Time
}

package service

import (
	"context"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/events"
	"github.com/spec-kit/incident-report-service/internal/repository"
	"github.com/spec-kit/incident-report-service/internal/upload"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// trackNumberAttempts bounds re-rolls when a generated track number collides
// with an existing one. The store's unique constraint is authoritative.
const trackNumberAttempts = 5

// ReportService coordinates report submission and tracking workflows.
type ReportService struct {
	reports    repository.ReportRepository
	audits     repository.ReportAuditRepository
	uploads    upload.Store
	dispatcher events.Dispatcher
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo  repository.ReportRepository
	AuditRepo   repository.ReportAuditRepository
	UploadStore upload.Store
	Dispatcher  events.Dispatcher
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		reports:    deps.ReportRepo,
		audits:     deps.AuditRepo,
		uploads:    deps.UploadStore,
		dispatcher: deps.Dispatcher,
	}
}

// ImageUpload carries an evidence image from the multipart boundary.
type ImageUpload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// SubmitReportInput describes report creation payload.
type SubmitReportInput struct {
	IncidentType string
	Title        string
	Description  string
	Location     *string
	OwnerUserID  *string
	Image        *ImageUpload
}

// SubmitReport validates input, stores the optional evidence image, and
// persists the report under a freshly issued 7-digit track number with
// initial status "received".
func (s *ReportService) SubmitReport(ctx context.Context, input SubmitReportInput) (*domain.Report, error) {
	if strings.TrimSpace(input.IncidentType) == "" ||
		strings.TrimSpace(input.Title) == "" ||
		strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("incident type, report title, and description are required", nil)
	}

	var imageURL *string
	if input.Image != nil {
		url, err := s.uploads.Save(ctx, input.Image.FileName, input.Image.Size, input.Image.Content)
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	report := &domain.Report{
		IncidentType: strings.TrimSpace(input.IncidentType),
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Location:     input.Location,
		ImageURL:     imageURL,
		Status:       domain.ReportStatusReceived,
		OwnerUserID:  input.OwnerUserID,
	}

	var lastErr error
	for attempt := 0; attempt < trackNumberAttempts; attempt++ {
		report.TrackNumber = generateTrackNumber()
		err := s.reports.Create(ctx, report)
		if err == nil {
			s.publishEvent(ctx, events.Event{
				Type:  events.EventReportCreated,
				Actor: reportActor(input.OwnerUserID),
				Payload: events.ReportCreatedPayload{
					TrackNumber:  report.TrackNumber,
					IncidentType: report.IncidentType,
					Title:        report.Title,
					HasImage:     imageURL != nil,
				},
			})
			return report, nil
		}
		if field, ok := repository.UniqueViolationField(err); ok && field == "trackNumber" {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, apperrors.NewStorageUnavailable(lastErr)
}

// GetByTrackNumber performs an exact-match lookup.
func (s *ReportService) GetByTrackNumber(ctx context.Context, trackNumber string) (*domain.Report, error) {
	report, err := s.reports.GetByTrackNumber(ctx, strings.TrimSpace(trackNumber))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("report", map[string]any{"track_number": trackNumber})
		}
		return nil, err
	}
	return report, nil
}

// UpdateStatus moves a report along its lifecycle. Transitions only run
// forward (received -> processing -> completed); updating to the current
// status is a no-op so repeated admin actions stay idempotent.
func (s *ReportService) UpdateStatus(ctx context.Context, trackNumber string, newStatus domain.ReportStatus, changedBy *string) (*domain.Report, error) {
	if !domain.ValidReportStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status value",
			map[string]any{"status": string(newStatus)})
	}

	report, err := s.GetByTrackNumber(ctx, trackNumber)
	if err != nil {
		return nil, err
	}
	if report.Status == newStatus {
		return report, nil
	}
	if !isForwardTransition(report.Status, newStatus) {
		return nil, apperrors.NewValidationError("status cannot move backward",
			map[string]any{"current": string(report.Status), "requested": string(newStatus)})
	}

	oldStatus := report.Status
	updated, err := s.reports.UpdateStatus(ctx, report.ID, newStatus)
	if err != nil {
		return nil, err
	}
	if s.audits != nil {
		entry := &domain.ReportStatusAudit{
			ReportID:  updated.ID,
			ChangedBy: changedBy,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		}
		if err := s.audits.Create(ctx, entry); err != nil {
			return nil, err
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:  events.EventReportStatusChanged,
		Actor: events.Actor{Role: domain.RoleAdmin, UserID: changedBy},
		Payload: events.ReportStatusChangedPayload{
			TrackNumber: updated.TrackNumber,
			OldStatus:   oldStatus,
			NewStatus:   newStatus,
		},
	})
	return updated, nil
}

// ListReports returns reports matching the admin filter, insertion order.
func (s *ReportService) ListReports(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	return s.reports.ListWithFilter(ctx, filter)
}

// History returns the status audit trail for a report, newest first.
func (s *ReportService) History(ctx context.Context, trackNumber string, limit, offset int) ([]domain.ReportStatusAudit, error) {
	if s.audits == nil {
		return []domain.ReportStatusAudit{}, nil
	}
	report, err := s.GetByTrackNumber(ctx, trackNumber)
	if err != nil {
		return nil, err
	}
	return s.audits.ListByReport(ctx, report.ID, limit, offset)
}

// generateTrackNumber draws a 7-digit numeric string uniformly from
// [1000000, 9999999].
func generateTrackNumber() string {
	return strconv.Itoa(1000000 + rand.Intn(9000000))
}

var forwardTransitions = map[domain.ReportStatus][]domain.ReportStatus{
	domain.ReportStatusReceived:   {domain.ReportStatusProcessing, domain.ReportStatusCompleted},
	domain.ReportStatusProcessing: {domain.ReportStatusCompleted},
	domain.ReportStatusCompleted:  {},
}

func isForwardTransition(current, next domain.ReportStatus) bool {
	for _, candidate := range forwardTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func reportActor(userID *string) events.Actor {
	if userID == nil {
		return events.Actor{Role: domain.RoleUser}
	}
	return events.Actor{Role: domain.RoleUser, UserID: userID}
}

package events

import (
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportCreated       EventType = "report_created"
	EventReportStatusChanged EventType = "report_status_changed"
	EventChatMessageSent     EventType = "chat_message_sent"
	EventConversationOpened  EventType = "conversation_opened"
)

// Actor encapsulates actor metadata for an event. Anonymous submissions
// carry no actor ID.
type Actor struct {
	Role   domain.UserRole `json:"role"`
	UserID *string         `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportCreatedPayload payload.
type ReportCreatedPayload struct {
	TrackNumber  string `json:"track_number"`
	IncidentType string `json:"incident_type"`
	Title        string `json:"title"`
	HasImage     bool   `json:"has_image"`
}

// ReportStatusChangedPayload payload.
type ReportStatusChangedPayload struct {
	TrackNumber string              `json:"track_number"`
	OldStatus   domain.ReportStatus `json:"old_status"`
	NewStatus   domain.ReportStatus `json:"new_status"`
}

// ChatMessageSentPayload payload.
type ChatMessageSentPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	BodyPreview    string `json:"body_preview"`
}

// ConversationOpenedPayload payload.
type ConversationOpenedPayload struct {
	ConversationID string    `json:"conversation_id"`
	OpenedAt       time.Time `json:"opened_at"`
}

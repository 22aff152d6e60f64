package dto

import (
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// SendMessageRequest payload.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// ConversationResponse is one admin-inbox entry.
type ConversationResponse struct {
	ID              string     `json:"id"`
	DisplayName     *string    `json:"displayName,omitempty"`
	LastMessage     *string    `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
	OpenedByAdminAt *time.Time `json:"openedByAdminAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Unread          bool       `json:"unread"`
}

// NewConversationResponses maps sorted conversation views.
func NewConversationResponses(views []domain.ConversationView) []ConversationResponse {
	result := make([]ConversationResponse, 0, len(views))
	for _, view := range views {
		result = append(result, ConversationResponse{
			ID:              view.ID,
			DisplayName:     view.DisplayName,
			LastMessage:     view.LastMessage,
			LastMessageTime: view.LastMessageTime,
			OpenedByAdminAt: view.OpenedByAdminAt,
			UpdatedAt:       view.UpdatedAt,
			Unread:          view.Unread,
		})
	}
	return result
}

// MessageResponse is one chat message.
type MessageResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *domain.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		ChatID:    msg.ConversationID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		Read:      msg.Read,
		CreatedAt: msg.CreatedAt,
	}
}

// NewMessageResponses maps an ordered message set.
func NewMessageResponses(msgs []domain.ChatMessage) []MessageResponse {
	result := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		result = append(result, NewMessageResponse(&msgs[i]))
	}
	return result
}

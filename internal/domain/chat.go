package domain

import "time"

// Conversation is one support thread between an end user and the admin.
// Its ID is derived from the owning user's ID, so there is at most one
// conversation per user and it is created lazily on first contact.
type Conversation struct {
	ID              string
	UserID          string
	DisplayName     *string
	LastMessage     *string
	LastMessageTime *time.Time
	OpenedByAdminAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ConversationView is a conversation decorated with the derived unread flag
// for admin inbox listings.
type ConversationView struct {
	Conversation
	Unread bool
}

// ChatMessage is a single message within a conversation. Immutable once
// created except for the read flag.
type ChatMessage struct {
	ID             string
	ConversationID string
	SenderID       string
	Text           string
	Read           bool
	CreatedAt      time.Time
}

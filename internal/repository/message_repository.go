package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// MessageRepository manages chat messages within conversations.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error)
	// MarkRead flips the read flag on messages not sent by readerID.
	MarkRead(ctx context.Context, conversationID, readerID string) error
	// LatestTimes returns the newest message timestamp per conversation.
	LatestTimes(ctx context.Context) (map[string]time.Time, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (conversation_id, sender_id, body, read)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ConversationID,
		msg.SenderID,
		msg.Text,
		msg.Read,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, conversation_id, sender_id, body, read, created_at
        FROM chat_messages WHERE conversation_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Text,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, readerID string) error {
	const query = `
        UPDATE chat_messages SET read=TRUE
        WHERE conversation_id=$1 AND sender_id<>$2 AND read=FALSE`
	_, err := r.pool.Exec(ctx, query, conversationID, readerID)
	return err
}

func (r *messageRepository) LatestTimes(ctx context.Context) (map[string]time.Time, error) {
	const query = `
        SELECT conversation_id, MAX(created_at)
        FROM chat_messages GROUP BY conversation_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var latest time.Time
		if err := rows.Scan(&id, &latest); err != nil {
			return nil, err
		}
		result[id] = latest
	}
	return result, rows.Err()
}

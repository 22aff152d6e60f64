package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// ConversationRepository manages support-chat conversation records.
// Conversation IDs are derived from the owning user's ID, so writes use
// ensure-upsert semantics rather than strict create.
type ConversationRepository interface {
	Ensure(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListAll(ctx context.Context) ([]domain.Conversation, error)
	SetOpenedByAdmin(ctx context.Context, id string, openedAt time.Time) error
	TouchOnMessage(ctx context.Context, id, lastMessage string, at time.Time) error
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository builds repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `id, user_id, display_name, last_message, last_message_time,
               opened_by_admin_at, created_at, updated_at`

func (r *conversationRepository) Ensure(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (id, user_id, display_name)
        VALUES ($1,$2,$3)
        ON CONFLICT (id) DO UPDATE SET
            display_name = COALESCE(EXCLUDED.display_name, conversations.display_name)
        RETURNING ` + conversationColumns
	return r.scanOne(r.pool.QueryRow(ctx, query, conv.ID, conv.UserID, conv.DisplayName), conv)
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	var conv domain.Conversation
	if err := r.scanOne(r.pool.QueryRow(ctx, query, id), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListAll(ctx context.Context) ([]domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.DisplayName,
			&conv.LastMessage,
			&conv.LastMessageTime,
			&conv.OpenedByAdminAt,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}

// SetOpenedByAdmin upserts so opening a conversation that has no record yet
// still succeeds (ensure semantics).
func (r *conversationRepository) SetOpenedByAdmin(ctx context.Context, id string, openedAt time.Time) error {
	const query = `
        INSERT INTO conversations (id, user_id, opened_by_admin_at)
        VALUES ($1,$1,$2)
        ON CONFLICT (id) DO UPDATE SET opened_by_admin_at = EXCLUDED.opened_by_admin_at`
	_, err := r.pool.Exec(ctx, query, id, openedAt)
	return err
}

func (r *conversationRepository) TouchOnMessage(ctx context.Context, id, lastMessage string, at time.Time) error {
	const query = `
        UPDATE conversations
        SET last_message=$1, last_message_time=$2, updated_at=$2
        WHERE id=$3`
	_, err := r.pool.Exec(ctx, query, lastMessage, at, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *conversationRepository) scanOne(row rowScanner, conv *domain.Conversation) error {
	return row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.DisplayName,
		&conv.LastMessage,
		&conv.LastMessageTime,
		&conv.OpenedByAdminAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
}

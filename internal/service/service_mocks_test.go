package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/repository"
)

// --- In-memory fakes ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserRepo) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserRepo) SetEmailVerified(_ context.Context, email string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			user.EmailVerified = verified
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.PasswordResetToken
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{tokens: map[string]*domain.PasswordResetToken{}}
}

func (m *memResetRepo) Create(_ context.Context, token *domain.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	clone := *token
	m.tokens[token.ID] = &clone
	return nil
}

func (m *memResetRepo) GetByToken(_ context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.Token == tokenStr {
			clone := *token
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memResetRepo) MarkUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}

type memReportRepo struct {
	mu      sync.Mutex
	reports map[string]*domain.Report

	// createErrs is consumed one per Create call before normal behavior.
	createErrs []error
}

func newMemReportRepo() *memReportRepo {
	return &memReportRepo{reports: map[string]*domain.Report{}}
}

func (m *memReportRepo) Create(_ context.Context, report *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range m.reports {
		if existing.TrackNumber == report.TrackNumber {
			return &pgconn.PgError{Code: "23505", ConstraintName: "reports_track_number_key"}
		}
	}
	report.ID = uuid.NewString()
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	clone := *report
	m.reports[report.ID] = &clone
	return nil
}

func (m *memReportRepo) GetByTrackNumber(_ context.Context, trackNumber string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, report := range m.reports {
		if report.TrackNumber == trackNumber {
			clone := *report
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memReportRepo) UpdateStatus(_ context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	report.Status = status
	report.UpdatedAt = time.Now()
	clone := *report
	return &clone, nil
}

func (m *memReportRepo) ListWithFilter(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var search string
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	out := make([]domain.Report, 0, len(m.reports))
	for _, report := range m.reports {
		if filter.Status != nil && report.Status != *filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(report.TrackNumber), search) &&
			!strings.Contains(strings.ToLower(report.IncidentType), search) {
			continue
		}
		out = append(out, *report)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Report{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.ReportStatusAudit
}

func newMemAuditRepo() *memAuditRepo { return &memAuditRepo{} }

func (m *memAuditRepo) Create(_ context.Context, entry *domain.ReportStatusAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAuditRepo) ListByReport(_ context.Context, reportID string, limit, offset int) ([]domain.ReportStatusAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ReportStatusAudit{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].ReportID == reportID {
			out = append(out, m.entries[i])
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return []domain.ReportStatusAudit{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation

	listErr error
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{convs: map[string]*domain.Conversation{}}
}

func (m *memConversationRepo) Ensure(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.convs[conv.ID]; ok {
		if conv.DisplayName != nil {
			existing.DisplayName = conv.DisplayName
		}
		*conv = *existing
		return nil
	}
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	clone := *conv
	m.convs[conv.ID] = &clone
	return nil
}

func (m *memConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.convs[id]; ok {
		clone := *conv
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memConversationRepo) ListAll(_ context.Context) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Conversation, 0, len(m.convs))
	for _, conv := range m.convs {
		out = append(out, *conv)
	}
	return out, nil
}

func (m *memConversationRepo) SetOpenedByAdmin(_ context.Context, id string, openedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	if !ok {
		conv = &domain.Conversation{ID: id, UserID: id, CreatedAt: openedAt, UpdatedAt: openedAt}
		m.convs[id] = conv
	}
	at := openedAt
	conv.OpenedByAdminAt = &at
	return nil
}

func (m *memConversationRepo) TouchOnMessage(_ context.Context, id, lastMessage string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	msg := lastMessage
	ts := at
	conv.LastMessage = &msg
	conv.LastMessageTime = &ts
	conv.UpdatedAt = at
	return nil
}

type memMessageRepo struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage

	listErr error
}

func newMemMessageRepo() *memMessageRepo { return &memMessageRepo{} }

func (m *memMessageRepo) Create(_ context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.ChatMessage{}
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memMessageRepo) MarkRead(_ context.Context, conversationID, readerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.msgs {
		if m.msgs[i].ConversationID == conversationID && m.msgs[i].SenderID != readerID {
			m.msgs[i].Read = true
		}
	}
	return nil
}

func (m *memMessageRepo) LatestTimes(_ context.Context) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := map[string]time.Time{}
	for _, msg := range m.msgs {
		if ts, ok := latest[msg.ConversationID]; !ok || msg.CreatedAt.After(ts) {
			latest[msg.ConversationID] = msg.CreatedAt
		}
	}
	return latest, nil
}

type stubUploadStore struct {
	saved []string
	err   error
}

func (s *stubUploadStore) Save(_ context.Context, fileName string, _ int64, content io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	_, _ = io.Copy(io.Discard, content)
	url := fmt.Sprintf("/uploads/%s", fileName)
	s.saved = append(s.saved, url)
	return url, nil
}

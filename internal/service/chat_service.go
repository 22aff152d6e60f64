package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/events"
	"github.com/spec-kit/incident-report-service/internal/persistence"
	"github.com/spec-kit/incident-report-service/internal/repository"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// chatEventsChannel is the redis pub/sub channel fanning out chat mutations
// across instances. Every mutation publishes here; every live subscription
// reloads its snapshot on receipt.
const chatEventsChannel = "chat:events"

// ConversationsFunc receives sorted, unread-flagged conversation snapshots.
type ConversationsFunc func([]domain.ConversationView)

// MessagesFunc receives the full ordered message set for one conversation.
type MessagesFunc func([]domain.ChatMessage)

// Subscription is a cancellable handle on a live snapshot stream.
// Cancel is idempotent and stops further callback invocations; an in-flight
// invocation at the moment of cancellation may still be delivered.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel releases the subscription.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// ChatService presents a stable, correctly-ordered, correctly-flagged view of
// support conversations over a live data source.
type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	redis         *persistence.Redis
	dispatcher    events.Dispatcher
	logger        *zap.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	Redis            *persistence.Redis
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		redis:         deps.Redis,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		subs:          make(map[int]chan struct{}),
	}
}

// Start runs the redis bridge that turns published chat events into local
// snapshot reloads. Without redis the service degrades to in-process
// broadcasting only; subscribers still receive every local mutation.
// go-redis re-establishes the pub/sub connection transparently, so callers
// never need to re-subscribe after a disconnect.
func (s *ChatService) Start(ctx context.Context) {
	if s.redis == nil || s.redis.Client == nil {
		s.logger.Warn("redis not configured; chat events stay in-process")
		return
	}
	pubsub := s.redis.Client.Subscribe(ctx, chatEventsChannel)
	go func() {
		defer pubsub.Close() //nolint:errcheck
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.broadcast()
			}
		}
	}()
}

// SubscribeConversations delivers an immediate snapshot and then a fresh one
// after every chat mutation: sorted by updatedAt descending (zero times
// last), each conversation flagged unread when its latest message is newer
// than the last admin open. On establishment failure the callback still
// receives an empty snapshot so callers never hang on a loading state.
func (s *ChatService) SubscribeConversations(ctx context.Context, fn ConversationsFunc) (*Subscription, error) {
	snapshot, err := s.conversationSnapshot(ctx)
	if err != nil {
		fn([]domain.ConversationView{})
		return nil, apperrors.MapError(err)
	}
	fn(snapshot)

	return s.subscribe(ctx, func(loadCtx context.Context) {
		snap, err := s.conversationSnapshot(loadCtx)
		if err != nil {
			s.logger.Warn("conversation snapshot reload failed", zap.Error(err))
			return
		}
		fn(snap)
	}), nil
}

// SubscribeMessages delivers the full ordered message set for one
// conversation on every emission; deltas are never sent.
func (s *ChatService) SubscribeMessages(ctx context.Context, chatID string, fn MessagesFunc) (*Subscription, error) {
	msgs, err := s.messages.ListByConversation(ctx, chatID)
	if err != nil {
		fn([]domain.ChatMessage{})
		return nil, apperrors.MapError(err)
	}
	fn(msgs)

	return s.subscribe(ctx, func(loadCtx context.Context) {
		msgs, err := s.messages.ListByConversation(loadCtx, chatID)
		if err != nil {
			s.logger.Warn("message snapshot reload failed", zap.String("chat_id", chatID), zap.Error(err))
			return
		}
		fn(msgs)
	}), nil
}

// Conversations returns a one-off sorted, flagged snapshot.
func (s *ChatService) Conversations(ctx context.Context) ([]domain.ConversationView, error) {
	return s.conversationSnapshot(ctx)
}

// Messages returns the ordered message set for a conversation.
func (s *ChatService) Messages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	return s.messages.ListByConversation(ctx, chatID)
}

// OpenConversation records the admin open time, creating the conversation
// record if absent. Active conversation subscribers recompute unread
// immediately; no new message is required.
func (s *ChatService) OpenConversation(ctx context.Context, chatID string) error {
	if chatID == "" {
		return apperrors.NewValidationError("chat id is required", nil)
	}
	openedAt := time.Now()
	if err := s.conversations.SetOpenedByAdmin(ctx, chatID, openedAt); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:  events.EventConversationOpened,
		Actor: events.Actor{Role: domain.RoleAdmin},
		Payload: events.ConversationOpenedPayload{
			ConversationID: chatID,
			OpenedAt:       openedAt,
		},
	})
	s.notify(ctx)
	return nil
}

// SendMessage appends a message, bumping the parent conversation so
// conversation listeners re-sort it to the top. The conversation is created
// lazily on first message.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text string, displayName *string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("message text is required", nil)
	}
	if chatID == "" || senderID == "" {
		return nil, apperrors.NewValidationError("chat id and sender are required", nil)
	}

	conv := &domain.Conversation{ID: chatID, UserID: chatID, DisplayName: displayName}
	if err := s.conversations.Ensure(ctx, conv); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		ConversationID: chatID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.conversations.TouchOnMessage(ctx, chatID, text, msg.CreatedAt); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:  events.EventChatMessageSent,
		Actor: events.Actor{Role: domain.RoleUser, UserID: &msg.SenderID},
		Payload: events.ChatMessageSentPayload{
			ConversationID: chatID,
			MessageID:      msg.ID,
			SenderID:       senderID,
			BodyPreview:    preview(text, 120),
		},
	})
	s.notify(ctx)
	return msg, nil
}

// MarkMessagesRead flips the read flag on messages the reader did not send.
func (s *ChatService) MarkMessagesRead(ctx context.Context, chatID, readerID string) error {
	if err := s.messages.MarkRead(ctx, chatID, readerID); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

func (s *ChatService) conversationSnapshot(ctx context.Context) ([]domain.ConversationView, error) {
	convs, err := s.conversations.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestTimes(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ConversationView, 0, len(convs))
	for _, conv := range convs {
		latestAt, hasMessages := latest[conv.ID]
		views = append(views, domain.ConversationView{
			Conversation: conv,
			Unread:       unread(conv.OpenedByAdminAt, latestAt, hasMessages),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].UpdatedAt, views[j].UpdatedAt
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.After(b)
	})
	return views, nil
}

// unread: the latest message is strictly newer than the last admin open, or
// no open has been recorded yet. A conversation without messages is read.
func unread(openedAt *time.Time, latestAt time.Time, hasMessages bool) bool {
	if !hasMessages {
		return false
	}
	if openedAt == nil {
		return true
	}
	return latestAt.After(*openedAt)
}

// subscribe registers a coalescing signal channel and spawns the reload loop.
func (s *ChatService) subscribe(ctx context.Context, reload func(context.Context)) *Subscription {
	sig := make(chan struct{}, 1)
	done := make(chan struct{})

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sig
	s.mu.Unlock()

	unregister := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(done)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				// Context cancellation must release the registration too,
				// or abandoned websocket subscriptions pile up in s.subs.
				s.mu.Lock()
				delete(s.subs, id)
				s.mu.Unlock()
				return
			case <-done:
				return
			case <-sig:
				reload(ctx)
			}
		}
	}()

	return &Subscription{cancel: unregister}
}

// notify publishes through redis when available so every instance reloads;
// otherwise it broadcasts in-process.
func (s *ChatService) notify(ctx context.Context) {
	if s.redis != nil && s.redis.Client != nil {
		if err := s.redis.Client.Publish(ctx, chatEventsChannel, "1").Err(); err == nil {
			return
		}
		s.logger.Warn("chat event publish failed; falling back to local broadcast")
	}
	s.broadcast()
}

func (s *ChatService) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range s.subs {
		select {
		case sig <- struct{}{}:
		default:
			// reload already pending; snapshots coalesce
		}
	}
}

func (s *ChatService) publishEvent(ctx context.Context, event events.Event) {
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

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

package service

import (
	"context"
	"fmt"
	"strings"

	"labswarm/internal/model"
	"labswarm/pkg/constants"
	"labswarm/pkg/eventbus"
	"labswarm/pkg/interfaces"
)

const defaultChatLimit = 50

// ChatService laboratory chat
type ChatService struct {
	store interfaces.ChatStore
	bus   *eventbus.Bus
}

// NewChatService creates a new chat service
func NewChatService(store interfaces.ChatStore, bus *eventbus.Bus) *ChatService {
	return &ChatService{store: store, bus: bus}
}

// List returns the last limit messages, oldest first
func (s *ChatService) List(ctx context.Context, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultChatLimit
	}
	messages, err := s.store.ListChatMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// Post appends a message and publishes chat_message
func (s *ChatService) Post(ctx context.Context, req *model.CreateChatMessageRequest) (*model.ChatMessage, error) {
	if req.Sender != model.ChatSenderUser && req.Sender != model.ChatSenderSystem {
		return nil, fmt.Errorf("%w: unknown sender %q", ErrInvalidInput, req.Sender)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	message, err := s.store.AppendChatMessage(ctx, &model.ChatMessage{Sender: req.Sender, Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to append chat message: %w", err)
	}
	s.bus.Publish(constants.EventChatMessage, message)
	return message, nil
}

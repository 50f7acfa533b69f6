package services

import (
	"context"

	"github.com/chirpnet/apiserver/types"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	GetByID(ctx context.Context, id string) (types.Message, error)
	List(ctx context.Context, offset, limit int) ([]types.Message, int, error)
	ListByUser(ctx context.Context, userID string) ([]types.Message, error)
	Create(ctx context.Context, message types.Message) (types.Message, error)
	UpdateBody(ctx context.Context, id, body string) (types.Message, error)
	Delete(ctx context.Context, id string) error
}

// MessageService encapsulates message use-cases, including the ownership
// checks on edit and delete.
type MessageService struct {
	repo MessageRepository
}

func NewMessageService(repo MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

func (s *MessageService) Get(ctx context.Context, id string) (types.Message, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MessageService) List(ctx context.Context, offset, limit int) ([]types.Message, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

// ListByUser returns the messages authored by a user in insertion order.
func (s *MessageService) ListByUser(ctx context.Context, userID string) ([]types.Message, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Post creates a message authored by the caller.
func (s *MessageService) Post(ctx context.Context, callerID, body string) (types.Message, error) {
	return s.repo.Create(ctx, types.Message{
		Body:   body,
		UserID: callerID,
	})
}

// Edit replaces the content of a message the caller authored. Editing
// someone else's message fails with ErrForbidden.
func (s *MessageService) Edit(ctx context.Context, callerID, id, body string) (types.Message, error) {
	message, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Message{}, err
	}
	if message.UserID != callerID {
		return types.Message{}, ErrForbidden
	}
	return s.repo.UpdateBody(ctx, id, body)
}

// Delete removes a message the caller authored and returns the prior
// snapshot. Deleting someone else's message fails with ErrForbidden.
func (s *MessageService) Delete(ctx context.Context, callerID, id string) (types.Message, error) {
	message, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Message{}, err
	}
	if message.UserID != callerID {
		return types.Message{}, ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return types.Message{}, err
	}
	return message, nil
}

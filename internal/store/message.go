package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chirpnet/apiserver/types"
	"github.com/google/uuid"
)

// MessageRepository handles persistence for messages.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (types.Message, error) {
	const query = `
		SELECT id, body, user_id, created_at, updated_at
		FROM messages
		WHERE id = $1`
	var message types.Message
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&message.ID,
		&message.Body,
		&message.UserID,
		&message.CreatedAt,
		&message.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrNotFound
		}
		return types.Message{}, err
	}
	return message, nil
}

func (r *MessageRepository) List(ctx context.Context, offset, limit int) ([]types.Message, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM messages`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, body, user_id, created_at, updated_at
		FROM messages
		ORDER BY seq
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]types.Message, 0, limit)
	for rows.Next() {
		var message types.Message
		if err := rows.Scan(
			&message.ID,
			&message.Body,
			&message.UserID,
			&message.CreatedAt,
			&message.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListByUser returns a user's messages in insertion order.
func (r *MessageRepository) ListByUser(ctx context.Context, userID string) ([]types.Message, error) {
	const query = `
		SELECT id, body, user_id, created_at, updated_at
		FROM messages
		WHERE user_id = $1
		ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]types.Message, 0)
	for rows.Next() {
		var message types.Message
		if err := rows.Scan(
			&message.ID,
			&message.Body,
			&message.UserID,
			&message.CreatedAt,
			&message.UpdatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) Create(ctx context.Context, message types.Message) (types.Message, error) {
	now := time.Now()
	message.ID = uuid.NewString()
	message.CreatedAt = now
	message.UpdatedAt = now

	const query = `
		INSERT INTO messages (id, body, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		message.ID,
		message.Body,
		message.UserID,
		message.CreatedAt,
		message.UpdatedAt,
	); err != nil {
		return types.Message{}, err
	}
	return message, nil
}

// UpdateBody replaces a message's content. Authorship and id never change.
func (r *MessageRepository) UpdateBody(ctx context.Context, id, body string) (types.Message, error) {
	const query = `
		UPDATE messages
		SET body = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING id, body, user_id, created_at, updated_at`
	var message types.Message
	err := r.db.QueryRowContext(ctx, query, body, time.Now(), id).Scan(
		&message.ID,
		&message.Body,
		&message.UserID,
		&message.CreatedAt,
		&message.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrNotFound
		}
		return types.Message{}, err
	}
	return message, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM messages WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

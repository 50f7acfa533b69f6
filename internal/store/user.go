package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chirpnet/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// followingSubquery materializes a user's following list in follow order.
const followingSubquery = `ARRAY(SELECT followee_id FROM follows WHERE follower_id = users.id ORDER BY seq)`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT id, email, phone, password_hash, created_at, updated_at, ` + followingSubquery + `
		FROM users
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	if email == "" {
		return types.User{}, ErrNotFound
	}
	const query = `
		SELECT id, email, phone, password_hash, created_at, updated_at, ` + followingSubquery + `
		FROM users
		WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (types.User, error) {
	if phone == "" {
		return types.User{}, ErrNotFound
	}
	const query = `
		SELECT id, email, phone, password_hash, created_at, updated_at, ` + followingSubquery + `
		FROM users
		WHERE phone = $1`
	return r.getOne(ctx, query, phone)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		pq.Array(&user.Following),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM users`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, email, phone, password_hash, created_at, updated_at, ` + followingSubquery + `
		FROM users
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Phone,
			&user.PasswordHash,
			&user.CreatedAt,
			&user.UpdatedAt,
			pq.Array(&user.Following),
		); err != nil {
			return nil, 0, err
		}
		if user.Following == nil {
			user.Following = []string{}
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Following = []string{}

	const query = `
		INSERT INTO users (id, email, phone, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// Follow records that follower follows followee. Inserting an existing
// pair is a no-op, so concurrent or repeated follows stay idempotent.
func (r *UserRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	const query = `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	return err
}

// Unfollow removes the follow pair if present. Removing an absent pair
// is a no-op.
func (r *UserRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	const query = `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	_, err := r.db.ExecContext(ctx, query, followerID, followeeID)
	return err
}

// Following expands a user's following list into full user records,
// preserving follow order. Ids without a matching user drop out of the
// join silently.
func (r *UserRepository) Following(ctx context.Context, userID string) ([]types.User, error) {
	const query = `
		SELECT u.id, u.email, u.phone, u.password_hash, u.created_at, u.updated_at,
			ARRAY(SELECT followee_id FROM follows WHERE follower_id = u.id ORDER BY seq)
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY f.seq`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Phone,
			&user.PasswordHash,
			&user.CreatedAt,
			&user.UpdatedAt,
			pq.Array(&user.Following),
		); err != nil {
			return nil, err
		}
		if user.Following == nil {
			user.Following = []string{}
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

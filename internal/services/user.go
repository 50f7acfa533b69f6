package services

import (
	"context"

	"github.com/chirpnet/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByPhone(ctx context.Context, phone string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	Following(ctx context.Context, userID string) ([]types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByPhone(ctx context.Context, phone string) (types.User, error) {
	return s.repo.GetByPhone(ctx, phone)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

// Follow makes caller follow target and returns the caller's updated
// record. Following an already-followed user is idempotent. A user
// cannot follow itself, and the target must exist.
func (s *UserService) Follow(ctx context.Context, callerID, targetID string) (types.User, error) {
	if callerID == targetID {
		return types.User{}, ErrSelfFollow
	}
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		return types.User{}, err
	}
	if err := s.repo.Follow(ctx, callerID, targetID); err != nil {
		return types.User{}, err
	}
	return s.repo.GetByID(ctx, callerID)
}

// Unfollow removes target from caller's following list and returns the
// caller's updated record. Unfollowing a user the caller does not follow
// is a no-op; the target must still exist.
func (s *UserService) Unfollow(ctx context.Context, callerID, targetID string) (types.User, error) {
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		return types.User{}, err
	}
	if err := s.repo.Unfollow(ctx, callerID, targetID); err != nil {
		return types.User{}, err
	}
	return s.repo.GetByID(ctx, callerID)
}

// Following expands a user's following list into full user records,
// preserving follow order.
func (s *UserService) Following(ctx context.Context, userID string) ([]types.User, error) {
	return s.repo.Following(ctx, userID)
}

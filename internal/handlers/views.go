package handlers

import (
	"time"

	"github.com/chirpnet/apiserver/types"
)

// UserView is the outward representation of a user. Following carries
// the followed users' ids by default and full UserView records when the
// caller asked for expansion. PasswordHash never appears here.
type UserView struct {
	ID        string        `json:"id"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Following any           `json:"following"`
	Messages  []MessageView `json:"messages,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MessageView is the outward representation of a message. User carries
// the author's id by default and a full UserView when expanded.
type MessageView struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	User      any       `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserView(user types.User) UserView {
	following := user.Following
	if following == nil {
		following = []string{}
	}
	return UserView{
		ID:        user.ID,
		Email:     user.Email,
		Phone:     user.Phone,
		Following: following,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func newUserViews(users []types.User) []UserView {
	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, newUserView(user))
	}
	return views
}

func newMessageView(message types.Message) MessageView {
	return MessageView{
		ID:        message.ID,
		Message:   message.Body,
		User:      message.UserID,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	}
}

func newMessageViews(messages []types.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, newMessageView(message))
	}
	return views
}

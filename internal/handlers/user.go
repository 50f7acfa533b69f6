package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chirpnet/apiserver/internal/services"
	"github.com/chirpnet/apiserver/internal/store"
	"github.com/chirpnet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	expandFollowing = "following"
	expandMessages  = "messages"
	expandUser      = "user"
)

// UserHandler provides HTTP handlers for users and the follow graph.
type UserHandler struct {
	userService    *services.UserService
	messageService *services.MessageService
}

// NewUserHandler constructs a handler with the provided services.
func NewUserHandler(userService *services.UserService, messageService *services.MessageService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		messageService: messageService,
	}
}

// UserRouter registers user routes on the given router. All of them
// require an authenticated caller.
func UserRouter(r chi.Router, userService *services.UserService, messageService *services.MessageService) {
	handler := NewUserHandler(userService, messageService)

	r.Use(RequireAuth)
	r.Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Post("/follow", handler.FollowUser)
		r.Delete("/follow", handler.UnfollowUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expand, err := parseExpand(r, expandFollowing, expandMessages)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, total, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	items := make([]UserView, 0, len(users))
	for _, user := range users {
		view, err := h.userView(r, user, expand)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to expand user")
			return
		}
		items = append(items, view)
	}

	writeJSON(w, http.StatusOK, UserListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expand, err := parseExpand(r, expandFollowing, expandMessages)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	view, err := h.userView(r, user, expand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to expand user")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// FollowUser appends the target to the caller's following list and
// returns the caller's updated record. Repeating the call is a no-op.
func (h *UserHandler) FollowUser(w http.ResponseWriter, r *http.Request) {
	caller, err := authenticatedUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.userService.Follow(r.Context(), caller.ID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfFollow):
			writeError(w, http.StatusBadRequest, "unable to follow your own account")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user to follow not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to follow user")
		}
		return
	}

	writeJSON(w, http.StatusOK, newUserView(updated))
}

// UnfollowUser removes the target from the caller's following list and
// returns the caller's updated record. Unfollowing a user the caller
// does not follow is a no-op.
func (h *UserHandler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	caller, err := authenticatedUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.userService.Unfollow(r.Context(), caller.ID, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user to unfollow not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to unfollow user")
		return
	}

	writeJSON(w, http.StatusOK, newUserView(updated))
}

// userView builds the outward representation of a user, expanding the
// following and messages fields when the caller asked for them. Expanded
// records are read live from the store rather than copied.
func (h *UserHandler) userView(r *http.Request, user types.User, expand expandSet) (UserView, error) {
	view := newUserView(user)

	if expand[expandFollowing] {
		following, err := h.userService.Following(r.Context(), user.ID)
		if err != nil {
			return UserView{}, err
		}
		view.Following = newUserViews(following)
	}

	if expand[expandMessages] {
		messages, err := h.messageService.ListByUser(r.Context(), user.ID)
		if err != nil {
			return UserView{}, err
		}
		view.Messages = newMessageViews(messages)
	}

	return view, nil
}

// UserListResponse is the paginated user list payload.
type UserListResponse struct {
	Items []UserView `json:"items"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int        `json:"total"`
}

func parseUserID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" {
		return "", errors.New("invalid user id")
	}
	return id, nil
}

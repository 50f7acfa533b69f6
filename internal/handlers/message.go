package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/chirpnet/apiserver/internal/services"
	"github.com/chirpnet/apiserver/internal/store"
	"github.com/chirpnet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// MessageHandler provides HTTP handlers for messages.
type MessageHandler struct {
	messageService *services.MessageService
	userService    *services.UserService
}

// NewMessageHandler constructs a handler with the provided services.
func NewMessageHandler(messageService *services.MessageService, userService *services.UserService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		userService:    userService,
	}
}

// MessageRouter registers message routes on the given router. All of
// them require an authenticated caller.
func MessageRouter(r chi.Router, messageService *services.MessageService, userService *services.UserService) {
	handler := NewMessageHandler(messageService, userService)

	r.Use(RequireAuth)
	r.Get("/", handler.ListMessages)
	r.Post("/", handler.PostMessage)
	r.Route("/{messageID}", func(r chi.Router) {
		r.Get("/", handler.GetMessage)
		r.Put("/", handler.EditMessage)
		r.Delete("/", handler.DeleteMessage)
	})
}

func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expand, err := parseExpand(r, expandUser)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, total, err := h.messageService.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	items := make([]MessageView, 0, len(messages))
	for _, message := range messages {
		view, err := h.messageView(r, message, expand)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to expand message")
			return
		}
		items = append(items, view)
	}

	writeJSON(w, http.StatusOK, MessageListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expand, err := parseExpand(r, expandUser)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.messageService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch message")
		return
	}

	view, err := h.messageView(r, message, expand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to expand message")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PostMessage creates a message authored by the caller.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := authenticatedUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	message, err := h.messageService.Post(r.Context(), caller.ID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to post message")
		return
	}

	writeJSON(w, http.StatusCreated, newMessageView(message))
}

// EditMessage replaces the content of a message the caller authored.
func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := authenticatedUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	updated, err := h.messageService.Edit(r.Context(), caller.ID, id, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "message not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "unable to edit messages belonging to another user")
		default:
			writeError(w, http.StatusInternalServerError, "failed to edit message")
		}
		return
	}

	writeJSON(w, http.StatusOK, newMessageView(updated))
}

// DeleteMessage removes a message the caller authored and returns the
// prior snapshot.
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := authenticatedUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.messageService.Delete(r.Context(), caller.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "message not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "unable to delete messages belonging to another user")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete message")
		}
		return
	}

	writeJSON(w, http.StatusOK, newMessageView(deleted))
}

// messageView builds the outward representation of a message, expanding
// the author when the caller asked for it. The author is re-read from
// the store so the expansion reflects the live record.
func (h *MessageHandler) messageView(r *http.Request, message types.Message, expand expandSet) (MessageView, error) {
	view := newMessageView(message)

	if expand[expandUser] {
		author, err := h.userService.GetByID(r.Context(), message.UserID)
		if err != nil {
			// Tolerate referential drift; keep the bare id.
			if errors.Is(err, store.ErrNotFound) {
				return view, nil
			}
			return MessageView{}, err
		}
		view.User = newUserView(author)
	}

	return view, nil
}

// MessageRequest carries a message body for post and edit.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageListResponse is the paginated message list payload.
type MessageListResponse struct {
	Items []MessageView `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
}

func parseMessageID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "messageID"))
	if id == "" {
		return "", errors.New("invalid message id")
	}
	return id, nil
}

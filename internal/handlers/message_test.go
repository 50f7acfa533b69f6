package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMessage(t *testing.T) {
	env := newTestEnv(t)
	tokenA, userA := env.register(t, "a@x.com", "", "pw1")

	recorder := env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "hello"})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	view := decodeBody[MessageView](t, recorder)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "hello", view.Message)
	assert.Equal(t, userA.ID, view.User)
}

func TestPostMessageRequiresBody(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "a@x.com", "", "pw1")

	recorder := env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestEditMessage(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "a@x.com", "", "pw1")

	created := decodeBody[MessageView](t, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "hello"}))

	recorder := env.do(t, http.MethodPut, "/messages/"+created.ID, tokenA, MessageRequest{Message: "edited"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, "edited", decodeBody[MessageView](t, recorder).Message)

	// Read-back reflects the edit.
	fetched := decodeBody[MessageView](t, env.do(t, http.MethodGet, "/messages/"+created.ID, tokenA, nil))
	assert.Equal(t, "edited", fetched.Message)
}

func TestEditMessageByNonAuthorForbidden(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "a@x.com", "", "pw1")
	tokenB, _ := env.register(t, "b@x.com", "", "pw2")

	created := decodeBody[MessageView](t, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "hello"}))

	recorder := env.do(t, http.MethodPut, "/messages/"+created.ID, tokenB, MessageRequest{Message: "hijack"})
	assert.Equal(t, http.StatusForbidden, recorder.Code, recorder.Body.String())
}

func TestDeleteMessageReturnsPriorSnapshot(t *testing.T) {
	env := newTestEnv(t)
	tokenA, userA := env.register(t, "a@x.com", "", "pw1")

	created := decodeBody[MessageView](t, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "hello"}))

	recorder := env.do(t, http.MethodDelete, "/messages/"+created.ID, tokenA, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	snapshot := decodeBody[MessageView](t, recorder)
	assert.Equal(t, created.ID, snapshot.ID)
	assert.Equal(t, "hello", snapshot.Message)
	assert.Equal(t, userA.ID, snapshot.User)

	// The record is gone afterwards.
	recorder = env.do(t, http.MethodGet, "/messages/"+created.ID, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeleteMessageByNonAuthorForbidden(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "a@x.com", "", "pw1")
	tokenB, _ := env.register(t, "b@x.com", "", "pw2")

	created := decodeBody[MessageView](t, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "hello"}))

	recorder := env.do(t, http.MethodDelete, "/messages/"+created.ID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// And the message survives.
	recorder = env.do(t, http.MethodGet, "/messages/"+created.ID, tokenA, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestGetMessageExpandUserHidesPasswordHash(t *testing.T) {
	env := newTestEnv(t)
	tokenA, userA := env.register(t, "a@x.com", "", "pw1")

	created := decodeBody[MessageView](t, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "hello"}))

	recorder := env.do(t, http.MethodGet, "/messages/"+created.ID+"?expand=user", tokenA, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	view := decodeBody[MessageView](t, recorder)
	author, ok := view.User.(map[string]any)
	require.True(t, ok, "expanded user should be a record")
	assert.Equal(t, userA.ID, author["id"])
	assert.Equal(t, "a@x.com", author["email"])

	body := strings.ToLower(recorder.Body.String())
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "hash")
}

func TestListMessagesInInsertionOrder(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.register(t, "a@x.com", "", "pw1")
	tokenB, _ := env.register(t, "b@x.com", "", "pw2")

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "one"}).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/messages", tokenB, MessageRequest{Message: "two"}).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/messages", tokenA, MessageRequest{Message: "three"}).Code)

	recorder := env.do(t, http.MethodGet, "/messages", tokenA, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeBody[MessageListResponse](t, recorder)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "one", resp.Items[0].Message)
	assert.Equal(t, "two", resp.Items[1].Message)
	assert.Equal(t, "three", resp.Items[2].Message)
}

// Full lifecycle: register, fresh login, post, foreign edit forbidden.
func TestRegisterLoginPostEditScenario(t *testing.T) {
	env := newTestEnv(t)
	_, userA := env.register(t, "a@x.com", "", "pw1")

	login := decodeBody[AuthResponse](t, env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "a@x.com",
		Password: "pw1",
	}))
	require.Equal(t, userA.ID, login.User.ID)

	posted := decodeBody[MessageView](t, env.do(t, http.MethodPost, "/messages", login.Token, MessageRequest{Message: "hello"}))
	assert.Equal(t, "hello", posted.Message)
	assert.Equal(t, userA.ID, posted.User)

	tokenB, _ := env.register(t, "b@x.com", "", "pw2")
	recorder := env.do(t, http.MethodPut, "/messages/"+posted.ID, tokenB, MessageRequest{Message: "hijack"})
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

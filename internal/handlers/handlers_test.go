package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chirpnet/apiserver/internal/services"
	"github.com/chirpnet/apiserver/internal/store"
	"github.com/chirpnet/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// fakeUserRepo is an in-memory stand-in for store.UserRepository with
// the same semantics: duplicate contacts fail, follows are ordered and
// idempotent.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]types.User
	order   []string
	follows map[string][]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   map[string]types.User{},
		follows: map[string][]string{},
	}
}

func (r *fakeUserRepo) get(id string) (types.User, bool) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, false
	}
	user.Following = append([]string{}, r.follows[id]...)
	return user, true
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.get(id); ok {
		return user, nil
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if email == "" {
		return types.User{}, store.ErrNotFound
	}
	for id, user := range r.users {
		if user.Email == email {
			user, _ := r.get(id)
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if phone == "" {
		return types.User{}, store.ErrNotFound
	}
	for id, user := range r.users {
		if user.Phone == phone {
			user, _ := r.get(id)
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(r.order))
	for _, id := range r.order {
		user, _ := r.get(id)
		users = append(users, user)
	}
	total := len(users)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return users[offset:end], total, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if (user.Email != "" && existing.Email == user.Email) ||
			(user.Phone != "" && existing.Phone == user.Phone) {
			return types.User{}, store.ErrDuplicate
		}
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Following = []string{}
	r.users[user.ID] = user
	r.order = append(r.order, user.ID)
	return user, nil
}

func (r *fakeUserRepo) Follow(ctx context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.follows[followerID] {
		if id == followeeID {
			return nil
		}
	}
	r.follows[followerID] = append(r.follows[followerID], followeeID)
	return nil
}

func (r *fakeUserRepo) Unfollow(ctx context.Context, followerID, followeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.follows[followerID][:0]
	for _, id := range r.follows[followerID] {
		if id != followeeID {
			kept = append(kept, id)
		}
	}
	r.follows[followerID] = kept
	return nil
}

func (r *fakeUserRepo) Following(ctx context.Context, userID string) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0)
	for _, id := range r.follows[userID] {
		if user, ok := r.get(id); ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// setEmail mutates a stored user directly, bypassing the API, to verify
// that expansions read the live record.
func (r *fakeUserRepo) setEmail(id, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.users[id]
	user.Email = email
	r.users[id] = user
}

// fakeMessageRepo is an in-memory stand-in for store.MessageRepository.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]types.Message
	order    []string
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: map[string]types.Message{}}
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message, ok := r.messages[id]; ok {
		return message, nil
	}
	return types.Message{}, store.ErrNotFound
}

func (r *fakeMessageRepo) List(ctx context.Context, offset, limit int) ([]types.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]types.Message, 0, len(r.order))
	for _, id := range r.order {
		messages = append(messages, r.messages[id])
	}
	total := len(messages)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return messages[offset:end], total, nil
}

func (r *fakeMessageRepo) ListByUser(ctx context.Context, userID string) ([]types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := make([]types.Message, 0)
	for _, id := range r.order {
		if r.messages[id].UserID == userID {
			messages = append(messages, r.messages[id])
		}
	}
	return messages, nil
}

func (r *fakeMessageRepo) Create(ctx context.Context, message types.Message) (types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	message.ID = uuid.NewString()
	message.CreatedAt = now
	message.UpdatedAt = now
	r.messages[message.ID] = message
	r.order = append(r.order, message.ID)
	return message, nil
}

func (r *fakeMessageRepo) UpdateBody(ctx context.Context, id, body string) (types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return types.Message{}, store.ErrNotFound
	}
	message.Body = body
	message.UpdatedAt = time.Now()
	r.messages[id] = message
	return message, nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.messages, id)
	kept := r.order[:0]
	for _, existing := range r.order {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	r.order = kept
	return nil
}

// testEnv assembles the full router over in-memory repositories, wired
// the same way internal/server does it.
type testEnv struct {
	router   *chi.Mux
	users    *fakeUserRepo
	messages *fakeMessageRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	messageRepo := newFakeMessageRepo()

	userService := services.NewUserService(userRepo)
	messageService := services.NewMessageService(messageRepo)

	router := chi.NewRouter()
	router.Use(ResolveIdentity(userService, testSecret))
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, testSecret, time.Hour)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, messageService)
	})
	router.Route("/messages", func(r chi.Router) {
		MessageRouter(r, messageService, userService)
	})

	return &testEnv{
		router:   router,
		users:    userRepo,
		messages: messageRepo,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func (e *testEnv) register(t *testing.T, email, phone, password string) (string, types.User) {
	t.Helper()

	recorder := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    email,
		Phone:    phone,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.User.ID)
	return resp.Token, resp.User
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value))
	return value
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/chirpnet/apiserver/types"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// IdentityState classifies the outcome of bearer-token resolution for a
// request. A supplied-but-invalid credential behaves exactly like no
// credential from the caller's point of view, but the two outcomes stay
// distinguishable internally.
type IdentityState int

const (
	// IdentityAnonymous means the request carried no credential.
	IdentityAnonymous IdentityState = iota
	// IdentityInvalid means a credential was supplied but failed
	// verification or resolved to no user.
	IdentityInvalid
	// IdentityAuthenticated means the credential resolved to a user.
	IdentityAuthenticated
)

// Identity is the per-request result of resolving the bearer token.
type Identity struct {
	State IdentityState
	User  types.User
}

func identityFromContext(ctx context.Context) Identity {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok {
		return Identity{State: IdentityAnonymous}
	}
	return identity
}

func authenticatedUser(ctx context.Context) (types.User, error) {
	identity := identityFromContext(ctx)
	if identity.State != IdentityAuthenticated {
		return types.User{}, errors.New("no authenticated user")
	}
	return identity.User, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

type expandSet map[string]bool

// parseExpand reads the comma-separated expand query parameter. Fields
// outside the allowed set are rejected rather than ignored.
func parseExpand(r *http.Request, allowed ...string) (expandSet, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("expand"))
	if raw == "" {
		return expandSet{}, nil
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, field := range allowed {
		allowedSet[field] = true
	}

	expand := expandSet{}
	for _, part := range strings.Split(raw, ",") {
		field := strings.TrimSpace(part)
		if field == "" {
			continue
		}
		if !allowedSet[field] {
			return nil, fmt.Errorf("cannot expand %q", field)
		}
		expand[field] = true
	}
	return expand, nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var ErrEmailTaken = errors.New("email already registered")

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration
type AuthResponse struct {
	User  appstate.User `json:"user"`
	Token string        `json:"token"`
}

// UpdateProfileRequest carries the profile fields to change; absent fields
// are kept.
type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.CreateUser(req)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrEmailTaken):
		respondJSONError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, errInvalidProfile):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		respondStoreError(w, err)
		return
	}

	token, err := h.openSession(u, r)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	log.Printf("[API] Registered user %s", u.ID)
	respondJSON(w, http.StatusCreated, AuthResponse{User: u.Profile(), Token: token})
}

// Login handles user login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.findUserByEmail(req.Email)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if u == nil || !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondJSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.openSession(u, r)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: u.Profile(), Token: token})
}

// Logout closes the session the token was issued for
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.readStore.Delete(store.CollectionSessions, claims.SessionID()); err != nil {
		respondStoreError(w, err)
		return
	}
	respondNoContent(w)
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.loadUser(mux.Vars(r)["userId"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if u == nil {
		respondJSONError(w, "user not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, u.Profile())
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		existing, err := h.findUserByEmail(email)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if existing != nil && existing.ID != userID {
			respondJSONError(w, ErrEmailTaken.Error(), http.StatusConflict)
			return
		}
		req.Email = &email
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		respondJSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	var updated *readmodel.UserReadModel
	found, err := h.readStore.Update(store.CollectionUsers, userID, func(current any) any {
		u := *current.(*readmodel.UserReadModel)
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.Phone != nil {
			u.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Avatar != nil {
			u.Avatar = *req.Avatar
		}
		u.UpdatedAt = h.now()
		updated = &u
		return updated
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if !found {
		respondJSONError(w, "user not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, updated.Profile())
}

// ValidSession reports whether the session is open, unexpired and belongs to
// the user.
func (h *Handlers) ValidSession(sessionID, userID string) bool {
	data, ok, err := h.readStore.Get(store.CollectionSessions, sessionID)
	if err != nil {
		log.Printf("[API] Failed to load session %s: %v", sessionID, err)
		return false
	}
	if !ok {
		return false
	}
	s := data.(*readmodel.SessionReadModel)
	return s.UserID == userID && h.now().Before(s.ExpiresAt)
}

var errInvalidProfile = errors.New("invalid profile")

// CreateUser validates and stores a new user with a hashed password
func (h *Handlers) CreateUser(req RegisterRequest) (*readmodel.UserReadModel, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", errInvalidProfile)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	existing, err := h.findUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	now := h.now()
	u := &readmodel.UserReadModel{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(req.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.readStore.Set(store.CollectionUsers, u.ID, u); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", errInvalidProfile)
	}
	return email, nil
}

// openSession stores a session for the user and issues its bearer token
func (h *Handlers) openSession(u *readmodel.UserReadModel, r *http.Request) (string, error) {
	sessionID := uuid.New().String()
	token, expiresAt, err := h.jwtService.GenerateToken(u.ID, u.Email, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	err = h.readStore.Set(store.CollectionSessions, sessionID, &readmodel.SessionReadModel{
		ID:        sessionID,
		UserID:    u.ID,
		ExpiresAt: expiresAt,
		CreatedAt: h.now(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (h *Handlers) loadUser(id string) (*readmodel.UserReadModel, error) {
	data, ok, err := h.readStore.Get(store.CollectionUsers, id)
	if err != nil || !ok {
		return nil, err
	}
	return data.(*readmodel.UserReadModel), nil
}

func (h *Handlers) findUserByEmail(email string) (*readmodel.UserReadModel, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := h.readStore.GetAll(store.CollectionUsers)
	if err != nil {
		return nil, err
	}
	for _, item := range users {
		if u := item.(*readmodel.UserReadModel); u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// expireSessions removes sessions past their expiry
func (h *Handlers) expireSessions() (int, error) {
	sessions, err := h.readStore.GetAll(store.CollectionSessions)
	if err != nil {
		return 0, err
	}
	now := h.now()
	removed := 0
	for _, item := range sessions {
		s := item.(*readmodel.SessionReadModel)
		if now.Before(s.ExpiresAt) {
			continue
		}
		if err := h.readStore.Delete(store.CollectionSessions, s.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// RunSessionSweeper deletes expired sessions every interval until ctx is done
func (h *Handlers) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := h.expireSessions()
			if err != nil {
				log.Printf("[API] Session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[API] Removed %d expired sessions", n)
			}
		}
	}
}

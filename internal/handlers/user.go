package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/services"
	"github.com/quizhub/apiserver/types"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers profile, favorite and completion routes.
func UserRouter(r chi.Router, users *services.UserService, tokens *auth.Tokens) {
	handler := NewUserHandler(users)

	r.Get("/{id}", handler.Get)
	r.Get("/favorite/{id}", handler.Favorites)
	r.Get("/acc_quiz/{id}", handler.Accomplished)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(tokens))
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/favorite/{id}", handler.AddFavorite)
		r.Delete("/favorite/{id}", handler.RemoveFavorite)
	})
}

// PasswordRouter registers the password change route.
func PasswordRouter(r chi.Router, users *services.UserService, tokens *auth.Tokens) {
	handler := NewUserHandler(users)
	r.With(RequireAuth(tokens)).Put("/{id}", handler.UpdatePassword)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update replaces the profile fields of the caller's own account.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), actorID, types.User{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), actorID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.users.UpdatePassword(r.Context(), actorID, id, req.OldPass, req.NewPass, req.ConfirmPass); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quizzes, err := h.users.FavoriteQuizzes(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, h.users.AddFavoriteQuiz)
}

func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorite(w, r, h.users.RemoveFavoriteQuiz)
}

func (h *UserHandler) Accomplished(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quizzes, err := h.users.AccomplishedQuizzes(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *UserHandler) favorite(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, userID, quizID int64) error) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	quizID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := apply(r.Context(), userID, quizID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UpdateUserRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type UpdatePasswordRequest struct {
	OldPass     string `json:"oldPass" validate:"required"`
	NewPass     string `json:"newPass" validate:"required,min=6"`
	ConfirmPass string `json:"confirmPass" validate:"required"`
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/services"
	"github.com/quizhub/apiserver/types"
)

// AuthHandler provides local login, registration and account mail endpoints.
type AuthHandler struct {
	users  *services.UserService
	mail   *services.MailService
	tokens *auth.Tokens
}

func NewAuthHandler(users *services.UserService, mail *services.MailService, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{users: users, mail: mail, tokens: tokens}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users *services.UserService, mail *services.MailService, tokens *auth.Tokens) {
	handler := NewAuthHandler(users, mail, tokens)

	r.Post("/local", handler.Login)
	r.Post("/local/register", handler.Register)
	r.Post("/local/resend", handler.Resend)
	r.Post("/recover", handler.Recover)
	r.Get("/activate/{code}", handler.Activate)
	r.With(RequireAuth(tokens)).Get("/me", handler.Me)
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// Register creates an inactive account and mails the activation link.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), services.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Resend issues a new activation code for an inactive account.
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.mail.SendEmail(r.Context(), types.User{Email: req.Email}); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Recover mails a freshly generated password.
func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.mail.GenerateNewPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Activate confirms an email code and logs the user in.
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.mail.ConfirmEmail(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user types.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

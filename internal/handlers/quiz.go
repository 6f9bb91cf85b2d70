package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/services"
	"github.com/quizhub/apiserver/types"
)

const (
	defaultLatestCount = 5
	maxCoverBytes      = 5 << 20
)

// QuizHandler serves quiz CRUD, listing and cover images.
type QuizHandler struct {
	quizzes *services.QuizService
	users   *services.UserService
}

func NewQuizHandler(quizzes *services.QuizService, users *services.UserService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, users: users}
}

// QuizRouter registers quiz routes on the given router.
func QuizRouter(r chi.Router, quizzes *services.QuizService, users *services.UserService, tokens *auth.Tokens) {
	handler := NewQuizHandler(quizzes, users)

	r.Get("/", handler.List)
	r.Get("/all", handler.All)
	r.Get("/latest", handler.Latest)
	r.Get("/type/{type}", handler.ByType)
	r.Get("/{id}", handler.Get)
	r.Get("/{id}/image", handler.GetCover)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(tokens))
		r.Post("/", handler.Create)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Put("/{id}/image", handler.PutCover)
		r.Post("/{id}/complete", handler.Complete)
	})
}

// List returns one page of quizzes, optionally filtered by title.
func (h *QuizHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quizzes, total, err := h.quizzes.List(r.Context(), r.URL.Query().Get("title"), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[types.Quiz]{
		Items: quizzes,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *QuizHandler) All(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.All(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *QuizHandler) Latest(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultLatestCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quizzes, err := h.quizzes.Latest(r.Context(), min(count, maxLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

// ByType accepts a type name or its ordinal.
func (h *QuizHandler) ByType(w http.ResponseWriter, r *http.Request) {
	quizType, err := types.ParseQuizType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}

	quizzes, err := h.quizzes.ByType(r.Context(), quizType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := h.quizzes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// Create stores a quiz authored by the caller.
func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QuizRequest
	if !decode(w, r, &req) {
		return
	}

	quiz, err := h.quizzes.Create(r.Context(), types.NewQuiz(req.Title, req.Description, req.QuizType, userID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *QuizHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	var req QuizRequest
	if !decode(w, r, &req) {
		return
	}

	quiz := types.NewQuiz(req.Title, req.Description, req.QuizType, userID)
	quiz.ID = id
	updated, err := h.quizzes.Update(r.Context(), userID, quiz)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.quizzes.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutCover stores the request body as the quiz cover image.
func (h *QuizHandler) PutCover(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}
	if r.ContentLength > maxCoverBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxCoverBytes)
	err := h.quizzes.PutCover(r.Context(), userID, id, body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuizHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obj, err := h.quizzes.Cover(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}

// Complete records that the caller finished the quiz.
func (h *QuizHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.users.CompleteQuiz(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type QuizRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=2000"`
	QuizType    types.QuizType `json:"quiz_type"`
}

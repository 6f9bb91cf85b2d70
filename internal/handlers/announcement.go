package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/services"
	"github.com/quizhub/apiserver/types"
)

const defaultPopularCount = 5

// AnnouncementHandler serves announcements, likes and comments.
type AnnouncementHandler struct {
	announcements *services.AnnouncementService
}

func NewAnnouncementHandler(announcements *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// AnnouncementRouter registers announcement routes on the given router.
func AnnouncementRouter(r chi.Router, announcements *services.AnnouncementService, tokens *auth.Tokens) {
	handler := NewAnnouncementHandler(announcements)

	r.Get("/", handler.List)
	r.Get("/popular", handler.Popular)
	r.Get("/user/{userID}", handler.ByUser)
	r.Get("/{id}", handler.Get)
	r.Get("/{id}/comments", handler.Comments)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(tokens))
		r.Post("/", handler.Create)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/like", handler.Like)
		r.Post("/{id}/dislike", handler.Dislike)
		r.Post("/{id}/comments", handler.Comment)
	})
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.announcements.List(r.Context(), r.URL.Query().Get("title"), offset, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse[types.Announcement]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// Popular returns the most liked announcements, skipping those written by
// exclude_user.
func (h *AnnouncementHandler) Popular(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultPopularCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var excludeUserID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("exclude_user")); raw != "" {
		excludeUserID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid exclude_user")
			return
		}
	}

	items, err := h.announcements.Popular(r.Context(), min(count, maxLimit), excludeUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AnnouncementHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.announcements.ByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	announcement, err := h.announcements.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, announcement)
}

func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnnouncementRequest
	if !decode(w, r, &req) {
		return
	}

	announcement := types.NewAnnouncement(req.Title, req.Description, req.Address, userID, req.Date)
	created, err := h.announcements.Create(r.Context(), announcement)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	var req AnnouncementRequest
	if !decode(w, r, &req) {
		return
	}

	announcement := types.Announcement{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Address:     strings.TrimSpace(req.Address),
		Date:        req.Date,
	}
	updated, err := h.announcements.Update(r.Context(), userID, announcement)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.announcements.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnnouncementHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	likes, err := h.announcements.Like(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LikesResponse{ParticipantsCap: likes})
}

func (h *AnnouncementHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	_, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	likes, err := h.announcements.Dislike(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LikesResponse{ParticipantsCap: likes})
}

// Comments returns the window of comments directly after the after id,
// newest first.
func (h *AnnouncementHandler) Comments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	after, err := queryInt(r, "after", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.announcements.Comments(r.Context(), id, int64(after), min(limit, maxLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *AnnouncementHandler) Comment(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if !decode(w, r, &req) {
		return
	}

	comment, err := h.announcements.Comment(r.Context(), req.Content, id, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

type AnnouncementRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Address     string    `json:"address" validate:"max=300"`
	Date        time.Time `json:"date"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type LikesResponse struct {
	ParticipantsCap int `json:"participants_cap"`
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/logger"
	"github.com/quizhub/apiserver/internal/services"
	"github.com/quizhub/apiserver/internal/testutil"
	"github.com/quizhub/apiserver/types"
)

type testAPI struct {
	router        http.Handler
	tokens        *auth.Tokens
	users         *testutil.Users
	quizzes       *testutil.Quizzes
	announcements *testutil.Announcements
	covers        *testutil.Covers
	outbox        *testutil.Outbox
	events        *testutil.Events
}

func newTestAPI(t *testing.T) *testAPI {
	return buildTestAPI(t, true)
}

func buildTestAPI(t *testing.T, withCovers bool) *testAPI {
	t.Helper()
	api := &testAPI{
		tokens:        auth.NewTokens("test-secret", time.Hour),
		users:         testutil.NewUsers(),
		quizzes:       testutil.NewQuizzes(),
		announcements: testutil.NewAnnouncements(),
		covers:        testutil.NewCovers(),
		outbox:        &testutil.Outbox{},
		events:        &testutil.Events{},
	}
	api.users.Quizzes = api.quizzes

	log := logger.Discard()
	var covers services.CoverStorage
	if withCovers {
		covers = api.covers
	}
	mailService := services.NewMailService(api.users, api.outbox, "http://quiz.test", api.events, nil, log)
	userService := services.NewUserService(api.users, mailService, api.events, log)
	quizService := services.NewQuizService(api.quizzes, covers, api.events, log)
	announcementService := services.NewAnnouncementService(api.announcements, api.events, log)

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, mailService, api.tokens)
	})
	r.Route("/user", func(r chi.Router) {
		UserRouter(r, userService, api.tokens)
	})
	r.Route("/updatePassword", func(r chi.Router) {
		PasswordRouter(r, userService, api.tokens)
	})
	r.Route("/quizzes", func(r chi.Router) {
		QuizRouter(r, quizService, userService, api.tokens)
	})
	r.Route("/announcements", func(r chi.Router) {
		AnnouncementRouter(r, announcementService, api.tokens)
	})
	api.router = r
	return api
}

// activeUser stores an activated account and returns it with a valid token.
func (api *testAPI) activeUser(t *testing.T, email, password string) (types.User, string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := api.users.Create(context.Background(), types.User{
		FirstName:    "Test",
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	_, err = api.users.Activate(context.Background(), user.ID)
	require.NoError(t, err)

	token, err := api.tokens.Issue(user.ID)
	require.NoError(t, err)
	return user, token
}

// do sends body as JSON unless it is already a []byte.
func (api *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		var err error
		payload, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value), rec.Body.String())
	return value
}

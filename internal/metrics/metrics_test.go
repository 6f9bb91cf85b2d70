package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	m := New()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/quizzes/{quizID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quizzes/7", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	count := testutil.ToFloat64(m.RequestCounter.WithLabelValues(http.MethodGet, "/quizzes/{quizID}", "404"))
	assert.Equal(t, float64(2), count)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsInFlight))
}

func TestObserveMail(t *testing.T) {
	m := New()
	m.ObserveMail("activation", nil)
	m.ObserveMail("activation", errors.New("relay down"))
	m.ObserveMail("password", nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.MailsSent.WithLabelValues("activation", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MailsSent.WithLabelValues("activation", "error")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveMail("activation", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "quizhub_mail_sent_total"))
}

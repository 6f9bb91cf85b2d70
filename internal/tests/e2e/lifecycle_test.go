//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"testing"
)

type quizResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	QuizType  string `json:"quiz_type"`
	CreatorID int64  `json:"creator_id"`
}

type announcementResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	UserID          int64  `json:"user_id"`
	ParticipantsCap int    `json:"participants_cap"`
}

type commentResponse struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

func TestQuizLifecycle(t *testing.T) {
	userID, token := seedActiveUser(t, uniqueEmail("quiz"), "testpass123!")

	var created quizResponse
	doJSON(t, http.MethodPost, "/quizzes", token, map[string]any{
		"title":       "Cat Capitals",
		"description": "Where do the cats rule?",
		"quiz_type":   "multiple_answers",
	}, http.StatusCreated, &created)
	if created.ID == 0 {
		t.Fatalf("expected quiz ID to be set")
	}
	if created.CreatorID != userID {
		t.Fatalf("unexpected creator: %d", created.CreatorID)
	}

	path := fmt.Sprintf("/quizzes/%d", created.ID)
	var updated quizResponse
	doJSON(t, http.MethodPut, path, token, map[string]any{
		"title":     "Cat Capitals Updated",
		"quiz_type": "true_false",
	}, http.StatusOK, &updated)
	if updated.Title != "Cat Capitals Updated" || updated.QuizType != "true_false" {
		t.Fatalf("unexpected updated quiz: %+v", updated)
	}

	var page struct {
		Items []quizResponse `json:"items"`
		Total int            `json:"total"`
	}
	doJSON(t, http.MethodGet, "/quizzes?title=capitals+updated", "", nil, http.StatusOK, &page)
	if page.Total < 1 {
		t.Fatalf("title search found nothing")
	}

	putCover(t, path+"/image", token, []byte("\x89PNG e2e"))
	resp, err := http.Get(baseURL + path + "/image")
	if err != nil {
		t.Fatalf("get cover: %v", err)
	}
	image, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(image, []byte("\x89PNG e2e")) {
		t.Fatalf("unexpected cover: status %d body %q", resp.StatusCode, image)
	}

	doJSON(t, http.MethodPost, fmt.Sprintf("/user/favorite/%d", created.ID), token, nil, http.StatusNoContent, nil)
	var favorites []quizResponse
	doJSON(t, http.MethodGet, fmt.Sprintf("/user/favorite/%d", userID), "", nil, http.StatusOK, &favorites)
	if len(favorites) != 1 || favorites[0].ID != created.ID {
		t.Fatalf("unexpected favorites: %+v", favorites)
	}

	doJSON(t, http.MethodPost, path+"/complete", token, nil, http.StatusNoContent, nil)
	var done []quizResponse
	doJSON(t, http.MethodGet, fmt.Sprintf("/user/acc_quiz/%d", userID), "", nil, http.StatusOK, &done)
	if len(done) != 1 {
		t.Fatalf("unexpected accomplished quizzes: %+v", done)
	}

	doJSON(t, http.MethodDelete, path, token, nil, http.StatusNoContent, nil)
	doJSON(t, http.MethodGet, path, "", nil, http.StatusNotFound, nil)
	doJSON(t, http.MethodGet, path+"/image", "", nil, http.StatusNotFound, nil)
}

func TestAnnouncementLifecycle(t *testing.T) {
	authorID, authorToken := seedActiveUser(t, uniqueEmail("author"), "testpass123!")
	_, fanToken := seedActiveUser(t, uniqueEmail("fan"), "testpass123!")

	var created announcementResponse
	doJSON(t, http.MethodPost, "/announcements", authorToken, map[string]any{
		"title":       "Board games night",
		"description": "Bring your own dice",
		"address":     "Main st 1",
	}, http.StatusCreated, &created)
	if created.UserID != authorID || created.ParticipantsCap != 0 {
		t.Fatalf("unexpected announcement: %+v", created)
	}
	path := fmt.Sprintf("/announcements/%d", created.ID)

	doJSON(t, http.MethodPut, path, fanToken, map[string]any{"title": "Hijacked"}, http.StatusForbidden, nil)

	var likes struct {
		ParticipantsCap int `json:"participants_cap"`
	}
	doJSON(t, http.MethodPost, path+"/like", fanToken, nil, http.StatusOK, &likes)
	doJSON(t, http.MethodPost, path+"/dislike", fanToken, nil, http.StatusOK, &likes)
	doJSON(t, http.MethodPost, path+"/dislike", fanToken, nil, http.StatusOK, &likes)
	if likes.ParticipantsCap != 0 {
		t.Fatalf("likes dropped below zero: %d", likes.ParticipantsCap)
	}

	var first, second commentResponse
	doJSON(t, http.MethodPost, path+"/comments", fanToken, map[string]string{"content": "count me in"}, http.StatusCreated, &first)
	doJSON(t, http.MethodPost, path+"/comments", authorToken, map[string]string{"content": "great"}, http.StatusCreated, &second)

	var newer []commentResponse
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/comments?after=%d", path, first.ID), "", nil, http.StatusOK, &newer)
	if len(newer) != 1 || newer[0].ID != second.ID {
		t.Fatalf("unexpected comments after %d: %+v", first.ID, newer)
	}

	doJSON(t, http.MethodDelete, path, authorToken, nil, http.StatusNoContent, nil)
	doJSON(t, http.MethodGet, path, "", nil, http.StatusNotFound, nil)
}

func putCover(t *testing.T, path, token string, image []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, baseURL+path, bytes.NewReader(image))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put cover: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("put cover status %d: %s", resp.StatusCode, msg)
	}
}

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuizType(t *testing.T) {
	cases := map[string]QuizType{
		"one_answer":       QuizTypeOneAnswer,
		" TRUE_FALSE ":     QuizTypeTrueFalse,
		"3":                QuizTypeEnterAnswer,
		"multiple_answers": QuizTypeMultipleAnswers,
	}
	for in, want := range cases {
		got, err := ParseQuizType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseQuizType("essay")
	assert.Error(t, err)
	_, err = ParseQuizType("4")
	assert.Error(t, err)
	_, err = ParseQuizType("-1")
	assert.Error(t, err)
}

func TestQuizTypeJSON(t *testing.T) {
	data, err := json.Marshal(Quiz{ID: 1, Title: "Capitals", QuizType: QuizTypeTrueFalse})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"quiz_type":"true_false"`)

	var byName, byOrdinal Quiz
	require.NoError(t, json.Unmarshal([]byte(`{"quiz_type":"enter_answer"}`), &byName))
	require.NoError(t, json.Unmarshal([]byte(`{"quiz_type":1}`), &byOrdinal))
	assert.Equal(t, QuizTypeEnterAnswer, byName.QuizType)
	assert.Equal(t, QuizTypeMultipleAnswers, byOrdinal.QuizType)

	var bad Quiz
	assert.Error(t, json.Unmarshal([]byte(`{"quiz_type":"essay"}`), &bad))
	_, err = json.Marshal(Quiz{QuizType: QuizType(9)})
	assert.Error(t, err)
}

func TestNewQuizTrimsAndDates(t *testing.T) {
	q := NewQuiz("  Capitals ", " Europe ", QuizTypeOneAnswer, 4)
	assert.Equal(t, "Capitals", q.Title)
	assert.Equal(t, "Europe", q.Description)
	assert.Equal(t, int64(4), q.CreatorID)
	assert.Zero(t, q.CreationDate.Hour())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Golum Valuevich", User{FirstName: "Golum", LastName: "Valuevich"}.FullName())
	assert.Equal(t, "Golum", User{FirstName: "Golum"}.FullName())
	assert.Equal(t, "Valuevich", User{LastName: "Valuevich"}.FullName())
}

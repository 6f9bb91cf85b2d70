package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// QuizType is the kind of questions a quiz holds. It is persisted as its
// ordinal, so new values must only ever be appended.
type QuizType int

const (
	QuizTypeOneAnswer QuizType = iota
	QuizTypeMultipleAnswers
	QuizTypeTrueFalse
	QuizTypeEnterAnswer
)

var quizTypeNames = [...]string{
	QuizTypeOneAnswer:       "one_answer",
	QuizTypeMultipleAnswers: "multiple_answers",
	QuizTypeTrueFalse:       "true_false",
	QuizTypeEnterAnswer:     "enter_answer",
}

// Valid reports whether t is a known ordinal.
func (t QuizType) Valid() bool {
	return t >= 0 && int(t) < len(quizTypeNames)
}

func (t QuizType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("QuizType(%d)", int(t))
	}
	return quizTypeNames[t]
}

// ParseQuizType accepts either the name or the ordinal of a quiz type.
func ParseQuizType(raw string) (QuizType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for i, name := range quizTypeNames {
		if name == raw {
			return QuizType(i), nil
		}
	}
	var ordinal int
	if _, err := fmt.Sscanf(raw, "%d", &ordinal); err == nil && QuizType(ordinal).Valid() {
		return QuizType(ordinal), nil
	}
	return 0, fmt.Errorf("unknown quiz type %q", raw)
}

func (t QuizType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return json.Marshal(t.String())
}

func (t *QuizType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var ordinal int
		if err := json.Unmarshal(data, &ordinal); err != nil {
			return fmt.Errorf("quiz type must be a string or an integer")
		}
		name = fmt.Sprint(ordinal)
	}
	parsed, err := ParseQuizType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Quiz is a published set of questions.
type Quiz struct {
	// ID is assigned by the store on creation and never changes.
	ID int64 `json:"id" db:"id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// CreationDate is the calendar day the quiz was created.
	CreationDate time.Time `json:"creation_date" db:"creation_date"`

	QuizType  QuizType `json:"quiz_type" db:"quiz_type"`
	CreatorID int64    `json:"creator_id" db:"creator_id"`
}

// NewQuiz builds a quiz ready to be stored.
func NewQuiz(title, description string, quizType QuizType, creatorID int64) Quiz {
	return Quiz{
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		CreationDate: time.Now().UTC().Truncate(24 * time.Hour),
		QuizType:     quizType,
		CreatorID:    creatorID,
	}
}

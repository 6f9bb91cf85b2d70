package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/internal/events"
	"github.com/quizhub/apiserver/internal/storage"
	"github.com/quizhub/apiserver/types"
)

// ErrCoversDisabled is returned by cover operations when no object storage
// backend is configured.
var ErrCoversDisabled = errors.New("quiz covers are not configured")

// QuizRepository defines persistence operations for quizzes.
type QuizRepository interface {
	Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error)
	Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (types.Quiz, error)
	GetByTitle(ctx context.Context, title string) (types.Quiz, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	GetAll(ctx context.Context) ([]types.Quiz, error)
	GetLastCreated(ctx context.Context, count int) ([]types.Quiz, error)
	GetByType(ctx context.Context, quizType types.QuizType) ([]types.Quiz, error)
	GetLikeTitle(ctx context.Context, title string, offset, limit int) ([]types.Quiz, int, error)
	GetByPage(ctx context.Context, offset, limit int) ([]types.Quiz, int, error)
}

// CoverStorage keeps quiz cover images.
type CoverStorage interface {
	PutQuizCover(ctx context.Context, quizID int64, r io.Reader, size int64, contentType string) error
	GetQuizCover(ctx context.Context, quizID int64) (storage.Object, error)
	DeleteQuizCover(ctx context.Context, quizID int64) error
}

// QuizService encapsulates quiz use-cases.
type QuizService struct {
	repo   QuizRepository
	covers CoverStorage
	events events.Publisher
	log    *logrus.Entry
}

// NewQuizService wires a QuizService. covers and publisher may be nil.
func NewQuizService(repo QuizRepository, covers CoverStorage, publisher events.Publisher, log *logrus.Entry) *QuizService {
	return &QuizService{
		repo:   repo,
		covers: covers,
		events: publisher,
		log:    log.WithField("component", "quiz_service"),
	}
}

func (s *QuizService) Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	const op = "services.quiz.create"
	if err := validateQuiz(op, quiz); err != nil {
		return types.Quiz{}, err
	}

	created, err := s.repo.Create(ctx, quiz)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"title":      quiz.Title,
			"creator_id": quiz.CreatorID,
		}).Error("failed to create quiz")
		return types.Quiz{}, err
	}

	publish(ctx, s.events, events.QuizCreated, map[string]any{
		"quiz_id":    created.ID,
		"creator_id": created.CreatorID,
		"quiz_type":  created.QuizType,
	})
	return created, nil
}

// Update rewrites a quiz owned by actorID.
func (s *QuizService) Update(ctx context.Context, actorID int64, quiz types.Quiz) (types.Quiz, error) {
	const op = "services.quiz.update"
	if err := validateQuiz(op, quiz); err != nil {
		return types.Quiz{}, err
	}
	if _, err := s.owned(ctx, op, actorID, quiz.ID); err != nil {
		return types.Quiz{}, err
	}

	quiz.CreatorID = actorID
	updated, err := s.repo.Update(ctx, quiz)
	if err != nil {
		s.log.WithError(err).WithField("quiz_id", quiz.ID).Error("failed to update quiz")
		return types.Quiz{}, err
	}
	return updated, nil
}

// Delete removes a quiz owned by actorID together with its cover.
func (s *QuizService) Delete(ctx context.Context, actorID, id int64) error {
	const op = "services.quiz.delete"
	if _, err := s.owned(ctx, op, actorID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("quiz_id", id).Error("failed to delete quiz")
		return err
	}
	if s.covers != nil {
		if err := s.covers.DeleteQuizCover(ctx, id); err != nil {
			s.log.WithError(err).WithField("quiz_id", id).Warn("failed to delete quiz cover")
		}
	}
	return nil
}

func (s *QuizService) Get(ctx context.Context, id int64) (types.Quiz, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *QuizService) GetByTitle(ctx context.Context, title string) (types.Quiz, error) {
	return s.repo.GetByTitle(ctx, strings.TrimSpace(title))
}

func (s *QuizService) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	return s.repo.ExistsByTitle(ctx, strings.TrimSpace(title))
}

func (s *QuizService) All(ctx context.Context) ([]types.Quiz, error) {
	return s.repo.GetAll(ctx)
}

func (s *QuizService) Latest(ctx context.Context, count int) ([]types.Quiz, error) {
	return s.repo.GetLastCreated(ctx, count)
}

func (s *QuizService) ByType(ctx context.Context, quizType types.QuizType) ([]types.Quiz, error) {
	const op = "services.quiz.by_type"
	if !quizType.Valid() {
		return nil, errs.New(errs.Validation, op, "unknown quiz type")
	}
	return s.repo.GetByType(ctx, quizType)
}

// List returns one page of quizzes, filtered by title when title is not blank.
func (s *QuizService) List(ctx context.Context, title string, offset, limit int) ([]types.Quiz, int, error) {
	if strings.TrimSpace(title) == "" {
		return s.repo.GetByPage(ctx, offset, limit)
	}
	return s.repo.GetLikeTitle(ctx, title, offset, limit)
}

// PutCover stores the cover image of a quiz owned by actorID.
func (s *QuizService) PutCover(ctx context.Context, actorID, id int64, r io.Reader, size int64, contentType string) error {
	const op = "services.quiz.put_cover"
	if s.covers == nil {
		return errs.E(errs.Config, op, ErrCoversDisabled)
	}
	if _, err := s.owned(ctx, op, actorID, id); err != nil {
		return err
	}
	if err := s.covers.PutQuizCover(ctx, id, r, size, contentType); err != nil {
		s.log.WithError(err).WithField("quiz_id", id).Error("failed to store quiz cover")
		return errs.E(errs.Logic, op, err)
	}
	return nil
}

// Cover opens the cover image of a quiz. The caller closes Object.Body.
func (s *QuizService) Cover(ctx context.Context, id int64) (storage.Object, error) {
	const op = "services.quiz.cover"
	if s.covers == nil {
		return storage.Object{}, errs.E(errs.Config, op, ErrCoversDisabled)
	}
	obj, err := s.covers.GetQuizCover(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.Object{}, errs.E(errs.NotFound, op, err)
		}
		s.log.WithError(err).WithField("quiz_id", id).Error("failed to open quiz cover")
		return storage.Object{}, errs.E(errs.Logic, op, err)
	}
	return obj, nil
}

func (s *QuizService) owned(ctx context.Context, op string, actorID, id int64) (types.Quiz, error) {
	quiz, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Quiz{}, err
	}
	if quiz.CreatorID != actorID {
		return types.Quiz{}, errs.New(errs.Forbidden, op, "quiz belongs to another user")
	}
	return quiz, nil
}

func validateQuiz(op string, quiz types.Quiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return errs.New(errs.Validation, op, "title is required")
	}
	if !quiz.QuizType.Valid() {
		return errs.New(errs.Validation, op, "unknown quiz type")
	}
	return nil
}

func publish(ctx context.Context, publisher events.Publisher, eventType string, payload any) {
	if publisher == nil {
		return
	}
	publisher.Publish(ctx, eventType, payload)
}

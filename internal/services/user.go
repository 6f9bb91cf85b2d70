package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/internal/events"
	"github.com/quizhub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	GetFavoriteQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error)
	AddFavoriteQuiz(ctx context.Context, userID, quizID int64) error
	RemoveFavoriteQuiz(ctx context.Context, userID, quizID int64) error
	GetAccomplishedQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error)
	MarkQuizAccomplished(ctx context.Context, userID, quizID int64) error
}

// Activator sends activation mail for a freshly registered account.
type Activator interface {
	SendEmail(ctx context.Context, user types.User) error
}

// Registration is the input of Register.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserService encapsulates account and profile use-cases.
type UserService struct {
	repo      UserRepository
	activator Activator
	events    events.Publisher
	log       *logrus.Entry
}

func NewUserService(repo UserRepository, activator Activator, publisher events.Publisher, log *logrus.Entry) *UserService {
	return &UserService{
		repo:      repo,
		activator: activator,
		events:    publisher,
		log:       log.WithField("component", "user_service"),
	}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

// Register creates an inactive account and mails its activation code. The
// account is removed again when the mail cannot be sent.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	const op = "services.user.register"
	email := strings.TrimSpace(reg.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, errs.New(errs.Conflict, op, "email already registered")
	} else if !errs.Is(errs.NotFound, err) {
		s.log.WithError(err).WithField("email", email).Error("failed to check email")
		return types.User{}, err
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return types.User{}, errs.E(errs.Logic, op, err)
	}

	user, err := s.repo.Create(ctx, types.User{
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		s.log.WithError(err).WithField("email", email).Error("failed to create user")
		return types.User{}, err
	}
	if err := s.activator.SendEmail(ctx, user); err != nil {
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.log.WithError(delErr).WithField("user_id", user.ID).Error("failed to roll back unconfirmed user")
		}
		return types.User{}, err
	}
	publish(ctx, s.events, events.UserRegistered, map[string]any{"user_id": user.ID})
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// reported the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	const op = "services.user.authenticate"

	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errs.Is(errs.NotFound, err) {
			return types.User{}, errs.New(errs.Unauthorized, op, "invalid credentials")
		}
		s.log.WithError(err).Error("failed to load user for login")
		return types.User{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return types.User{}, errs.New(errs.Unauthorized, op, "invalid credentials")
	}
	if !user.Active {
		return types.User{}, errs.New(errs.Forbidden, op, "account is not activated")
	}
	return user, nil
}

// UpdateProfile changes names and description of the actor's own account.
func (s *UserService) UpdateProfile(ctx context.Context, actorID int64, user types.User) (types.User, error) {
	const op = "services.user.update_profile"
	if actorID != user.ID {
		return types.User{}, errs.New(errs.Forbidden, op, "cannot edit another user")
	}
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	user.Description = strings.TrimSpace(user.Description)

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to update user")
		return types.User{}, err
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	const op = "services.user.delete"
	if actorID != id {
		return errs.New(errs.Forbidden, op, "cannot delete another user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("user_id", id).Error("failed to delete user")
		return err
	}
	return nil
}

// UpdatePassword replaces the password after checking the old one.
func (s *UserService) UpdatePassword(ctx context.Context, actorID, id int64, oldPass, newPass, confirmPass string) error {
	const op = "services.user.update_password"
	if actorID != id {
		return errs.New(errs.Forbidden, op, "cannot change another user's password")
	}
	if newPass == "" {
		return errs.New(errs.Validation, op, "new password is required")
	}
	if newPass != confirmPass {
		return errs.New(errs.Validation, op, "passwords do not match")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, oldPass) {
		return errs.New(errs.Unauthorized, op, "old password is wrong")
	}

	hash, err := auth.HashPassword(newPass)
	if err != nil {
		return errs.E(errs.Logic, op, err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		s.log.WithError(err).WithField("user_id", id).Error("failed to update password")
		return err
	}
	return nil
}

func (s *UserService) FavoriteQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error) {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetFavoriteQuizzes(ctx, userID)
}

func (s *UserService) AddFavoriteQuiz(ctx context.Context, userID, quizID int64) error {
	return s.repo.AddFavoriteQuiz(ctx, userID, quizID)
}

func (s *UserService) RemoveFavoriteQuiz(ctx context.Context, userID, quizID int64) error {
	return s.repo.RemoveFavoriteQuiz(ctx, userID, quizID)
}

func (s *UserService) AccomplishedQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error) {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetAccomplishedQuizzes(ctx, userID)
}

func (s *UserService) CompleteQuiz(ctx context.Context, userID, quizID int64) error {
	return s.repo.MarkQuizAccomplished(ctx, userID, quizID)
}

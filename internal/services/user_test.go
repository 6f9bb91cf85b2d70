package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/internal/events"
	"github.com/quizhub/apiserver/internal/logger"
	"github.com/quizhub/apiserver/internal/testutil"
	"github.com/quizhub/apiserver/types"
)

type userFixture struct {
	users   *testutil.Users
	quizzes *testutil.Quizzes
	outbox  *testutil.Outbox
	events  *testutil.Events
	mail    *MailService
	service *UserService
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:   testutil.NewUsers(),
		quizzes: testutil.NewQuizzes(),
		outbox:  &testutil.Outbox{},
		events:  &testutil.Events{},
	}
	f.users.Quizzes = f.quizzes
	f.mail = NewMailService(f.users, f.outbox, "http://quiz.test", f.events, nil, logger.Discard())
	f.service = NewUserService(f.users, f.mail, f.events, logger.Discard())
	return f
}

func (f *userFixture) register(t *testing.T, email, password string) types.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), Registration{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	f := newUserFixture()
	user := f.register(t, "ada@example.com", "s3cret")

	assert.Equal(t, "Ada", user.FirstName)
	assert.False(t, user.Active)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "s3cret"))
	assert.Equal(t, []string{events.UserRegistered}, f.events.Types())

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EmailCode)
	assert.Contains(t, f.outbox.Last().HTMLBody, *stored.EmailCode)

	_, err = f.service.Register(context.Background(), Registration{Email: "ADA@example.com", Password: "x"})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestRegisterRollsBackWhenMailFails(t *testing.T) {
	f := newUserFixture()
	f.outbox.Err = errors.New("smtp down")
	reg := Registration{FirstName: "Ada", Email: "ada@example.com", Password: "s3cret"}

	_, err := f.service.Register(context.Background(), reg)
	assert.Equal(t, errs.Mail, errs.KindOf(err))
	_, err = f.users.GetByEmail(context.Background(), "ada@example.com")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.Empty(t, f.events.Types())

	f.outbox.Err = nil
	user, err := f.service.Register(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Len(t, f.outbox.Messages(), 1)
}

func TestAuthenticate(t *testing.T) {
	f := newUserFixture()
	user := f.register(t, "ada@example.com", "s3cret")

	_, err := f.service.Authenticate(context.Background(), "ada@example.com", "s3cret")
	assert.Equal(t, errs.Forbidden, errs.KindOf(err), "inactive account")

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	_, err = f.mail.ConfirmEmail(context.Background(), *stored.EmailCode)
	require.NoError(t, err)

	got, err := f.service.Authenticate(context.Background(), " ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.service.Authenticate(context.Background(), "ada@example.com", "wrong")
	assert.Equal(t, errs.Unauthorized, errs.KindOf(err))

	_, err = f.service.Authenticate(context.Background(), "ghost@example.com", "s3cret")
	assert.Equal(t, errs.Unauthorized, errs.KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	f := newUserFixture()
	user := f.register(t, "ada@example.com", "s3cret")

	updated, err := f.service.UpdateProfile(context.Background(), user.ID, types.User{
		ID:          user.ID,
		FirstName:   "Augusta",
		LastName:    "King",
		Description: " mathematician ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta King", updated.FullName())
	assert.Equal(t, "mathematician", updated.Description)

	_, err = f.service.UpdateProfile(context.Background(), user.ID+1, types.User{ID: user.ID})
	assert.Equal(t, errs.Forbidden, errs.KindOf(err))
}

func TestUpdatePassword(t *testing.T) {
	f := newUserFixture()
	user := f.register(t, "ada@example.com", "s3cret")
	ctx := context.Background()

	assert.Equal(t, errs.Validation, errs.KindOf(f.service.UpdatePassword(ctx, user.ID, user.ID, "s3cret", "new", "other")))
	assert.Equal(t, errs.Unauthorized, errs.KindOf(f.service.UpdatePassword(ctx, user.ID, user.ID, "wrong", "new", "new")))
	assert.Equal(t, errs.Forbidden, errs.KindOf(f.service.UpdatePassword(ctx, user.ID+1, user.ID, "s3cret", "new", "new")))

	require.NoError(t, f.service.UpdatePassword(ctx, user.ID, user.ID, "s3cret", "new", "new"))
	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "new"))
}

func TestDeleteUser(t *testing.T) {
	f := newUserFixture()
	user := f.register(t, "ada@example.com", "s3cret")

	assert.Equal(t, errs.Forbidden, errs.KindOf(f.service.Delete(context.Background(), user.ID+1, user.ID)))
	require.NoError(t, f.service.Delete(context.Background(), user.ID, user.ID))

	_, err := f.service.GetByID(context.Background(), user.ID)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestFavoriteAndAccomplishedQuizzes(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	user := f.register(t, "ada@example.com", "s3cret")
	first, err := f.quizzes.Create(ctx, types.NewQuiz("Capitals", "", types.QuizTypeOneAnswer, user.ID))
	require.NoError(t, err)
	second, err := f.quizzes.Create(ctx, types.NewQuiz("Rivers", "", types.QuizTypeTrueFalse, user.ID))
	require.NoError(t, err)

	require.NoError(t, f.service.AddFavoriteQuiz(ctx, user.ID, second.ID))
	require.NoError(t, f.service.AddFavoriteQuiz(ctx, user.ID, first.ID))
	favorites, err := f.service.FavoriteQuizzes(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	assert.Equal(t, first.ID, favorites[0].ID)

	require.NoError(t, f.service.RemoveFavoriteQuiz(ctx, user.ID, first.ID))
	assert.Equal(t, errs.NotFound, errs.KindOf(f.service.RemoveFavoriteQuiz(ctx, user.ID, first.ID)))

	require.NoError(t, f.service.CompleteQuiz(ctx, user.ID, first.ID))
	require.NoError(t, f.service.CompleteQuiz(ctx, user.ID, second.ID))
	done, err := f.service.AccomplishedQuizzes(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, second.ID, done[0].ID)

	assert.Equal(t, errs.NotFound, errs.KindOf(f.service.CompleteQuiz(ctx, user.ID, 999)))

	_, err = f.service.FavoriteQuizzes(ctx, 999)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

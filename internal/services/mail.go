package services

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/quizhub/apiserver/internal/auth"
	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/internal/events"
	"github.com/quizhub/apiserver/internal/mail"
	"github.com/quizhub/apiserver/types"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 10
)

// MailUserRepository is the part of the user store the mail service needs.
type MailUserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByEmailCode(ctx context.Context, code string) (types.User, error)
	UpdateEmailCode(ctx context.Context, id int64, code *string) error
	Activate(ctx context.Context, id int64) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// MailObserver records the outcome of every delivery attempt.
type MailObserver interface {
	ObserveMail(template string, err error)
}

// MailService sends activation codes, confirms them and recovers passwords.
type MailService struct {
	repo     MailUserRepository
	sender   mail.Sender
	baseURL  string
	events   events.Publisher
	observer MailObserver
	log      *logrus.Entry

	randomCode func() (string, error)
}

func NewMailService(
	repo MailUserRepository,
	sender mail.Sender,
	baseURL string,
	publisher events.Publisher,
	observer MailObserver,
	log *logrus.Entry,
) *MailService {
	return &MailService{
		repo:       repo,
		sender:     sender,
		baseURL:    baseURL,
		events:     publisher,
		observer:   observer,
		log:        log.WithField("component", "mail_service"),
		randomCode: randomCode,
	}
}

// GenerateCode draws codes until one is not held by any user. Lookup failures
// other than not found abort the loop.
func (s *MailService) GenerateCode(ctx context.Context) (string, error) {
	const op = "services.mail.generate_code"
	for {
		code, err := s.randomCode()
		if err != nil {
			return "", errs.E(errs.Logic, op, err)
		}
		_, err = s.repo.GetByEmailCode(ctx, code)
		if errs.Is(errs.NotFound, err) {
			return code, nil
		}
		if err != nil {
			s.log.WithError(err).Error("failed to check email code")
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", errs.E(errs.Logic, op, err)
		}
	}
}

// SendEmail issues a fresh activation code for the stored account with the
// user's email and mails it.
func (s *MailService) SendEmail(ctx context.Context, user types.User) error {
	const op = "services.mail.send_email"
	log := s.log.WithField("email", user.Email)

	stored, err := s.repo.GetByEmail(ctx, user.Email)
	if err != nil {
		log.WithError(err).Error("failed to load user for activation")
		return errs.E(errs.Mail, op, err)
	}
	if stored.Active {
		log.Warn("activation requested for an active account")
		return errs.New(errs.Validation, op, "account is already active")
	}

	code, err := s.GenerateCode(ctx)
	if err != nil {
		return errs.E(errs.Mail, op, err)
	}
	if err := s.repo.UpdateEmailCode(ctx, stored.ID, &code); err != nil {
		log.WithError(err).Error("failed to store email code")
		return errs.E(errs.Mail, op, err)
	}

	msg, err := mail.Activation(stored.Email, code, s.baseURL)
	if err != nil {
		log.WithError(err).Error("failed to render activation mail")
		return errs.E(errs.Mail, op, err)
	}
	if err := s.deliver(ctx, msg); err != nil {
		log.WithError(err).Error("failed to send activation mail")
		return errs.E(errs.Mail, op, err)
	}
	log.WithField("user_id", stored.ID).Info("activation mail sent")
	return nil
}

// ConfirmEmail activates the account holding code and clears the code.
func (s *MailService) ConfirmEmail(ctx context.Context, code string) (types.User, error) {
	const op = "services.mail.confirm_email"

	user, err := s.repo.GetByEmailCode(ctx, code)
	if err != nil {
		if !errs.Is(errs.NotFound, err) {
			s.log.WithError(err).Error("failed to look up email code")
		}
		return types.User{}, err
	}

	activated, err := s.repo.Activate(ctx, user.ID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to activate user")
		return types.User{}, err
	}
	if !activated {
		return types.User{}, errs.New(errs.Validation, op, "account is already active")
	}
	if err := s.repo.UpdateEmailCode(ctx, user.ID, nil); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to clear email code")
		return types.User{}, err
	}

	refreshed, err := s.repo.GetByID(ctx, user.ID)
	if err != nil {
		return types.User{}, err
	}
	publish(ctx, s.events, events.UserActivated, map[string]any{"user_id": refreshed.ID})
	return refreshed, nil
}

// GenerateNewPassword replaces the password of the account with email by a
// random one and mails the plaintext to that address.
func (s *MailService) GenerateNewPassword(ctx context.Context, email string) error {
	const op = "services.mail.generate_new_password"
	log := s.log.WithField("email", email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		log.WithError(err).Error("failed to load user for password recovery")
		return errs.E(errs.Mail, op, err)
	}

	password, err := s.GenerateCode(ctx)
	if err != nil {
		return errs.E(errs.Mail, op, err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return errs.E(errs.Mail, op, err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		log.WithError(err).Error("failed to store recovered password")
		return errs.E(errs.Mail, op, err)
	}

	msg, err := mail.NewPassword(user.Email, password)
	if err != nil {
		return errs.E(errs.Mail, op, err)
	}
	if err := s.deliver(ctx, msg); err != nil {
		log.WithError(err).Error("failed to send password mail")
		return errs.E(errs.Mail, op, err)
	}
	log.WithField("user_id", user.ID).Info("password recovered")
	return nil
}

func (s *MailService) deliver(ctx context.Context, msg mail.Message) error {
	err := s.sender.Send(ctx, msg)
	if s.observer != nil {
		s.observer.ObserveMail(msg.Template, err)
	}
	return err
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

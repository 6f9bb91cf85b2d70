package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/internal/events"
	"github.com/quizhub/apiserver/types"
)

// AnnouncementRepository defines persistence operations for announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement types.Announcement) (types.Announcement, error)
	Update(ctx context.Context, announcement types.Announcement) (types.Announcement, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (types.Announcement, error)
	GetByTitle(ctx context.Context, title string) (types.Announcement, error)
	IsByID(ctx context.Context, id int64) (bool, error)
	GetAll(ctx context.Context) ([]types.Announcement, error)
	GetAllByUser(ctx context.Context, userID int64) ([]types.Announcement, error)
	GetPopular(ctx context.Context, count int, excludeUserID int64) ([]types.Announcement, error)
	Like(ctx context.Context, id int64) (int, error)
	Dislike(ctx context.Context, id int64) (int, error)
	GetLikeTitle(ctx context.Context, title string, offset, limit int) ([]types.Announcement, int, error)
	GetByPage(ctx context.Context, offset, limit int) ([]types.Announcement, int, error)
	GetComments(ctx context.Context, announcementID, afterID int64, limit int) ([]types.AnnouncementComment, error)
	CreateComment(ctx context.Context, content string, announcementID, authorID int64) (types.AnnouncementComment, error)
}

// AnnouncementService encapsulates announcement and comment use-cases.
type AnnouncementService struct {
	repo   AnnouncementRepository
	events events.Publisher
	log    *logrus.Entry
}

func NewAnnouncementService(repo AnnouncementRepository, publisher events.Publisher, log *logrus.Entry) *AnnouncementService {
	return &AnnouncementService{
		repo:   repo,
		events: publisher,
		log:    log.WithField("component", "announcement_service"),
	}
}

func (s *AnnouncementService) Create(ctx context.Context, announcement types.Announcement) (types.Announcement, error) {
	const op = "services.announcement.create"
	if strings.TrimSpace(announcement.Title) == "" {
		return types.Announcement{}, errs.New(errs.Validation, op, "title is required")
	}

	created, err := s.repo.Create(ctx, announcement)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"title":   announcement.Title,
			"user_id": announcement.UserID,
		}).Error("failed to create announcement")
		return types.Announcement{}, err
	}

	publish(ctx, s.events, events.AnnouncementCreated, map[string]any{
		"announcement_id": created.ID,
		"user_id":         created.UserID,
	})
	return created, nil
}

// Update rewrites an announcement written by actorID.
func (s *AnnouncementService) Update(ctx context.Context, actorID int64, announcement types.Announcement) (types.Announcement, error) {
	const op = "services.announcement.update"
	if strings.TrimSpace(announcement.Title) == "" {
		return types.Announcement{}, errs.New(errs.Validation, op, "title is required")
	}
	current, err := s.owned(ctx, op, actorID, announcement.ID)
	if err != nil {
		return types.Announcement{}, err
	}

	announcement.UserID = current.UserID
	if announcement.Date.IsZero() {
		announcement.Date = current.Date
	}
	updated, err := s.repo.Update(ctx, announcement)
	if err != nil {
		s.log.WithError(err).WithField("announcement_id", announcement.ID).Error("failed to update announcement")
		return types.Announcement{}, err
	}
	return updated, nil
}

// Delete removes an announcement written by actorID.
func (s *AnnouncementService) Delete(ctx context.Context, actorID, id int64) error {
	const op = "services.announcement.delete"
	if _, err := s.owned(ctx, op, actorID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("announcement_id", id).Error("failed to delete announcement")
		return err
	}
	return nil
}

func (s *AnnouncementService) Get(ctx context.Context, id int64) (types.Announcement, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AnnouncementService) GetByTitle(ctx context.Context, title string) (types.Announcement, error) {
	return s.repo.GetByTitle(ctx, strings.TrimSpace(title))
}

func (s *AnnouncementService) All(ctx context.Context) ([]types.Announcement, error) {
	return s.repo.GetAll(ctx)
}

func (s *AnnouncementService) ByUser(ctx context.Context, userID int64) ([]types.Announcement, error) {
	return s.repo.GetAllByUser(ctx, userID)
}

func (s *AnnouncementService) Popular(ctx context.Context, count int, excludeUserID int64) ([]types.Announcement, error) {
	return s.repo.GetPopular(ctx, count, excludeUserID)
}

// List returns one page of announcements, filtered by title when title is
// not blank.
func (s *AnnouncementService) List(ctx context.Context, title string, offset, limit int) ([]types.Announcement, int, error) {
	if strings.TrimSpace(title) == "" {
		return s.repo.GetByPage(ctx, offset, limit)
	}
	return s.repo.GetLikeTitle(ctx, title, offset, limit)
}

func (s *AnnouncementService) Like(ctx context.Context, actorID, id int64) (int, error) {
	likes, err := s.repo.Like(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("announcement_id", id).Error("failed to like announcement")
		return 0, err
	}
	publish(ctx, s.events, events.AnnouncementLiked, map[string]any{
		"announcement_id": id,
		"user_id":         actorID,
		"likes":           likes,
	})
	return likes, nil
}

func (s *AnnouncementService) Dislike(ctx context.Context, id int64) (int, error) {
	likes, err := s.repo.Dislike(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("announcement_id", id).Error("failed to dislike announcement")
		return 0, err
	}
	return likes, nil
}

// Comments returns the limit comments following afterID, newest first.
func (s *AnnouncementService) Comments(ctx context.Context, announcementID, afterID int64, limit int) ([]types.AnnouncementComment, error) {
	const op = "services.announcement.comments"
	if err := s.mustExist(ctx, op, announcementID); err != nil {
		return nil, err
	}
	return s.repo.GetComments(ctx, announcementID, afterID, limit)
}

func (s *AnnouncementService) Comment(ctx context.Context, content string, announcementID, authorID int64) (types.AnnouncementComment, error) {
	const op = "services.announcement.comment"
	content = strings.TrimSpace(content)
	if content == "" {
		return types.AnnouncementComment{}, errs.New(errs.Validation, op, "content is required")
	}
	comment, err := s.repo.CreateComment(ctx, content, announcementID, authorID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"announcement_id": announcementID,
			"author_id":       authorID,
		}).Error("failed to create comment")
		return types.AnnouncementComment{}, err
	}
	return comment, nil
}

func (s *AnnouncementService) mustExist(ctx context.Context, op string, id int64) error {
	exists, err := s.repo.IsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errs.New(errs.NotFound, op, "announcement not found")
	}
	return nil
}

func (s *AnnouncementService) owned(ctx context.Context, op string, actorID, id int64) (types.Announcement, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Announcement{}, err
	}
	if announcement.UserID != actorID {
		return types.Announcement{}, errs.New(errs.Forbidden, op, "announcement belongs to another user")
	}
	return announcement, nil
}

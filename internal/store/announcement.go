package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/types"
)

const announcementColumns = `id, title, description, address, date, user_id, participants_cap`

// AnnouncementRepository handles persistence for announcements and their comments.
type AnnouncementRepository struct {
	db *sql.DB
}

func NewAnnouncementRepository(db *sql.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts announcement and reselects it by its content and author to
// learn its id. Both statements share a transaction.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement types.Announcement) (types.Announcement, error) {
	const op = "store.announcement.create"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Announcement{}, classify(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `
		INSERT INTO announcements (title, description, address, date, user_id, participants_cap)
		VALUES ($1, $2, $3, $4, $5, 0)`
	if _, err := tx.ExecContext(
		ctx,
		insertQuery,
		announcement.Title,
		announcement.Description,
		announcement.Address,
		announcement.Date,
		announcement.UserID,
	); err != nil {
		return types.Announcement{}, classify(op, err)
	}

	const reselectQuery = `
		SELECT id FROM announcements
		WHERE title = $1 AND description = $2 AND address = $3 AND user_id = $4
		ORDER BY id DESC
		LIMIT 1`
	if err := tx.QueryRowContext(
		ctx,
		reselectQuery,
		announcement.Title,
		announcement.Description,
		announcement.Address,
		announcement.UserID,
	).Scan(&announcement.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Announcement{}, errs.E(errs.Logic, op, ErrNotReselected)
		}
		return types.Announcement{}, classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return types.Announcement{}, classify(op, err)
	}
	announcement.ParticipantsCap = 0
	return announcement, nil
}

// Update rewrites the editable columns. The like counter is only changed
// through Like and Dislike.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement types.Announcement) (types.Announcement, error) {
	const op = "store.announcement.update"
	const query = `
		UPDATE announcements
		SET title = $1,
			description = $2,
			address = $3,
			date = $4,
			user_id = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		announcement.Title,
		announcement.Description,
		announcement.Address,
		announcement.Date,
		announcement.UserID,
		announcement.ID,
	)
	if err != nil {
		return types.Announcement{}, classify(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Announcement{}, classify(op, err)
	}
	if affected == 0 {
		return types.Announcement{}, notFound(op)
	}
	return r.GetByID(ctx, announcement.ID)
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	const op = "store.announcement.delete"
	const query = `DELETE FROM announcements WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return classify(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if affected == 0 {
		return notFound(op)
	}
	return nil
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (types.Announcement, error) {
	const op = "store.announcement.get_by_id"
	const query = `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	return r.getOne(ctx, op, query, id)
}

// GetByTitle returns the newest announcement with exactly this title.
func (r *AnnouncementRepository) GetByTitle(ctx context.Context, title string) (types.Announcement, error) {
	const op = "store.announcement.get_by_title"
	const query = `SELECT ` + announcementColumns + ` FROM announcements WHERE title = $1 ORDER BY id DESC LIMIT 1`
	return r.getOne(ctx, op, query, title)
}

func (r *AnnouncementRepository) IsByID(ctx context.Context, id int64) (bool, error) {
	const op = "store.announcement.is_by_id"
	const query = `SELECT EXISTS(SELECT 1 FROM announcements WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, classify(op, err)
	}
	return exists, nil
}

func (r *AnnouncementRepository) GetAll(ctx context.Context) ([]types.Announcement, error) {
	const op = "store.announcement.get_all"
	const query = `SELECT ` + announcementColumns + ` FROM announcements ORDER BY id`
	return r.getMany(ctx, op, query)
}

func (r *AnnouncementRepository) GetAllByUser(ctx context.Context, userID int64) ([]types.Announcement, error) {
	const op = "store.announcement.get_all_by_user"
	const query = `
		SELECT ` + announcementColumns + `
		FROM announcements
		WHERE user_id = $1
		ORDER BY date DESC, id DESC`
	return r.getMany(ctx, op, query, userID)
}

// GetPopular returns up to count announcements with the most likes, leaving
// out the ones written by excludeUserID.
func (r *AnnouncementRepository) GetPopular(ctx context.Context, count int, excludeUserID int64) ([]types.Announcement, error) {
	const op = "store.announcement.get_popular"
	if err := checkWindow(op, 0, count); err != nil {
		return nil, err
	}
	const query = `
		SELECT ` + announcementColumns + `
		FROM announcements
		WHERE user_id <> $1
		ORDER BY participants_cap DESC, id DESC
		LIMIT $2`
	return r.getMany(ctx, op, query, excludeUserID, count)
}

// Like adds one to the like counter and returns the new value.
func (r *AnnouncementRepository) Like(ctx context.Context, id int64) (int, error) {
	const op = "store.announcement.like"
	const query = `
		UPDATE announcements
		SET participants_cap = participants_cap + 1
		WHERE id = $1
		RETURNING participants_cap`
	return r.adjust(ctx, op, query, id)
}

// Dislike removes one from the like counter and returns the new value. The
// counter stays at zero when it is already there.
func (r *AnnouncementRepository) Dislike(ctx context.Context, id int64) (int, error) {
	const op = "store.announcement.dislike"
	const query = `
		UPDATE announcements
		SET participants_cap = GREATEST(participants_cap - 1, 0)
		WHERE id = $1
		RETURNING participants_cap`
	return r.adjust(ctx, op, query, id)
}

func (r *AnnouncementRepository) CountLikeTitle(ctx context.Context, title string) (int, error) {
	const op = "store.announcement.count_like_title"
	const query = `SELECT COUNT(1) FROM announcements WHERE LOWER(title) LIKE $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, likePattern(title)).Scan(&total); err != nil {
		return 0, classify(op, err)
	}
	return total, nil
}

func (r *AnnouncementRepository) GetLikeTitle(ctx context.Context, title string, offset, limit int) ([]types.Announcement, int, error) {
	const op = "store.announcement.get_like_title"
	if err := checkWindow(op, offset, limit); err != nil {
		return nil, 0, err
	}

	total, err := r.CountLikeTitle(ctx, title)
	if err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + announcementColumns + `
		FROM announcements
		WHERE LOWER(title) LIKE $1
		ORDER BY date DESC, id DESC
		OFFSET $2 LIMIT $3`
	items, err := r.getMany(ctx, op, query, likePattern(title), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *AnnouncementRepository) Count(ctx context.Context) (int, error) {
	const op = "store.announcement.count"
	const query = `SELECT COUNT(1) FROM announcements`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, classify(op, err)
	}
	return total, nil
}

func (r *AnnouncementRepository) GetByPage(ctx context.Context, offset, limit int) ([]types.Announcement, int, error) {
	const op = "store.announcement.get_by_page"
	if err := checkWindow(op, offset, limit); err != nil {
		return nil, 0, err
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + announcementColumns + `
		FROM announcements
		ORDER BY date DESC, id DESC
		OFFSET $1 LIMIT $2`
	items, err := r.getMany(ctx, op, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetComments returns the limit comments of an announcement that directly
// follow afterID. The window is ordered newest first, so the next window
// starts after the first element.
func (r *AnnouncementRepository) GetComments(ctx context.Context, announcementID, afterID int64, limit int) ([]types.AnnouncementComment, error) {
	const op = "store.announcement.get_comments"
	if afterID < 0 {
		return nil, errs.New(errs.Validation, op, "after id must not be negative")
	}
	if err := checkWindow(op, 0, limit); err != nil {
		return nil, err
	}

	const query = `
		SELECT id, announcement_id, author_id, content, created_at
		FROM announcement_comments
		WHERE announcement_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, announcementID, afterID, limit)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	comments := make([]types.AnnouncementComment, 0)
	for rows.Next() {
		var comment types.AnnouncementComment
		if err := rows.Scan(
			&comment.ID,
			&comment.AnnouncementID,
			&comment.AuthorID,
			&comment.Content,
			&comment.CreatedAt,
		); err != nil {
			return nil, classify(op, err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	slices.Reverse(comments)
	return comments, nil
}

// CreateComment inserts a comment and reselects it to learn its id.
func (r *AnnouncementRepository) CreateComment(ctx context.Context, content string, announcementID, authorID int64) (types.AnnouncementComment, error) {
	const op = "store.announcement.create_comment"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.AnnouncementComment{}, classify(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `
		INSERT INTO announcement_comments (announcement_id, author_id, content)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertQuery, announcementID, authorID, content); err != nil {
		return types.AnnouncementComment{}, classify(op, err)
	}

	comment := types.AnnouncementComment{
		AnnouncementID: announcementID,
		AuthorID:       authorID,
		Content:        content,
	}
	const reselectQuery = `
		SELECT id, created_at FROM announcement_comments
		WHERE announcement_id = $1 AND author_id = $2 AND content = $3
		ORDER BY id DESC
		LIMIT 1`
	if err := tx.QueryRowContext(ctx, reselectQuery, announcementID, authorID, content).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AnnouncementComment{}, errs.E(errs.Logic, op, ErrNotReselected)
		}
		return types.AnnouncementComment{}, classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return types.AnnouncementComment{}, classify(op, err)
	}
	return comment, nil
}

func (r *AnnouncementRepository) adjust(ctx context.Context, op, query string, id int64) (int, error) {
	var likes int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&likes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound(op)
		}
		return 0, classify(op, err)
	}
	return likes, nil
}

func (r *AnnouncementRepository) getOne(ctx context.Context, op, query string, args ...any) (types.Announcement, error) {
	announcement, err := scanAnnouncement(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Announcement{}, notFound(op)
		}
		return types.Announcement{}, classify(op, err)
	}
	return announcement, nil
}

func (r *AnnouncementRepository) getMany(ctx context.Context, op, query string, args ...any) ([]types.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	announcements := make([]types.Announcement, 0)
	for rows.Next() {
		announcement, err := scanAnnouncement(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		announcements = append(announcements, announcement)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return announcements, nil
}

func scanAnnouncement(row rowScanner) (types.Announcement, error) {
	var announcement types.Announcement
	err := row.Scan(
		&announcement.ID,
		&announcement.Title,
		&announcement.Description,
		&announcement.Address,
		&announcement.Date,
		&announcement.UserID,
		&announcement.ParticipantsCap,
	)
	return announcement, err
}

package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/types"
)

var announcementRowColumns = []string{"id", "title", "description", "address", "date", "user_id", "participants_cap"}

func TestAnnouncementCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	date := time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC)
	announcement := types.Announcement{
		Title:       "Board games",
		Description: "Friday night",
		Address:     "Main st 1",
		Date:        date,
		UserID:      2,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO announcements`)).
		WithArgs("Board games", "Friday night", "Main st 1", date, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM announcements`)).
		WithArgs("Board games", "Friday night", "Main st 1", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))
	mock.ExpectCommit()

	got, err := repo.Create(context.Background(), announcement)
	require.NoError(t, err)
	assert.Equal(t, int64(21), got.ID)
	assert.Equal(t, 0, got.ParticipantsCap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementCreateUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO announcements`)).
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation, Detail: "user_id=99"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), types.Announcement{Title: "x", UserID: 99})
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementLikeDislike(t *testing.T) {
	tests := []struct {
		name      string
		call      func(*AnnouncementRepository) (int, error)
		setupMock func(sqlmock.Sqlmock)
		want      int
		wantKind  errs.Kind
	}{
		{
			name: "like increments",
			call: func(r *AnnouncementRepository) (int, error) {
				return r.Like(context.Background(), 3)
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SET participants_cap = participants_cap + 1`)).
					WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"participants_cap"}).AddRow(4))
			},
			want: 4,
		},
		{
			name: "dislike is clamped at zero",
			call: func(r *AnnouncementRepository) (int, error) {
				return r.Dislike(context.Background(), 3)
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SET participants_cap = GREATEST(participants_cap - 1, 0)`)).
					WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"participants_cap"}).AddRow(0))
			},
			want: 0,
		},
		{
			name: "like on a missing announcement",
			call: func(r *AnnouncementRepository) (int, error) {
				return r.Like(context.Background(), 404)
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`RETURNING participants_cap`)).
					WithArgs(int64(404)).
					WillReturnRows(sqlmock.NewRows([]string{"participants_cap"}))
			},
			wantKind: errs.NotFound,
		},
		{
			name: "driver failure is a logic error",
			call: func(r *AnnouncementRepository) (int, error) {
				return r.Dislike(context.Background(), 3)
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`RETURNING participants_cap`)).
					WillReturnError(sql.ErrConnDone)
			},
			wantKind: errs.Logic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewAnnouncementRepository(db)
			tt.setupMock(mock)

			got, err := tt.call(repo)
			if tt.wantKind != errs.Other {
				assert.Equal(t, tt.wantKind, errs.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAnnouncementGetPopular(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id <> $1 ORDER BY participants_cap DESC, id DESC LIMIT $2`)).
		WithArgs(int64(1), 2).
		WillReturnRows(sqlmock.NewRows(announcementRowColumns).
			AddRow(int64(5), "a", "", "", now, int64(2), 10).
			AddRow(int64(4), "b", "", "", now, int64(3), 7))

	items, err := repo.GetPopular(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 10, items[0].ParticipantsCap)
	assert.Equal(t, int64(3), items[1].UserID)

	_, err = repo.GetPopular(context.Background(), -1, 1)
	assert.True(t, errs.Is(errs.Validation, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE announcements`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), types.Announcement{ID: 77, Title: "t"})
	assert.True(t, errs.Is(errs.NotFound, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementIsByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM announcements WHERE id = $1)`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.IsByID(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementGetByPage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	date := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM announcements`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY date DESC, id DESC OFFSET $1 LIMIT $2`)).
		WithArgs(0, 2).
		WillReturnRows(sqlmock.NewRows(announcementRowColumns).
			AddRow(int64(3), "Jam night", "", "", date.AddDate(0, 0, 2), int64(1), 0).
			AddRow(int64(2), "Board games", "", "", date.AddDate(0, 0, 1), int64(1), 4))

	items, total, err := repo.GetByPage(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, []int64{3, 2}, []int64{items[0].ID, items[1].ID})
	assert.Equal(t, 4, items[1].ParticipantsCap)

	_, _, err = repo.GetByPage(context.Background(), -1, 2)
	assert.True(t, errs.Is(errs.Validation, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM announcements`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementGetByTitle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	date := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`WHERE title = $1 ORDER BY id DESC LIMIT 1`)

	mock.ExpectQuery(query).
		WithArgs("Jam night").
		WillReturnRows(sqlmock.NewRows(announcementRowColumns).
			AddRow(int64(9), "Jam night", "bring a guitar", "Hall B", date, int64(2), 1))
	mock.ExpectQuery(query).
		WithArgs("Quiet night").
		WillReturnRows(sqlmock.NewRows(announcementRowColumns))

	announcement, err := repo.GetByTitle(context.Background(), "Jam night")
	require.NoError(t, err)
	assert.Equal(t, int64(9), announcement.ID)
	assert.Equal(t, "Hall B", announcement.Address)
	assert.Equal(t, date, announcement.Date)

	_, err = repo.GetByTitle(context.Background(), "Quiet night")
	assert.True(t, errs.Is(errs.NotFound, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	query := regexp.QuoteMeta(`DELETE FROM announcements WHERE id = $1`)

	mock.ExpectExec(query).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 9))
	assert.True(t, errs.Is(errs.NotFound, repo.Delete(context.Background(), 9)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementGetLikeTitle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(1) FROM announcements WHERE LOWER(title) LIKE $1`)).
		WithArgs("%jam\\_session%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY date DESC, id DESC OFFSET $2 LIMIT $3`)).
		WithArgs("%jam\\_session%", 0, 5).
		WillReturnRows(sqlmock.NewRows(announcementRowColumns).
			AddRow(int64(1), "Jam_Session", "", "", time.Now(), int64(2), 0))

	items, total, err := repo.GetLikeTitle(context.Background(), "Jam_Session", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Jam_Session", items[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var commentRowColumns = []string{"id", "announcement_id", "author_id", "content", "created_at"}

func TestAnnouncementCommentWindows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`WHERE announcement_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`)

	mock.ExpectQuery(query).
		WithArgs(int64(1), int64(0), 2).
		WillReturnRows(sqlmock.NewRows(commentRowColumns).
			AddRow(int64(10), int64(1), int64(2), "first", created).
			AddRow(int64(11), int64(1), int64(3), "second", created))
	mock.ExpectQuery(query).
		WithArgs(int64(1), int64(11), 2).
		WillReturnRows(sqlmock.NewRows(commentRowColumns).
			AddRow(int64(12), int64(1), int64(2), "third", created))

	page, err := repo.GetComments(context.Background(), 1, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []int64{11, 10}, []int64{page[0].ID, page[1].ID})

	page, err = repo.GetComments(context.Background(), 1, page[0].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "third", page[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementComments(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnnouncementRepository(db)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO announcement_comments`)).
		WithArgs(int64(1), int64(2), "count me in").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, created_at FROM announcement_comments`)).
		WithArgs(int64(1), int64(2), "count me in").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(31), created))
	mock.ExpectCommit()

	comment, err := repo.CreateComment(context.Background(), "count me in", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(31), comment.ID)
	assert.Equal(t, created, comment.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE announcement_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`)).
		WithArgs(int64(1), int64(0), 1).
		WillReturnRows(sqlmock.NewRows(commentRowColumns).
			AddRow(int64(31), int64(1), int64(2), "count me in", created))

	comments, err := repo.GetComments(context.Background(), 1, 0, 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment, comments[0])

	_, err = repo.GetComments(context.Background(), 1, -1, 1)
	assert.True(t, errs.Is(errs.Validation, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/types"
)

const quizColumns = `id, title, description, creation_date, quiz_type, creator_id`

// QuizRepository handles persistence for quizzes.
type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// Create inserts quiz and reselects it by title, description and type to
// learn its id. Both statements share a transaction.
func (r *QuizRepository) Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	const op = "store.quiz.create"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Quiz{}, classify(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `
		INSERT INTO quizzes (title, description, creation_date, quiz_type, creator_id)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(
		ctx,
		insertQuery,
		quiz.Title,
		quiz.Description,
		quiz.CreationDate,
		int(quiz.QuizType),
		quiz.CreatorID,
	); err != nil {
		return types.Quiz{}, classify(op, err)
	}

	const reselectQuery = `
		SELECT id FROM quizzes
		WHERE title = $1 AND description = $2 AND quiz_type = $3
		ORDER BY id DESC
		LIMIT 1`
	if err := tx.QueryRowContext(ctx, reselectQuery, quiz.Title, quiz.Description, int(quiz.QuizType)).Scan(&quiz.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Quiz{}, errs.E(errs.Logic, op, ErrNotReselected)
		}
		return types.Quiz{}, classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return types.Quiz{}, classify(op, err)
	}
	return quiz, nil
}

func (r *QuizRepository) Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	const op = "store.quiz.update"
	const query = `
		UPDATE quizzes
		SET title = $1,
			description = $2,
			quiz_type = $3,
			creator_id = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		quiz.Title,
		quiz.Description,
		int(quiz.QuizType),
		quiz.CreatorID,
		quiz.ID,
	)
	if err != nil {
		return types.Quiz{}, classify(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Quiz{}, classify(op, err)
	}
	if affected == 0 {
		return types.Quiz{}, notFound(op)
	}
	return r.GetByID(ctx, quiz.ID)
}

func (r *QuizRepository) Delete(ctx context.Context, id int64) error {
	const op = "store.quiz.delete"
	const query = `DELETE FROM quizzes WHERE id = $1`
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

func (r *QuizRepository) GetByID(ctx context.Context, id int64) (types.Quiz, error) {
	const op = "store.quiz.get_by_id"
	const query = `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1`
	return r.getOne(ctx, op, query, id)
}

func (r *QuizRepository) GetByTitle(ctx context.Context, title string) (types.Quiz, error) {
	const op = "store.quiz.get_by_title"
	const query = `SELECT ` + quizColumns + ` FROM quizzes WHERE title = $1 ORDER BY id LIMIT 1`
	return r.getOne(ctx, op, query, title)
}

func (r *QuizRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	const op = "store.quiz.exists_by_title"
	const query = `SELECT EXISTS(SELECT 1 FROM quizzes WHERE title = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, title).Scan(&exists); err != nil {
		return false, classify(op, err)
	}
	return exists, nil
}

func (r *QuizRepository) GetAll(ctx context.Context) ([]types.Quiz, error) {
	const op = "store.quiz.get_all"
	const query = `SELECT ` + quizColumns + ` FROM quizzes ORDER BY id`
	return r.getMany(ctx, op, query)
}

// GetLastCreated returns the count most recently created quizzes, newest first.
func (r *QuizRepository) GetLastCreated(ctx context.Context, count int) ([]types.Quiz, error) {
	const op = "store.quiz.get_last_created"
	if err := checkWindow(op, 0, count); err != nil {
		return nil, err
	}
	const query = `
		SELECT ` + quizColumns + `
		FROM quizzes
		ORDER BY creation_date DESC, id DESC
		LIMIT $1`
	return r.getMany(ctx, op, query, count)
}

func (r *QuizRepository) GetByType(ctx context.Context, quizType types.QuizType) ([]types.Quiz, error) {
	const op = "store.quiz.get_by_type"
	const query = `SELECT ` + quizColumns + ` FROM quizzes WHERE quiz_type = $1 ORDER BY id`
	return r.getMany(ctx, op, query, int(quizType))
}

func (r *QuizRepository) CountLikeTitle(ctx context.Context, title string) (int, error) {
	const op = "store.quiz.count_like_title"
	const query = `SELECT COUNT(1) FROM quizzes WHERE LOWER(title) LIKE $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, likePattern(title)).Scan(&total); err != nil {
		return 0, classify(op, err)
	}
	return total, nil
}

// GetLikeTitle returns one page of quizzes whose title contains title,
// case-insensitively, plus the number of all such quizzes.
func (r *QuizRepository) GetLikeTitle(ctx context.Context, title string, offset, limit int) ([]types.Quiz, int, error) {
	const op = "store.quiz.get_like_title"
	if err := checkWindow(op, offset, limit); err != nil {
		return nil, 0, err
	}

	total, err := r.CountLikeTitle(ctx, title)
	if err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + quizColumns + `
		FROM quizzes
		WHERE LOWER(title) LIKE $1
		ORDER BY id
		OFFSET $2 LIMIT $3`
	quizzes, err := r.getMany(ctx, op, query, likePattern(title), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (r *QuizRepository) Count(ctx context.Context) (int, error) {
	const op = "store.quiz.count"
	const query = `SELECT COUNT(1) FROM quizzes`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, classify(op, err)
	}
	return total, nil
}

func (r *QuizRepository) GetByPage(ctx context.Context, offset, limit int) ([]types.Quiz, int, error) {
	const op = "store.quiz.get_by_page"
	if err := checkWindow(op, offset, limit); err != nil {
		return nil, 0, err
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + quizColumns + `
		FROM quizzes
		ORDER BY id
		OFFSET $1 LIMIT $2`
	quizzes, err := r.getMany(ctx, op, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (r *QuizRepository) getOne(ctx context.Context, op, query string, args ...any) (types.Quiz, error) {
	quiz, err := scanQuiz(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Quiz{}, notFound(op)
		}
		return types.Quiz{}, classify(op, err)
	}
	return quiz, nil
}

func (r *QuizRepository) getMany(ctx context.Context, op, query string, args ...any) ([]types.Quiz, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	quizzes := make([]types.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return quizzes, nil
}

func scanQuiz(row rowScanner) (types.Quiz, error) {
	var quiz types.Quiz
	var quizType int
	if err := row.Scan(
		&quiz.ID,
		&quiz.Title,
		&quiz.Description,
		&quiz.CreationDate,
		&quizType,
		&quiz.CreatorID,
	); err != nil {
		return types.Quiz{}, err
	}
	quiz.QuizType = types.QuizType(quizType)
	if !quiz.QuizType.Valid() {
		return types.Quiz{}, fmt.Errorf("quiz %d has unknown type ordinal %d", quiz.ID, quizType)
	}
	return quiz, nil
}

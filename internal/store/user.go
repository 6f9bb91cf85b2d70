package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/types"
)

const userColumns = `id, first_name, last_name, email, description, password_hash, email_code, active, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const op = "store.user.get_by_id"
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, op, query, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const op = "store.user.get_by_email"
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return r.getOne(ctx, op, query, email)
}

func (r *UserRepository) GetByEmailCode(ctx context.Context, code string) (types.User, error) {
	const op = "store.user.get_by_email_code"
	const query = `SELECT ` + userColumns + ` FROM users WHERE email_code = $1`
	return r.getOne(ctx, op, query, code)
}

// Create inserts user and reselects it by email to learn its id.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const op = "store.user.create"

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, classify(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `
		INSERT INTO users (first_name, last_name, email, description, password_hash, email_code, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(
		ctx,
		insertQuery,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Description,
		user.PasswordHash,
		user.EmailCode,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, classify(op, err)
	}

	const reselectQuery = `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`
	if err := tx.QueryRowContext(ctx, reselectQuery, user.Email).Scan(&user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, errs.E(errs.Logic, op, ErrNotReselected)
		}
		return types.User{}, classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, classify(op, err)
	}
	return user, nil
}

// Update rewrites the profile columns: names and description.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	const op = "store.user.update"
	const query = `
		UPDATE users
		SET first_name = $1,
			last_name = $2,
			description = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Description,
		time.Now(),
		user.ID,
	)
	if err := affectedOne(op, result, err); err != nil {
		return types.User{}, err
	}
	return r.GetByID(ctx, user.ID)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	const op = "store.user.delete"
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	return affectedOne(op, result, err)
}

// UpdateEmailCode stores a pending code, or clears it when code is nil.
func (r *UserRepository) UpdateEmailCode(ctx context.Context, id int64, code *string) error {
	const op = "store.user.update_email_code"
	const query = `UPDATE users SET email_code = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, code, time.Now(), id)
	return affectedOne(op, result, err)
}

// Activate flips an inactive user to active. It reports false when the user
// was already active.
func (r *UserRepository) Activate(ctx context.Context, id int64) (bool, error) {
	const op = "store.user.activate"
	const query = `UPDATE users SET active = TRUE, updated_at = $1 WHERE id = $2 AND active = FALSE`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return false, classify(op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, classify(op, err)
	}
	return affected == 1, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const op = "store.user.update_password"
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	return affectedOne(op, result, err)
}

func (r *UserRepository) GetFavoriteQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error) {
	const op = "store.user.get_favorite_quizzes"
	const query = `
		SELECT q.id, q.title, q.description, q.creation_date, q.quiz_type, q.creator_id
		FROM favorite_quizzes f
		JOIN quizzes q ON q.id = f.quiz_id
		WHERE f.user_id = $1
		ORDER BY q.id`
	return r.quizzes(ctx, op, query, userID)
}

func (r *UserRepository) AddFavoriteQuiz(ctx context.Context, userID, quizID int64) error {
	const op = "store.user.add_favorite_quiz"
	const query = `
		INSERT INTO favorite_quizzes (user_id, quiz_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, quizID); err != nil {
		return classify(op, err)
	}
	return nil
}

func (r *UserRepository) RemoveFavoriteQuiz(ctx context.Context, userID, quizID int64) error {
	const op = "store.user.remove_favorite_quiz"
	const query = `DELETE FROM favorite_quizzes WHERE user_id = $1 AND quiz_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, quizID)
	return affectedOne(op, result, err)
}

func (r *UserRepository) GetAccomplishedQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error) {
	const op = "store.user.get_accomplished_quizzes"
	const query = `
		SELECT q.id, q.title, q.description, q.creation_date, q.quiz_type, q.creator_id
		FROM accomplished_quizzes a
		JOIN quizzes q ON q.id = a.quiz_id
		WHERE a.user_id = $1
		ORDER BY a.completed_at DESC`
	return r.quizzes(ctx, op, query, userID)
}

// MarkQuizAccomplished records that the user finished the quiz. Finishing it
// again moves the completion time forward.
func (r *UserRepository) MarkQuizAccomplished(ctx context.Context, userID, quizID int64) error {
	const op = "store.user.mark_quiz_accomplished"
	const query = `
		INSERT INTO accomplished_quizzes (user_id, quiz_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, quiz_id) DO UPDATE SET completed_at = EXCLUDED.completed_at`
	if _, err := r.db.ExecContext(ctx, query, userID, quizID, time.Now()); err != nil {
		return classify(op, err)
	}
	return nil
}

func (r *UserRepository) quizzes(ctx context.Context, op, query string, args ...any) ([]types.Quiz, error) {
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

func (r *UserRepository) getOne(ctx context.Context, op, query string, args ...any) (types.User, error) {
	var user types.User
	var code sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Description,
		&user.PasswordHash,
		&code,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, notFound(op)
		}
		return types.User{}, classify(op, err)
	}
	if code.Valid {
		user.EmailCode = &code.String
	}
	return user, nil
}

func affectedOne(op string, result sql.Result, err error) error {
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

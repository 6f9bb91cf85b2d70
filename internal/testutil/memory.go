// Package testutil holds in-memory stand-ins for the stores, the mail relay,
// the event broker and object storage. Service and handler tests wire real
// services on top of them.
package testutil

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quizhub/apiserver/internal/errs"
	"github.com/quizhub/apiserver/internal/store"
	"github.com/quizhub/apiserver/types"
)

func notFound(op string) error {
	return errs.E(errs.NotFound, op, store.ErrNotFound)
}

func window(op string, offset, limit, total int) (int, int, error) {
	if offset < 0 || limit < 0 {
		return 0, 0, errs.New(errs.Validation, op, "offset and limit must not be negative")
	}
	start := min(offset, total)
	end := min(start+limit, total)
	return start, end, nil
}

// Users is an in-memory user store.
type Users struct {
	mu           sync.Mutex
	nextID       int64
	users        map[int64]types.User
	favorites    map[int64]map[int64]bool
	accomplished map[int64][]int64

	// Quizzes resolves favorite and accomplished quiz ids when set.
	Quizzes *Quizzes

	// Err, when set, is returned by every call.
	Err error
}

func NewUsers() *Users {
	return &Users{
		users:        make(map[int64]types.User),
		favorites:    make(map[int64]map[int64]bool),
		accomplished: make(map[int64][]int64),
	}
}

func (u *Users) GetByID(ctx context.Context, id int64) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	user, ok := u.users[id]
	if !ok {
		return types.User{}, notFound("testutil.users.get_by_id")
	}
	return user, nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, notFound("testutil.users.get_by_email")
}

func (u *Users) GetByEmailCode(ctx context.Context, code string) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	for _, user := range u.users {
		if user.EmailCode != nil && *user.EmailCode == code {
			return user, nil
		}
	}
	return types.User{}, notFound("testutil.users.get_by_email_code")
}

func (u *Users) Create(ctx context.Context, user types.User) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	for _, existing := range u.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, errs.New(errs.Conflict, "testutil.users.create", "email exists")
		}
	}
	u.nextID++
	user.ID = u.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	u.users[user.ID] = user
	return user, nil
}

func (u *Users) Update(ctx context.Context, user types.User) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return types.User{}, u.Err
	}
	current, ok := u.users[user.ID]
	if !ok {
		return types.User{}, notFound("testutil.users.update")
	}
	current.FirstName = user.FirstName
	current.LastName = user.LastName
	current.Description = user.Description
	current.UpdatedAt = time.Now()
	u.users[user.ID] = current
	return current, nil
}

func (u *Users) Delete(ctx context.Context, id int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	if _, ok := u.users[id]; !ok {
		return notFound("testutil.users.delete")
	}
	delete(u.users, id)
	return nil
}

func (u *Users) UpdateEmailCode(ctx context.Context, id int64, code *string) error {
	return u.mutate("testutil.users.update_email_code", id, func(user *types.User) {
		if code == nil {
			user.EmailCode = nil
			return
		}
		value := *code
		user.EmailCode = &value
	})
}

func (u *Users) Activate(ctx context.Context, id int64) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return false, u.Err
	}
	user, ok := u.users[id]
	if !ok || user.Active {
		return false, nil
	}
	user.Active = true
	u.users[id] = user
	return true, nil
}

func (u *Users) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return u.mutate("testutil.users.update_password", id, func(user *types.User) {
		user.PasswordHash = passwordHash
	})
}

func (u *Users) GetFavoriteQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error) {
	u.mu.Lock()
	ids := make([]int64, 0, len(u.favorites[userID]))
	for id := range u.favorites[userID] {
		ids = append(ids, id)
	}
	u.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return u.resolve(ctx, ids)
}

func (u *Users) AddFavoriteQuiz(ctx context.Context, userID, quizID int64) error {
	if err := u.checkQuiz(ctx, quizID); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.favorites[userID] == nil {
		u.favorites[userID] = make(map[int64]bool)
	}
	u.favorites[userID][quizID] = true
	return nil
}

func (u *Users) RemoveFavoriteQuiz(ctx context.Context, userID, quizID int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.favorites[userID][quizID] {
		return notFound("testutil.users.remove_favorite_quiz")
	}
	delete(u.favorites[userID], quizID)
	return nil
}

func (u *Users) GetAccomplishedQuizzes(ctx context.Context, userID int64) ([]types.Quiz, error) {
	u.mu.Lock()
	done := u.accomplished[userID]
	ids := make([]int64, 0, len(done))
	for i := len(done) - 1; i >= 0; i-- {
		ids = append(ids, done[i])
	}
	u.mu.Unlock()
	return u.resolve(ctx, ids)
}

func (u *Users) MarkQuizAccomplished(ctx context.Context, userID, quizID int64) error {
	if err := u.checkQuiz(ctx, quizID); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	done := u.accomplished[userID][:0:0]
	for _, id := range u.accomplished[userID] {
		if id != quizID {
			done = append(done, id)
		}
	}
	u.accomplished[userID] = append(done, quizID)
	return nil
}

func (u *Users) checkQuiz(ctx context.Context, quizID int64) error {
	if u.Quizzes == nil {
		return nil
	}
	_, err := u.Quizzes.GetByID(ctx, quizID)
	return err
}

func (u *Users) resolve(ctx context.Context, ids []int64) ([]types.Quiz, error) {
	quizzes := make([]types.Quiz, 0, len(ids))
	for _, id := range ids {
		if u.Quizzes == nil {
			quizzes = append(quizzes, types.Quiz{ID: id})
			continue
		}
		quiz, err := u.Quizzes.GetByID(ctx, id)
		if err != nil {
			continue
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

func (u *Users) mutate(op string, id int64, fn func(*types.User)) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	user, ok := u.users[id]
	if !ok {
		return notFound(op)
	}
	fn(&user)
	user.UpdatedAt = time.Now()
	u.users[id] = user
	return nil
}

// Quizzes is an in-memory quiz store.
type Quizzes struct {
	mu      sync.Mutex
	nextID  int64
	quizzes map[int64]types.Quiz
}

func NewQuizzes() *Quizzes {
	return &Quizzes{quizzes: make(map[int64]types.Quiz)}
}

func (q *Quizzes) Create(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	quiz.ID = q.nextID
	q.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (q *Quizzes) Update(ctx context.Context, quiz types.Quiz) (types.Quiz, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	current, ok := q.quizzes[quiz.ID]
	if !ok {
		return types.Quiz{}, notFound("testutil.quizzes.update")
	}
	quiz.CreationDate = current.CreationDate
	q.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (q *Quizzes) Delete(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.quizzes[id]; !ok {
		return notFound("testutil.quizzes.delete")
	}
	delete(q.quizzes, id)
	return nil
}

func (q *Quizzes) GetByID(ctx context.Context, id int64) (types.Quiz, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	quiz, ok := q.quizzes[id]
	if !ok {
		return types.Quiz{}, notFound("testutil.quizzes.get_by_id")
	}
	return quiz, nil
}

func (q *Quizzes) GetByTitle(ctx context.Context, title string) (types.Quiz, error) {
	for _, quiz := range q.sorted() {
		if quiz.Title == title {
			return quiz, nil
		}
	}
	return types.Quiz{}, notFound("testutil.quizzes.get_by_title")
}

func (q *Quizzes) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	_, err := q.GetByTitle(ctx, title)
	return err == nil, nil
}

func (q *Quizzes) GetAll(ctx context.Context) ([]types.Quiz, error) {
	return q.sorted(), nil
}

func (q *Quizzes) GetLastCreated(ctx context.Context, count int) ([]types.Quiz, error) {
	if count < 0 {
		return nil, errs.New(errs.Validation, "testutil.quizzes.get_last_created", "limit must not be negative")
	}
	all := q.sorted()
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreationDate.Equal(all[j].CreationDate) {
			return all[i].CreationDate.After(all[j].CreationDate)
		}
		return all[i].ID > all[j].ID
	})
	return all[:min(count, len(all))], nil
}

func (q *Quizzes) GetByType(ctx context.Context, quizType types.QuizType) ([]types.Quiz, error) {
	matched := make([]types.Quiz, 0)
	for _, quiz := range q.sorted() {
		if quiz.QuizType == quizType {
			matched = append(matched, quiz)
		}
	}
	return matched, nil
}

func (q *Quizzes) GetLikeTitle(ctx context.Context, title string, offset, limit int) ([]types.Quiz, int, error) {
	term := strings.ToLower(strings.TrimSpace(title))
	matched := make([]types.Quiz, 0)
	for _, quiz := range q.sorted() {
		if strings.Contains(strings.ToLower(quiz.Title), term) {
			matched = append(matched, quiz)
		}
	}
	start, end, err := window("testutil.quizzes.get_like_title", offset, limit, len(matched))
	if err != nil {
		return nil, 0, err
	}
	return matched[start:end], len(matched), nil
}

func (q *Quizzes) GetByPage(ctx context.Context, offset, limit int) ([]types.Quiz, int, error) {
	all := q.sorted()
	start, end, err := window("testutil.quizzes.get_by_page", offset, limit, len(all))
	if err != nil {
		return nil, 0, err
	}
	return all[start:end], len(all), nil
}

func (q *Quizzes) sorted() []types.Quiz {
	q.mu.Lock()
	defer q.mu.Unlock()
	all := make([]types.Quiz, 0, len(q.quizzes))
	for _, quiz := range q.quizzes {
		all = append(all, quiz)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Announcements is an in-memory announcement and comment store.
type Announcements struct {
	mu            sync.Mutex
	nextID        int64
	nextCommentID int64
	announcements map[int64]types.Announcement
	comments      []types.AnnouncementComment
}

func NewAnnouncements() *Announcements {
	return &Announcements{announcements: make(map[int64]types.Announcement)}
}

func (a *Announcements) Create(ctx context.Context, announcement types.Announcement) (types.Announcement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	announcement.ID = a.nextID
	announcement.ParticipantsCap = 0
	a.announcements[announcement.ID] = announcement
	return announcement, nil
}

func (a *Announcements) Update(ctx context.Context, announcement types.Announcement) (types.Announcement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	current, ok := a.announcements[announcement.ID]
	if !ok {
		return types.Announcement{}, notFound("testutil.announcements.update")
	}
	announcement.ParticipantsCap = current.ParticipantsCap
	a.announcements[announcement.ID] = announcement
	return announcement, nil
}

func (a *Announcements) Delete(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.announcements[id]; !ok {
		return notFound("testutil.announcements.delete")
	}
	delete(a.announcements, id)
	return nil
}

func (a *Announcements) GetByID(ctx context.Context, id int64) (types.Announcement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	announcement, ok := a.announcements[id]
	if !ok {
		return types.Announcement{}, notFound("testutil.announcements.get_by_id")
	}
	return announcement, nil
}

func (a *Announcements) GetByTitle(ctx context.Context, title string) (types.Announcement, error) {
	all := a.byID()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Title == title {
			return all[i], nil
		}
	}
	return types.Announcement{}, notFound("testutil.announcements.get_by_title")
}

func (a *Announcements) IsByID(ctx context.Context, id int64) (bool, error) {
	_, err := a.GetByID(ctx, id)
	return err == nil, nil
}

func (a *Announcements) GetAll(ctx context.Context) ([]types.Announcement, error) {
	return a.byID(), nil
}

func (a *Announcements) GetAllByUser(ctx context.Context, userID int64) ([]types.Announcement, error) {
	matched := make([]types.Announcement, 0)
	for _, announcement := range a.byDate() {
		if announcement.UserID == userID {
			matched = append(matched, announcement)
		}
	}
	return matched, nil
}

func (a *Announcements) GetPopular(ctx context.Context, count int, excludeUserID int64) ([]types.Announcement, error) {
	if count < 0 {
		return nil, errs.New(errs.Validation, "testutil.announcements.get_popular", "limit must not be negative")
	}
	matched := make([]types.Announcement, 0)
	for _, announcement := range a.byID() {
		if announcement.UserID != excludeUserID {
			matched = append(matched, announcement)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].ParticipantsCap != matched[j].ParticipantsCap {
			return matched[i].ParticipantsCap > matched[j].ParticipantsCap
		}
		return matched[i].ID > matched[j].ID
	})
	return matched[:min(count, len(matched))], nil
}

func (a *Announcements) Like(ctx context.Context, id int64) (int, error) {
	return a.adjust("testutil.announcements.like", id, 1)
}

func (a *Announcements) Dislike(ctx context.Context, id int64) (int, error) {
	return a.adjust("testutil.announcements.dislike", id, -1)
}

func (a *Announcements) GetLikeTitle(ctx context.Context, title string, offset, limit int) ([]types.Announcement, int, error) {
	term := strings.ToLower(strings.TrimSpace(title))
	matched := make([]types.Announcement, 0)
	for _, announcement := range a.byDate() {
		if strings.Contains(strings.ToLower(announcement.Title), term) {
			matched = append(matched, announcement)
		}
	}
	start, end, err := window("testutil.announcements.get_like_title", offset, limit, len(matched))
	if err != nil {
		return nil, 0, err
	}
	return matched[start:end], len(matched), nil
}

func (a *Announcements) GetByPage(ctx context.Context, offset, limit int) ([]types.Announcement, int, error) {
	all := a.byDate()
	start, end, err := window("testutil.announcements.get_by_page", offset, limit, len(all))
	if err != nil {
		return nil, 0, err
	}
	return all[start:end], len(all), nil
}

func (a *Announcements) GetComments(ctx context.Context, announcementID, afterID int64, limit int) ([]types.AnnouncementComment, error) {
	if afterID < 0 || limit < 0 {
		return nil, errs.New(errs.Validation, "testutil.announcements.get_comments", "after id and limit must not be negative")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	matched := make([]types.AnnouncementComment, 0)
	for _, comment := range a.comments {
		if len(matched) == limit {
			break
		}
		if comment.AnnouncementID == announcementID && comment.ID > afterID {
			matched = append(matched, comment)
		}
	}
	slices.Reverse(matched)
	return matched, nil
}

func (a *Announcements) CreateComment(ctx context.Context, content string, announcementID, authorID int64) (types.AnnouncementComment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.announcements[announcementID]; !ok {
		return types.AnnouncementComment{}, notFound("testutil.announcements.create_comment")
	}
	a.nextCommentID++
	comment := types.AnnouncementComment{
		ID:             a.nextCommentID,
		AnnouncementID: announcementID,
		AuthorID:       authorID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	a.comments = append(a.comments, comment)
	return comment, nil
}

func (a *Announcements) adjust(op string, id int64, delta int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	announcement, ok := a.announcements[id]
	if !ok {
		return 0, notFound(op)
	}
	announcement.ParticipantsCap = max(announcement.ParticipantsCap+delta, 0)
	a.announcements[id] = announcement
	return announcement.ParticipantsCap, nil
}

func (a *Announcements) byID() []types.Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	all := make([]types.Announcement, 0, len(a.announcements))
	for _, announcement := range a.announcements {
		all = append(all, announcement)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func (a *Announcements) byDate() []types.Announcement {
	all := a.byID()
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].ID > all[j].ID
	})
	return all
}

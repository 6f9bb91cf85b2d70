package types

import (
	"strings"
	"time"
)

// Announcement is a user-posted event listing that other users can like
// and comment on.
type Announcement struct {
	// ID is assigned by the store on creation and never changes.
	ID int64 `json:"id" db:"id"`

	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Address     string    `json:"address" db:"address"`
	Date        time.Time `json:"date" db:"date"`

	// UserID is the author of the announcement.
	UserID int64 `json:"user_id" db:"user_id"`

	// ParticipantsCap counts likes. It never drops below zero.
	ParticipantsCap int `json:"participants_cap" db:"participants_cap"`
}

// NewAnnouncement builds an announcement ready to be stored. A zero date
// means "now".
func NewAnnouncement(title, description, address string, userID int64, date time.Time) Announcement {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return Announcement{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Address:     strings.TrimSpace(address),
		Date:        date,
		UserID:      userID,
	}
}

// AnnouncementComment is a comment left under an announcement.
type AnnouncementComment struct {
	ID             int64     `json:"id" db:"id"`
	AnnouncementID int64     `json:"announcement_id" db:"announcement_id"`
	AuthorID       int64     `json:"author_id" db:"author_id"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

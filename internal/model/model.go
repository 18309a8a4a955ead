// Package model holds the persisted entities shared by storage, state and flows.
package model

// ContentKind tells how the content of a note was captured.
type ContentKind string

const (
	// ContentText is a note typed directly to the bot.
	ContentText ContentKind = "text"
	// ContentForwarded is a note captured from a forwarded message (text or caption).
	ContentForwarded ContentKind = "forwarded"
)

// Valid reports whether k is one of the known kinds.
func (k ContentKind) Valid() bool {
	return k == ContentText || k == ContentForwarded
}

// User is a Telegram account known to the bot.
type User struct {
	ID          int64   `db:"user_id"`
	DisplayName string  `db:"display_name"`
	Handle      *string `db:"handle"`
}

// Category groups notes of a single owner. Names are unique per owner.
type Category struct {
	ID      int64  `db:"id"`
	OwnerID int64  `db:"owner_id"`
	Name    string `db:"name"`
}

// Note is a piece of captured content filed under a category of the same owner.
type Note struct {
	ID         int64       `db:"id"`
	OwnerID    int64       `db:"owner_id"`
	CategoryID int64       `db:"category_id"`
	Kind       ContentKind `db:"content_kind"`
	Content    string      `db:"content"`
	CaptureID  string      `db:"capture_id"`
}

package flow

import (
	"context"

	"github.com/m3rciful/notesbot/internal/model"
)

// Kind tags the variant of an Event.
type Kind int

const (
	// KindCommand is a slash command such as "/start"; Text holds the full command line.
	KindCommand Kind = iota + 1
	// KindText is a plain text message, including reply keyboard labels.
	KindText
	// KindForwarded is a forwarded message; Forwarded holds its text or caption.
	KindForwarded
	// KindButtonTap is an inline button press; Token holds the callback token.
	KindButtonTap
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindForwarded:
		return "forwarded"
	case KindButtonTap:
		return "button_tap"
	}
	return "unknown"
}

// Event is one inbound chat event, normalized by the transport.
type Event struct {
	UserID      int64
	DisplayName string
	Handle      string

	Kind      Kind
	Text      string
	Forwarded string
	Token     string
}

// User returns the account that produced the event.
func (e Event) User() model.User {
	u := model.User{ID: e.UserID, DisplayName: e.DisplayName}
	if e.Handle != "" {
		h := e.Handle
		u.Handle = &h
	}
	return u
}

// Gateway is the persistence the dispatcher needs. Implemented by storage.Postgres.
type Gateway interface {
	EnsureUser(ctx context.Context, u model.User) error
	CreateCategory(ctx context.Context, owner int64, name string) (id int64, created bool, err error)
	GetCategory(ctx context.Context, owner, id int64) (model.Category, error)
	ListCategories(ctx context.Context, owner int64) ([]model.Category, error)
	CreateNote(ctx context.Context, n model.Note) (int64, error)
	ListNotes(ctx context.Context, owner, categoryID int64, limit int) ([]model.Note, error)
}

// Package convstate keeps, per user, which step of a conversation the user is in
// together with any content captured along the way.
//
// All reads and writes for one user are expected to happen while holding that
// user's lock (see Store.Lock), so a (Get, decide, Set) sequence is atomic per user.
package convstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/notesbot/internal/model"
)

// Flow identifies the multi-step operation a user is in.
type Flow string

const (
	// FlowIdle means no operation is in progress.
	FlowIdle Flow = "idle"
	// FlowAwaitingCategoryName waits for the name of a new category.
	FlowAwaitingCategoryName Flow = "awaiting_category_name"
	// FlowAwaitingNoteCategory waits for the category of a captured note.
	FlowAwaitingNoteCategory Flow = "awaiting_note_category_choice"
)

// Valid reports whether f is a known flow.
func (f Flow) Valid() bool {
	switch f {
	case FlowIdle, FlowAwaitingCategoryName, FlowAwaitingNoteCategory:
		return true
	}
	return false
}

// Pending is content captured for a note that still needs a category.
type Pending struct {
	CaptureID string            `json:"capture_id"`
	Kind      model.ContentKind `json:"kind"`
	Content   string            `json:"content"`
}

// State is the full conversation state of a user. It is always replaced as a whole.
type State struct {
	Flow    Flow     `json:"flow"`
	Pending *Pending `json:"pending,omitempty"`
}

// Idle is the state of every user without an active flow.
func Idle() State { return State{Flow: FlowIdle} }

// ErrInvalidState is returned by Set for states that can never be observed.
var ErrInvalidState = errors.New("convstate: invalid state")

// Validate checks that the flow is known and pending data is present exactly when a note awaits its category.
func (s State) Validate() error {
	if !s.Flow.Valid() {
		return fmt.Errorf("%w: unknown flow %q", ErrInvalidState, s.Flow)
	}
	if s.Flow == FlowAwaitingNoteCategory {
		if s.Pending == nil || s.Pending.CaptureID == "" || !s.Pending.Kind.Valid() {
			return fmt.Errorf("%w: %s requires pending content", ErrInvalidState, s.Flow)
		}
		return nil
	}
	if s.Pending != nil {
		return fmt.Errorf("%w: %s carries pending content", ErrInvalidState, s.Flow)
	}
	return nil
}

// Error reports an unavailable backing store. The stored state is left untouched.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("convstate: %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Code is picked up by handler summaries as err_code.
func (e *Error) Code() string { return "state_store" }

// Store holds conversation state keyed by user id.
type Store interface {
	// Get returns the user's state, Idle() when none is stored.
	Get(ctx context.Context, userID int64) (State, error)
	// Set replaces the user's state.
	Set(ctx context.Context, userID int64, st State) error
	// Clear resets the user to Idle().
	Clear(ctx context.Context, userID int64) error
	// Lock blocks until the user's lock is held or ctx is done.
	// The returned function releases the lock and is safe to call once.
	Lock(ctx context.Context, userID int64) (func(), error)
}

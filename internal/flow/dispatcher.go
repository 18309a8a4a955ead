// Package flow is the conversation state machine. It turns independent chat
// events into multi-step operations against storage, one event per user at a time.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/internal/callback"
	"github.com/m3rciful/notesbot/internal/convstate"
	"github.com/m3rciful/notesbot/internal/metrics"
	"github.com/m3rciful/notesbot/internal/model"
	"github.com/m3rciful/notesbot/internal/present"
	"github.com/m3rciful/notesbot/internal/storage"
)

const (
	// DefaultLockTimeout bounds waiting for the per-user lock.
	DefaultLockTimeout = 5 * time.Second
	// DefaultOpTimeout bounds each state store and gateway call.
	DefaultOpTimeout = 3 * time.Second
	// DefaultNotesPageSize is how many notes a category listing shows.
	DefaultNotesPageSize = 10

	// MaxCategoryName bounds a category name in runes; longer names do not fit a button.
	MaxCategoryName = 64
)

// Commands understood by the dispatcher.
const (
	CommandStart          = "/start"
	CommandHelp           = "/help"
	CommandAddCategory    = "/add_cat"
	CommandShowCategories = "/show_cat"
	CommandNote           = "/note"
)

// ErrValidation is reported for input rejected locally, such as an empty category name.
var ErrValidation = errors.New("flow: invalid input")

// Config wires the dispatcher's collaborators.
type Config struct {
	Gateway Gateway
	States  convstate.Store
	Metrics *metrics.Flow

	// LockTimeout bounds the wait for the per-user lock.
	LockTimeout time.Duration
	// OpTimeout bounds every single storage call.
	OpTimeout     time.Duration
	NotesPageSize int

	// NewCaptureID generates ids for captured note content; uuid by default.
	NewCaptureID func() string
}

// Dispatcher routes events to flow steps based on the user's conversation state.
type Dispatcher struct {
	cfg Config
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("flow: nil gateway")
	}
	if cfg.States == nil {
		return nil, errors.New("flow: nil state store")
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}
	if cfg.NotesPageSize <= 0 {
		cfg.NotesPageSize = DefaultNotesPageSize
	}
	if cfg.NewCaptureID == nil {
		cfg.NewCaptureID = uuid.NewString
	}
	return &Dispatcher{cfg: cfg}, nil
}

// step is the outcome of one transition. A nil next keeps the current state.
// cause carries a recovered, user-visible error that does not abort the step.
type step struct {
	reply *present.Response
	next  *convstate.State
	cause error
	label string
}

func stay(reply *present.Response, label string) step {
	return step{reply: reply, label: label}
}

func moveTo(next convstate.State, reply *present.Response, label string) step {
	return step{reply: reply, next: &next, label: label}
}

func ignore() step {
	return step{label: "ignored"}
}

// Handle processes one event under the user's lock and returns the reply, or nil when
// the event is ignored. The returned error describes a recovered failure for logging;
// the reply already tells the user what happened. On storage failure the state is left as it was.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (*present.Response, error) {
	d.cfg.Metrics.Event(ev.Kind.String())
	if ev.UserID == 0 {
		return nil, errors.New("flow: event without user")
	}

	lockCtx, cancel := context.WithTimeout(ctx, d.cfg.LockTimeout)
	waitStart := time.Now()
	unlock, err := d.cfg.States.Lock(lockCtx, ev.UserID)
	cancel()
	d.cfg.Metrics.ObserveLockWait(time.Since(waitStart))
	if err != nil {
		return d.fail(ctx, ev, "lock", err)
	}
	defer unlock()

	opCtx, cancel := d.op(ctx)
	current, err := d.cfg.States.Get(opCtx, ev.UserID)
	cancel()
	if err != nil {
		return d.fail(ctx, ev, "state_get", err)
	}

	s, err := d.route(ctx, ev, current)
	if err != nil {
		return d.fail(ctx, ev, s.label, err)
	}

	to := current.Flow
	if s.next != nil {
		opCtx, cancel := d.op(ctx)
		err := d.cfg.States.Set(opCtx, ev.UserID, *s.next)
		cancel()
		if err != nil {
			return d.fail(ctx, ev, "state_set", err)
		}
		to = s.next.Flow
	}
	d.cfg.Metrics.Transition(string(current.Flow), string(to))

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.String("kind", ev.Kind.String()),
		slog.String("from", string(current.Flow)),
		slog.String("to", string(to)),
		slog.String("step", s.label),
	}
	if s.cause != nil {
		attrs = append(attrs, slog.String("cause", s.cause.Error()))
	}
	logger.Debug(ctx, "flow", "flow.transition", attrs...)
	return s.reply, s.cause
}

func (d *Dispatcher) route(ctx context.Context, ev Event, st convstate.State) (step, error) {
	switch ev.Kind {
	case KindCommand:
		return d.onCommand(ctx, ev, st)
	case KindText:
		return d.onText(ctx, ev, st)
	case KindForwarded:
		return d.captureNote(ctx, ev, model.ContentForwarded, ev.Forwarded)
	case KindButtonTap:
		return d.onButton(ctx, ev, st)
	}
	return ignore(), nil
}

func (d *Dispatcher) onCommand(ctx context.Context, ev Event, st convstate.State) (step, error) {
	name, args := splitCommand(ev.Text)
	switch name {
	case CommandStart:
		return d.start(ctx, ev)
	case CommandHelp:
		return stay(present.Help(), "help"), nil
	case CommandAddCategory:
		return d.startAddCategory(), nil
	case CommandShowCategories:
		return d.showCategories(ctx, ev)
	case CommandNote:
		return d.captureNote(ctx, ev, model.ContentText, args)
	}
	return ignore(), nil
}

func (d *Dispatcher) onText(ctx context.Context, ev Event, st convstate.State) (step, error) {
	text := strings.TrimSpace(ev.Text)
	switch {
	case strings.EqualFold(text, present.TriggerHelp):
		return stay(present.Help(), "help"), nil
	case strings.EqualFold(text, present.TriggerAddCategory):
		return d.startAddCategory(), nil
	case strings.EqualFold(text, present.TriggerShowCategories):
		return d.showCategories(ctx, ev)
	case strings.HasPrefix(text, "/"):
		return d.onCommand(ctx, ev, st)
	}

	if st.Flow == convstate.FlowAwaitingCategoryName {
		return d.createCategory(ctx, ev, text)
	}
	return ignore(), nil
}

func (d *Dispatcher) onButton(ctx context.Context, ev Event, st convstate.State) (step, error) {
	action, id, err := callback.Decode(ev.Token)
	if err != nil {
		d.cfg.Metrics.Error("malformed_callback")
		logger.Warn(ctx, "flow", "callback.malformed",
			slog.String("status", "fail"),
			slog.Int64("user_id", ev.UserID),
			slog.String("payload", logger.SanitizeLimit(ev.Token, 128)),
		)
		s := stay(present.BadButton(), "malformed_callback")
		s.cause = fmt.Errorf("decode %q: %w", logger.SanitizeLimit(ev.Token, 64), err)
		return s, nil
	}

	switch action {
	case callback.SelectCategory:
		return d.browseCategory(ctx, ev, id)
	case callback.ChooseNoteCategory:
		switch st.Flow {
		case convstate.FlowAwaitingNoteCategory:
			return d.saveNote(ctx, ev, st, id)
		case convstate.FlowIdle:
			return stay(present.NoteEmpty(), "stale_picker"), nil
		}
	}
	return ignore(), nil
}

func (d *Dispatcher) start(ctx context.Context, ev Event) (step, error) {
	opCtx, cancel := d.op(ctx)
	defer cancel()
	if err := d.cfg.Gateway.EnsureUser(opCtx, ev.User()); err != nil {
		return step{label: "start"}, err
	}
	return stay(present.MainMenu(ev.DisplayName), "start"), nil
}

// startAddCategory overrides whatever flow is in progress.
func (d *Dispatcher) startAddCategory() step {
	return moveTo(convstate.State{Flow: convstate.FlowAwaitingCategoryName}, present.AskCategoryName(), "add_category")
}

func (d *Dispatcher) createCategory(ctx context.Context, ev Event, name string) (step, error) {
	if name == "" {
		s := stay(present.EmptyCategoryName(), "category_name_invalid")
		s.cause = fmt.Errorf("%w: empty category name", ErrValidation)
		return s, nil
	}
	if utf8.RuneCountInString(name) > MaxCategoryName {
		s := stay(present.CategoryNameTooLong(MaxCategoryName), "category_name_invalid")
		s.cause = fmt.Errorf("%w: category name longer than %d", ErrValidation, MaxCategoryName)
		return s, nil
	}

	opCtx, cancel := d.op(ctx)
	defer cancel()
	if err := d.cfg.Gateway.EnsureUser(opCtx, ev.User()); err != nil {
		return step{label: "create_category"}, err
	}
	id, created, err := d.cfg.Gateway.CreateCategory(opCtx, ev.UserID, name)
	if err != nil {
		return step{label: "create_category"}, err
	}
	logger.Info(ctx, "flow", "category.create",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.Int64("category_id", id),
		slog.Bool("created", created),
	)
	return moveTo(convstate.Idle(), present.CategoryCreated(name, created), "create_category"), nil
}

func (d *Dispatcher) showCategories(ctx context.Context, ev Event) (step, error) {
	opCtx, cancel := d.op(ctx)
	defer cancel()
	cats, err := d.cfg.Gateway.ListCategories(opCtx, ev.UserID)
	if err != nil {
		return step{label: "show_categories"}, err
	}
	return stay(present.CategoryList(cats), "show_categories"), nil
}

// captureNote starts the note flow, overriding any flow in progress.
func (d *Dispatcher) captureNote(ctx context.Context, ev Event, kind model.ContentKind, content string) (step, error) {
	if strings.TrimSpace(content) == "" {
		return stay(present.NoteEmpty(), "note_empty"), nil
	}

	opCtx, cancel := d.op(ctx)
	defer cancel()
	cats, err := d.cfg.Gateway.ListCategories(opCtx, ev.UserID)
	if err != nil {
		return step{label: "capture_note"}, err
	}
	if len(cats) == 0 {
		return moveTo(convstate.Idle(), present.NoCategoriesForNote(), "capture_note_no_categories"), nil
	}

	next := convstate.State{
		Flow: convstate.FlowAwaitingNoteCategory,
		Pending: &convstate.Pending{
			CaptureID: d.cfg.NewCaptureID(),
			Kind:      kind,
			Content:   content,
		},
	}
	return moveTo(next, present.CategoryPicker(cats), "capture_note"), nil
}

func (d *Dispatcher) saveNote(ctx context.Context, ev Event, st convstate.State, categoryID int64) (step, error) {
	if st.Pending == nil || strings.TrimSpace(st.Pending.Content) == "" {
		return moveTo(convstate.Idle(), present.NoteEmpty(), "note_empty"), nil
	}

	opCtx, cancel := d.op(ctx)
	defer cancel()
	id, err := d.cfg.Gateway.CreateNote(opCtx, model.Note{
		OwnerID:    ev.UserID,
		CategoryID: categoryID,
		Kind:       st.Pending.Kind,
		Content:    st.Pending.Content,
		CaptureID:  st.Pending.CaptureID,
	})
	if errors.Is(err, storage.ErrCategoryNotFound) {
		d.cfg.Metrics.Error("category_gone")
		s := moveTo(convstate.Idle(), present.CategoryGone(), "save_note_category_gone")
		s.cause = err
		return s, nil
	}
	if err != nil {
		return step{label: "save_note"}, err
	}
	logger.Info(ctx, "flow", "note.create",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.Int64("category_id", categoryID),
		slog.Int64("note_id", id),
		slog.String("kind", string(st.Pending.Kind)),
	)
	return moveTo(convstate.Idle(), present.NoteSaved(), "save_note"), nil
}

func (d *Dispatcher) browseCategory(ctx context.Context, ev Event, categoryID int64) (step, error) {
	opCtx, cancel := d.op(ctx)
	defer cancel()
	cat, err := d.cfg.Gateway.GetCategory(opCtx, ev.UserID, categoryID)
	if errors.Is(err, storage.ErrCategoryNotFound) {
		s := stay(present.CategoryGone(), "browse_category_gone")
		s.cause = err
		return s, nil
	}
	if err != nil {
		return step{label: "browse_category"}, err
	}
	notes, err := d.cfg.Gateway.ListNotes(opCtx, ev.UserID, categoryID, d.cfg.NotesPageSize)
	if err != nil {
		return step{label: "browse_category"}, err
	}
	return stay(present.CategoryNotes(cat, notes), "browse_category"), nil
}

// fail answers a failed step with the generic retry reply. Nothing has been written to the state store.
func (d *Dispatcher) fail(ctx context.Context, ev Event, label string, err error) (*present.Response, error) {
	class := "storage"
	var stateErr *convstate.Error
	if errors.As(err, &stateErr) {
		class = "state"
		if stateErr.Op == "lock" {
			class = "lock"
		}
	}
	d.cfg.Metrics.Error(class)
	logger.Error(ctx, "flow", "flow.step.fail",
		slog.String("status", "fail"),
		slog.Int64("user_id", ev.UserID),
		slog.String("kind", ev.Kind.String()),
		slog.String("step", label),
		slog.String("err_code", class),
		slog.String("err", err.Error()),
	)
	return present.TryAgain(), err
}

func (d *Dispatcher) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.cfg.OpTimeout)
}

// splitCommand returns the lower-cased command without a "@botname" suffix, and its arguments.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	name, args, _ := strings.Cut(text, " ")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if j := strings.IndexByte(name, '\n'); j >= 0 {
		args = name[j+1:] + " " + args
		name = name[:j]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

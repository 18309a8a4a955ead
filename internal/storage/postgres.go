// Package storage is the postgres-backed persistence gateway for users, categories and notes.
// Every write is an insert-or-ignore so callers can retry any operation safely.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/internal/model"
)

const (
	insertUserSQL = `INSERT INTO users (user_id, display_name, handle)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`

	insertCategorySQL = `INSERT INTO categories (owner_id, name)
VALUES ($1, $2)
ON CONFLICT (owner_id, name) DO NOTHING
RETURNING id`

	selectCategoryIDSQL = `SELECT id FROM categories WHERE owner_id = $1 AND name = $2`

	selectCategorySQL = `SELECT id, owner_id, name FROM categories WHERE id = $1 AND owner_id = $2`

	listCategoriesSQL = `SELECT id, owner_id, name FROM categories WHERE owner_id = $1 ORDER BY id`

	insertNoteSQL = `INSERT INTO notes (owner_id, category_id, content_kind, content, capture_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (owner_id, capture_id) DO NOTHING
RETURNING id`

	selectNoteIDSQL = `SELECT id FROM notes WHERE owner_id = $1 AND capture_id = $2`

	listNotesSQL = `SELECT id, owner_id, category_id, content_kind, content, capture_id
FROM notes
WHERE owner_id = $1 AND category_id = $2
ORDER BY id DESC
LIMIT $3`
)

// Postgres implements the gateway on top of a pooled sqlx connection.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open pool. The pool is shared by all users.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureUser inserts the user unless it already exists.
func (p *Postgres) EnsureUser(ctx context.Context, u model.User) error {
	start := time.Now()
	res, err := p.db.ExecContext(ctx, insertUserSQL, u.ID, u.DisplayName, u.Handle)
	if err != nil {
		return wrap("ensure user", err)
	}
	n, _ := res.RowsAffected()
	logger.Debug(ctx, "storage", "user.ensure",
		slog.String("status", "ok"),
		slog.Int64("user_id", u.ID),
		slog.Bool("created", n > 0),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// CreateCategory inserts a category for owner. When the name is already taken
// it returns the existing id with created=false.
func (p *Postgres) CreateCategory(ctx context.Context, owner int64, name string) (int64, bool, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx, insertCategorySQL, owner, name).Scan(&id)
	switch {
	case err == nil:
		return id, true, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return 0, false, wrap("create category", err)
	}

	if err := p.db.GetContext(ctx, &id, selectCategoryIDSQL, owner, name); err != nil {
		return 0, false, wrap("lookup category", err)
	}
	return id, false, nil
}

// GetCategory loads a category of owner.
func (p *Postgres) GetCategory(ctx context.Context, owner, id int64) (model.Category, error) {
	var cat model.Category
	err := p.db.GetContext(ctx, &cat, selectCategorySQL, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrCategoryNotFound
	}
	if err != nil {
		return model.Category{}, wrap("get category", err)
	}
	return cat, nil
}

// ListCategories returns owner's categories in creation order.
func (p *Postgres) ListCategories(ctx context.Context, owner int64) ([]model.Category, error) {
	var cats []model.Category
	if err := p.db.SelectContext(ctx, &cats, listCategoriesSQL, owner); err != nil {
		return nil, wrap("list categories", err)
	}
	return cats, nil
}

// CreateNote stores n. A note with the same capture id is not inserted twice;
// the id of the stored one is returned instead.
func (p *Postgres) CreateNote(ctx context.Context, n model.Note) (int64, error) {
	var id int64
	err := p.db.QueryRowxContext(ctx, insertNoteSQL, n.OwnerID, n.CategoryID, n.Kind, n.Content, n.CaptureID).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case isForeignKeyViolation(err):
		return 0, ErrCategoryNotFound
	case errors.Is(err, sql.ErrNoRows):
	default:
		return 0, wrap("create note", err)
	}

	if err := p.db.GetContext(ctx, &id, selectNoteIDSQL, n.OwnerID, n.CaptureID); err != nil {
		return 0, wrap("lookup note", err)
	}
	logger.Debug(ctx, "storage", "note.duplicate",
		slog.String("status", "skip"),
		slog.Int64("note_id", id),
	)
	return id, nil
}

// ListNotes returns up to limit notes of a category, newest first.
func (p *Postgres) ListNotes(ctx context.Context, owner, categoryID int64, limit int) ([]model.Note, error) {
	if limit <= 0 {
		limit = 10
	}
	var notes []model.Note
	if err := p.db.SelectContext(ctx, &notes, listNotesSQL, owner, categoryID, limit); err != nil {
		return nil, wrap("list notes", err)
	}
	return notes, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "foreign_key_violation"
	}
	return false
}

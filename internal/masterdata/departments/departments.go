// Package departments maintains the department tree. Every department hangs
// under a parent; creating one without a parent attaches it to the root node.
package departments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// RootName anchors the tree.
const RootName = "All Departments"

// Department is one tree node.
type Department struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	Parent    string    `json:"parent"`
	IsGroup   bool      `json:"is_group"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound  = errors.New("departments: not found")
	ErrDuplicate = errors.New("departments: name already exists")
)

// Repository persists the tree.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Create inserts a department; an empty parent attaches it to the root.
func (r *Repository) Create(ctx context.Context, d *Department) error {
	if d.Parent == "" && d.Name != RootName {
		d.Parent = RootName
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO departments (name, parent, is_group)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, created_at, updated_at`,
		d.Name, d.Parent, d.IsGroup).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// Get loads one department by name.
func (r *Repository) Get(ctx context.Context, name string) (*Department, error) {
	var d Department
	err := r.q.QueryRow(ctx, `
		SELECT id, name, COALESCE(parent, ''), is_group, created_at, updated_at
		FROM departments WHERE name = $1`, name).Scan(
		&d.ID, &d.Name, &d.Parent, &d.IsGroup, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Children lists the direct children of a node; an empty parent lists the
// children of the root.
func (r *Repository) Children(ctx context.Context, parent string) ([]Department, error) {
	if parent == "" {
		parent = RootName
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, name, COALESCE(parent, ''), is_group, created_at, updated_at
		FROM departments WHERE parent = $1 ORDER BY name`, parent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Parent, &d.IsGroup, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateRequest is the write payload.
type CreateRequest struct {
	Name    string `json:"name" validate:"required"`
	Parent  string `json:"parent"`
	IsGroup bool   `json:"is_group"`
}

// Handler serves department endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{name}", h.get)
	r.Get("/{name}/children", h.children)
	r.Get("/", h.rootChildren)
	r.Post("/", h.create)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, "get department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) children(w http.ResponseWriter, r *http.Request) {
	out, err := h.repo.Children(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, "list department children", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) rootChildren(w http.ResponseWriter, r *http.Request) {
	out, err := h.repo.Children(r.Context(), "")
	if err != nil {
		h.fail(w, "list root departments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d := &Department{Name: req.Name, Parent: req.Parent, IsGroup: req.IsGroup}
	if err := h.repo.Create(r.Context(), d); err != nil {
		h.fail(w, "create department", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

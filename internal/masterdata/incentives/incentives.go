// Package incentives holds cashier incentive categories. Changing a
// category's amount pushes the new amount onto every item assigned to it, so
// the POS reads a current figure straight off the item row.
package incentives

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Category is one incentive category.
type Category struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound indicates a missing category.
var ErrNotFound = errors.New("incentives: not found")

// Repository persists categories.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Get loads one category by name.
func (r *Repository) Get(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := r.q.QueryRow(ctx, `
		SELECT id, name, amount, created_at, updated_at
		FROM incentive_categories WHERE name = $1`, name).Scan(
		&c.ID, &c.Name, &c.Amount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns every category.
func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, amount, created_at, updated_at
		FROM incentive_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Amount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert writes a category.
func (r *Repository) Upsert(ctx context.Context, c *Category) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO incentive_categories (name, amount) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		c.Name, c.Amount).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// SyncItems pushes the category amount onto its items; returns how many
// changed.
func (r *Repository) SyncItems(ctx context.Context, name string, amount float64) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE items SET incentive_amount = $2, updated_at = NOW()
		WHERE incentive_category = $1 AND incentive_amount IS DISTINCT FROM $2`,
		name, amount)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Service updates a category and keeps its items in sync.
type Service struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewService builds the service.
func NewService(pool *pgxpool.Pool, log *slog.Logger) *Service {
	return &Service{pool: pool, log: log}
}

// Save writes the category and syncs its items in one transaction.
func (s *Service) Save(ctx context.Context, c *Category) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		if err := repo.Upsert(ctx, c); err != nil {
			return err
		}
		updated, err := repo.SyncItems(ctx, c.Name, c.Amount)
		if err != nil {
			return err
		}
		if updated > 0 {
			s.log.Info("incentive amount synced to items",
				slog.String("category", c.Name), slog.Int64("items", updated))
		}
		return nil
	})
}

// SaveRequest is the write payload.
type SaveRequest struct {
	Name   string  `json:"name" validate:"required"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// Handler serves incentive category endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, repo *Repository, service *Service) *Handler {
	return &Handler{logger: logger, repo: repo, service: service, validate: validator.New()}
}

// MountRoutes registers incentive routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{name}", h.get)
	r.Put("/", h.save)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list incentive categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get incentive category", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c := &Category{Name: req.Name, Amount: req.Amount}
	if err := h.service.Save(r.Context(), c); err != nil {
		h.logger.Error("save incentive category", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

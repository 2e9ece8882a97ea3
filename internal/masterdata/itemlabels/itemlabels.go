// Package itemlabels manages printed label batches. Submitting a batch
// backfills an item price for every label whose item has none on the batch
// price list, so shelf labels never print without a price behind them.
package itemlabels

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Batch is one label print batch.
type Batch struct {
	ID        int64     `json:"id"`
	PriceList string    `json:"price_list"`
	Submitted bool      `json:"submitted"`
	Labels    []Label   `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
}

// Label is one item on a batch.
type Label struct {
	ID       int64   `json:"-"`
	ItemCode string  `json:"item_code"`
	Rate     float64 `json:"rate"`
	Copies   int     `json:"copies"`
}

var (
	ErrNotFound  = errors.New("itemlabels: not found")
	ErrSubmitted = errors.New("itemlabels: batch already submitted")
)

// Repository persists label batches and the item prices they backfill.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Create stores a draft batch.
func (r *Repository) Create(ctx context.Context, b *Batch) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO item_label_batches (price_list) VALUES ($1)
		RETURNING id, created_at`, b.PriceList).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return err
	}
	for i := range b.Labels {
		l := &b.Labels[i]
		if l.Copies <= 0 {
			l.Copies = 1
		}
		err := r.q.QueryRow(ctx, `
			INSERT INTO item_labels (batch_id, item_code, rate, copies)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			b.ID, l.ItemCode, l.Rate, l.Copies).Scan(&l.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get loads one batch with labels.
func (r *Repository) Get(ctx context.Context, id int64) (*Batch, error) {
	var b Batch
	err := r.q.QueryRow(ctx, `
		SELECT id, price_list, submitted, created_at
		FROM item_label_batches WHERE id = $1`, id).Scan(
		&b.ID, &b.PriceList, &b.Submitted, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, item_code, rate, copies FROM item_labels WHERE batch_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.ItemCode, &l.Rate, &l.Copies); err != nil {
			return nil, err
		}
		b.Labels = append(b.Labels, l)
	}
	return &b, rows.Err()
}

// HasPrice reports whether an item already has a price on the list.
func (r *Repository) HasPrice(ctx context.Context, itemCode, priceList string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM item_prices WHERE item_code = $1 AND price_list = $2)`,
		itemCode, priceList).Scan(&exists)
	return exists, err
}

// InsertPrice records a new item price.
func (r *Repository) InsertPrice(ctx context.Context, itemCode, priceList string, rate float64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO item_prices (item_code, price_list, rate) VALUES ($1, $2, $3)`,
		itemCode, priceList, rate)
	return err
}

// MarkSubmitted flips the batch flag.
func (r *Repository) MarkSubmitted(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE item_label_batches SET submitted = TRUE WHERE id = $1`, id)
	return err
}

// Service drives the batch lifecycle.
type Service struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewService builds the service.
func NewService(pool *pgxpool.Pool, log *slog.Logger) *Service {
	return &Service{pool: pool, log: log}
}

// Submit marks the batch submitted and backfills missing item prices inside
// one transaction.
func (s *Service) Submit(ctx context.Context, id int64) (*Batch, error) {
	var out *Batch
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		b, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if b.Submitted {
			return ErrSubmitted
		}
		created := 0
		for _, l := range b.Labels {
			if l.Rate == 0 {
				continue
			}
			has, err := repo.HasPrice(ctx, l.ItemCode, b.PriceList)
			if err != nil {
				return err
			}
			if has {
				continue
			}
			if err := repo.InsertPrice(ctx, l.ItemCode, b.PriceList, l.Rate); err != nil {
				return err
			}
			created++
		}
		if err := repo.MarkSubmitted(ctx, b.ID); err != nil {
			return err
		}
		b.Submitted = true
		out = b
		if created > 0 {
			s.log.Info("item prices backfilled from label batch",
				slog.Int64("batch", b.ID), slog.Int("created", created))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRequest is the batch creation payload.
type CreateRequest struct {
	PriceList string         `json:"price_list" validate:"required"`
	Labels    []LabelRequest `json:"labels" validate:"required,min=1,dive"`
}

// LabelRequest is one requested label row.
type LabelRequest struct {
	ItemCode string  `json:"item_code" validate:"required"`
	Rate     float64 `json:"rate" validate:"gte=0"`
	Copies   int     `json:"copies" validate:"gte=0"`
}

// Handler serves the label batch endpoints.
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

// MountRoutes registers label batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/submit", h.submit)
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
	b := &Batch{PriceList: req.PriceList}
	for _, l := range req.Labels {
		b.Labels = append(b.Labels, Label{ItemCode: l.ItemCode, Rate: l.Rate, Copies: l.Copies})
	}
	if err := h.repo.Create(r.Context(), b); err != nil {
		h.logger.Error("create label batch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get label batch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Submit(r.Context(), id)
	if err != nil {
		h.fail(w, "submit label batch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrSubmitted):
		httpx.RespondError(w, httpx.ErrConflict)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

// Package companies holds company master records and the default accounts
// the invoice lifecycle posts through.
package companies

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Company is one company master record.
type Company struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Precision int       `json:"precision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DefaultCostCenter      string `json:"default_cost_center"`
	WriteOffAccount        string `json:"write_off_account"`
	RoundOffAccount        string `json:"round_off_account"`
	RoundOffCostCenter     string `json:"round_off_cost_center"`
	DefaultCashAccount     string `json:"default_cash_account"`
	DisposalAccount        string `json:"disposal_account"`
	DepreciationCostCenter string `json:"depreciation_cost_center"`

	SalesOrderRequired   bool `json:"sales_order_required"`
	DeliveryNoteRequired bool `json:"delivery_note_required"`
}

// ErrNotFound indicates a missing company.
var ErrNotFound = errors.New("companies: not found")

// Repository persists company masters.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const companyColumns = `id, name, currency, precision_digits,
	COALESCE(default_cost_center, ''), COALESCE(write_off_account, ''),
	COALESCE(round_off_account, ''), COALESCE(round_off_cost_center, ''),
	COALESCE(default_cash_account, ''), COALESCE(disposal_account, ''),
	COALESCE(depreciation_cost_center, ''),
	sales_order_required, delivery_note_required, created_at, updated_at`

// Get loads one company by name.
func (r *Repository) Get(ctx context.Context, name string) (*Company, error) {
	row := r.q.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE name = $1`, name)
	return scan(row)
}

// List returns every company.
func (r *Repository) List(ctx context.Context) ([]Company, error) {
	rows, err := r.q.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Upsert creates or updates a company by name.
func (r *Repository) Upsert(ctx context.Context, c *Company) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO companies (
			name, currency, precision_digits,
			default_cost_center, write_off_account, round_off_account, round_off_cost_center,
			default_cash_account, disposal_account, depreciation_cost_center,
			sales_order_required, delivery_note_required)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
		        NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12)
		ON CONFLICT (name) DO UPDATE SET
			currency = EXCLUDED.currency,
			precision_digits = EXCLUDED.precision_digits,
			default_cost_center = EXCLUDED.default_cost_center,
			write_off_account = EXCLUDED.write_off_account,
			round_off_account = EXCLUDED.round_off_account,
			round_off_cost_center = EXCLUDED.round_off_cost_center,
			default_cash_account = EXCLUDED.default_cash_account,
			disposal_account = EXCLUDED.disposal_account,
			depreciation_cost_center = EXCLUDED.depreciation_cost_center,
			sales_order_required = EXCLUDED.sales_order_required,
			delivery_note_required = EXCLUDED.delivery_note_required,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		c.Name, c.Currency, c.Precision,
		c.DefaultCostCenter, c.WriteOffAccount, c.RoundOffAccount, c.RoundOffCostCenter,
		c.DefaultCashAccount, c.DisposalAccount, c.DepreciationCostCenter,
		c.SalesOrderRequired, c.DeliveryNoteRequired).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func scan(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.Currency, &c.Precision,
		&c.DefaultCostCenter, &c.WriteOffAccount,
		&c.RoundOffAccount, &c.RoundOffCostCenter,
		&c.DefaultCashAccount, &c.DisposalAccount,
		&c.DepreciationCostCenter,
		&c.SalesOrderRequired, &c.DeliveryNoteRequired,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpsertRequest is the write payload.
type UpsertRequest struct {
	Name      string `json:"name" validate:"required"`
	Currency  string `json:"currency" validate:"required,len=3"`
	Precision int    `json:"precision" validate:"gte=0,lte=6"`

	DefaultCostCenter      string `json:"default_cost_center"`
	WriteOffAccount        string `json:"write_off_account"`
	RoundOffAccount        string `json:"round_off_account"`
	RoundOffCostCenter     string `json:"round_off_cost_center"`
	DefaultCashAccount     string `json:"default_cash_account"`
	DisposalAccount        string `json:"disposal_account"`
	DepreciationCostCenter string `json:"depreciation_cost_center"`

	SalesOrderRequired   bool `json:"sales_order_required"`
	DeliveryNoteRequired bool `json:"delivery_note_required"`
}

// Handler serves company endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{name}", h.get)
	r.Put("/", h.upsert)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
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
		h.logger.Error("get company", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c := &Company{
		Name:                   req.Name,
		Currency:               req.Currency,
		Precision:              req.Precision,
		DefaultCostCenter:      req.DefaultCostCenter,
		WriteOffAccount:        req.WriteOffAccount,
		RoundOffAccount:        req.RoundOffAccount,
		RoundOffCostCenter:     req.RoundOffCostCenter,
		DefaultCashAccount:     req.DefaultCashAccount,
		DisposalAccount:        req.DisposalAccount,
		DepreciationCostCenter: req.DepreciationCostCenter,
		SalesOrderRequired:     req.SalesOrderRequired,
		DeliveryNoteRequired:   req.DeliveryNoteRequired,
	}
	if err := h.repo.Upsert(r.Context(), c); err != nil {
		h.logger.Error("upsert company", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

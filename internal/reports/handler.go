package reports

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Handler serves the report endpoints, JSON by default and CSV on request.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *Cache
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: cache}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customer-statement", h.customerStatement)
	r.Get("/outstanding-invoices", h.outstandingInvoices)
	r.Get("/pl-by-cost-center", h.plByCostCenter)
}

func (h *Handler) customerStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := StatementFilter{
		Company:    q.Get("company"),
		Customer:   q.Get("customer"),
		UnpaidOnly: q.Get("unpaid") == "true",
	}
	var ok bool
	if filter.From, ok = h.parseDate(w, q.Get("from")); !ok {
		return
	}
	if filter.To, ok = h.parseDate(w, q.Get("to")); !ok {
		return
	}

	key, err := h.cache.BuildKey(r.Context(), "reports", "statement",
		filter.Company, filter.Customer, q.Get("from"), q.Get("to"), q.Get("unpaid"))
	if err != nil {
		h.fail(w, "statement cache key", err)
		return
	}
	var rows []StatementRow
	err = h.cache.FetchJSON(r.Context(), key, &rows, func(ctx context.Context) (any, error) {
		return h.service.CustomerStatement(ctx, filter)
	})
	if err != nil {
		h.fail(w, "customer statement", err)
		return
	}

	if q.Get("format") == "csv" {
		h.csvHeaders(w, "customer-statement.csv")
		if err := WriteStatementCSV(w, rows); err != nil {
			h.logger.Error("write statement csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) outstandingInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := OutstandingFilter{Company: q.Get("company")}
	var ok bool
	if filter.AsOf, ok = h.parseDate(w, q.Get("as_of")); !ok {
		return
	}

	key, err := h.cache.BuildKey(r.Context(), "reports", "outstanding", filter.Company, q.Get("as_of"))
	if err != nil {
		h.fail(w, "outstanding cache key", err)
		return
	}
	var rows []OutstandingRow
	err = h.cache.FetchJSON(r.Context(), key, &rows, func(ctx context.Context) (any, error) {
		return h.service.OutstandingInvoices(ctx, filter)
	})
	if err != nil {
		h.fail(w, "outstanding invoices", err)
		return
	}

	if q.Get("format") == "csv" {
		h.csvHeaders(w, "outstanding-invoices.csv")
		if err := WriteOutstandingCSV(w, rows); err != nil {
			h.logger.Error("write outstanding csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

type plPayload struct {
	Periods []Period `json:"periods"`
	Rows    []PLRow  `json:"rows"`
}

func (h *Handler) plByCostCenter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := PLFilter{Company: q.Get("company")}
	var ok bool
	if filter.From, ok = h.parseDate(w, q.Get("from")); !ok {
		return
	}
	if filter.To, ok = h.parseDate(w, q.Get("to")); !ok {
		return
	}
	if filter.From.IsZero() || filter.To.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from and to are required")
		return
	}

	key, err := h.cache.BuildKey(r.Context(), "reports", "pl", filter.Company, q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, "pl cache key", err)
		return
	}
	var payload plPayload
	err = h.cache.FetchJSON(r.Context(), key, &payload, func(ctx context.Context) (any, error) {
		periods, rows, err := h.service.ProfitAndLossByCostCenter(ctx, filter)
		if err != nil {
			return nil, err
		}
		return plPayload{Periods: periods, Rows: rows}, nil
	})
	if err != nil {
		h.fail(w, "pl by cost center", err)
		return
	}

	if q.Get("format") == "csv" {
		h.csvHeaders(w, "pl-by-cost-center.csv")
		if err := WritePLCSV(w, payload.Periods, payload.Rows); err != nil {
			h.logger.Error("write pl csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) parseDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) csvHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

package invoice

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/reconcile"
)

// Handler exposes the invoice API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mapper  *Mapper
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, mapper *Mapper) *Handler {
	return &Handler{logger: logger, service: service, mapper: mapper}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{number}", h.get)
	r.Put("/{number}", h.update)
	r.Post("/{number}/submit", h.submit)
	r.Post("/{number}/cancel", h.cancel)
	r.Post("/{number}/delivery-note", h.makeDeliveryNote)
	r.Post("/{number}/stock-entry", h.makeStockEntry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Customer:   q.Get("customer"),
		Company:    q.Get("company"),
		UnpaidOnly: q.Get("unpaid") == "true",
	}
	if v := q.Get("docstatus"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 2 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "docstatus must be 0, 1 or 2")
			return
		}
		ds := Docstatus(n)
		filter.Docstatus = &ds
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		filter.FromPosting = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		filter.ToPosting = t
	}

	invoices, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondErr(w, "list invoices", err)
		return
	}
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toResponse(&invoices[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondErr(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	inv, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondErr(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	inv, err := h.service.Update(r.Context(), chi.URLParam(r, "number"), req)
	if err != nil {
		h.respondErr(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	inv, err := h.service.Submit(r.Context(), chi.URLParam(r, "number"), userID)
	if err != nil {
		h.respondErr(w, "submit invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Cancel(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondErr(w, "cancel invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) makeDeliveryNote(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondErr(w, "load invoice for delivery note", err)
		return
	}
	draft, err := h.mapper.MakeDeliveryNote(r.Context(), inv)
	if err != nil {
		h.respondErr(w, "make delivery note", err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func (h *Handler) makeStockEntry(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondErr(w, "load invoice for stock entry", err)
		return
	}
	draft, err := h.mapper.MakeStockEntry(r.Context(), inv)
	if err != nil {
		h.respondErr(w, "make stock entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func requestUserID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, errors.New("missing X-User-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid X-User-ID header")
	}
	return id, nil
}

// respondErr logs the failure and maps domain sentinels onto the shared HTTP
// error taxonomy.
func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrPaymentRequired),
		errors.Is(err, ErrOverflow),
		errors.Is(err, reconcile.ErrOverflow):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrConsistency),
		errors.Is(err, ErrCreditLimit),
		errors.Is(err, ledger.ErrUnbalanced):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.Is(err, ErrNotAuthorized):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrForbidden, err))
	default:
		httpx.RespondError(w, err)
	}
}

package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atlas-erp/atlas-erp/internal/salesorder"
)

// Service exposes the document level operations: draft CRUD, the lifecycle
// transitions, and derived document drafts.
type Service struct {
	repo      Repository
	orders    *salesorder.Service
	lifecycle *Lifecycle
	validate  *validator.Validate
	log       *slog.Logger
}

// NewService builds the service.
func NewService(repo Repository, orders *salesorder.Service, lifecycle *Lifecycle, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		lifecycle: lifecycle,
		validate:  validator.New(),
		log:       log,
	}
}

// Get loads one invoice.
func (s *Service) Get(ctx context.Context, number string) (*Invoice, error) {
	return s.repo.Get(ctx, number)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Create stores a new draft. POS drafts referencing sales orders get their
// quantities capped at what remains open on the order, and repeated item
// codes consolidate to a single billable line.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	inv, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.syncOrderQuantities(ctx, inv); err != nil {
		return nil, err
	}
	refreshDraftTotals(inv)
	return s.repo.Create(ctx, inv)
}

// Update replaces a draft.
func (s *Service) Update(ctx context.Context, number string, req CreateInvoiceRequest) (*Invoice, error) {
	inv, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	inv.Number = number
	if err := s.syncOrderQuantities(ctx, inv); err != nil {
		return nil, err
	}
	refreshDraftTotals(inv)
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, number)
}

// Submit finalizes the invoice.
func (s *Service) Submit(ctx context.Context, number string, userID int64) (*Invoice, error) {
	return s.lifecycle.Submit(ctx, number, userID)
}

// Cancel reverses a submitted invoice.
func (s *Service) Cancel(ctx context.Context, number string) (*Invoice, error) {
	return s.lifecycle.Cancel(ctx, number)
}

func (s *Service) fromRequest(req CreateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	inv := &Invoice{
		Customer:                       req.Customer,
		Company:                        req.Company,
		Project:                        req.Project,
		Currency:                       req.Currency,
		ConversionRate:                 req.ConversionRate,
		SetPostingTime:                 req.SetPostingTime,
		DebitTo:                        req.DebitTo,
		IsPOS:                          req.IsPOS,
		IsReturn:                       req.IsReturn,
		ReturnAgainst:                  req.ReturnAgainst,
		UpdateStock:                    req.UpdateStock,
		UpdateBilledAmountInSalesOrder: req.UpdateBilledAmountInSalesOrder,
		ReceiveInBreakage:              req.ReceiveInBreakage,
		WriteOffAmount:                 req.WriteOffAmount,
		WriteOffAccount:                req.WriteOffAccount,
		ChangeAmount:                   req.ChangeAmount,
		AccountForChangeAmount:         req.AccountForChangeAmount,
		Remarks:                        req.Remarks,
		Precision:                      2,
	}
	if inv.ConversionRate == 0 {
		inv.ConversionRate = 1
	}

	var err error
	if inv.PostingDate, err = parseDate(req.PostingDate); err != nil {
		return nil, fmt.Errorf("%w: posting_date: %v", ErrValidation, err)
	}
	if inv.DueDate, err = parseDate(req.DueDate); err != nil {
		return nil, fmt.Errorf("%w: due_date: %v", ErrValidation, err)
	}

	for i, it := range req.Items {
		item := Item{
			RowNo:            i + 1,
			ItemCode:         it.ItemCode,
			Description:      it.Description,
			Qty:              it.Qty,
			UOM:              it.UOM,
			ConversionFactor: it.ConversionFactor,
			Rate:             it.Rate,
			Warehouse:        it.Warehouse,
			IncomeAccount:    it.IncomeAccount,
			CostCenter:       it.CostCenter,
			IsFixedAsset:     it.IsFixedAsset,
			Asset:            it.Asset,
			SalesOrder:       it.SalesOrder,
			SODetail:         it.SODetail,
			DeliveryNote:     it.DeliveryNote,
			DNDetail:         it.DNDetail,
			SerialNos:        it.SerialNos,
		}
		if item.ConversionFactor == 0 {
			item.ConversionFactor = 1
		}
		inv.Items = append(inv.Items, item)
	}
	for i, t := range req.Taxes {
		inv.Taxes = append(inv.Taxes, TaxRow{
			RowNo:       i + 1,
			ChargeType:  t.ChargeType,
			AccountHead: t.AccountHead,
			Description: t.Description,
			Rate:        t.Rate,
			TaxAmount:   t.TaxAmount,
			CostCenter:  t.CostCenter,
		})
	}
	for i, p := range req.Payments {
		inv.Payments = append(inv.Payments, PaymentRow{
			RowNo:         i + 1,
			ModeOfPayment: p.ModeOfPayment,
			Account:       p.Account,
			Amount:        p.Amount,
		})
	}
	return inv, nil
}

// syncOrderQuantities walks order backed POS lines: missing line references
// resolve by item code, duplicate scans zero out, and quantities cap at the
// remainder still uninvoiced on the order.
func (s *Service) syncOrderQuantities(ctx context.Context, inv *Invoice) error {
	if !inv.IsPOS || inv.IsReturn {
		return nil
	}
	seen := make(map[string]bool)
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.SalesOrder == "" {
			continue
		}
		if err := s.orders.EnsureOpen(ctx, item.SalesOrder); err != nil {
			return fmt.Errorf("%w: %v", ErrConsistency, err)
		}
		sync, err := s.orders.SyncInvoiceQty(ctx, inv.Number, item.SalesOrder, item.ItemCode,
			item.SODetail, item.Qty, seen[item.ItemCode])
		if err != nil {
			return fmt.Errorf("%w: row %d: %v", ErrValidation, item.RowNo, err)
		}
		seen[item.ItemCode] = true
		item.SODetail = sync.SODetail
		if item.Rate == 0 {
			item.Rate = sync.Rate
		}
		if sync.Qty != nil {
			s.log.Info("invoice qty capped at sales order remainder",
				slog.String("item", item.ItemCode),
				slog.Float64("requested", item.Qty),
				slog.Float64("capped", *sync.Qty))
			item.Qty = *sync.Qty
		}
	}
	return nil
}

// refreshDraftTotals recomputes amounts for display on drafts. Submit runs
// the full recomputation again against master data.
func refreshDraftTotals(inv *Invoice) {
	for i := range inv.Items {
		inv.Items[i].StockQty = inv.Items[i].Qty * inv.Items[i].ConversionFactor
	}
	if inv.IsPOS {
		AllocatePayments(inv)
	}
	computeTotals(inv)
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}

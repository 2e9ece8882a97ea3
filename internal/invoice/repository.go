package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/deliverynote"
	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/project"
	"github.com/atlas-erp/atlas-erp/internal/reconcile"
	"github.com/atlas-erp/atlas-erp/internal/salesorder"
	"github.com/atlas-erp/atlas-erp/internal/stock"
)

// PGRepository is the pgx backed Repository. Lifecycle transitions run over a
// repeatable read transaction; plain reads and draft writes go to the pool.
type PGRepository struct {
	pool   *pgxpool.Pool
	policy auth.WarehousePolicy
}

// NewPGRepository builds the repository. A nil policy falls back to the
// default warehouse substitution table.
func NewPGRepository(pool *pgxpool.Pool, policy auth.WarehousePolicy) *PGRepository {
	if policy == nil {
		policy = auth.DefaultWarehousePolicy()
	}
	return &PGRepository{pool: pool, policy: policy}
}

// WithTx runs fn over a transaction scoped collaborator bundle. Everything a
// transition touches commits or rolls back together.
func (r *PGRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return db.WithTx(ctx, r.pool, func(pgtx pgx.Tx) error {
		soRepo := salesorder.NewRepository(pgtx)
		stockRepo := stock.NewRepository(pgtx)
		dnRepo := deliverynote.NewRepository(pgtx)

		bundle := &Tx{
			Invoices:  &store{q: pgtx},
			Accounts:  &accountStore{q: pgtx},
			Ancestors: &ancestorStore{orders: soRepo, notes: dnRepo},
			Stock:     &stockStore{repo: stockRepo, svc: stock.NewService(stockRepo)},
			Assets:    &assetStore{q: pgtx},
			Ledger:    ledger.NewService(ledger.NewRepository(pgtx)),
			Reconcile: reconcile.New(&reconcileStore{q: pgtx}, 2),
			DNBilling: deliverynote.NewBillingService(dnRepo, 2),
			Projects:  project.NewRepository(pgtx),
			Credit:    &creditStore{q: pgtx},
			Warehouse: auth.NewService(auth.NewRepository(pgtx), r.policy),
		}
		return fn(ctx, bundle)
	})
}

const headerColumns = `id, number, customer, company, COALESCE(project, ''),
	currency, conversion_rate, precision_digits,
	posting_date, set_posting_time, due_date,
	debit_to, COALESCE(against_income_account, ''),
	is_pos, is_return, COALESCE(return_against, ''),
	update_stock, update_billed_amount_in_sales_order, receive_in_breakage,
	net_total, grand_total, base_grand_total, rounded_total,
	rounding_adjustment, base_rounding_adjustment,
	write_off_amount, base_write_off_amount, COALESCE(write_off_account, ''), COALESCE(write_off_cost_center, ''),
	paid_amount, base_paid_amount,
	change_amount, base_change_amount, COALESCE(account_for_change_amount, ''),
	outstanding_amount, docstatus, COALESCE(remarks, ''),
	created_at, updated_at`

// Get loads an invoice with its child rows.
func (r *PGRepository) Get(ctx context.Context, number string) (*Invoice, error) {
	s := &store{q: r.pool}
	return s.get(ctx, number, false)
}

// List returns invoice headers matching the filter, newest posting first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + headerColumns + ` FROM sales_invoices WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Customer != "" {
		query += ` AND customer = ` + arg(filter.Customer)
	}
	if filter.Company != "" {
		query += ` AND company = ` + arg(filter.Company)
	}
	if filter.Docstatus != nil {
		query += ` AND docstatus = ` + arg(int(*filter.Docstatus))
	}
	if filter.UnpaidOnly {
		query += ` AND docstatus = 1 AND outstanding_amount > 0`
	}
	if !filter.FromPosting.IsZero() {
		query += ` AND posting_date >= ` + arg(filter.FromPosting)
	}
	if !filter.ToPosting.IsZero() {
		query += ` AND posting_date <= ` + arg(filter.ToPosting)
	}
	query += ` ORDER BY posting_date DESC, id DESC LIMIT 500`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// Create inserts a draft with a fresh number.
func (r *PGRepository) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(pgtx pgx.Tx) error {
		var seq int64
		if err := pgtx.QueryRow(ctx, `SELECT nextval('sales_invoice_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		inv.Number = fmt.Sprintf("SINV-%06d", seq)
		inv.Docstatus = StatusDraft
		s := &store{q: pgtx}
		return s.insert(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Update replaces a draft's header fields and child rows.
func (r *PGRepository) Update(ctx context.Context, inv *Invoice) error {
	return db.WithTx(ctx, r.pool, func(pgtx pgx.Tx) error {
		s := &store{q: pgtx}
		current, err := s.get(ctx, inv.Number, true)
		if err != nil {
			return err
		}
		if current.Docstatus != StatusDraft {
			return fmt.Errorf("%w: only drafts can be edited", ErrInvalidStatus)
		}
		inv.ID = current.ID
		return s.save(ctx, inv)
	})
}

// store implements InvoiceStore over a pool or transaction.
type store struct {
	q db.Querier
}

func (s *store) GetForUpdate(ctx context.Context, number string) (*Invoice, error) {
	return s.get(ctx, number, true)
}

func (s *store) get(ctx context.Context, number string, forUpdate bool) (*Invoice, error) {
	query := `SELECT ` + headerColumns + ` FROM sales_invoices WHERE number = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	inv, err := scanHeader(s.q.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, number)
		}
		return nil, err
	}
	if err := s.loadChildren(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *store) loadChildren(ctx context.Context, inv *Invoice) error {
	rows, err := s.q.Query(ctx, `
		SELECT id, row_no, item_code, COALESCE(description, ''),
		       qty, uom, COALESCE(stock_uom, ''), stock_qty, conversion_factor,
		       rate, amount, net_amount, base_net_amount,
		       COALESCE(warehouse, ''), income_account, COALESCE(cost_center, ''),
		       is_fixed_asset, COALESCE(asset, ''),
		       COALESCE(sales_order, ''), COALESCE(so_detail, 0),
		       COALESCE(delivery_note, ''), COALESCE(dn_detail, 0),
		       COALESCE(serial_nos, '{}'), actual_qty
		FROM sales_invoice_items WHERE sales_invoice_id = $1 ORDER BY row_no`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.RowNo, &it.ItemCode, &it.Description,
			&it.Qty, &it.UOM, &it.StockUOM, &it.StockQty, &it.ConversionFactor,
			&it.Rate, &it.Amount, &it.NetAmount, &it.BaseNetAmount,
			&it.Warehouse, &it.IncomeAccount, &it.CostCenter,
			&it.IsFixedAsset, &it.Asset,
			&it.SalesOrder, &it.SODetail,
			&it.DeliveryNote, &it.DNDetail,
			&it.SerialNos, &it.ActualQty); err != nil {
			return err
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	taxRows, err := s.q.Query(ctx, `
		SELECT id, row_no, charge_type, account_head, COALESCE(description, ''), rate,
		       tax_amount, tax_amount_after_discount, base_tax_amount_after_discount,
		       COALESCE(cost_center, '')
		FROM sales_invoice_taxes WHERE sales_invoice_id = $1 ORDER BY row_no`, inv.ID)
	if err != nil {
		return err
	}
	defer taxRows.Close()
	for taxRows.Next() {
		var t TaxRow
		if err := taxRows.Scan(&t.ID, &t.RowNo, &t.ChargeType, &t.AccountHead, &t.Description,
			&t.Rate, &t.TaxAmount, &t.TaxAmountAfterDiscount, &t.BaseTaxAmountAfterDiscount,
			&t.CostCenter); err != nil {
			return err
		}
		inv.Taxes = append(inv.Taxes, t)
	}
	if err := taxRows.Err(); err != nil {
		return err
	}

	payRows, err := s.q.Query(ctx, `
		SELECT id, row_no, mode_of_payment, COALESCE(account, ''), amount, base_amount
		FROM sales_invoice_payments WHERE sales_invoice_id = $1 ORDER BY row_no`, inv.ID)
	if err != nil {
		return err
	}
	defer payRows.Close()
	for payRows.Next() {
		var p PaymentRow
		if err := payRows.Scan(&p.ID, &p.RowNo, &p.ModeOfPayment, &p.Account, &p.Amount, &p.BaseAmount); err != nil {
			return err
		}
		inv.Payments = append(inv.Payments, p)
	}
	return payRows.Err()
}

func (s *store) Save(ctx context.Context, inv *Invoice) error {
	return s.save(ctx, inv)
}

func (s *store) save(ctx context.Context, inv *Invoice) error {
	_, err := s.q.Exec(ctx, `
		UPDATE sales_invoices SET
			customer = $2, company = $3, project = NULLIF($4, ''),
			currency = $5, conversion_rate = $6, precision_digits = $7,
			posting_date = $8, set_posting_time = $9, due_date = $10,
			debit_to = $11, against_income_account = NULLIF($12, ''),
			is_pos = $13, is_return = $14, return_against = NULLIF($15, ''),
			update_stock = $16, update_billed_amount_in_sales_order = $17, receive_in_breakage = $18,
			net_total = $19, grand_total = $20, base_grand_total = $21, rounded_total = $22,
			rounding_adjustment = $23, base_rounding_adjustment = $24,
			write_off_amount = $25, base_write_off_amount = $26,
			write_off_account = NULLIF($27, ''), write_off_cost_center = NULLIF($28, ''),
			paid_amount = $29, base_paid_amount = $30,
			change_amount = $31, base_change_amount = $32, account_for_change_amount = NULLIF($33, ''),
			outstanding_amount = $34, docstatus = $35, remarks = NULLIF($36, ''),
			updated_at = NOW()
		WHERE id = $1`,
		inv.ID, inv.Customer, inv.Company, inv.Project,
		inv.Currency, inv.ConversionRate, inv.Precision,
		inv.PostingDate, inv.SetPostingTime, inv.DueDate,
		inv.DebitTo, inv.AgainstIncomeAccount,
		inv.IsPOS, inv.IsReturn, inv.ReturnAgainst,
		inv.UpdateStock, inv.UpdateBilledAmountInSalesOrder, inv.ReceiveInBreakage,
		inv.NetTotal, inv.GrandTotal, inv.BaseGrandTotal, inv.RoundedTotal,
		inv.RoundingAdjustment, inv.BaseRoundingAdjustment,
		inv.WriteOffAmount, inv.BaseWriteOffAmount,
		inv.WriteOffAccount, inv.WriteOffCostCenter,
		inv.PaidAmount, inv.BasePaidAmount,
		inv.ChangeAmount, inv.BaseChangeAmount, inv.AccountForChangeAmount,
		inv.OutstandingAmount, int(inv.Docstatus), inv.Remarks)
	if err != nil {
		return err
	}
	return s.replaceChildren(ctx, inv)
}

func (s *store) insert(ctx context.Context, inv *Invoice) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO sales_invoices (
			number, customer, company, project,
			currency, conversion_rate, precision_digits,
			posting_date, set_posting_time, due_date,
			debit_to, is_pos, is_return, return_against,
			update_stock, update_billed_amount_in_sales_order, receive_in_breakage,
			net_total, grand_total, base_grand_total,
			write_off_amount, write_off_account, write_off_cost_center,
			paid_amount, change_amount, account_for_change_amount,
			docstatus, remarks)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, NULLIF($14, ''), $15, $16, $17,
		        $18, $19, $20, $21, NULLIF($22, ''), NULLIF($23, ''),
		        $24, $25, NULLIF($26, ''), $27, NULLIF($28, ''))
		RETURNING id, created_at, updated_at`,
		inv.Number, inv.Customer, inv.Company, inv.Project,
		inv.Currency, inv.ConversionRate, inv.Precision,
		inv.PostingDate, inv.SetPostingTime, inv.DueDate,
		inv.DebitTo, inv.IsPOS, inv.IsReturn, inv.ReturnAgainst,
		inv.UpdateStock, inv.UpdateBilledAmountInSalesOrder, inv.ReceiveInBreakage,
		inv.NetTotal, inv.GrandTotal, inv.BaseGrandTotal,
		inv.WriteOffAmount, inv.WriteOffAccount, inv.WriteOffCostCenter,
		inv.PaidAmount, inv.ChangeAmount, inv.AccountForChangeAmount,
		int(inv.Docstatus), inv.Remarks).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return err
	}
	return s.replaceChildren(ctx, inv)
}

func (s *store) replaceChildren(ctx context.Context, inv *Invoice) error {
	for _, table := range []string{"sales_invoice_items", "sales_invoice_taxes", "sales_invoice_payments"} {
		if _, err := s.q.Exec(ctx, `DELETE FROM `+table+` WHERE sales_invoice_id = $1`, inv.ID); err != nil {
			return err
		}
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		err := s.q.QueryRow(ctx, `
			INSERT INTO sales_invoice_items (
				sales_invoice_id, row_no, item_code, description,
				qty, uom, stock_uom, stock_qty, conversion_factor,
				rate, amount, net_amount, base_net_amount,
				warehouse, income_account, cost_center,
				is_fixed_asset, asset,
				sales_order, so_detail, delivery_note, dn_detail,
				serial_nos, actual_qty)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9,
			        $10, $11, $12, $13, NULLIF($14, ''), $15, NULLIF($16, ''),
			        $17, NULLIF($18, ''), NULLIF($19, ''), NULLIF($20, 0),
			        NULLIF($21, ''), NULLIF($22, 0), $23, $24)
			RETURNING id`,
			inv.ID, it.RowNo, it.ItemCode, it.Description,
			it.Qty, it.UOM, it.StockUOM, it.StockQty, it.ConversionFactor,
			it.Rate, it.Amount, it.NetAmount, it.BaseNetAmount,
			it.Warehouse, it.IncomeAccount, it.CostCenter,
			it.IsFixedAsset, it.Asset,
			it.SalesOrder, it.SODetail, it.DeliveryNote, it.DNDetail,
			it.SerialNos, it.ActualQty).Scan(&it.ID)
		if err != nil {
			return err
		}
	}
	for i := range inv.Taxes {
		t := &inv.Taxes[i]
		err := s.q.QueryRow(ctx, `
			INSERT INTO sales_invoice_taxes (
				sales_invoice_id, row_no, charge_type, account_head, description, rate,
				tax_amount, tax_amount_after_discount, base_tax_amount_after_discount, cost_center)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, NULLIF($10, ''))
			RETURNING id`,
			inv.ID, t.RowNo, t.ChargeType, t.AccountHead, t.Description, t.Rate,
			t.TaxAmount, t.TaxAmountAfterDiscount, t.BaseTaxAmountAfterDiscount, t.CostCenter).Scan(&t.ID)
		if err != nil {
			return err
		}
	}
	for i := range inv.Payments {
		p := &inv.Payments[i]
		err := s.q.QueryRow(ctx, `
			INSERT INTO sales_invoice_payments (
				sales_invoice_id, row_no, mode_of_payment, account, amount, base_amount)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
			RETURNING id`,
			inv.ID, p.RowNo, p.ModeOfPayment, p.Account, p.Amount, p.BaseAmount).Scan(&p.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *store) SetDocstatus(ctx context.Context, number string, status Docstatus) error {
	_, err := s.q.Exec(ctx,
		`UPDATE sales_invoices SET docstatus = $2, updated_at = NOW() WHERE number = $1`,
		number, int(status))
	return err
}

func (s *store) HasActiveReturns(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sales_invoices
			WHERE is_return AND return_against = $1 AND docstatus < 2
		)`, number).Scan(&exists)
	return exists, err
}

// scanHeader reads one invoice header row.
func scanHeader(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var docstatus int
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.Customer, &inv.Company, &inv.Project,
		&inv.Currency, &inv.ConversionRate, &inv.Precision,
		&inv.PostingDate, &inv.SetPostingTime, &inv.DueDate,
		&inv.DebitTo, &inv.AgainstIncomeAccount,
		&inv.IsPOS, &inv.IsReturn, &inv.ReturnAgainst,
		&inv.UpdateStock, &inv.UpdateBilledAmountInSalesOrder, &inv.ReceiveInBreakage,
		&inv.NetTotal, &inv.GrandTotal, &inv.BaseGrandTotal, &inv.RoundedTotal,
		&inv.RoundingAdjustment, &inv.BaseRoundingAdjustment,
		&inv.WriteOffAmount, &inv.BaseWriteOffAmount, &inv.WriteOffAccount, &inv.WriteOffCostCenter,
		&inv.PaidAmount, &inv.BasePaidAmount,
		&inv.ChangeAmount, &inv.BaseChangeAmount, &inv.AccountForChangeAmount,
		&inv.OutstandingAmount, &docstatus, &inv.Remarks,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Docstatus = Docstatus(docstatus)
	return &inv, nil
}

// accountStore reads account and company master data.
type accountStore struct {
	q db.Querier
}

func (a *accountStore) Account(ctx context.Context, name string) (*Account, error) {
	var acc Account
	err := a.q.QueryRow(ctx, `
		SELECT name, COALESCE(account_type, ''), report_type, account_currency
		FROM accounts WHERE name = $1`, name).Scan(
		&acc.Name, &acc.AccountType, &acc.ReportType, &acc.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", ErrNotFound, name)
		}
		return nil, err
	}
	return &acc, nil
}

func (a *accountStore) CompanyDefaults(ctx context.Context, company string) (*CompanyDefaults, error) {
	var d CompanyDefaults
	err := a.q.QueryRow(ctx, `
		SELECT name, currency, precision_digits,
		       COALESCE(default_cost_center, ''), COALESCE(write_off_account, ''),
		       COALESCE(round_off_account, ''), COALESCE(round_off_cost_center, ''),
		       COALESCE(default_cash_account, ''), COALESCE(disposal_account, ''),
		       COALESCE(depreciation_cost_center, ''),
		       sales_order_required, delivery_note_required
		FROM companies WHERE name = $1`, company).Scan(
		&d.Name, &d.Currency, &d.Precision,
		&d.DefaultCostCenter, &d.WriteOffAccount,
		&d.RoundOffAccount, &d.RoundOffCostCenter,
		&d.DefaultCashAccount, &d.DisposalAccount,
		&d.DepreciationCostCenter,
		&d.SalesOrderRequired, &d.DeliveryNoteRequired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: company %s", ErrNotFound, company)
		}
		return nil, err
	}
	return &d, nil
}

func (a *accountStore) ModeOfPaymentAccount(ctx context.Context, mode, company string) (string, error) {
	var account string
	err := a.q.QueryRow(ctx, `
		SELECT default_account FROM mode_of_payment_accounts
		WHERE mode_of_payment = $1 AND company = $2`, mode, company).Scan(&account)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return account, err
}

// ancestorStore adapts the order and note repositories to the ancestor port.
type ancestorStore struct {
	orders *salesorder.Repository
	notes  *deliverynote.Repository
}

func (a *ancestorStore) OrderState(ctx context.Context, number string) (int, bool, error) {
	so, err := a.orders.GetByNumber(ctx, number)
	if err != nil {
		return 0, false, err
	}
	return int(so.Docstatus), so.IsClosed, nil
}

func (a *ancestorStore) NoteDocstatus(ctx context.Context, number string) (int, error) {
	dn, err := a.notes.GetByNumber(ctx, number)
	if err != nil {
		return 0, err
	}
	return int(dn.Docstatus), nil
}

func (a *ancestorStore) LineDeliveredBySupplier(ctx context.Context, soDetail int64) (bool, error) {
	line, err := a.orders.GetLine(ctx, soDetail)
	if err != nil {
		return false, err
	}
	return line.DeliveredBySupplier, nil
}

func (a *ancestorStore) ResolveOrderLine(ctx context.Context, orderNumber, itemCode string) (int64, error) {
	return a.orders.FindLineByItem(ctx, orderNumber, itemCode)
}

func (a *ancestorStore) ActualTaxTotals(ctx context.Context, orderNumber string) (map[string]float64, error) {
	return a.orders.ActualTaxTotals(ctx, orderNumber)
}

func (a *ancestorStore) InvoicedActualTax(ctx context.Context, orderNumber, excludeInvoice string, submittedOnly bool) (map[string]float64, error) {
	return a.orders.InvoicedActualTax(ctx, orderNumber, excludeInvoice, submittedOnly)
}

func (a *ancestorStore) UpdateReservedQty(ctx context.Context, itemCode, warehouse string) error {
	return a.orders.UpdateReservedForDelivery(ctx, itemCode, warehouse)
}

// stockStore bundles the stock repository and service behind the stock port.
type stockStore struct {
	repo *stock.Repository
	svc  *stock.Service
}

func (s *stockStore) IsStockItem(ctx context.Context, itemCode string) (bool, error) {
	return s.repo.IsStockItem(ctx, itemCode)
}

func (s *stockStore) UOMMustBeWhole(ctx context.Context, uom string) (bool, error) {
	return s.repo.UOMMustBeWhole(ctx, uom)
}

func (s *stockStore) BinQty(ctx context.Context, itemCode, warehouse string) (float64, float64, error) {
	return s.repo.BinQty(ctx, itemCode, warehouse)
}

func (s *stockStore) ApplyVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time, isReturn bool, movements []stock.Movement) error {
	return s.svc.ApplyVoucher(ctx, voucherType, voucherNo, postingDate, isReturn, movements)
}

func (s *stockStore) CancelVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time) error {
	return s.svc.CancelVoucher(ctx, voucherType, voucherNo, postingDate)
}

func (s *stockStore) ExpandPackingList(ctx context.Context, lines []stock.Movement) ([]stock.PackedLine, error) {
	return s.svc.ExpandPackingList(ctx, lines)
}

func (s *stockStore) SerialsForDNLine(ctx context.Context, dnDetail int64) ([]string, error) {
	return s.repo.SerialsForDNLine(ctx, dnDetail)
}

func (s *stockStore) SerialInvoiceRef(ctx context.Context, serialNo string) (string, error) {
	return s.repo.SerialInvoiceRef(ctx, serialNo)
}

func (s *stockStore) SetSerialInvoice(ctx context.Context, serialNo, invoiceNumber string) error {
	return s.repo.SetSerialInvoice(ctx, serialNo, invoiceNumber)
}

// assetStore reads fixed asset records and derives disposal postings.
type assetStore struct {
	q db.Querier
}

// DisposalEntries books the asset off the balance sheet: the asset account is
// credited at gross cost, accumulated depreciation reverses, and the gap to
// the sale amount lands on the company's disposal account as gain or loss.
func (a *assetStore) DisposalEntries(ctx context.Context, asset string, amount float64) ([]DisposalEntry, error) {
	var (
		grossAmount     float64
		accumulated     float64
		assetAccount    string
		depreciationAcc string
		disposalAccount string
		costCenter      string
	)
	err := a.q.QueryRow(ctx, `
		SELECT a.gross_purchase_amount, a.accumulated_depreciation,
		       a.fixed_asset_account, a.accumulated_depreciation_account,
		       COALESCE(c.disposal_account, ''), COALESCE(c.depreciation_cost_center, '')
		FROM assets a
		JOIN companies c ON c.name = a.company
		WHERE a.name = $1`, asset).Scan(
		&grossAmount, &accumulated, &assetAccount, &depreciationAcc, &disposalAccount, &costCenter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: asset %s", ErrNotFound, asset)
		}
		return nil, err
	}
	if disposalAccount == "" {
		return nil, fmt.Errorf("%w: disposal account for asset %s", ErrConfiguration, asset)
	}

	entries := []DisposalEntry{
		{Account: assetAccount, Credit: grossAmount},
	}
	if accumulated != 0 {
		entries = append(entries, DisposalEntry{Account: depreciationAcc, Debit: accumulated})
	}
	writtenDown := grossAmount - accumulated
	switch diff := amount - writtenDown; {
	case diff > 0:
		entries = append(entries, DisposalEntry{Account: disposalAccount, Credit: diff, CostCenter: costCenter})
	case diff < 0:
		entries = append(entries, DisposalEntry{Account: disposalAccount, Debit: -diff, CostCenter: costCenter})
	}
	return entries, nil
}

func (a *assetStore) SetDisposal(ctx context.Context, asset string, sold bool, date time.Time) error {
	if sold {
		_, err := a.q.Exec(ctx,
			`UPDATE assets SET status = 'Sold', disposal_date = $2, updated_at = NOW() WHERE name = $1`,
			asset, date)
		return err
	}
	_, err := a.q.Exec(ctx,
		`UPDATE assets SET status = 'Submitted', disposal_date = NULL, updated_at = NOW() WHERE name = $1`,
		asset)
	return err
}

// creditStore enforces customer credit limits from the ledger trail.
type creditStore struct {
	q db.Querier
}

func (c *creditStore) BypassAtSalesOrder(ctx context.Context, customer string) (bool, error) {
	var bypass bool
	err := c.q.QueryRow(ctx,
		`SELECT bypass_credit_limit_check FROM customers WHERE name = $1`, customer).Scan(&bypass)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return bypass, err
}

func (c *creditStore) CheckCreditLimit(ctx context.Context, customer, company string, bypassAtSalesOrder bool) error {
	var limit float64
	err := c.q.QueryRow(ctx,
		`SELECT credit_limit FROM customers WHERE name = $1`, customer).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if limit <= 0 {
		return nil
	}
	var outstanding float64
	err = c.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(debit - credit), 0)
		FROM gl_entries
		WHERE party_type = 'Customer' AND party = $1 AND company = $2`,
		customer, company).Scan(&outstanding)
	if err != nil {
		return err
	}
	if outstanding > limit {
		return fmt.Errorf("%w: customer %s outstanding %.2f exceeds credit limit %.2f",
			ErrCreditLimit, customer, outstanding, limit)
	}
	return nil
}

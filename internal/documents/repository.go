package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists invoices, payments and the invoice audit log.
type Repository interface {
	GetInvoice(ctx context.Context, kind Kind, id int64) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, kind Kind, id int64) (Invoice, error)
	// SaveInvoice inserts the invoice when ID is zero, otherwise updates the
	// header and replaces its items.
	SaveInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	SetInvoiceLink(ctx context.Context, kind Kind, id, entryID int64, status FinancialStatus) error
	GetPayment(ctx context.Context, id int64) (Payment, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error)
	SavePayment(ctx context.Context, p Payment) (Payment, error)
	SetPaymentLink(ctx context.Context, id, entryID int64, status PaymentStatus) error
	PaymentsForInvoice(ctx context.Context, kind Kind, invoiceID int64) ([]Payment, error)
	InsertAuditLog(ctx context.Context, log InvoiceAuditLog) (InvoiceAuditLog, error)
	AuditLogs(ctx context.Context, kind Kind, invoiceID int64) ([]InvoiceAuditLog, error)
	ClearAuditAdjustments(ctx context.Context, kind Kind, invoiceID int64) error
	// PostedPartyTotals sums posted credit invoices and the posted payments
	// against them for one party.
	PostedPartyTotals(ctx context.Context, kind Kind, partyID int64) (invoices, payments decimal.Decimal, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type tables struct {
	invoices string
	items    string
	party    string
	cost     string
}

func tablesFor(kind Kind) (tables, error) {
	switch kind {
	case KindSale:
		return tables{invoices: "sales_invoices", items: "sales_invoice_items", party: "customer_id", cost: "cost_price"}, nil
	case KindPurchase:
		return tables{invoices: "purchase_invoices", items: "purchase_invoice_items", party: "supplier_id", cost: "0::numeric"}, nil
	}
	return tables{}, fmt.Errorf("documents: unknown invoice kind %q", kind)
}

func (r *repository) GetInvoice(ctx context.Context, kind Kind, id int64) (Invoice, error) {
	return r.getInvoice(ctx, kind, id, "")
}

func (r *repository) GetInvoiceForUpdate(ctx context.Context, kind Kind, id int64) (Invoice, error) {
	return r.getInvoice(ctx, kind, id, " FOR UPDATE")
}

func (r *repository) getInvoice(ctx context.Context, kind Kind, id int64, lock string) (Invoice, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return Invoice{}, err
	}
	conn := db.Conn(ctx, r.pool)
	inv := Invoice{Kind: kind}
	err = conn.QueryRow(ctx, `SELECT id, number, date, COALESCE(`+t.party+`, 0), payment_type, COALESCE(journal_entry_id, 0),
financial_status, created_at, updated_at FROM `+t.invoices+` WHERE id=$1`+lock, id).
		Scan(&inv.ID, &inv.Number, &inv.Date, &inv.PartyID, &inv.PaymentType, &inv.JournalEntryID, &inv.FinancialStatus, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%w: %s invoice %d", shared.ErrNotFound, kind, id)
		}
		return Invoice{}, err
	}
	rows, err := conn.Query(ctx, `SELECT id, product_id, quantity, unit_price, `+t.cost+` FROM `+t.items+` WHERE invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CostPrice); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

func (r *repository) SaveInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	t, err := tablesFor(inv.Kind)
	if err != nil {
		return Invoice{}, err
	}
	conn := db.Conn(ctx, r.pool)
	if inv.ID == 0 {
		err = conn.QueryRow(ctx, `INSERT INTO `+t.invoices+` (number, date, `+t.party+`, payment_type, financial_status)
VALUES ($1,$2,$3,$4,'pending') RETURNING id`, inv.Number, inv.Date, nullInt(inv.PartyID), inv.PaymentType).Scan(&inv.ID)
	} else {
		_, err = conn.Exec(ctx, `UPDATE `+t.invoices+` SET number=$2, date=$3, `+t.party+`=$4, payment_type=$5, updated_at=NOW() WHERE id=$1`,
			inv.ID, inv.Number, inv.Date, nullInt(inv.PartyID), inv.PaymentType)
		if err == nil {
			_, err = conn.Exec(ctx, `DELETE FROM `+t.items+` WHERE invoice_id=$1`, inv.ID)
		}
	}
	if err != nil {
		return Invoice{}, err
	}
	for _, item := range inv.Items {
		if inv.Kind == KindSale {
			_, err = conn.Exec(ctx, `INSERT INTO sales_invoice_items (invoice_id, product_id, quantity, unit_price, cost_price) VALUES ($1,$2,$3,$4,$5)`,
				inv.ID, item.ProductID, item.Quantity, item.UnitPrice, item.CostPrice)
		} else {
			_, err = conn.Exec(ctx, `INSERT INTO purchase_invoice_items (invoice_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
				inv.ID, item.ProductID, item.Quantity, item.UnitPrice)
		}
		if err != nil {
			return Invoice{}, err
		}
	}
	return r.GetInvoice(ctx, inv.Kind, inv.ID)
}

func (r *repository) SetInvoiceLink(ctx context.Context, kind Kind, id, entryID int64, status FinancialStatus) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	return r.exec(ctx, `UPDATE `+t.invoices+` SET journal_entry_id=$2, financial_status=$3, updated_at=NOW() WHERE id=$1`, id, nullInt(entryID), status)
}

const paymentColumns = `id, number, invoice_type, invoice_id, amount, date, COALESCE(financial_account_id, 0), status,
COALESCE(journal_entry_id, 0), created_at, updated_at`

func (r *repository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id)
}

func (r *repository) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	return r.getPayment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, id)
}

func (r *repository) getPayment(ctx context.Context, sql string, id int64) (Payment, error) {
	p, err := scanPayment(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("%w: payment %d", shared.ErrNotFound, id)
	}
	return p, err
}

func (r *repository) SavePayment(ctx context.Context, p Payment) (Payment, error) {
	conn := db.Conn(ctx, r.pool)
	var err error
	if p.ID == 0 {
		err = conn.QueryRow(ctx, `INSERT INTO payments (number, invoice_type, invoice_id, amount, date, financial_account_id, status)
VALUES ($1,$2,$3,$4,$5,$6,'draft') RETURNING id`, p.Number, p.InvoiceKind, p.InvoiceID, p.Amount, p.Date, nullInt(p.FinancialAccountID)).Scan(&p.ID)
	} else {
		_, err = conn.Exec(ctx, `UPDATE payments SET number=$2, amount=$3, date=$4, financial_account_id=$5, updated_at=NOW() WHERE id=$1`,
			p.ID, p.Number, p.Amount, p.Date, nullInt(p.FinancialAccountID))
	}
	if err != nil {
		return Payment{}, err
	}
	return r.GetPayment(ctx, p.ID)
}

func (r *repository) SetPaymentLink(ctx context.Context, id, entryID int64, status PaymentStatus) error {
	return r.exec(ctx, `UPDATE payments SET journal_entry_id=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, nullInt(entryID), status)
}

func (r *repository) PaymentsForInvoice(ctx context.Context, kind Kind, invoiceID int64) ([]Payment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE invoice_type=$1 AND invoice_id=$2 ORDER BY date, id`, kind, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const auditColumns = `id, invoice_type, invoice_id, invoice_number, action_type, old_total, new_total, old_cost, new_cost,
total_difference, cost_difference, COALESCE(adjustment_entry_id, 0), reason, notes, created_at, COALESCE(created_by, 0)`

func (r *repository) InsertAuditLog(ctx context.Context, log InvoiceAuditLog) (InvoiceAuditLog, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO invoice_audit_logs (invoice_type, invoice_id, invoice_number, action_type,
old_total, new_total, old_cost, new_cost, total_difference, cost_difference, adjustment_entry_id, reason, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING `+auditColumns,
		log.InvoiceKind, log.InvoiceID, log.InvoiceNumber, log.Action, log.OldTotal, log.NewTotal, log.OldCost, log.NewCost,
		log.TotalDifference, log.CostDifference, nullInt(log.AdjustmentEntryID), log.Reason, log.Notes, nullInt(log.CreatedBy))
	return scanAudit(row)
}

func (r *repository) AuditLogs(ctx context.Context, kind Kind, invoiceID int64) ([]InvoiceAuditLog, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+auditColumns+` FROM invoice_audit_logs WHERE invoice_type=$1 AND invoice_id=$2 ORDER BY id`, kind, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InvoiceAuditLog
	for rows.Next() {
		log, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

func (r *repository) ClearAuditAdjustments(ctx context.Context, kind Kind, invoiceID int64) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE invoice_audit_logs SET adjustment_entry_id=NULL WHERE invoice_type=$1 AND invoice_id=$2`, kind, invoiceID)
	return err
}

func (r *repository) PostedPartyTotals(ctx context.Context, kind Kind, partyID int64) (decimal.Decimal, decimal.Decimal, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	var invoices, payments decimal.Decimal
	err = db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT
COALESCE((SELECT SUM(it.quantity * it.unit_price) FROM `+t.invoices+` i JOIN `+t.items+` it ON it.invoice_id = i.id
  WHERE i.`+t.party+` = $1 AND i.payment_type = 'credit' AND i.financial_status = 'posted'), 0),
COALESCE((SELECT SUM(p.amount) FROM payments p JOIN `+t.invoices+` i ON i.id = p.invoice_id
  WHERE p.invoice_type = $2 AND p.status = 'posted' AND i.`+t.party+` = $1), 0)`, partyID, kind).Scan(&invoices, &payments)
	return invoices, payments, err
}

func (r *repository) exec(ctx context.Context, sql string, args ...any) error {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %v", shared.ErrNotFound, args[0])
	}
	return nil
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.Number, &p.InvoiceKind, &p.InvoiceID, &p.Amount, &p.Date, &p.FinancialAccountID, &p.Status,
		&p.JournalEntryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanAudit(row pgx.Row) (InvoiceAuditLog, error) {
	var l InvoiceAuditLog
	err := row.Scan(&l.ID, &l.InvoiceKind, &l.InvoiceID, &l.InvoiceNumber, &l.Action, &l.OldTotal, &l.NewTotal, &l.OldCost, &l.NewCost,
		&l.TotalDifference, &l.CostDifference, &l.AdjustmentEntryID, &l.Reason, &l.Notes, &l.CreatedAt, &l.CreatedBy)
	return l, err
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

package parties

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists customers and suppliers.
type Repository interface {
	Insert(ctx context.Context, p Party) (Party, error)
	Get(ctx context.Context, kind Kind, id int64) (Party, error)
	GetForUpdate(ctx context.Context, kind Kind, id int64) (Party, error)
	SetAccount(ctx context.Context, kind Kind, id, accountID int64) error
	FindByAccount(ctx context.Context, accountID int64) (Party, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func table(kind Kind) (string, error) {
	switch kind {
	case KindCustomer:
		return "customers", nil
	case KindSupplier:
		return "suppliers", nil
	}
	return "", fmt.Errorf("parties: unknown kind %q", kind)
}

func (r *repository) Insert(ctx context.Context, p Party) (Party, error) {
	t, err := table(p.Kind)
	if err != nil {
		return Party{}, err
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO `+t+` (name, financial_account_id) VALUES ($1, $2) RETURNING id`,
		p.Name, nullInt(p.FinancialAccountID)).Scan(&p.ID)
	return p, err
}

func (r *repository) Get(ctx context.Context, kind Kind, id int64) (Party, error) {
	return r.get(ctx, kind, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, kind Kind, id int64) (Party, error) {
	return r.get(ctx, kind, id, " FOR UPDATE")
}

func (r *repository) get(ctx context.Context, kind Kind, id int64, lock string) (Party, error) {
	t, err := table(kind)
	if err != nil {
		return Party{}, err
	}
	p := Party{Kind: kind}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, name, COALESCE(financial_account_id, 0) FROM `+t+` WHERE id=$1`+lock, id).
		Scan(&p.ID, &p.Name, &p.FinancialAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind, id)
	}
	return p, err
}

func (r *repository) SetAccount(ctx context.Context, kind Kind, id, accountID int64) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE `+t+` SET financial_account_id=$2, updated_at=NOW() WHERE id=$1`, id, accountID)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return fmt.Errorf("%w: account %d already bound", shared.ErrConflict, accountID)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind, id)
	}
	return nil
}

// FindByAccount answers the account to party back-reference.
func (r *repository) FindByAccount(ctx context.Context, accountID int64) (Party, error) {
	var p Party
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, 'customer', name, financial_account_id FROM customers WHERE financial_account_id=$1
UNION ALL
SELECT id, 'supplier', name, financial_account_id FROM suppliers WHERE financial_account_id=$1
LIMIT 1`, accountID).Scan(&p.ID, &p.Kind, &p.Name, &p.FinancialAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, fmt.Errorf("%w: party for account %d", shared.ErrNotFound, accountID)
	}
	return p, err
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists account types and accounts.
type Repository interface {
	InsertType(ctx context.Context, t AccountType) (AccountType, error)
	GetType(ctx context.Context, id int64) (AccountType, error)
	ListTypes(ctx context.Context) ([]AccountType, error)
	InsertAccount(ctx context.Context, a Account) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context, filter ListFilter) ([]Account, error)
	CodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
	CountChildren(ctx context.Context, id int64, activeOnly bool) (int, error)
	CountLineReferences(ctx context.Context, id int64) (int, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetOpeningBalance(ctx context.Context, id int64, amount decimal.Decimal, date *time.Time) error
	DeleteAccount(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const typeColumns = `id, code, name, category, nature, parent_id, level, is_active, created_at, updated_at`

const accountColumns = `a.id, a.code, a.name, a.type_id, a.parent_id, a.is_leaf, a.is_cash, a.is_bank, a.is_control,
a.is_active, a.opening_balance, a.opening_balance_date, a.description, a.created_at, a.updated_at, t.category, t.nature`

func (r *repository) InsertType(ctx context.Context, t AccountType) (AccountType, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO account_types (code, name, category, nature, parent_id, level, is_active)
VALUES ($1,$2,$3,$4,$5,$6,TRUE) RETURNING `+typeColumns, t.Code, t.Name, t.Category, t.Nature, t.ParentID, t.Level)
	out, err := scanType(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_account_types_code") {
			return AccountType{}, fmt.Errorf("%w: type %s", shared.ErrDuplicateCode, t.Code)
		}
		return AccountType{}, err
	}
	return out, nil
}

func (r *repository) GetType(ctx context.Context, id int64) (AccountType, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+typeColumns+` FROM account_types WHERE id=$1`, id)
	t, err := scanType(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountType{}, fmt.Errorf("%w: account type %d", shared.ErrNotFound, id)
	}
	return t, err
}

func (r *repository) ListTypes(ctx context.Context) ([]AccountType, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+typeColumns+` FROM account_types ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) InsertAccount(ctx context.Context, a Account) (Account, error) {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO accounts (code, name, type_id, parent_id, is_leaf, is_cash, is_bank, is_control,
is_active, opening_balance, opening_balance_date, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$10,$11) RETURNING id`,
		a.Code, a.Name, a.TypeID, a.ParentID, a.IsLeaf, a.IsCash, a.IsBank, a.IsControl,
		a.OpeningBalance, a.OpeningBalanceDate, a.Description).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_accounts_code") {
			return Account{}, fmt.Errorf("%w: account %s", shared.ErrDuplicateCode, a.Code)
		}
		return Account{}, err
	}
	return r.GetAccount(ctx, id)
}

func (r *repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+`
FROM accounts a JOIN account_types t ON t.id = a.type_id WHERE a.id=$1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
	}
	return a, err
}

func (r *repository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+`
FROM accounts a JOIN account_types t ON t.id = a.type_id WHERE a.code=$1`, code)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, code)
	}
	return a, err
}

func (r *repository) ListAccounts(ctx context.Context, filter ListFilter) ([]Account, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "a.is_active")
	}
	if filter.LeafOnly {
		where = append(where, "a.is_leaf")
	}
	if filter.TypeID != 0 {
		args = append(args, filter.TypeID)
		where = append(where, fmt.Sprintf("a.type_id = $%d", len(args)))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		where = append(where, fmt.Sprintf("a.parent_id = $%d", len(args)))
	}
	sql := `SELECT ` + accountColumns + ` FROM accounts a JOIN account_types t ON t.id = a.type_id`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY a.code"
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) CodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT code FROM accounts WHERE starts_with(code, $1) ORDER BY code`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *repository) CountChildren(ctx context.Context, id int64, activeOnly bool) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE parent_id=$1 AND (is_active OR NOT $2)`, id, activeOnly).Scan(&n)
	return n, err
}

func (r *repository) CountLineReferences(ctx context.Context, id int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM journal_lines WHERE account_id=$1`, id).Scan(&n)
	return n, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) SetOpeningBalance(ctx context.Context, id int64, amount decimal.Decimal, date *time.Time) error {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE accounts SET opening_balance=$2, opening_balance_date=$3, updated_at=NOW() WHERE id=$1`, id, amount, date)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) DeleteAccount(ctx context.Context, id int64) error {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err, "") {
			return fmt.Errorf("%w: account %d", shared.ErrAccountInUse, id)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", shared.ErrNotFound, id)
	}
	return nil
}

func scanType(row pgx.Row) (AccountType, error) {
	var t AccountType
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Category, &t.Nature, &t.ParentID, &t.Level, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.TypeID, &a.ParentID, &a.IsLeaf, &a.IsCash, &a.IsBank, &a.IsControl,
		&a.IsActive, &a.OpeningBalance, &a.OpeningBalanceDate, &a.Description, &a.CreatedAt, &a.UpdatedAt, &a.Category, &a.Nature)
	return a, err
}

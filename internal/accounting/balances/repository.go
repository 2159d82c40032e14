package balances

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository reads posted journal lines. Draft entries are never visible.
type Repository interface {
	// Movement sums posted lines of an account dated within [from, to];
	// nil bounds are open.
	Movement(ctx context.Context, accountID int64, from, to *time.Time) (Movement, error)
	// MovementsByAccount sums posted lines dated on or before asOf per account.
	MovementsByAccount(ctx context.Context, asOf time.Time) (map[int64]Movement, error)
	// Postings lists posted lines of an account dated within [from, to]
	// ordered by date, posted_at, entry id and line id.
	Postings(ctx context.Context, accountID int64, from, to time.Time) ([]Posting, error)
	// EntryChecks aggregates every posted entry dated on or before asOf.
	EntryChecks(ctx context.Context, asOf time.Time) ([]EntryCheck, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Movement(ctx context.Context, accountID int64, from, to *time.Time) (Movement, error) {
	var m Movement
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE l.account_id = $1 AND e.status = 'posted'
  AND ($2::date IS NULL OR e.date >= $2::date)
  AND ($3::date IS NULL OR e.date <= $3::date)`, accountID, from, to).Scan(&m.Debit, &m.Credit)
	return m, err
}

func (r *repository) MovementsByAccount(ctx context.Context, asOf time.Time) (map[int64]Movement, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT l.account_id, SUM(l.debit), SUM(l.credit)
FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE e.status = 'posted' AND e.date <= $1::date
GROUP BY l.account_id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Movement)
	for rows.Next() {
		var (
			id int64
			m  Movement
		)
		if err := rows.Scan(&id, &m.Debit, &m.Credit); err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, rows.Err()
}

func (r *repository) Postings(ctx context.Context, accountID int64, from, to time.Time) ([]Posting, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT e.id, l.id, COALESCE(e.number, ''), e.date, e.posted_at, e.reference,
COALESCE(NULLIF(l.description, ''), e.description), l.debit, l.credit
FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE l.account_id = $1 AND e.status = 'posted' AND e.date BETWEEN $2::date AND $3::date
ORDER BY e.date, e.posted_at, e.id, l.id`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Posting
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.EntryID, &p.LineID, &p.Number, &p.Date, &p.PostedAt, &p.Reference, &p.Description, &p.Debit, &p.Credit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) EntryChecks(ctx context.Context, asOf time.Time) ([]EntryCheck, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT e.id, COALESCE(e.number, ''), COUNT(l.id),
COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0),
COUNT(l.id) FILTER (WHERE l.debit < 0 OR l.credit < 0 OR (l.debit > 0) = (l.credit > 0)),
COUNT(l.id) FILTER (WHERE NOT a.is_leaf)
FROM journal_entries e
LEFT JOIN journal_lines l ON l.journal_entry_id = e.id
LEFT JOIN accounts a ON a.id = l.account_id
WHERE e.status = 'posted' AND e.date <= $1::date
GROUP BY e.id, e.number
ORDER BY e.id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntryCheck
	for rows.Next() {
		var c EntryCheck
		if err := rows.Scan(&c.EntryID, &c.Number, &c.Lines, &c.Debit, &c.Credit, &c.InvalidLines, &c.NonLeafLines); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

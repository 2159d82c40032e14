package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists accounting periods.
type Repository interface {
	Insert(ctx context.Context, p Period) (Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	GetForUpdate(ctx context.Context, id int64) (Period, error)
	FindForDate(ctx context.Context, date time.Time) (Period, error)
	ListOverlapping(ctx context.Context, start, end time.Time) ([]Period, error)
	List(ctx context.Context) ([]Period, error)
	SetClosed(ctx context.Context, id int64, at time.Time, by int64) error
	SetReopened(ctx context.Context, id int64, at time.Time, by int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const periodColumns = `id, name, start_date, end_date, status, closed_at, closed_by, reopened_at, reopened_by, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, p Period) (Period, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO periods (name, start_date, end_date, status)
VALUES ($1,$2,$3,'open') RETURNING `+periodColumns, p.Name, p.StartDate, p.EndDate)
	out, err := scanPeriod(row)
	if err != nil {
		if db.IsExclusionViolation(err, "ex_periods_overlap") {
			return Period{}, fmt.Errorf("%w: %s", shared.ErrPeriodOverlap, p.Name)
		}
		return Period{}, err
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	return r.getOne(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1`, id)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Period, error) {
	return r.getOne(ctx, `SELECT `+periodColumns+` FROM periods WHERE id=$1 FOR UPDATE`, id)
}

func (r *repository) getOne(ctx context.Context, sql string, id int64) (Period, error) {
	p, err := scanPeriod(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("%w: period %d", shared.ErrNotFound, id)
	}
	return p, err
}

// FindForDate returns the period whose range brackets date.
func (r *repository) FindForDate(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods WHERE $1::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("%w: period for %s", shared.ErrNotFound, date.Format("2006-01-02"))
	}
	return p, err
}

func (r *repository) ListOverlapping(ctx context.Context, start, end time.Time) ([]Period, error) {
	return r.list(ctx, `SELECT `+periodColumns+` FROM periods
WHERE start_date <= $2::date AND end_date >= $1::date ORDER BY start_date`, start, end)
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	return r.list(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date`)
}

func (r *repository) list(ctx context.Context, sql string, args ...any) ([]Period, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) SetClosed(ctx context.Context, id int64, at time.Time, by int64) error {
	return r.exec(ctx, id, `UPDATE periods SET status='closed', closed_at=$2, closed_by=$3, updated_at=NOW() WHERE id=$1`, at, nullInt(by))
}

func (r *repository) SetReopened(ctx context.Context, id int64, at time.Time, by int64) error {
	return r.exec(ctx, id, `UPDATE periods SET status='open', reopened_at=$2, reopened_by=$3, updated_at=NOW() WHERE id=$1`, at, nullInt(by))
}

func (r *repository) exec(ctx context.Context, id int64, sql string, args ...any) error {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: period %d", shared.ErrNotFound, id)
	}
	return nil
}

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.ReopenedAt, &p.ReopenedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	GetEntry(ctx context.Context, id int64) (Entry, error)
	GetEntryForUpdate(ctx context.Context, id int64) (Entry, error)
	FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error)
	ListLines(ctx context.Context, entryID int64) ([]Line, error)
	GetLine(ctx context.Context, lineID int64) (Line, error)
	InsertLine(ctx context.Context, line Line) (Line, error)
	UpdateLine(ctx context.Context, line Line) (Line, error)
	DeleteLine(ctx context.Context, lineID int64) error
	MarkPosted(ctx context.Context, id int64, number string, periodID int64, at time.Time, by int64) error
	MarkDraft(ctx context.Context, id int64) error
	DeleteEntry(ctx context.Context, id int64) error
	// NextNumber increments and returns the per-year counter under a row lock.
	NextNumber(ctx context.Context, year int) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const entryColumns = `e.id, COALESCE(e.number, ''), e.date, e.entry_type, COALESCE(e.period_id, 0), e.reference, e.description,
e.source_module, e.source_id, e.status, e.posted_at, COALESCE(e.posted_by, 0), COALESCE(e.created_by, 0), e.created_at, e.updated_at`

const lineColumns = `l.id, l.journal_entry_id, l.account_id, a.code, l.debit, l.credit, l.description, l.created_at, l.updated_at`

func (r *repository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO journal_entries (date, entry_type, reference, description, source_module, source_id, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,'draft',$7) RETURNING id`,
		e.Date, e.EntryType, e.Reference, e.Description, e.SourceModule, nullUUID(e.SourceID), nullInt(e.CreatedBy)).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_journal_entries_source") {
			return Entry{}, fmt.Errorf("%w: %s/%s", shared.ErrSourceAlreadyLinked, e.SourceModule, e.SourceID)
		}
		return Entry{}, err
	}
	return r.GetEntry(ctx, id)
}

func (r *repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.id=$1`, id)
}

func (r *repository) GetEntryForUpdate(ctx context.Context, id int64) (Entry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.id=$1 FOR UPDATE`, id)
}

func (r *repository) getEntry(ctx context.Context, sql string, args ...any) (Entry, error) {
	e, err := scanEntry(db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: journal entry", shared.ErrNotFound)
	}
	return e, err
}

func (r *repository) FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (Entry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.source_module=$1 AND e.source_id=$2`, module, sourceID)
}

func (r *repository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != nil {
		add("e.date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("e.date <= $%d", *filter.To)
	}
	if filter.Status != "" {
		add("e.status = $%d", filter.Status)
	}
	if filter.EntryType != "" {
		add("e.entry_type = $%d", filter.EntryType)
	}
	if filter.ReferencePrefix != "" {
		add("starts_with(e.reference, $%d)", filter.ReferencePrefix)
	}
	if filter.AccountCode != "" {
		add(`EXISTS (SELECT 1 FROM journal_lines l JOIN accounts a ON a.id = l.account_id
WHERE l.journal_entry_id = e.id AND a.code = $%d)`, filter.AccountCode)
	}
	sql := `SELECT ` + entryColumns + ` FROM journal_entries e`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY e.date DESC, e.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) ListLines(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+lineColumns+`
FROM journal_lines l JOIN accounts a ON a.id = l.account_id WHERE l.journal_entry_id=$1 ORDER BY l.id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *repository) GetLine(ctx context.Context, lineID int64) (Line, error) {
	line, err := scanLine(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+lineColumns+`
FROM journal_lines l JOIN accounts a ON a.id = l.account_id WHERE l.id=$1`, lineID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, fmt.Errorf("%w: journal line %d", shared.ErrNotFound, lineID)
	}
	return line, err
}

func (r *repository) InsertLine(ctx context.Context, line Line) (Line, error) {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO journal_lines (journal_entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, line.EntryID, line.AccountID, line.Debit, line.Credit, line.Description).Scan(&id)
	if err != nil {
		return Line{}, err
	}
	return r.GetLine(ctx, id)
}

func (r *repository) UpdateLine(ctx context.Context, line Line) (Line, error) {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE journal_lines SET account_id=$2, debit=$3, credit=$4, description=$5, updated_at=NOW()
WHERE id=$1`, line.ID, line.AccountID, line.Debit, line.Credit, line.Description)
	if err != nil {
		return Line{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Line{}, fmt.Errorf("%w: journal line %d", shared.ErrNotFound, line.ID)
	}
	return r.GetLine(ctx, line.ID)
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	return r.exec(ctx, `DELETE FROM journal_lines WHERE id=$1`, lineID)
}

func (r *repository) MarkPosted(ctx context.Context, id int64, number string, periodID int64, at time.Time, by int64) error {
	return r.exec(ctx, `UPDATE journal_entries SET status='posted', number=$2, period_id=$3, posted_at=$4, posted_by=$5, updated_at=NOW()
WHERE id=$1`, id, number, periodID, at, nullInt(by))
}

func (r *repository) MarkDraft(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE journal_entries SET status='draft', posted_at=NULL, posted_by=NULL, updated_at=NOW() WHERE id=$1`, id)
}

func (r *repository) DeleteEntry(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
}

func (r *repository) NextNumber(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO journal_number_counters (year, last_value) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_value = journal_number_counters.last_value + 1
RETURNING last_value`, year).Scan(&seq)
	return seq, err
}

func (r *repository) exec(ctx context.Context, sql string, args ...any) error {
	cmd, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal row %v", shared.ErrNotFound, args[0])
	}
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e        Entry
		sourceID uuid.NullUUID
	)
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.EntryType, &e.PeriodID, &e.Reference, &e.Description,
		&e.SourceModule, &sourceID, &e.Status, &e.PostedAt, &e.PostedBy, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if sourceID.Valid {
		e.SourceID = sourceID.UUID
	}
	return e, err
}

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.AccountCode, &l.Debit, &l.Credit, &l.Description, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

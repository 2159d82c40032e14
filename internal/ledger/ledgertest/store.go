// Package ledgertest provides an in-memory, transactional implementation of
// every ledger repository for tests.
package ledgertest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/documents"
	"github.com/odyssey-erp/odyssey-ledger/internal/parties"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

type docKey struct {
	kind documents.Kind
	id   int64
}

type partyKey struct {
	kind parties.Kind
	id   int64
}

type state struct {
	seq      map[string]int64
	types    map[int64]accounts.AccountType
	accounts map[int64]accounts.Account
	periods  map[int64]periods.Period
	entries  map[int64]journals.Entry
	lines    map[int64]journals.Line
	counters map[int]int64
	invoices map[docKey]documents.Invoice
	payments map[int64]documents.Payment
	audit    map[int64]documents.InvoiceAuditLog
	parties  map[partyKey]parties.Party
}

func newState() *state {
	return &state{
		seq:      make(map[string]int64),
		types:    make(map[int64]accounts.AccountType),
		accounts: make(map[int64]accounts.Account),
		periods:  make(map[int64]periods.Period),
		entries:  make(map[int64]journals.Entry),
		lines:    make(map[int64]journals.Line),
		counters: make(map[int]int64),
		invoices: make(map[docKey]documents.Invoice),
		payments: make(map[int64]documents.Payment),
		audit:    make(map[int64]documents.InvoiceAuditLog),
		parties:  make(map[partyKey]parties.Party),
	}
}

// clone copies every table. Stored values are replaced, never mutated in
// place, so copying the maps is enough.
func (s *state) clone() *state {
	return &state{
		seq:      maps.Clone(s.seq),
		types:    maps.Clone(s.types),
		accounts: maps.Clone(s.accounts),
		periods:  maps.Clone(s.periods),
		entries:  maps.Clone(s.entries),
		lines:    maps.Clone(s.lines),
		counters: maps.Clone(s.counters),
		invoices: maps.Clone(s.invoices),
		payments: maps.Clone(s.payments),
		audit:    maps.Clone(s.audit),
		parties:  maps.Clone(s.parties),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store is an in-memory database. Transactions snapshot the whole state on
// begin and restore it when the function fails.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

type txKey struct{}

// WithinTx implements db.TxManager. Nested calls join the outer
// transaction; AfterCommit hooks run once the outermost call succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	hookCtx, runHooks := db.WithCommitHooks(ctx)
	err := fn(context.WithValue(hookCtx, txKey{}, true))
	if err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
	}
	s.txMu.Unlock()
	if err != nil {
		return err
	}
	runHooks(ctx)
	return nil
}

var _ db.TxManager = (*Store)(nil)

// Counts reports the number of stored entries and lines.
func (s *Store) Counts() (entries, lines int) {
	s.read(func(st *state) {
		entries, lines = len(st.entries), len(st.lines)
	})
	return entries, lines
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

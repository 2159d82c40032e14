package periods

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// ReopenPolicy decides whether a user may reopen a closed period.
type ReopenPolicy interface {
	CanReopen(ctx context.Context, period Period, userID int64) error
}

// AllowReopen permits every reopen request.
type AllowReopen struct{}

// CanReopen implements ReopenPolicy.
func (AllowReopen) CanReopen(context.Context, Period, int64) error { return nil }

// AuditPort records period lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service gates postings by accounting period.
type Service struct {
	repo   Repository
	tx     db.TxManager
	policy ReopenPolicy
	audit  AuditPort
	now    func() time.Time
}

// NewService constructs the period ledger. A nil policy allows every reopen.
func NewService(repo Repository, tx db.TxManager, policy ReopenPolicy, audit AuditPort) *Service {
	if policy == nil {
		policy = AllowReopen{}
	}
	return &Service{repo: repo, tx: tx, policy: policy, audit: audit, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create opens a new period after checking it intersects no other period.
func (s *Service) Create(ctx context.Context, in CreateInput) (Period, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Period{}, errors.New("periods: name required")
	}
	start, end := shared.Day(in.StartDate), shared.Day(in.EndDate)
	if end.Before(start) {
		return Period{}, fmt.Errorf("periods: end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	var out Period
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.ListOverlapping(ctx, start, end)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %s intersects %s", shared.ErrPeriodOverlap, in.Name, existing[0].Name)
		}
		out, err = s.repo.Insert(ctx, Period{Name: in.Name, StartDate: start, EndDate: end, Status: StatusOpen})
		return err
	})
	return out, err
}

// Get returns a period by id.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

// List returns every period ordered by start date.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// FindForDate returns the period bracketing d. The boolean is false when no
// period covers d.
func (s *Service) FindForDate(ctx context.Context, d time.Time) (Period, bool, error) {
	p, err := s.repo.FindForDate(ctx, shared.Day(d))
	if errors.Is(err, shared.ErrNotFound) {
		return Period{}, false, nil
	}
	if err != nil {
		return Period{}, false, err
	}
	return p, true, nil
}

// RequireOpenFor returns the open period bracketing d.
func (s *Service) RequireOpenFor(ctx context.Context, d time.Time) (Period, error) {
	p, ok, err := s.FindForDate(ctx, d)
	if err != nil {
		return Period{}, err
	}
	if !ok {
		return Period{}, fmt.Errorf("%w: %s", shared.ErrPeriodMissing, d.Format("2006-01-02"))
	}
	if p.Status != StatusOpen {
		return Period{}, fmt.Errorf("%w: %s covers %s", shared.ErrPeriodClosed, p.Name, d.Format("2006-01-02"))
	}
	return p, nil
}

// Close stamps the period closed.
func (s *Service) Close(ctx context.Context, id, userID int64) error {
	at := s.now()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(p.Status, StatusClosed); err != nil {
			return err
		}
		return s.repo.SetClosed(ctx, id, at, userID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, userID, "period.close", id, at)
	return nil
}

// Reopen returns a closed period to open after the policy allows it.
func (s *Service) Reopen(ctx context.Context, id, userID int64) error {
	at := s.now()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(p.Status, StatusOpen); err != nil {
			return err
		}
		if err := s.policy.CanReopen(ctx, p, userID); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrReopenDenied, err)
		}
		return s.repo.SetReopened(ctx, id, at, userID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, userID, "period.reopen", id, at)
	return nil
}

func (s *Service) record(ctx context.Context, actor int64, action string, id int64, at time.Time) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "period",
		EntityID: strconv.FormatInt(id, 10),
		At:       at,
	})
}

package ledgertest

import (
	"context"
	"sync"

	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Audit collects audit rows in memory.
type Audit struct {
	mu   sync.Mutex
	logs []internalShared.AuditLog
}

// Record implements the services' audit ports.
func (a *Audit) Record(ctx context.Context, log internalShared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

// Actions lists the recorded actions in order.
func (a *Audit) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, log := range a.logs {
		out = append(out, log.Action)
	}
	return out
}

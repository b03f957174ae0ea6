package adjustment

import (
	"fmt"
	"sync"

	"github.com/noah-isme/checkout-pricing/internal/common"
)

// Ledger holds the authoritative adjustment set for one cart. The only
// mutation surface is ReplaceAll: there is deliberately no Add/Remove API, so
// external readers always observe either the fully-old or fully-new set.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// ReplaceAll atomically swaps the full adjustment set. The incoming records
// are validated first; on any validation failure the prior contents are
// retained and an error is returned.
func (l *Ledger) ReplaceAll(records []Record) error {
	if l == nil {
		return common.NewAppError(common.CodeConfiguration, "ledger not configured", nil)
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Name == "" {
			return common.NewAppError(common.CodeConfiguration, "adjustment name is required", nil)
		}
		if !r.Kind.Valid() {
			return common.NewAppError(common.CodeConfiguration, fmt.Sprintf("adjustment %q has unknown kind %q", r.Name, r.Kind), nil)
		}
		if _, dup := seen[r.Name]; dup {
			return common.NewAppError(common.CodeConfiguration, fmt.Sprintf("duplicate adjustment name %q", r.Name), nil)
		}
		seen[r.Name] = struct{}{}
	}
	next := make([]Record, len(records))
	copy(next, records)

	l.mu.Lock()
	l.records = next
	l.mu.Unlock()
	return nil
}

// Current returns a read-only snapshot of the adjustment set.
func (l *Ledger) Current() []Record {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the number of adjustments currently installed.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

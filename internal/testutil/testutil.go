// Package testutil holds fakes shared by the service and handler tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
)

// Fixed identities used across tests.
var (
	CompanyID      = id.MustParse("01900000-0000-7000-8000-000000000001")
	BusinessUnitID = id.MustParse("01900000-0000-7000-8000-000000000002")
	OtherCompanyID = id.MustParse("01900000-0000-7000-8000-000000000003")
	OtherUnitID    = id.MustParse("01900000-0000-7000-8000-000000000004")
	UserID         = "test-user-001"
)

// Scope returns the default test scope.
func Scope() tenant.Scope {
	return tenant.Scope{CompanyID: CompanyID, BusinessUnitID: BusinessUnitID, UserID: UserID}
}

// OtherScope returns a scope of an unrelated company.
func OtherScope() tenant.Scope {
	return tenant.Scope{CompanyID: OtherCompanyID, BusinessUnitID: OtherUnitID, UserID: "other-user"}
}

// Snapshotter is implemented by in-memory stores that can roll back.
type Snapshotter interface {
	// Snapshot captures the current state and returns a function that
	// restores it.
	Snapshot() (restore func())
}

type txKey struct{}

// TxManager runs units of work against in-memory stores. A failed outermost
// unit restores every store to its state before the unit began; nested
// units join the outer one.
type TxManager struct {
	mu        sync.Mutex
	stores    []Snapshotter
	Commits   int
	Rollbacks int
}

// NewTxManager creates a tx manager over stores.
func NewTxManager(stores ...Snapshotter) *TxManager {
	return &TxManager{stores: stores}
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		m.mu.Lock()
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Numerator hands out sequential document numbers per company and prefix.
type Numerator struct {
	mu  sync.Mutex
	seq map[string]int64
	Err error
}

// NewNumerator creates a numerator fake.
func NewNumerator() *Numerator {
	return &Numerator{seq: make(map[string]int64)}
}

// Next implements numerator.Generator.
func (n *Numerator) Next(_ context.Context, companyID id.ID, prefix string, period time.Time) (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	key := fmt.Sprintf("%s:%s_%d", companyID, prefix, period.Year())
	n.seq[key]++
	return fmt.Sprintf("%s-%d-%05d", prefix, period.Year(), n.seq[key]), nil
}

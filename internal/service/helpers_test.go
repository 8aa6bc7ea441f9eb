package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/pharma-contracts/internal/config"
	"github.com/nurpe/pharma-contracts/internal/ledger"
	"github.com/nurpe/pharma-contracts/internal/lock"
	"github.com/nurpe/pharma-contracts/internal/metrics"
	"github.com/nurpe/pharma-contracts/internal/model"
	"github.com/nurpe/pharma-contracts/internal/repository"
)

var (
	employee = model.Principal{UserID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Role: model.RoleEmployee}
	manager  = model.Principal{UserID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Role: model.RoleManager}
	stranger = model.Principal{UserID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Role: model.RoleEmployee}
	fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func priced(id string, p int64) model.PricedItem {
	return model.PricedItem{MedicineID: model.MedicineID(id), UnitPrice: decimal.NewFromInt(p)}
}

func newStore() *repository.Memory {
	store := repository.NewMemory()
	for _, id := range []model.MedicineID{"M1", "M2", "M3", "M4", "M5"} {
		store.PutMedicine(model.Medicine{ID: id, Name: string(id), Active: true})
	}
	return store
}

func newService(t *testing.T, store ContractStore, medicines MedicineLookup) *ContractService {
	t.Helper()
	cfg := &config.Config{Ledger: config.LedgerConfig{MaxRetries: 3}}
	return NewContractService(
		store,
		medicines,
		lock.NewKeyedMutex(time.Second),
		cfg,
		zerolog.Nop(),
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(metrics.NewLedger(prometheus.NewRegistry())),
	)
}

func principalInput(t *testing.T, code string) ContractInput {
	return ContractInput{
		Code:             code,
		Kind:             model.ContractKindPrincipal,
		CounterpartyID:   uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		CounterpartyKind: model.CounterpartySupplier,
		StartDate:        day(t, "2025-01-01"),
		EndDate:          day(t, "2025-12-31"),
		Items: []model.ContractItem{
			{MedicineID: "M1", UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

// activeContract creates and approves a principal contract with base
// items [(M1, 100)] ending 2025-12-31.
func activeContract(t *testing.T, svc *ContractService, code string) *model.Contract {
	t.Helper()
	ctx := context.Background()
	c, err := svc.CreateContract(ctx, employee, principalInput(t, code))
	if err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	c, err = svc.DecideContract(ctx, manager, c.ID, model.ContractStatusActive)
	if err != nil {
		t.Fatalf("DecideContract: %v", err)
	}
	return c
}

func hasCode(vs []ledger.Violation, code string) bool {
	for _, v := range vs {
		if v.Code == code {
			return true
		}
	}
	return false
}

func effectivePrice(t *testing.T, state *EffectiveState, id model.MedicineID) (decimal.Decimal, bool) {
	t.Helper()
	for _, item := range state.Items {
		if item.MedicineID == id {
			return item.UnitPrice, true
		}
	}
	return decimal.Decimal{}, false
}

// conflictingStore fails the next n saves with a version conflict.
type conflictingStore struct {
	*repository.Memory
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, c *model.Contract) error {
	s.mu.Lock()
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return repository.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.Memory.Save(ctx, c)
}

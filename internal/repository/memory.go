package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nurpe/pharma-contracts/internal/model"
)

// Memory is a process-local store with the same version semantics as the
// SQL repositories. Values are copied in and out, so callers never share
// state with the store.
type Memory struct {
	mu        sync.RWMutex
	contracts map[uuid.UUID]*model.Contract
	medicines map[model.MedicineID]model.Medicine
}

func NewMemory(medicines ...model.Medicine) *Memory {
	m := &Memory{
		contracts: make(map[uuid.UUID]*model.Contract),
		medicines: make(map[model.MedicineID]model.Medicine, len(medicines)),
	}
	for _, med := range medicines {
		m.medicines[med.ID] = med
	}
	return m
}

func (m *Memory) PutMedicine(med model.Medicine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.medicines[med.ID] = med
}

func (m *Memory) ExistingIDs(_ context.Context, ids []model.MedicineID) ([]model.MedicineID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]model.MedicineID, 0, len(ids))
	for _, id := range ids {
		if med, ok := m.medicines[id]; ok && med.Active {
			result = append(result, id)
		}
	}
	return result, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) List(_ context.Context, filter ContractFilter) ([]model.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]model.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		if filter.matches(c) {
			result = append(result, *c.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Code < result[j].Code
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []model.Contract{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *Memory) ListByStatus(ctx context.Context, status model.ContractStatus) ([]model.Contract, error) {
	return m.List(ctx, ContractFilter{Status: status})
}

func (m *Memory) Create(_ context.Context, c *model.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[c.ID]; ok {
		return ErrVersionConflict
	}
	if m.codeTaken(c.Code, c.ID) {
		return ErrDuplicateCode
	}
	stored := c.Clone()
	stored.Version = 1
	m.contracts[c.ID] = stored
	c.Version = 1
	return nil
}

func (m *Memory) Save(_ context.Context, c *model.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.contracts[c.ID]
	if !ok || current.Version != c.Version {
		return ErrVersionConflict
	}
	if m.codeTaken(c.Code, c.ID) {
		return ErrDuplicateCode
	}
	stored := c.Clone()
	stored.Version = c.Version + 1
	m.contracts[c.ID] = stored
	c.Version = stored.Version
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.contracts[id]
	if !ok || current.Version != version {
		return ErrVersionConflict
	}
	delete(m.contracts, id)
	return nil
}

func (m *Memory) codeTaken(code string, self uuid.UUID) bool {
	for id, c := range m.contracts {
		if id != self && c.Code == code {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/pharma-contracts/internal/config"
	"github.com/nurpe/pharma-contracts/internal/ledger"
	"github.com/nurpe/pharma-contracts/internal/lock"
	"github.com/nurpe/pharma-contracts/internal/metrics"
	"github.com/nurpe/pharma-contracts/internal/model"
	"github.com/nurpe/pharma-contracts/internal/repository"
)

type ContractStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	List(ctx context.Context, filter repository.ContractFilter) ([]model.Contract, error)
	ListByStatus(ctx context.Context, status model.ContractStatus) ([]model.Contract, error)
	Create(ctx context.Context, c *model.Contract) error
	Save(ctx context.Context, c *model.Contract) error
	Delete(ctx context.Context, id uuid.UUID, version int64) error
}

// MedicineLookup answers which of the given ids name known medicines.
type MedicineLookup interface {
	ExistingIDs(ctx context.Context, ids []model.MedicineID) ([]model.MedicineID, error)
}

type ContractService struct {
	contracts  ContractStore
	medicines  MedicineLookup
	locker     lock.Locker
	metrics    *metrics.Ledger
	log        zerolog.Logger
	maxRetries int
	now        func() time.Time
}

type Option func(*ContractService)

func WithClock(now func() time.Time) Option {
	return func(s *ContractService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Ledger) Option {
	return func(s *ContractService) {
		s.metrics = m
	}
}

func NewContractService(
	contracts ContractStore,
	medicines MedicineLookup,
	locker lock.Locker,
	cfg *config.Config,
	log zerolog.Logger,
	opts ...Option,
) *ContractService {
	s := &ContractService{
		contracts:  contracts,
		medicines:  medicines,
		locker:     locker,
		log:        log.With().Str("component", "contract_service").Logger(),
		maxRetries: cfg.Ledger.MaxRetries,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ContractInput struct {
	Code             string
	Kind             model.ContractKind
	CounterpartyID   uuid.UUID
	CounterpartyKind model.CounterpartyKind
	StartDate        time.Time
	EndDate          time.Time
	Items            []model.ContractItem
	Annexes          []model.AnnexDraft
}

type EffectiveState struct {
	ContractID uuid.UUID
	AsOf       *time.Time
	Items      []model.ContractItem
	EndDate    time.Time
	Applied    []string
}

func (s *ContractService) CreateContract(ctx context.Context, actor model.Principal, input ContractInput) (c *model.Contract, err error) {
	defer func() { s.record("create_contract", uuid.Nil, err) }()

	now := s.now()
	c = &model.Contract{
		ID:        uuid.New(),
		Status:    model.ContractStatusDraft,
		OwnerID:   actor.UserID,
		CreatedAt: now,
	}
	applyInput(c, input, nil, actor, now)

	if err := s.validateContract(ctx, c); err != nil {
		return nil, err
	}
	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, mapStoreError(err, c)
	}
	return c, nil
}

// UpdateContract replaces the terms and bundled annexes of a draft or
// rejected contract. A rejected contract is resubmitted as draft.
func (s *ContractService) UpdateContract(ctx context.Context, actor model.Principal, id uuid.UUID, input ContractInput) (result *model.Contract, err error) {
	defer func() { s.record("update_contract", id, err) }()

	err = s.withContract(ctx, "update_contract", id, func(current *model.Contract) error {
		if err := ledger.CanEdit(current, actor); err != nil {
			return err
		}
		now := s.now()
		next := current.Clone()
		applyInput(next, input, current.Annexes, actor, now)
		next.Status = model.ContractStatusDraft

		if err := s.validateContract(ctx, next); err != nil {
			return err
		}
		if err := s.contracts.Save(ctx, next); err != nil {
			return mapStoreError(err, next)
		}
		result = next
		return nil
	})
	return result, err
}

func (s *ContractService) DeleteContract(ctx context.Context, actor model.Principal, id uuid.UUID) (err error) {
	defer func() { s.record("delete_contract", id, err) }()

	return s.withContract(ctx, "delete_contract", id, func(current *model.Contract) error {
		if err := ledger.CanEdit(current, actor); err != nil {
			return err
		}
		return s.contracts.Delete(ctx, id, current.Version)
	})
}

func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.load(ctx, id)
}

func (s *ContractService) ListContracts(ctx context.Context, filter repository.ContractFilter) ([]model.Contract, error) {
	return s.contracts.List(ctx, filter)
}

func (s *ContractService) DecideContract(ctx context.Context, actor model.Principal, id uuid.UUID, decision model.ContractStatus) (result *model.Contract, err error) {
	defer func() { s.record("decide_contract", id, err) }()

	err = s.withContract(ctx, "decide_contract", id, func(current *model.Contract) error {
		next, err := ledger.DecideContract(current, decision, actor, s.now())
		if err != nil {
			return err
		}
		if err := s.contracts.Save(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (s *ContractService) ProposeAnnex(ctx context.Context, actor model.Principal, id uuid.UUID, draft model.AnnexDraft) (annex model.Annex, err error) {
	defer func() { s.record("propose_annex", id, err) }()

	unknown, err := s.unknownMedicines(ctx, annexRefs(draft.Code, draft.Changes))
	if err != nil {
		return model.Annex{}, err
	}

	err = s.withContract(ctx, "propose_annex", id, func(current *model.Contract) error {
		next, proposed, err := ledger.Propose(current, draft, actor, s.now())
		if err = mergeViolations(err, unknown); err != nil {
			return err
		}
		if err := s.contracts.Save(ctx, next); err != nil {
			return err
		}
		annex = proposed
		return nil
	})
	return annex, err
}

func (s *ContractService) ReviseAnnex(ctx context.Context, actor model.Principal, id uuid.UUID, code string, draft model.AnnexDraft) (annex model.Annex, err error) {
	defer func() { s.record("revise_annex", id, err) }()

	unknown, err := s.unknownMedicines(ctx, annexRefs(code, draft.Changes))
	if err != nil {
		return model.Annex{}, err
	}

	err = s.withContract(ctx, "revise_annex", id, func(current *model.Contract) error {
		next, revised, err := ledger.Revise(current, code, draft, actor, s.now())
		if err = mergeViolations(err, unknown); err != nil {
			return err
		}
		if err := s.contracts.Save(ctx, next); err != nil {
			return err
		}
		annex = revised
		return nil
	})
	return annex, err
}

func (s *ContractService) DecideAnnex(ctx context.Context, actor model.Principal, id uuid.UUID, code string, decision model.AnnexStatus) (result *model.Contract, err error) {
	defer func() { s.record("decide_annex", id, err) }()

	err = s.withContract(ctx, "decide_annex", id, func(current *model.Contract) error {
		next, err := ledger.DecideAnnex(current, code, decision, actor, s.now())
		if err != nil {
			return err
		}
		if err := s.contracts.Save(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (s *ContractService) WithdrawAnnex(ctx context.Context, actor model.Principal, id uuid.UUID, code string) (result *model.Contract, err error) {
	defer func() { s.record("withdraw_annex", id, err) }()

	err = s.withContract(ctx, "withdraw_annex", id, func(current *model.Contract) error {
		next, err := ledger.Withdraw(current, code, actor, s.now())
		if err != nil {
			return err
		}
		if err := s.contracts.Save(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// GetEffectiveState folds the active annexes of a contract onto its base.
// A nil asOf means every active annex regardless of signed date.
func (s *ContractService) GetEffectiveState(ctx context.Context, id uuid.UUID, asOf *time.Time) (*EffectiveState, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var state ledger.State
	if asOf != nil {
		day := ledger.DateOnly(*asOf)
		asOf = &day
		state = ledger.AsOf(c, day)
	} else {
		state = ledger.Current(c)
	}
	return &EffectiveState{
		ContractID: c.ID,
		AsOf:       asOf,
		Items:      state.Items,
		EndDate:    state.EndDate,
		Applied:    state.Applied,
	}, nil
}

// ExpireDue moves every active contract whose effective end date lies
// before asOf to expired. Each contract is expired under its own lock; a
// failure on one does not stop the sweep.
func (s *ContractService) ExpireDue(ctx context.Context, actor model.Principal, asOf time.Time) ([]model.Contract, error) {
	if !actor.IsManager() {
		err := fmt.Errorf("%w: role %s required to expire contracts", ErrPermissionDenied, model.RoleManager)
		s.record("expire_contracts", uuid.Nil, err)
		return nil, err
	}

	candidates, err := s.contracts.ListByStatus(ctx, model.ContractStatusActive)
	if err != nil {
		return nil, err
	}

	expired := make([]model.Contract, 0)
	var errs []error
	for _, candidate := range candidates {
		if _, due := ledger.Expire(&candidate, asOf); !due {
			continue
		}
		id := candidate.ID
		err := s.withContract(ctx, "expire_contract", id, func(current *model.Contract) error {
			next, changed := ledger.Expire(current, asOf)
			if !changed {
				return nil
			}
			if err := s.contracts.Save(ctx, next); err != nil {
				return err
			}
			expired = append(expired, *next)
			return nil
		})
		s.record("expire_contract", id, err)
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("expire %s: %w", candidate.Code, err))
		}
	}
	return expired, errors.Join(errs...)
}

// withContract runs fn on a fresh read of the contract while holding its
// lock. A version conflict on commit re-runs fn from a new read, up to
// maxRetries times.
func (s *ContractService) withContract(ctx context.Context, op string, id uuid.UUID, fn func(current *model.Contract) error) error {
	release, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
		}
		return err
	}
	defer release()

	for attempt := 0; ; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		err = fn(current)
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("%w: contract %s changed %d times during %s", ErrConcurrentUpdate, id, attempt+1, op)
		}
		s.metrics.Retry(op)
		s.log.Debug().Str("operation", op).Str("contract_id", id.String()).Int("attempt", attempt+1).Msg("version conflict, retrying")
	}
}

func (s *ContractService) load(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	c, err := s.contracts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

func (s *ContractService) validateContract(ctx context.Context, c *model.Contract) error {
	refs := make([]medicineRef, 0, len(c.Items))
	for i, item := range c.Items {
		refs = append(refs, medicineRef{id: item.MedicineID, field: fmt.Sprintf("items[%d]", i)})
	}
	for _, annex := range c.Annexes {
		refs = append(refs, annexRefs(annex.Code, annex.Changes)...)
	}
	unknown, err := s.unknownMedicines(ctx, refs)
	if err != nil {
		return err
	}

	violations := append(ledger.ValidateContract(c), unknown...)
	return ledger.Invalid(violations)
}

func (s *ContractService) record(op string, id uuid.UUID, err error) {
	outcome := outcomeOf(err)
	s.metrics.Observe(op, outcome)

	var event *zerolog.Event
	switch outcome {
	case metrics.OutcomeOK:
		event = s.log.Info()
	case metrics.OutcomeError:
		event = s.log.Error().Err(err)
	default:
		event = s.log.Warn().Str("reason", err.Error())
		if vs := ledger.Violations(err); len(vs) > 0 {
			event = event.Int("violations", len(vs))
		}
	}
	if id != uuid.Nil {
		event = event.Str("contract_id", id.String())
	}
	event.Str("operation", op).Str("outcome", outcome).Msg("ledger operation")
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrInvalidInput):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrPermissionDenied):
		return metrics.OutcomePermission
	case errors.Is(err, ErrInvalidState):
		return metrics.OutcomeState
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrConcurrentUpdate):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

// applyInput copies caller terms onto c. Existing bundled annexes keep
// their identity when the code is reused.
func applyInput(c *model.Contract, input ContractInput, existing []model.Annex, actor model.Principal, now time.Time) {
	c.Code = input.Code
	c.Kind = input.Kind
	c.CounterpartyID = input.CounterpartyID
	c.CounterpartyKind = input.CounterpartyKind
	c.StartDate = ledger.DateOnly(input.StartDate)
	c.EndDate = ledger.DateOnly(input.EndDate)
	c.Items = model.CloneItems(input.Items)
	c.UpdatedAt = now

	previous := make(map[string]model.Annex, len(existing))
	for _, annex := range existing {
		previous[annex.Code] = annex
	}

	c.Annexes = make([]model.Annex, 0, len(input.Annexes))
	for _, draft := range input.Annexes {
		annex := model.Annex{
			ID:        uuid.New(),
			OwnerID:   c.OwnerID,
			CreatedAt: now,
		}
		if old, ok := previous[draft.Code]; ok {
			annex.ID = old.ID
			annex.CreatedAt = old.CreatedAt
		}
		annex.Code = draft.Code
		annex.SignedDate = ledger.DateOnly(draft.SignedDate)
		annex.Changes = draft.Changes.Clone()
		annex.Status = model.AnnexStatusDraft
		annex.Bundled = true
		annex.UpdatedAt = now
		c.Annexes = append(c.Annexes, annex)
	}
	if c.OwnerID == uuid.Nil {
		c.OwnerID = actor.UserID
	}
}

func mapStoreError(err error, c *model.Contract) error {
	if errors.Is(err, repository.ErrDuplicateCode) {
		return ledger.Invalid([]ledger.Violation{{
			Code:    ledger.CodeDuplicateCode,
			Message: fmt.Sprintf("contract code %s already exists", c.Code),
			Field:   "code",
		}})
	}
	return err
}

// mergeViolations folds oracle findings into a ledger result. Permission
// and state errors take precedence over validation.
func mergeViolations(err error, unknown []ledger.Violation) error {
	if err == nil {
		return ledger.Invalid(unknown)
	}
	if len(unknown) == 0 || !errors.Is(err, ErrInvalidInput) {
		return err
	}
	return ledger.Invalid(append(ledger.Violations(err), unknown...))
}

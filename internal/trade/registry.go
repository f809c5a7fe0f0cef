package trade

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ksred/ventil-api/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AcceptResult reports the outcome of an accept toggle. When the toggle
// completed dual acceptance the trade has executed and Execution is set.
type AcceptResult struct {
	Trade     Trade      `json:"trade"`
	Executed  bool       `json:"executed"`
	Execution *Execution `json:"execution,omitempty"`
}

// Registry holds every open trade. One mutex guards the map, the id counter
// and all per-trade mutations, and it stays held across store calls including
// the execution commit, so every operation is totally ordered with respect
// to every other.
type Registry struct {
	mu       sync.Mutex
	trades   map[uint64]*Trade
	lastID   uint64
	store    Store
	executor *Executor
	now      func() time.Time
}

// NewRegistry creates an empty registry. Ids start at 1.
func NewRegistry(store Store, executor *Executor) *Registry {
	return &Registry{
		trades:   make(map[uint64]*Trade),
		store:    store,
		executor: executor,
		now:      time.Now,
	}
}

// Create opens a trade between two distinct existing owners
func (r *Registry) Create(ctx context.Context, trader1, trader2 uint) (Trade, error) {
	logger := log.With().
		Uint("trader_1_id", trader1).
		Uint("trader_2_id", trader2).
		Str("service", "trade").
		Logger()

	if trader1 == trader2 {
		return Trade{}, r.reject(logger, "create", sameTraderTwice(trader1))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range []uint{trader1, trader2} {
		owner, err := r.store.FindOwnerByID(ctx, id)
		if err != nil {
			logger.Error().Err(err).Msg("failed to look up trader")
			return Trade{}, err
		}
		if owner == nil {
			return Trade{}, r.reject(logger, "create", ownerNotFound(id))
		}
	}

	r.lastID++
	t := newTrade(r.lastID, trader1, trader2, r.now())
	r.trades[t.ID] = t

	observability.RecordTradeEvent(observability.EventCreated)
	observability.SetOpenTrades(len(r.trades))
	logger.Info().Uint64("trade_id", t.ID).Msg("trade created")

	return t.Snapshot(), nil
}

// Get returns a snapshot of the trade
func (r *Registry) Get(id uint64) (Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return Trade{}, tradeNotFound(id)
	}
	return t.Snapshot(), nil
}

// WithTrade runs fn against the live trade while holding the registry lock.
// fn must not call back into the registry.
func (r *Registry) WithTrade(id uint64, fn func(t *Trade) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return tradeNotFound(id)
	}
	return fn(t)
}

// Remove deletes the trade and returns its final state
func (r *Registry) Remove(id uint64) (Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(id)
}

// List returns snapshots of every open trade ordered by id
func (r *Registry) List() []Trade {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Trade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, t.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of open trades
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

// AddItem offers possessionID on behalf of ownerID. The possession must
// currently belong to ownerID. Both accept flags are cleared.
func (r *Registry) AddItem(ctx context.Context, id uint64, ownerID, possessionID uint) (Trade, error) {
	logger := r.logger(id).With().
		Uint("owner_id", ownerID).
		Uint("possession_id", possessionID).
		Logger()

	var snapshot Trade
	err := r.WithTrade(id, func(t *Trade) error {
		owner, err := r.store.FindOwnerByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return ownerNotFound(ownerID)
		}
		if !t.IsParty(ownerID) {
			return traderNotInTrade(ownerID, id)
		}

		possession, err := r.store.FindPossessionByID(ctx, possessionID)
		if err != nil {
			return err
		}
		if possession == nil {
			return possessionNotFound(possessionID)
		}
		if possession.OwnerID != ownerID {
			return ownershipMismatch(possessionID, ownerID)
		}

		t.AddItem(ownerID, possessionID)
		snapshot = t.Snapshot()
		return nil
	})
	if err != nil {
		return Trade{}, r.reject(logger, "add_item", err)
	}

	logger.Info().Msg("item added to trade")
	return snapshot, nil
}

// RemoveItem withdraws the first occurrence of possessionID from ownerID's
// offer. Both accept flags are cleared.
func (r *Registry) RemoveItem(ctx context.Context, id uint64, ownerID, possessionID uint) (Trade, error) {
	logger := r.logger(id).With().
		Uint("owner_id", ownerID).
		Uint("possession_id", possessionID).
		Logger()

	var snapshot Trade
	err := r.WithTrade(id, func(t *Trade) error {
		if !t.IsParty(ownerID) {
			return traderNotInTrade(ownerID, id)
		}
		if !t.RemoveItem(ownerID, possessionID) {
			return itemNotOffered(possessionID, ownerID)
		}
		snapshot = t.Snapshot()
		return nil
	})
	if err != nil {
		return Trade{}, r.reject(logger, "remove_item", err)
	}

	logger.Info().Msg("item removed from trade")
	return snapshot, nil
}

// AcceptToggle flips ownerID's acceptance. If that leaves both sides
// accepted the trade is executed before the lock is released and, on
// success, removed from the registry. On execution failure the trade stays
// open with both flags set so the caller can retry through Execute.
func (r *Registry) AcceptToggle(ctx context.Context, id uint64, ownerID uint) (*AcceptResult, error) {
	logger := r.logger(id).With().Uint("owner_id", ownerID).Logger()

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return nil, r.reject(logger, "accept", tradeNotFound(id))
	}

	owner, err := r.store.FindOwnerByID(ctx, ownerID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to look up owner")
		return nil, err
	}
	if owner == nil {
		return nil, r.reject(logger, "accept", ownerNotFound(ownerID))
	}
	if !t.ToggleAccept(ownerID) {
		return nil, r.reject(logger, "accept", traderNotInTrade(ownerID, id))
	}

	logger.Info().
		Bool("trader_1_accept", t.Trader1.Accepted).
		Bool("trader_2_accept", t.Trader2.Accepted).
		Msg("trade acceptance updated")

	if !t.BothAccepted() {
		return &AcceptResult{Trade: t.Snapshot()}, nil
	}

	return r.executeLocked(ctx, logger, t)
}

// Execute retries execution of a trade both sides still accept, typically
// after a previous attempt returned an execution failure
func (r *Registry) Execute(ctx context.Context, id uint64) (*AcceptResult, error) {
	logger := r.logger(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return nil, r.reject(logger, "execute", tradeNotFound(id))
	}
	if !t.BothAccepted() {
		return nil, r.reject(logger, "execute", notAccepted(id))
	}

	return r.executeLocked(ctx, logger, t)
}

// Cancel removes an open trade. A second cancel of the same id fails with
// NotFound.
func (r *Registry) Cancel(id uint64) (Trade, error) {
	logger := r.logger(id)

	t, err := r.Remove(id)
	if err != nil {
		return Trade{}, r.reject(logger, "cancel", err)
	}

	observability.RecordTradeEvent(observability.EventCancelled)
	logger.Info().Msg("trade cancelled")
	return t, nil
}

func (r *Registry) executeLocked(ctx context.Context, logger zerolog.Logger, t *Trade) (*AcceptResult, error) {
	start := time.Now()
	exec, err := r.executor.Execute(ctx, t)
	observability.RecordExecutionDuration(time.Since(start))
	if err != nil {
		observability.RecordTradeEvent(observability.EventExecutionFailed)
		logger.Error().Err(err).Msg("trade execution failed, trade left open")
		return nil, executionFailure(t.ID, err)
	}

	final, err := r.removeLocked(t.ID)
	if err != nil {
		// Unreachable while the lock is held
		return nil, err
	}

	observability.RecordTradeEvent(observability.EventExecuted)
	return &AcceptResult{Trade: final, Executed: true, Execution: exec}, nil
}

func (r *Registry) removeLocked(id uint64) (Trade, error) {
	t, ok := r.trades[id]
	if !ok {
		return Trade{}, tradeNotFound(id)
	}
	delete(r.trades, id)
	observability.SetOpenTrades(len(r.trades))
	return t.Snapshot(), nil
}

func (r *Registry) logger(id uint64) zerolog.Logger {
	return log.With().
		Uint64("trade_id", id).
		Str("service", "trade").
		Logger()
}

// reject records a validation failure and passes err through
func (r *Registry) reject(logger zerolog.Logger, operation string, err error) error {
	reason := ReasonOf(err)
	if reason == "" {
		logger.Error().Err(err).Str("operation", operation).Msg("trade operation failed")
		return err
	}
	observability.RecordRejection(operation, string(reason))
	logger.Warn().Err(err).Str("operation", operation).Msg("trade operation rejected")
	return err
}

package trade

import (
	"context"
	"errors"
	"sync"

	"github.com/ksred/ventil-api/internal/types"
)

// mockStore keeps owners and possession ownership in maps. Transactions work
// on a copy of the ownership map that replaces the store map on commit.
type mockStore struct {
	mu          sync.Mutex
	owners      map[uint]bool
	possessions map[uint]uint
	executions  []*types.TradeExecution

	commitErr  error
	recordErr  error
	begun      int
	rolledBack int
}

func newMockStore(owners ...uint) *mockStore {
	m := &mockStore{
		owners:      make(map[uint]bool),
		possessions: make(map[uint]uint),
	}
	for _, id := range owners {
		m.owners[id] = true
	}
	return m
}

func (m *mockStore) addPossession(id, ownerID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.possessions[id] = ownerID
}

func (m *mockStore) deletePossession(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.possessions, id)
}

func (m *mockStore) ownerOf(id uint) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.possessions[id]
}

func (m *mockStore) setCommitErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitErr = err
}

func (m *mockStore) FindOwnerByID(ctx context.Context, id uint) (*types.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.owners[id] {
		return nil, nil
	}
	return &types.Owner{ID: id}, nil
}

func (m *mockStore) FindPossessionByID(ctx context.Context, id uint) (*types.Possession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.possessions[id]
	if !ok {
		return nil, nil
	}
	return &types.Possession{ID: id, OwnerID: owner}, nil
}

func (m *mockStore) Begin(ctx context.Context) (Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begun++

	staged := make(map[uint]uint, len(m.possessions))
	for id, owner := range m.possessions {
		staged[id] = owner
	}
	return &mockTx{store: m, staged: staged}, nil
}

type mockTx struct {
	store    *mockStore
	staged   map[uint]uint
	recorded []*types.TradeExecution
	done     bool
}

func (tx *mockTx) FindPossessionByID(ctx context.Context, id uint) (*types.Possession, error) {
	owner, ok := tx.staged[id]
	if !ok {
		return nil, nil
	}
	return &types.Possession{ID: id, OwnerID: owner}, nil
}

func (tx *mockTx) UpdatePossessionOwner(ctx context.Context, possessionID, newOwnerID uint) error {
	if _, ok := tx.staged[possessionID]; !ok {
		return errors.New("possession vanished")
	}
	tx.staged[possessionID] = newOwnerID
	return nil
}

func (tx *mockTx) RecordExecution(ctx context.Context, rec *types.TradeExecution) error {
	tx.store.mu.Lock()
	err := tx.store.recordErr
	tx.store.mu.Unlock()
	if err != nil {
		return err
	}
	tx.recorded = append(tx.recorded, rec)
	return nil
}

func (tx *mockTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.store.commitErr != nil {
		return tx.store.commitErr
	}
	tx.done = true
	tx.store.possessions = tx.staged
	tx.store.executions = append(tx.store.executions, tx.recorded...)
	return nil
}

func (tx *mockTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.rolledBack++
	return nil
}

package trade

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptedTrade(t1, t2 uint, items1, items2 []uint) *Trade {
	tr := newTrade(1, t1, t2, time.Now())
	tr.Trader1.Items = items1
	tr.Trader2.Items = items2
	tr.Trader1.Accepted = true
	tr.Trader2.Accepted = true
	return tr
}

func TestParseMissingPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MissingPolicy
		wantErr bool
	}{
		{in: "", want: MissingSkip},
		{in: "skip", want: MissingSkip},
		{in: "abort", want: MissingAbort},
		{in: "ignore", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMissingPolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestExecutorSwapsBothOffers(t *testing.T) {
	store := newMockStore(1, 2)
	store.addPossession(10, 1)
	store.addPossession(20, 2)
	store.addPossession(21, 2)
	exec := NewExecutor(store, MissingSkip)
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	exec.now = func() time.Time { return fixed }

	got, err := exec.Execute(context.Background(), acceptedTrade(1, 2, []uint{10}, []uint{20, 21}))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got.ExecutionID, "EXE_"))
	assert.Equal(t, uint64(1), got.TradeID)
	assert.Equal(t, []uint{10}, got.Trader1Gave)
	assert.Equal(t, []uint{20, 21}, got.Trader2Gave)
	assert.Empty(t, got.Skipped)
	assert.Equal(t, fixed, got.ExecutedAt)

	assert.Equal(t, uint(2), store.ownerOf(10))
	assert.Equal(t, uint(1), store.ownerOf(20))
	assert.Equal(t, uint(1), store.ownerOf(21))

	require.Len(t, store.executions, 1)
	rec := store.executions[0]
	assert.Equal(t, got.ExecutionID, rec.ExecutionID)
	assert.Equal(t, []uint{20, 21}, []uint(rec.Trader2Gave))
	assert.Equal(t, fixed, rec.ExecutedAt)
}

func TestExecutorSkipPolicyLeavesOutMissing(t *testing.T) {
	store := newMockStore(1, 2)
	store.addPossession(20, 2)
	exec := NewExecutor(store, MissingSkip)

	got, err := exec.Execute(context.Background(), acceptedTrade(1, 2, []uint{10, 11}, []uint{20}))
	require.NoError(t, err)

	assert.Equal(t, []uint{10, 11}, got.Skipped)
	assert.Empty(t, got.Trader1Gave)
	assert.Equal(t, []uint{20}, got.Trader2Gave)
	assert.Equal(t, uint(1), store.ownerOf(20))
}

func TestExecutorAbortPolicyRollsBack(t *testing.T) {
	store := newMockStore(1, 2)
	store.addPossession(10, 1)
	exec := NewExecutor(store, MissingAbort)

	got, err := exec.Execute(context.Background(), acceptedTrade(1, 2, []uint{10}, []uint{20}))
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrPossessionNotFound)

	assert.Equal(t, uint(1), store.ownerOf(10), "first transfer must be rolled back")
	assert.Equal(t, 1, store.rolledBack)
	assert.Empty(t, store.executions)
}

func TestExecutorRecordFailureRollsBack(t *testing.T) {
	store := newMockStore(1, 2)
	store.addPossession(10, 1)
	store.recordErr = errors.New("constraint failed")
	exec := NewExecutor(store, MissingSkip)

	_, err := exec.Execute(context.Background(), acceptedTrade(1, 2, []uint{10}, nil))
	require.Error(t, err)

	assert.Equal(t, uint(1), store.ownerOf(10))
	assert.Equal(t, 1, store.rolledBack)
}

func TestExecutorCommitFailure(t *testing.T) {
	store := newMockStore(1, 2)
	store.addPossession(10, 1)
	store.commitErr = errors.New("database is locked")
	exec := NewExecutor(store, MissingSkip)

	_, err := exec.Execute(context.Background(), acceptedTrade(1, 2, []uint{10}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	assert.Equal(t, uint(1), store.ownerOf(10))
	assert.Equal(t, 1, store.rolledBack)
}

func TestNewExecutorDefaultsToSkip(t *testing.T) {
	exec := NewExecutor(newMockStore(), "")
	assert.Equal(t, MissingSkip, exec.missing)
}

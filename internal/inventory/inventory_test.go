package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/ventil-api/internal/database"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewService(db), db
}

func TestServiceOwnersAndItems(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	a, err := svc.CreateOwner(ctx)
	require.NoError(t, err)
	b, err := svc.CreateOwner(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	owners, err := svc.ListOwners(ctx)
	require.NoError(t, err)
	assert.Len(t, owners, 2)

	_, err = svc.GetOwner(ctx, 99)
	assert.ErrorIs(t, err, ErrOwnerNotFound)

	item, err := svc.CreateItem(ctx, "kettle")
	require.NoError(t, err)
	assert.Equal(t, "kettle", item.ItemType)

	item, err = svc.UpdateItem(ctx, item.ID, "teapot")
	require.NoError(t, err)
	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "teapot", got.ItemType)

	_, err = svc.UpdateItem(ctx, 99, "x")
	assert.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, svc.DeleteItem(ctx, item.ID))
	assert.ErrorIs(t, svc.DeleteItem(ctx, item.ID), ErrItemNotFound)
}

func TestServicePossessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	alice, err := svc.CreateOwner(ctx)
	require.NoError(t, err)
	bob, err := svc.CreateOwner(ctx)
	require.NoError(t, err)
	rope, err := svc.CreateItem(ctx, "rope")
	require.NoError(t, err)

	p, err := svc.CreatePossession(ctx, PossessionRequest{OwnerID: alice.ID, ItemID: rope.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.OwnerID)
	assert.Equal(t, "rope", p.ItemType)

	_, err = svc.CreatePossession(ctx, PossessionRequest{OwnerID: 99, ItemID: rope.ID})
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, err = svc.CreatePossession(ctx, PossessionRequest{OwnerID: alice.ID, ItemID: 99})
	assert.ErrorIs(t, err, ErrInvalidReference)

	byOwner, err := svc.ListPossessionsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, p.ID, byOwner[0].ID)

	_, err = svc.ListPossessionsByOwner(ctx, 99)
	assert.ErrorIs(t, err, ErrOwnerNotFound)

	moved, err := svc.UpdatePossession(ctx, p.ID, PossessionRequest{OwnerID: bob.ID, ItemID: rope.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, moved.OwnerID)

	byOwner, err = svc.ListPossessionsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, byOwner)

	byItem, err := svc.ListPossessionsByItem(ctx, rope.ID)
	require.NoError(t, err)
	require.Len(t, byItem, 1)
	assert.Equal(t, bob.ID, byItem[0].OwnerID)

	require.NoError(t, svc.DeletePossession(ctx, p.ID))
	_, err = svc.GetPossession(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPossessionNotFound)
}

func TestServiceDeleteOwnerCascades(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	owner, err := svc.CreateOwner(ctx)
	require.NoError(t, err)
	item, err := svc.CreateItem(ctx, "lantern")
	require.NoError(t, err)
	p, err := svc.CreatePossession(ctx, PossessionRequest{OwnerID: owner.ID, ItemID: item.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOwner(ctx, owner.ID))
	assert.ErrorIs(t, svc.DeleteOwner(ctx, owner.ID), ErrOwnerNotFound)

	_, err = svc.GetPossession(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPossessionNotFound)
}

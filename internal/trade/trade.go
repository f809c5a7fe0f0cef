package trade

import (
	"slices"
	"time"
)

// Side is one party's half of a trade: who they are, what they offer and
// whether they currently accept the deal
type Side struct {
	OwnerID  uint   `json:"owner_id"`
	Accepted bool   `json:"accepted"`
	Items    []uint `json:"items"`
}

// Trade is a bilateral negotiation between exactly two distinct owners.
// It is only ever mutated while the owning Registry holds its lock.
type Trade struct {
	ID       uint64    `json:"id"`
	Trader1  Side      `json:"trader_1"`
	Trader2  Side      `json:"trader_2"`
	OpenedAt time.Time `json:"opened_at"`
}

func newTrade(id uint64, trader1, trader2 uint, openedAt time.Time) *Trade {
	return &Trade{
		ID:       id,
		Trader1:  Side{OwnerID: trader1, Items: []uint{}},
		Trader2:  Side{OwnerID: trader2, Items: []uint{}},
		OpenedAt: openedAt,
	}
}

// IsParty reports whether ownerID is one of the two traders
func (t *Trade) IsParty(ownerID uint) bool {
	return t.side(ownerID) != nil
}

// BothAccepted reports whether both traders accept the current offers
func (t *Trade) BothAccepted() bool {
	return t.Trader1.Accepted && t.Trader2.Accepted
}

// Counterparty returns the other trader's id. ownerID must be a party.
func (t *Trade) Counterparty(ownerID uint) uint {
	if t.Trader1.OwnerID == ownerID {
		return t.Trader2.OwnerID
	}
	return t.Trader1.OwnerID
}

// AddItem appends possessionID to ownerID's offer and clears both accept
// flags. Offers are lists, so the same id may appear more than once.
// Returns false when ownerID is not a party.
func (t *Trade) AddItem(ownerID, possessionID uint) bool {
	s := t.side(ownerID)
	if s == nil {
		return false
	}
	s.Items = append(s.Items, possessionID)
	t.resetAcceptance()
	return true
}

// RemoveItem drops the first occurrence of possessionID from ownerID's offer.
// Acceptance is cleared only when something was removed.
func (t *Trade) RemoveItem(ownerID, possessionID uint) bool {
	s := t.side(ownerID)
	if s == nil {
		return false
	}
	i := slices.Index(s.Items, possessionID)
	if i < 0 {
		return false
	}
	s.Items = slices.Delete(s.Items, i, i+1)
	t.resetAcceptance()
	return true
}

// ToggleAccept flips ownerID's own accept flag. It never executes the trade.
func (t *Trade) ToggleAccept(ownerID uint) bool {
	s := t.side(ownerID)
	if s == nil {
		return false
	}
	s.Accepted = !s.Accepted
	return true
}

// Snapshot returns a deep copy that is safe to read after the lock is released
func (t *Trade) Snapshot() Trade {
	c := *t
	c.Trader1.Items = slices.Clone(t.Trader1.Items)
	c.Trader2.Items = slices.Clone(t.Trader2.Items)
	return c
}

func (t *Trade) side(ownerID uint) *Side {
	switch ownerID {
	case t.Trader1.OwnerID:
		return &t.Trader1
	case t.Trader2.OwnerID:
		return &t.Trader2
	}
	return nil
}

func (t *Trade) resetAcceptance() {
	t.Trader1.Accepted = false
	t.Trader2.Accepted = false
}

package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drakos74/goldmind/internal/model"
	"github.com/drakos74/goldmind/internal/storage"
	"github.com/drakos74/goldmind/internal/storage/jsonstore"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("test-account", storage.VoidShard())
	require.NoError(t, err)
	return store
}

func open(ticket string, tt model.Type) model.Position {
	return model.Position{
		Ticket:    ticket,
		Symbol:    "GOLD",
		Type:      tt,
		Volume:    0.01,
		OpenPrice: 2000,
		OpenTime:  time.Now(),
	}
}

func closed(ticket string, tt model.Type, profit float64, closeTime time.Time) model.Position {
	p := open(ticket, tt)
	p.Closed = true
	p.Profit = profit
	p.CloseTime = closeTime
	return p
}

func TestStore_SingleOpenPosition(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Create(open("AUTO-1", model.Buy)))

	err := store.Create(open("AUTO-2", model.Buy))
	assert.ErrorIs(t, err, ErrOpenPosition)

	// closed records are always welcome
	assert.NoError(t, store.Create(closed("T-1", model.Sell, 1.5, time.Now())))
}

func TestStore_DuplicateTicket(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Create(closed("T-1", model.Buy, 1, time.Now())))
	assert.Error(t, store.Create(closed("T-1", model.Buy, 1, time.Now())))
}

func TestStore_ClosedNeverReopens(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Create(closed("T-1", model.Buy, 1, time.Now())))

	reopened := open("T-1", model.Buy)
	assert.ErrorIs(t, store.Update("T-1", reopened), ErrClosedPosition)
	assert.ErrorIs(t, store.UpdateStop("T-1", 1999), ErrClosedPosition)
}

func TestStore_UpdateStop(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Create(open("AUTO-1", model.Buy)))
	require.NoError(t, store.UpdateStop("AUTO-1", 2000.20))

	p, ok := store.ByTicket("AUTO-1")
	require.True(t, ok)
	assert.Equal(t, 2000.20, p.StopLoss)

	assert.ErrorIs(t, store.UpdateStop("AUTO-404", 2000), ErrUnknownTicket)
}

func TestStore_OldestPlaceholder(t *testing.T) {
	store := newStore(t)

	older := open("AUTO-old", model.Buy)
	older.OpenTime = time.Now().Add(-time.Hour)
	older.Closed = true
	require.NoError(t, store.Create(older))

	newer := open("AUTO-new", model.Buy)
	require.NoError(t, store.Create(newer))

	// adopted real tickets never match again
	require.NoError(t, store.Create(closed("T-9", model.Buy, 1, time.Now())))

	// open placeholders win over ones already closed by a risk command
	match, ok := store.OldestPlaceholder("GOLD", model.Buy, 0.01)
	require.True(t, ok)
	assert.Equal(t, "AUTO-new", match.Ticket)

	// shape must match exactly
	_, ok = store.OldestPlaceholder("GOLD", model.Sell, 0.01)
	assert.False(t, ok)
	_, ok = store.OldestPlaceholder("SILVER", model.Buy, 0.01)
	assert.False(t, ok)
	_, ok = store.OldestPlaceholder("GOLD", model.Buy, 0.02)
	assert.False(t, ok)

	// once the open one is adopted the closed placeholder is next
	adopted := match
	adopted.Ticket = "T-10"
	adopted.Closed = true
	adopted.CloseTime = time.Now()
	require.NoError(t, store.Update("AUTO-new", adopted))

	match, ok = store.OldestPlaceholder("GOLD", model.Buy, 0.01)
	require.True(t, ok)
	assert.Equal(t, "AUTO-old", match.Ticket)
}

func TestStore_RecentClosed(t *testing.T) {
	store := newStore(t)

	now := time.Now()
	require.NoError(t, store.Create(closed("T-1", model.Buy, 1, now.Add(-3*time.Hour))))
	require.NoError(t, store.Create(closed("T-2", model.Buy, -2, now.Add(-2*time.Hour))))
	require.NoError(t, store.Create(closed("T-3", model.Sell, 3, now.Add(-time.Hour))))
	require.NoError(t, store.Create(open("AUTO-1", model.Buy)))

	recent := store.RecentClosed(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "T-3", recent[0].Ticket)
	assert.Equal(t, "T-2", recent[1].Ticket)

	last := store.LastClosed()
	require.NotNil(t, last)
	assert.Equal(t, "T-3", last.Ticket)
}

func TestStore_LastClosedEmpty(t *testing.T) {
	store := newStore(t)
	assert.Nil(t, store.LastClosed())
}

func TestStore_PersistsAcrossRestarts(t *testing.T) {
	storage.DefaultDir = t.TempDir()
	shard := jsonstore.BlobShard("goldmind")

	store, err := NewStore("test-account", shard)
	require.NoError(t, err)
	require.NoError(t, store.Create(open("AUTO-1", model.Buy)))
	require.NoError(t, store.Create(closed("T-1", model.Sell, 2.5, time.Now())))

	reloaded, err := NewStore("test-account", shard)
	require.NoError(t, err)

	p, ok := reloaded.Open()
	require.True(t, ok)
	assert.Equal(t, "AUTO-1", p.Ticket)
	assert.Equal(t, "test-account", p.Account)
	require.NotNil(t, reloaded.LastClosed())
	assert.Equal(t, "T-1", reloaded.LastClosed().Ticket)
}

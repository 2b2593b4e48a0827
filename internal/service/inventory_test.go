package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

func TestReceive_AddsStockAndLedgers(t *testing.T) {
	st := newStore()
	svc := NewInventory(st, testLogger())
	seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 10)
	ctx := context.Background()

	mov, err := svc.Receive(ctx, art.ID, 15, 300, "supplier intake")
	require.NoError(t, err)

	assert.Equal(t, inventory.OpIn, mov.Op)
	assert.Equal(t, int64(10), mov.StockBefore)
	assert.Equal(t, int64(25), mov.StockAfter)
	assert.Equal(t, int64(15), mov.Signed())

	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), a.Stock)
}

func TestReceive_RespectsMaxStock(t *testing.T) {
	st := newStore()
	svc := NewInventory(st, testLogger())
	seedWarehouse(t, st)
	ctx := context.Background()

	art := catalog.Article{Code: "A-1", WarehouseID: 1, Stock: 90, MaxStock: 100}
	require.NoError(t, st.CreateArticle(ctx, &art))

	_, err := svc.Receive(ctx, art.ID, 20, 300, "")
	require.ErrorIs(t, err, inventory.ErrMaxStockExceeded)

	var maxErr *inventory.MaxStockError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, int64(100), maxErr.Max)
	assert.Equal(t, int64(110), maxErr.Resulting)

	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), a.Stock, "failed receive must not change stock")

	// zero max means unbounded
	unbounded := catalog.Article{Code: "A-2", WarehouseID: 1, Stock: 90}
	require.NoError(t, st.CreateArticle(ctx, &unbounded))
	_, err = svc.Receive(ctx, unbounded.ID, 100000, 300, "")
	require.NoError(t, err)
}

func TestIssue_RemovesStockAndLedgers(t *testing.T) {
	st := newStore()
	svc := NewInventory(st, testLogger())
	seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 10)
	ctx := context.Background()

	mov, err := svc.Issue(ctx, art.ID, 4, 300, "breakage")
	require.NoError(t, err)
	assert.Equal(t, inventory.OpOut, mov.Op)
	assert.Equal(t, int64(-4), mov.Signed())

	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), a.Stock)
}

func TestIssue_RefusesOverdraw(t *testing.T) {
	st := newStore()
	svc := NewInventory(st, testLogger())
	seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 3)
	ctx := context.Background()

	_, err := svc.Issue(ctx, art.ID, 4, 300, "")
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	movs, err := st.Movements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestMove_RejectsNonPositiveQuantities(t *testing.T) {
	st := newStore()
	svc := NewInventory(st, testLogger())

	_, err := svc.Receive(context.Background(), 1, 0, 300, "")
	assertValidationCode(t, err, requests.CodeNegative)

	_, err = svc.Issue(context.Background(), 1, -2, 300, "")
	assertValidationCode(t, err, requests.CodeNegative)
}

func TestInventoryHistory_NewestFirst(t *testing.T) {
	st := newStore()
	svc := NewInventory(st, testLogger())
	seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 0)
	ctx := context.Background()

	for _, qty := range []int64{5, 7, 2} {
		_, err := svc.Receive(ctx, art.ID, qty, 300, "")
		require.NoError(t, err)
	}

	movs, err := svc.History(ctx, art.ID, 2)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, int64(2), movs[0].Qty)
	assert.Equal(t, int64(7), movs[1].Qty)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcontrerasv/almacen/internal/domain/deliveries"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/storage/memory"
)

func newDeliveryEnv(t *testing.T) (*memory.Store, *Requests, *Deliveries) {
	t.Helper()
	st := newStore()
	log := testLogger()
	d := NewDeliveries(st, log)
	d.now = func() time.Time {
		return time.Date(2025, time.August, 30, 10, 0, 0, 0, time.UTC)
	}
	return st, NewRequests(st, log), d
}

func TestCreateDelivery_FullDispatch(t *testing.T) {
	st, reqSvc, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 50)
	ctx := context.Background()

	req := newArticleRequest(t, reqSvc, whID, []int64{art.ID}, []int64{10})
	approveAll(t, st, reqSvc, req.ID, 200)
	lines, err := st.LinesByRequest(ctx, req.ID)
	require.NoError(t, err)

	dlv, err := dlvSvc.Create(ctx, CreateDelivery{
		Kind:        requests.KindArticle,
		WarehouseID: &whID,
		DeliveredBy: 300,
		ReceivedBy:  100,
		RequestID:   &req.ID,
		Lines: []DeliveryLine{{
			Item:          requests.ArticleRef(art.ID),
			Quantity:      10,
			RequestLineID: &lines[0].ID,
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "DLV-ART-20250830-001", dlv.Number)
	assert.Equal(t, deliveries.StatusDispatched, dlv.Status)

	// stock decremented and ledgered
	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), a.Stock)

	movs, err := st.MovementsByArticle(ctx, art.ID, 10)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, inventory.OpOut, movs[0].Op)
	assert.Equal(t, int64(50), movs[0].StockBefore)
	assert.Equal(t, int64(40), movs[0].StockAfter)
	assert.Equal(t, "delivery "+dlv.Number, movs[0].Reason)

	// line counter advanced, request closed
	lines, err = st.LinesByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), lines[0].Dispatched)

	got, err := st.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StateDispatched, got.State)
	require.NotNil(t, got.DispatcherID)
	assert.Equal(t, int64(300), *got.DispatcherID)
	assert.NotNil(t, got.DispatchedAt)

	hist, err := st.HistoryByRequest(ctx, req.ID)
	require.NoError(t, err)
	last := hist[len(hist)-1]
	assert.Equal(t, requests.StateDispatched, last.StateAfter)
	assert.Equal(t, "delivery "+dlv.Number, last.Notes)
}

func TestCreateDelivery_PartialThenComplete(t *testing.T) {
	st, reqSvc, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 50)
	ctx := context.Background()

	req := newArticleRequest(t, reqSvc, whID, []int64{art.ID}, []int64{10})
	approveAll(t, st, reqSvc, req.ID, 200)
	lines, err := st.LinesByRequest(ctx, req.ID)
	require.NoError(t, err)

	deliver := func(qty int64) *deliveries.Delivery {
		dlv, err := dlvSvc.Create(ctx, CreateDelivery{
			Kind:        requests.KindArticle,
			WarehouseID: &whID,
			DeliveredBy: 300,
			ReceivedBy:  100,
			RequestID:   &req.ID,
			Lines: []DeliveryLine{{
				Item:          requests.ArticleRef(art.ID),
				Quantity:      qty,
				RequestLineID: &lines[0].ID,
			}},
		})
		require.NoError(t, err)
		return dlv
	}

	first := deliver(4)
	assert.Equal(t, deliveries.StatusPartial, first.Status)

	got, err := st.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StatePartial, got.State)

	second := deliver(6)
	assert.Equal(t, "DLV-ART-20250830-002", second.Number)
	assert.Equal(t, deliveries.StatusDispatched, second.Status)

	got, err = st.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StateDispatched, got.State)

	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), a.Stock)
}

func TestCreateDelivery_OverPendingRejected(t *testing.T) {
	st, reqSvc, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 50)
	ctx := context.Background()

	req := newArticleRequest(t, reqSvc, whID, []int64{art.ID}, []int64{10})
	lines, err := st.LinesByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, reqSvc.Approve(ctx, req.ID, map[int64]int64{lines[0].ID: 6}, 200, ""))

	_, err = dlvSvc.Create(ctx, CreateDelivery{
		Kind:        requests.KindArticle,
		WarehouseID: &whID,
		DeliveredBy: 300,
		ReceivedBy:  100,
		RequestID:   &req.ID,
		Lines: []DeliveryLine{{
			Item:          requests.ArticleRef(art.ID),
			Quantity:      7,
			RequestLineID: &lines[0].ID,
		}},
	})
	assertValidationCode(t, err, requests.CodeExceedsPending)

	// nothing committed
	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), a.Stock)

	movs, err := st.Movements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestCreateDelivery_InsufficientStockRollsBackAllLines(t *testing.T) {
	st, reqSvc, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	a1 := seedArticle(t, st, "A-1", 50)
	a2 := seedArticle(t, st, "A-2", 2)
	ctx := context.Background()

	req := newArticleRequest(t, reqSvc, whID, []int64{a1.ID, a2.ID}, []int64{5, 5})
	approveAll(t, st, reqSvc, req.ID, 200)
	lines, err := st.LinesByRequest(ctx, req.ID)
	require.NoError(t, err)

	// first line is deliverable, second overdraws article A-2
	_, err = dlvSvc.Create(ctx, CreateDelivery{
		Kind:        requests.KindArticle,
		WarehouseID: &whID,
		DeliveredBy: 300,
		ReceivedBy:  100,
		RequestID:   &req.ID,
		Lines: []DeliveryLine{
			{Item: requests.ArticleRef(a1.ID), Quantity: 5, RequestLineID: &lines[0].ID},
			{Item: requests.ArticleRef(a2.ID), Quantity: 5, RequestLineID: &lines[1].ID},
		},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, a2.ID, stockErr.ArticleID)
	assert.Equal(t, int64(5), stockErr.Requested)
	assert.Equal(t, int64(2), stockErr.Available)

	// the successful first line must not survive the rollback
	got1, err := st.ArticleByID(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got1.Stock)

	lines, err = st.LinesByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), lines[0].Dispatched)
	assert.Equal(t, int64(0), lines[1].Dispatched)

	movs, err := st.Movements(ctx)
	require.NoError(t, err)
	assert.Empty(t, movs)

	reqGot, err := st.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, requests.StateApproved, reqGot.State)
}

func TestCreateDelivery_StandaloneWithoutRequest(t *testing.T) {
	st, _, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 20)
	ctx := context.Background()

	dlv, err := dlvSvc.Create(ctx, CreateDelivery{
		Kind:        requests.KindArticle,
		WarehouseID: &whID,
		DeliveredBy: 300,
		ReceivedBy:  100,
		Reason:      "direct issue",
		Lines:       []DeliveryLine{{Item: requests.ArticleRef(art.ID), Quantity: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, deliveries.StatusDispatched, dlv.Status)
	assert.Nil(t, dlv.RequestID)

	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.Stock)
}

func TestCreateDelivery_FinalRequestRefused(t *testing.T) {
	st, reqSvc, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 50)
	ctx := context.Background()

	req := newArticleRequest(t, reqSvc, whID, []int64{art.ID}, []int64{10})
	require.NoError(t, reqSvc.Cancel(ctx, req.ID, 200, "no longer needed"))

	_, err := dlvSvc.Create(ctx, CreateDelivery{
		Kind:        requests.KindArticle,
		WarehouseID: &whID,
		DeliveredBy: 300,
		ReceivedBy:  100,
		RequestID:   &req.ID,
		Lines:       []DeliveryLine{{Item: requests.ArticleRef(art.ID), Quantity: 1}},
	})
	assert.ErrorIs(t, err, requests.ErrAlreadyFinal)
}

func TestCreateDelivery_AssetSerialRequired(t *testing.T) {
	st, _, dlvSvc := newDeliveryEnv(t)
	asset := seedAsset(t, st, "LPT-1", true)
	ctx := context.Background()

	in := CreateDelivery{
		Kind:        requests.KindAsset,
		DeliveredBy: 300,
		ReceivedBy:  100,
		Lines:       []DeliveryLine{{Item: requests.AssetRef(asset.ID), Quantity: 1}},
	}
	_, err := dlvSvc.Create(ctx, in)
	assertValidationCode(t, err, requests.CodeRequired)

	in.Lines[0].SerialNumber = "SN-0042"
	dlv, err := dlvSvc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "DLV-AST-20250830-001", dlv.Number)

	dlvLines, err := st.DeliveryLines(ctx, dlv.ID)
	require.NoError(t, err)
	require.Len(t, dlvLines, 1)
	assert.Equal(t, "SN-0042", dlvLines[0].SerialNumber)
}

func TestCreateDelivery_Validation(t *testing.T) {
	_, _, dlvSvc := newDeliveryEnv(t)
	ctx := context.Background()
	whID := int64(1)

	t.Run("no lines", func(t *testing.T) {
		_, err := dlvSvc.Create(ctx, CreateDelivery{Kind: requests.KindArticle, WarehouseID: &whID})
		assertValidationCode(t, err, requests.CodeEmptyLines)
	})

	t.Run("article delivery without warehouse", func(t *testing.T) {
		_, err := dlvSvc.Create(ctx, CreateDelivery{
			Kind:  requests.KindArticle,
			Lines: []DeliveryLine{{Item: requests.ArticleRef(1), Quantity: 1}},
		})
		assertValidationCode(t, err, requests.CodeMissingWarehouse)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := dlvSvc.Create(ctx, CreateDelivery{
			Kind:        requests.KindArticle,
			WarehouseID: &whID,
			Lines:       []DeliveryLine{{Item: requests.ArticleRef(1), Quantity: 0}},
		})
		assertValidationCode(t, err, requests.CodeNegative)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		_, err := dlvSvc.Create(ctx, CreateDelivery{
			Kind:        requests.KindArticle,
			WarehouseID: &whID,
			Lines:       []DeliveryLine{{Item: requests.AssetRef(1), Quantity: 1}},
		})
		assertValidationCode(t, err, requests.CodeKindMismatch)
	})

	t.Run("request line without request", func(t *testing.T) {
		lineID := int64(7)
		_, err := dlvSvc.Create(ctx, CreateDelivery{
			Kind:        requests.KindArticle,
			WarehouseID: &whID,
			Lines: []DeliveryLine{{
				Item: requests.ArticleRef(1), Quantity: 1, RequestLineID: &lineID,
			}},
		})
		assertValidationCode(t, err, requests.CodeRequired)
	})
}

func TestCreateDelivery_LedgerChainStaysConsistent(t *testing.T) {
	st, _, dlvSvc := newDeliveryEnv(t)
	whID := seedWarehouse(t, st)
	art := seedArticle(t, st, "A-1", 30)
	ctx := context.Background()

	for _, qty := range []int64{5, 10, 3} {
		_, err := dlvSvc.Create(ctx, CreateDelivery{
			Kind:        requests.KindArticle,
			WarehouseID: &whID,
			DeliveredBy: 300,
			ReceivedBy:  100,
			Lines:       []DeliveryLine{{Item: requests.ArticleRef(art.ID), Quantity: qty}},
		})
		require.NoError(t, err)
	}

	movs, err := st.Movements(ctx)
	require.NoError(t, err)
	require.Len(t, movs, 3)

	// each entry starts where the previous one ended
	for i := 1; i < len(movs); i++ {
		assert.Equal(t, movs[i-1].StockAfter, movs[i].StockBefore)
	}

	a, err := st.ArticleByID(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, movs[len(movs)-1].StockAfter, a.Stock)
	assert.Equal(t, int64(12), a.Stock)
}

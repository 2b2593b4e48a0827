package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedWarehouse(t *testing.T, st *memory.Store) int64 {
	t.Helper()
	w := catalog.Warehouse{Code: "WH-1", Name: "Central"}
	require.NoError(t, st.CreateWarehouse(context.Background(), &w))
	return w.ID
}

func seedArticle(t *testing.T, st *memory.Store, code string, stock int64) *catalog.Article {
	t.Helper()
	a := catalog.Article{Code: code, Name: code, Unit: "un", WarehouseID: 1, Stock: stock}
	require.NoError(t, st.CreateArticle(context.Background(), &a))
	return &a
}

func seedAsset(t *testing.T, st *memory.Store, code string, requiresSerial bool) *catalog.Asset {
	t.Helper()
	a := catalog.Asset{Code: code, Name: code, RequiresSerial: requiresSerial}
	require.NoError(t, st.CreateAsset(context.Background(), &a))
	return &a
}

// newArticleRequest opens an article request with one line per quantity
// given, against the articles passed in order.
func newArticleRequest(t *testing.T, svc *Requests, whID int64, articleIDs []int64, qtys []int64) *requests.Request {
	t.Helper()
	in := CreateRequest{
		Kind:        requests.KindArticle,
		RequestorID: 100,
		RequiredBy:  time.Now().Add(72 * time.Hour),
		WarehouseID: &whID,
		Reason:      "restock",
	}
	for i, id := range articleIDs {
		in.Lines = append(in.Lines, NewLine{Item: requests.ArticleRef(id), Quantity: qtys[i]})
	}
	req, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return req
}

// approveAll approves every line at its requested quantity.
func approveAll(t *testing.T, st *memory.Store, svc *Requests, reqID, actorID int64) {
	t.Helper()
	ctx := context.Background()
	lines, err := st.LinesByRequest(ctx, reqID)
	require.NoError(t, err)
	approvals := map[int64]int64{}
	for _, l := range lines {
		approvals[l.ID] = l.Requested
	}
	require.NoError(t, svc.Approve(ctx, reqID, approvals, actorID, "ok"))
}

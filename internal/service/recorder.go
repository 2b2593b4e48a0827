package service

import (
	"context"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/infra/metrics"
	"github.com/mcontrerasv/almacen/internal/storage"
)

// recordHistory appends an audit entry for a state change. A nil from
// marks the creation entry.
func recordHistory(ctx context.Context, st storage.Store, requestID int64, from *requests.StateCode, to requests.StateCode, actorID int64, notes string) error {
	return st.AppendHistory(ctx, &requests.History{
		RequestID:   requestID,
		StateBefore: from,
		StateAfter:  to,
		ActorID:     actorID,
		Notes:       notes,
		ChangedAt:   time.Now().UTC(),
	})
}

// applyTransition moves req to the target state, records history and
// persists the request. The history entry and the state change share the
// caller's transaction, so neither survives without the other.
func applyTransition(ctx context.Context, st storage.Store, req *requests.Request, to requests.StateCode, actorID int64, notes string) error {
	from := req.State
	req.State = to
	if err := st.SaveRequest(ctx, req); err != nil {
		return err
	}
	if err := recordHistory(ctx, st, req.ID, &from, to, actorID, notes); err != nil {
		return err
	}
	metrics.RequestTransitionsTotal.WithLabelValues(string(to)).Inc()
	return nil
}

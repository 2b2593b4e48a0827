package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/deliveries"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/infra/metrics"
	"github.com/mcontrerasv/almacen/internal/storage"
)

// Deliveries is the fulfillment engine. A delivery commits atomically:
// stock decrements, ledger entries, request line counters, the delivery
// rows and the resulting request transition all land in one transaction or
// not at all.
type Deliveries struct {
	db  storage.DB
	log *slog.Logger
	now func() time.Time
}

func NewDeliveries(db storage.DB, log *slog.Logger) *Deliveries {
	return &Deliveries{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// DeliveryLine is one row of an outgoing delivery.
type DeliveryLine struct {
	Item          requests.ItemRef
	Quantity      int64
	RequestLineID *int64
	Lot           string
	SerialNumber  string
	Notes         string
}

// CreateDelivery carries everything needed to commit a delivery. RequestID
// links it to the request it fulfills; without it the delivery stands
// alone.
type CreateDelivery struct {
	Kind         requests.Kind
	WarehouseID  *int64
	DepartmentID *int64
	DeliveredBy  int64
	ReceivedBy   int64
	RequestID    *int64
	Reason       string
	Notes        string
	Lines        []DeliveryLine
}

func (in CreateDelivery) validate() error {
	if len(in.Lines) == 0 {
		return &requests.ValidationError{Field: "lines", Code: requests.CodeEmptyLines,
			Message: "a delivery needs at least one line"}
	}
	if in.Kind == requests.KindArticle && in.WarehouseID == nil {
		return &requests.ValidationError{Field: "warehouse_id", Code: requests.CodeMissingWarehouse,
			Message: "article deliveries need a source warehouse"}
	}
	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.Quantity <= 0 {
			return &requests.ValidationError{Field: field, Code: requests.CodeNegative,
				Message: fmt.Sprintf("quantity must be positive, got %d", l.Quantity)}
		}
		if !l.Item.Valid() {
			return &requests.ValidationError{Field: field, Code: requests.CodeRequired,
				Message: "line references no item"}
		}
		if l.Item.Kind != in.Kind {
			return &requests.ValidationError{Field: field, Code: requests.CodeKindMismatch,
				Message: fmt.Sprintf("%s line on a %s delivery", l.Item.Kind, in.Kind)}
		}
	}
	return nil
}

// Create commits a delivery. For article lines it locks the article row,
// checks stock, decrements it and appends a ledger movement. Lines linked
// to a request line advance that line's dispatched counter; afterwards the
// request is reclassified and transitioned to PARTIAL or DISPATCHED.
func (s *Deliveries) Create(ctx context.Context, in CreateDelivery) (*deliveries.Delivery, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var dlv *deliveries.Delivery
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		var req *requests.Request
		if in.RequestID != nil {
			var err error
			if req, err = st.RequestForUpdate(ctx, *in.RequestID); err != nil {
				return err
			}
			state, err := st.StateByCode(ctx, req.State)
			if err != nil {
				return err
			}
			if state.IsFinal {
				return fmt.Errorf("request %s in state %s: %w", req.Number, req.State, requests.ErrAlreadyFinal)
			}
		}

		prefix := deliveries.NumberPrefix(in.Kind, s.now())
		last, err := st.LastDeliveryNumber(ctx, prefix)
		if err != nil {
			return err
		}
		number, err := deliveries.NextNumber(prefix, last)
		if err != nil {
			return err
		}

		dlv = &deliveries.Delivery{
			Number:       number,
			Kind:         in.Kind,
			Status:       deliveries.StatusPending,
			WarehouseID:  in.WarehouseID,
			DepartmentID: in.DepartmentID,
			DeliveredBy:  in.DeliveredBy,
			ReceivedBy:   in.ReceivedBy,
			RequestID:    in.RequestID,
			Reason:       in.Reason,
			Notes:        in.Notes,
		}
		if err := st.CreateDelivery(ctx, dlv); err != nil {
			return fmt.Errorf("create delivery: %w", err)
		}

		for _, dl := range in.Lines {
			if dl.RequestLineID != nil {
				if req == nil {
					return &requests.ValidationError{Field: "request_line_id", Code: requests.CodeRequired,
						Message: "line fulfills a request line but the delivery has no request"}
				}
				line, err := st.LineForUpdate(ctx, *dl.RequestLineID)
				if err != nil {
					return err
				}
				if line.RequestID != req.ID {
					return requests.ErrNotFound
				}
				if dl.Quantity > line.Pending() {
					return &requests.ValidationError{Field: "quantity", Code: requests.CodeExceedsPending,
						Message: fmt.Sprintf("dispatching %d exceeds pending %d on line %d",
							dl.Quantity, line.Pending(), line.ID)}
				}
				if err := requests.AddDispatched(line, dl.Quantity); err != nil {
					return err
				}
				if err := st.SaveLine(ctx, line); err != nil {
					return err
				}
			}

			if dl.Item.Kind == requests.KindArticle {
				if err := s.issueArticle(ctx, st, dl.Item.ArticleID, dl.Quantity, in.DeliveredBy, number); err != nil {
					return err
				}
			} else if err := s.checkAsset(ctx, st, dl); err != nil {
				return err
			}

			if err := st.AddDeliveryLine(ctx, &deliveries.Line{
				DeliveryID:    dlv.ID,
				Item:          dl.Item,
				Quantity:      dl.Quantity,
				RequestLineID: dl.RequestLineID,
				Lot:           dl.Lot,
				SerialNumber:  dl.SerialNumber,
				Notes:         dl.Notes,
			}); err != nil {
				return err
			}
		}

		dlv.Status = deliveries.StatusDispatched
		if req != nil {
			lines, err := st.LinesByRequest(ctx, req.ID)
			if err != nil {
				return err
			}
			switch requests.ClassifyDispatch(req.Kind, lines) {
			case requests.DispatchFull:
				now := s.now()
				req.DispatcherID = &in.DeliveredBy
				req.DispatchedAt = &now
				if err := applyTransition(ctx, st, req, requests.StateDispatched, in.DeliveredBy, "delivery "+number); err != nil {
					return err
				}
			case requests.DispatchPartial:
				dlv.Status = deliveries.StatusPartial
				if req.State != requests.StatePartial {
					if err := applyTransition(ctx, st, req, requests.StatePartial, in.DeliveredBy, "delivery "+number); err != nil {
						return err
					}
				}
			}
		}
		return st.SaveDeliveryStatus(ctx, dlv.ID, dlv.Status)
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			metrics.StockShortagesTotal.Inc()
		}
		return nil, err
	}

	metrics.DeliveriesTotal.WithLabelValues(string(dlv.Kind), string(dlv.Status)).Inc()
	s.log.Info("delivery committed",
		slog.String("number", dlv.Number),
		slog.String("status", string(dlv.Status)),
		slog.Int("lines", len(in.Lines)))
	return dlv, nil
}

// issueArticle locks the article, verifies stock and writes the decrement
// plus its ledger entry.
func (s *Deliveries) issueArticle(ctx context.Context, st storage.Store, articleID, qty, actorID int64, number string) error {
	art, err := st.ArticleForUpdate(ctx, articleID)
	if err != nil {
		return err
	}
	if art.Stock < qty {
		return &inventory.InsufficientStockError{
			ArticleID: art.ID,
			Requested: qty,
			Available: art.Stock,
		}
	}
	after := art.Stock - qty
	if err := st.SaveArticleStock(ctx, art.ID, after); err != nil {
		return err
	}
	if err := st.AppendMovement(ctx, &inventory.Movement{
		ArticleID:   art.ID,
		Qty:         qty,
		Op:          inventory.OpOut,
		ActorID:     actorID,
		Reason:      "delivery " + number,
		StockBefore: art.Stock,
		StockAfter:  after,
		CreatedAt:   s.now(),
	}); err != nil {
		return err
	}
	metrics.StockMovementsTotal.WithLabelValues(string(inventory.OpOut)).Inc()
	return nil
}

// checkAsset verifies the asset exists and carries a serial number when
// the catalog demands one.
func (s *Deliveries) checkAsset(ctx context.Context, st storage.Store, dl DeliveryLine) error {
	asset, err := st.AssetByID(ctx, dl.Item.AssetID)
	if err != nil {
		return err
	}
	if asset.RequiresSerial && dl.SerialNumber == "" {
		return &requests.ValidationError{Field: "serial_number", Code: requests.CodeRequired,
			Message: fmt.Sprintf("asset %s requires a serial number", asset.Code)}
	}
	return nil
}

// Get returns a delivery with its lines.
func (s *Deliveries) Get(ctx context.Context, id int64) (*deliveries.Delivery, []deliveries.Line, error) {
	dlv, err := s.db.DeliveryByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.db.DeliveryLines(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return dlv, lines, nil
}

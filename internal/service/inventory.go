package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/infra/metrics"
	"github.com/mcontrerasv/almacen/internal/storage"
)

// Inventory handles stock mutations outside the delivery flow: receiving
// goods in and issuing them out directly. Every mutation carries its own
// ledger entry in the same transaction.
type Inventory struct {
	db  storage.DB
	log *slog.Logger
	now func() time.Time
}

func NewInventory(db storage.DB, log *slog.Logger) *Inventory {
	return &Inventory{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Receive adds qty to an article's stock. Articles with a configured
// maximum refuse receives that would overflow it.
func (s *Inventory) Receive(ctx context.Context, articleID, qty, actorID int64, reason string) (*inventory.Movement, error) {
	if qty <= 0 {
		return nil, &requests.ValidationError{Field: "qty", Code: requests.CodeNegative,
			Message: fmt.Sprintf("receive quantity must be positive, got %d", qty)}
	}
	return s.move(ctx, articleID, qty, inventory.OpIn, actorID, reason)
}

// Issue removes qty from an article's stock without a delivery document.
func (s *Inventory) Issue(ctx context.Context, articleID, qty, actorID int64, reason string) (*inventory.Movement, error) {
	if qty <= 0 {
		return nil, &requests.ValidationError{Field: "qty", Code: requests.CodeNegative,
			Message: fmt.Sprintf("issue quantity must be positive, got %d", qty)}
	}
	return s.move(ctx, articleID, qty, inventory.OpOut, actorID, reason)
}

func (s *Inventory) move(ctx context.Context, articleID, qty int64, op inventory.Op, actorID int64, reason string) (*inventory.Movement, error) {
	var mov *inventory.Movement
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		art, err := st.ArticleForUpdate(ctx, articleID)
		if err != nil {
			return err
		}

		var after int64
		switch op {
		case inventory.OpIn:
			after = art.Stock + qty
			if art.MaxStock > 0 && after > art.MaxStock {
				return &inventory.MaxStockError{ArticleID: art.ID, Max: art.MaxStock, Resulting: after}
			}
		case inventory.OpOut:
			if art.Stock < qty {
				return &inventory.InsufficientStockError{ArticleID: art.ID, Requested: qty, Available: art.Stock}
			}
			after = art.Stock - qty
		}

		if err := st.SaveArticleStock(ctx, art.ID, after); err != nil {
			return err
		}
		mov = &inventory.Movement{
			ArticleID:   art.ID,
			Qty:         qty,
			Op:          op,
			ActorID:     actorID,
			Reason:      reason,
			StockBefore: art.Stock,
			StockAfter:  after,
			CreatedAt:   s.now(),
		}
		return st.AppendMovement(ctx, mov)
	})
	if err != nil {
		return nil, err
	}

	metrics.StockMovementsTotal.WithLabelValues(string(op)).Inc()
	s.log.Info("stock moved",
		slog.Int64("article_id", articleID),
		slog.String("op", string(op)),
		slog.Int64("qty", qty))
	return mov, nil
}

// History returns the newest limit ledger entries of an article.
func (s *Inventory) History(ctx context.Context, articleID int64, limit int) ([]inventory.Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.MovementsByArticle(ctx, articleID, limit)
}

// BelowMinimum lists active articles whose stock fell under their minimum.
func (s *Inventory) BelowMinimum(ctx context.Context) ([]catalog.Article, error) {
	return s.db.ArticlesBelowMinimum(ctx)
}

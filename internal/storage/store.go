// Package storage defines the persistence boundary of the workflow engine.
// Two implementations exist: postgres (pgx, production) and memory (tests).
package storage

import (
	"context"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
	"github.com/mcontrerasv/almacen/internal/domain/deliveries"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

// Store is the flat persistence surface. ForUpdate variants take an
// exclusive row lock held until the enclosing transaction ends, so two
// concurrent writers cannot both validate against a stale snapshot.
type Store interface {
	// Catalog.
	CreateArticle(ctx context.Context, a *catalog.Article) error
	ArticleByID(ctx context.Context, id int64) (*catalog.Article, error)
	ArticleForUpdate(ctx context.Context, id int64) (*catalog.Article, error)
	SaveArticleStock(ctx context.Context, id, stock int64) error
	ArticlesBelowMinimum(ctx context.Context) ([]catalog.Article, error)
	CreateAsset(ctx context.Context, a *catalog.Asset) error
	AssetByID(ctx context.Context, id int64) (*catalog.Asset, error)
	CreateWarehouse(ctx context.Context, w *catalog.Warehouse) error
	WarehouseByID(ctx context.Context, id int64) (*catalog.Warehouse, error)
	CreateDepartment(ctx context.Context, d *catalog.Department) error
	DepartmentByID(ctx context.Context, id int64) (*catalog.Department, error)

	// Request state catalog.
	StateByCode(ctx context.Context, code requests.StateCode) (*requests.State, error)
	InitialState(ctx context.Context) (*requests.State, error)

	// Requests.
	CreateRequest(ctx context.Context, r *requests.Request) error
	RequestByID(ctx context.Context, id int64) (*requests.Request, error)
	RequestForUpdate(ctx context.Context, id int64) (*requests.Request, error)
	SaveRequest(ctx context.Context, r *requests.Request) error
	RequestNumberExists(ctx context.Context, number string) (bool, error)
	AddLine(ctx context.Context, l *requests.Line) error
	LinesByRequest(ctx context.Context, requestID int64) ([]requests.Line, error)
	LineForUpdate(ctx context.Context, id int64) (*requests.Line, error)
	SaveLine(ctx context.Context, l *requests.Line) error
	AppendHistory(ctx context.Context, h *requests.History) error
	HistoryByRequest(ctx context.Context, requestID int64) ([]requests.History, error)

	// Deliveries.
	CreateDelivery(ctx context.Context, d *deliveries.Delivery) error
	SaveDeliveryStatus(ctx context.Context, id int64, status deliveries.Status) error
	DeliveryByID(ctx context.Context, id int64) (*deliveries.Delivery, error)
	AddDeliveryLine(ctx context.Context, l *deliveries.Line) error
	DeliveryLines(ctx context.Context, deliveryID int64) ([]deliveries.Line, error)
	LastDeliveryNumber(ctx context.Context, prefix string) (string, error)

	// Stock movement ledger (append-only).
	AppendMovement(ctx context.Context, m *inventory.Movement) error
	MovementsByArticle(ctx context.Context, articleID int64, limit int) ([]inventory.Movement, error)
	Movements(ctx context.Context) ([]inventory.Movement, error)
}

// DB is a Store that can run a function inside one database transaction.
// If fn returns an error the transaction rolls back completely; nothing it
// wrote survives. There is no automatic retry.
type DB interface {
	Store
	WithinTx(ctx context.Context, fn func(Store) error) error
}

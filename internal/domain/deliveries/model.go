package deliveries

import (
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

// Status of a delivery header. Everything else on a committed delivery is
// immutable.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPartial    Status = "partial"
	StatusDispatched Status = "dispatched"
)

// Delivery is one fulfillment event. It may fulfill a linked request
// (RequestID set) or stand alone.
type Delivery struct {
	ID           int64
	Number       string
	Kind         requests.Kind
	Status       Status
	WarehouseID  *int64 // articles only
	DepartmentID *int64
	DeliveredBy  int64
	ReceivedBy   int64
	RequestID    *int64
	Reason       string
	Notes        string
	CreatedAt    time.Time
}

// Line is one row of a delivery. RequestLineID links it to the request line
// it fulfills, if any. Append-only once the delivery commits.
type Line struct {
	ID            int64
	DeliveryID    int64
	Item          requests.ItemRef
	Quantity      int64
	RequestLineID *int64
	Lot           string // articles
	SerialNumber  string // assets
	Notes         string
}

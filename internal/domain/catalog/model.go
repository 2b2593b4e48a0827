package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog reference cannot be resolved.
var ErrNotFound = errors.New("catalog: not found")

// Article is a consumable stock item kept in a warehouse. Stock is the
// authoritative counter; every change to it is mirrored by a stock movement.
type Article struct {
	ID          int64
	Code        string
	Name        string
	Unit        string
	WarehouseID int64
	Stock       int64
	MinStock    int64
	MaxStock    int64 // 0 = unbounded
	Active      bool
	CreatedAt   time.Time
}

// Asset is a fixed asset (equipment, furniture). Assets carry no stock
// counter; handing one out never touches the movement ledger.
type Asset struct {
	ID             int64
	Code           string
	Name           string
	RequiresSerial bool
	Active         bool
	CreatedAt      time.Time
}

type Warehouse struct {
	ID        int64
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

type Department struct {
	ID        int64
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

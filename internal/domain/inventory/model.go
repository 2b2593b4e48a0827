package inventory

import "time"

type Op string

const (
	OpIn  Op = "in"
	OpOut Op = "out"
)

// Movement is one append-only ledger row per article per stock change. It
// snapshots the stock before and after so the ledger reconciles against the
// article counter without replaying history.
type Movement struct {
	ID          int64
	ArticleID   int64
	Qty         int64 // always positive; Op carries the direction
	Op          Op
	ActorID     int64
	Reason      string
	StockBefore int64
	StockAfter  int64
	CreatedAt   time.Time
}

// Signed returns the ledger delta: positive for IN, negative for OUT.
func (m Movement) Signed() int64 {
	if m.Op == OpOut {
		return -m.Qty
	}
	return m.Qty
}

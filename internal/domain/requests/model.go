package requests

import "time"

// Kind says whether a request asks for warehouse articles or fixed assets.
type Kind string

const (
	KindArticle Kind = "ARTICLE"
	KindAsset   Kind = "ASSET"
)

// StateCode identifies an entry of the request state catalog.
type StateCode string

const (
	StatePending    StateCode = "PENDING"
	StateApproved   StateCode = "APPROVED"
	StateRejected   StateCode = "REJECTED"
	StatePurchasing StateCode = "PURCHASING"
	StatePartial    StateCode = "PARTIAL"
	StateDispatched StateCode = "DISPATCHED"
	StateCancelled  StateCode = "CANCELLED"
)

// State is a catalog entry. Exactly one state is marked initial; final
// states block any further mutation of the owning request.
type State struct {
	Code           StateCode
	Name           string
	IsInitial      bool
	IsFinal        bool
	RequiresAction bool
}

// ItemRef points to exactly one of article or asset.
type ItemRef struct {
	Kind      Kind
	ArticleID int64
	AssetID   int64
}

func ArticleRef(id int64) ItemRef { return ItemRef{Kind: KindArticle, ArticleID: id} }
func AssetRef(id int64) ItemRef   { return ItemRef{Kind: KindAsset, AssetID: id} }

// Valid reports whether the reference names exactly one item.
func (r ItemRef) Valid() bool {
	switch r.Kind {
	case KindArticle:
		return r.ArticleID > 0 && r.AssetID == 0
	case KindAsset:
		return r.AssetID > 0 && r.ArticleID == 0
	}
	return false
}

// Request is a unit of demand for articles or assets. It is never deleted;
// it only moves through the state catalog and is soft-retired at most.
type Request struct {
	ID            int64
	Number        string
	Kind          Kind
	State         StateCode
	RequestorID   int64
	RequiredBy    time.Time
	ApproverID    *int64
	ApprovedAt    *time.Time
	DispatcherID  *int64
	DispatchedAt  *time.Time
	WarehouseID   *int64 // articles only
	DepartmentID  *int64
	Reason        string
	Notes         string
	ApprovalNotes string
	Retired       bool
	CreatedAt     time.Time
}

// Line is one row of demand. The three counters are kept consistent by the
// reconciler: 0 <= Approved <= Requested and 0 <= Dispatched <= Approved.
type Line struct {
	ID         int64
	RequestID  int64
	Item       ItemRef
	Requested  int64
	Approved   int64
	Dispatched int64
	Notes      string
	Retired    bool
}

// Pending is the quantity approved but not yet dispatched.
func (l Line) Pending() int64 { return l.Approved - l.Dispatched }

// History is one append-only audit row per state transition, written in the
// same transaction as the transition itself. StateBefore is nil only on the
// row recording request creation.
type History struct {
	ID          int64
	RequestID   int64
	StateBefore *StateCode
	StateAfter  StateCode
	ActorID     int64
	Notes       string
	ChangedAt   time.Time
}

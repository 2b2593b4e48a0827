// Package memory implements storage.Store in process memory. WithinTx is
// simulated with a snapshot that is restored on error, which gives tests
// the same all-or-nothing behavior as the postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
	"github.com/mcontrerasv/almacen/internal/domain/deliveries"
	"github.com/mcontrerasv/almacen/internal/domain/inventory"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/storage"
)

type data struct {
	nextID int64

	articles    map[int64]catalog.Article
	assets      map[int64]catalog.Asset
	warehouses  map[int64]catalog.Warehouse
	departments map[int64]catalog.Department

	states map[requests.StateCode]requests.State
	reqs   map[int64]requests.Request
	lines  map[int64]requests.Line
	hist   []requests.History

	delivs     map[int64]deliveries.Delivery
	delivLines []deliveries.Line

	movements []inventory.Movement
}

type Store struct {
	mu   sync.Mutex
	d    *data
	inTx bool
}

// NewStore returns an empty store with the request state catalog seeded,
// matching the migration seed of the postgres schema.
func NewStore() *Store {
	d := &data{
		articles:    map[int64]catalog.Article{},
		assets:      map[int64]catalog.Asset{},
		warehouses:  map[int64]catalog.Warehouse{},
		departments: map[int64]catalog.Department{},
		states:      map[requests.StateCode]requests.State{},
		reqs:        map[int64]requests.Request{},
		lines:       map[int64]requests.Line{},
		delivs:      map[int64]deliveries.Delivery{},
	}
	for _, st := range []requests.State{
		{Code: requests.StatePending, Name: "Pending", IsInitial: true, RequiresAction: true},
		{Code: requests.StateApproved, Name: "Approved"},
		{Code: requests.StateRejected, Name: "Rejected", IsFinal: true},
		{Code: requests.StatePurchasing, Name: "Purchasing", RequiresAction: true},
		{Code: requests.StatePartial, Name: "Partially dispatched", RequiresAction: true},
		{Code: requests.StateDispatched, Name: "Dispatched", IsFinal: true},
		{Code: requests.StateCancelled, Name: "Cancelled", IsFinal: true},
	} {
		d.states[st.Code] = st
	}
	return &Store{d: d}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx snapshots the whole store, runs fn against the live data and
// restores the snapshot if fn fails. Nested calls reuse the open scope.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.d.clone()
	if err := fn(&Store{d: s.d, inTx: true}); err != nil {
		*s.d = *snap
		return err
	}
	return nil
}

func (d *data) clone() *data {
	c := &data{
		nextID:      d.nextID,
		articles:    make(map[int64]catalog.Article, len(d.articles)),
		assets:      make(map[int64]catalog.Asset, len(d.assets)),
		warehouses:  make(map[int64]catalog.Warehouse, len(d.warehouses)),
		departments: make(map[int64]catalog.Department, len(d.departments)),
		states:      make(map[requests.StateCode]requests.State, len(d.states)),
		reqs:        make(map[int64]requests.Request, len(d.reqs)),
		lines:       make(map[int64]requests.Line, len(d.lines)),
		delivs:      make(map[int64]deliveries.Delivery, len(d.delivs)),
		hist:        append([]requests.History(nil), d.hist...),
		delivLines:  append([]deliveries.Line(nil), d.delivLines...),
		movements:   append([]inventory.Movement(nil), d.movements...),
	}
	for k, v := range d.articles {
		c.articles[k] = v
	}
	for k, v := range d.assets {
		c.assets[k] = v
	}
	for k, v := range d.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range d.departments {
		c.departments[k] = v
	}
	for k, v := range d.states {
		c.states[k] = v
	}
	for k, v := range d.reqs {
		c.reqs[k] = v
	}
	for k, v := range d.lines {
		c.lines[k] = v
	}
	for k, v := range d.delivs {
		c.delivs[k] = v
	}
	return c
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

/* Catalog */

func (s *Store) CreateArticle(_ context.Context, a *catalog.Article) error {
	defer s.lock()()
	a.ID = s.d.id()
	a.Active = true
	a.CreatedAt = stamp(a.CreatedAt)
	s.d.articles[a.ID] = *a
	return nil
}

func (s *Store) ArticleByID(_ context.Context, id int64) (*catalog.Article, error) {
	defer s.lock()()
	a, ok := s.d.articles[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &a, nil
}

// ArticleForUpdate has no row lock to take here: the store mutex held by
// WithinTx already serializes writers.
func (s *Store) ArticleForUpdate(ctx context.Context, id int64) (*catalog.Article, error) {
	return s.ArticleByID(ctx, id)
}

func (s *Store) SaveArticleStock(_ context.Context, id, stock int64) error {
	defer s.lock()()
	a, ok := s.d.articles[id]
	if !ok {
		return catalog.ErrNotFound
	}
	a.Stock = stock
	s.d.articles[id] = a
	return nil
}

func (s *Store) ArticlesBelowMinimum(_ context.Context) ([]catalog.Article, error) {
	defer s.lock()()
	var out []catalog.Article
	for _, a := range s.d.articles {
		if a.Active && a.Stock < a.MinStock {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) CreateAsset(_ context.Context, a *catalog.Asset) error {
	defer s.lock()()
	a.ID = s.d.id()
	a.Active = true
	a.CreatedAt = stamp(a.CreatedAt)
	s.d.assets[a.ID] = *a
	return nil
}

func (s *Store) AssetByID(_ context.Context, id int64) (*catalog.Asset, error) {
	defer s.lock()()
	a, ok := s.d.assets[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &a, nil
}

func (s *Store) CreateWarehouse(_ context.Context, w *catalog.Warehouse) error {
	defer s.lock()()
	w.ID = s.d.id()
	w.Active = true
	w.CreatedAt = stamp(w.CreatedAt)
	s.d.warehouses[w.ID] = *w
	return nil
}

func (s *Store) WarehouseByID(_ context.Context, id int64) (*catalog.Warehouse, error) {
	defer s.lock()()
	w, ok := s.d.warehouses[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &w, nil
}

func (s *Store) CreateDepartment(_ context.Context, d *catalog.Department) error {
	defer s.lock()()
	d.ID = s.d.id()
	d.Active = true
	d.CreatedAt = stamp(d.CreatedAt)
	s.d.departments[d.ID] = *d
	return nil
}

func (s *Store) DepartmentByID(_ context.Context, id int64) (*catalog.Department, error) {
	defer s.lock()()
	d, ok := s.d.departments[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &d, nil
}

/* Request state catalog */

func (s *Store) StateByCode(_ context.Context, code requests.StateCode) (*requests.State, error) {
	defer s.lock()()
	st, ok := s.d.states[code]
	if !ok {
		return nil, requests.ErrNotFound
	}
	return &st, nil
}

func (s *Store) InitialState(_ context.Context) (*requests.State, error) {
	defer s.lock()()
	for _, st := range s.d.states {
		if st.IsInitial {
			return &st, nil
		}
	}
	return nil, requests.ErrNotFound
}

/* Requests */

func (s *Store) CreateRequest(_ context.Context, r *requests.Request) error {
	defer s.lock()()
	r.ID = s.d.id()
	r.CreatedAt = stamp(r.CreatedAt)
	s.d.reqs[r.ID] = *r
	return nil
}

func (s *Store) RequestByID(_ context.Context, id int64) (*requests.Request, error) {
	defer s.lock()()
	r, ok := s.d.reqs[id]
	if !ok {
		return nil, requests.ErrNotFound
	}
	return &r, nil
}

func (s *Store) RequestForUpdate(ctx context.Context, id int64) (*requests.Request, error) {
	return s.RequestByID(ctx, id)
}

func (s *Store) SaveRequest(_ context.Context, r *requests.Request) error {
	defer s.lock()()
	if _, ok := s.d.reqs[r.ID]; !ok {
		return requests.ErrNotFound
	}
	s.d.reqs[r.ID] = *r
	return nil
}

func (s *Store) RequestNumberExists(_ context.Context, number string) (bool, error) {
	defer s.lock()()
	for _, r := range s.d.reqs {
		if r.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AddLine(_ context.Context, l *requests.Line) error {
	defer s.lock()()
	l.ID = s.d.id()
	s.d.lines[l.ID] = *l
	return nil
}

func (s *Store) LinesByRequest(_ context.Context, requestID int64) ([]requests.Line, error) {
	defer s.lock()()
	var out []requests.Line
	for _, l := range s.d.lines {
		if l.RequestID == requestID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) LineForUpdate(_ context.Context, id int64) (*requests.Line, error) {
	defer s.lock()()
	l, ok := s.d.lines[id]
	if !ok {
		return nil, requests.ErrNotFound
	}
	return &l, nil
}

func (s *Store) SaveLine(_ context.Context, l *requests.Line) error {
	defer s.lock()()
	if _, ok := s.d.lines[l.ID]; !ok {
		return requests.ErrNotFound
	}
	s.d.lines[l.ID] = *l
	return nil
}

func (s *Store) AppendHistory(_ context.Context, h *requests.History) error {
	defer s.lock()()
	h.ID = s.d.id()
	h.ChangedAt = stamp(h.ChangedAt)
	s.d.hist = append(s.d.hist, *h)
	return nil
}

func (s *Store) HistoryByRequest(_ context.Context, requestID int64) ([]requests.History, error) {
	defer s.lock()()
	var out []requests.History
	for _, h := range s.d.hist {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

/* Deliveries */

func (s *Store) CreateDelivery(_ context.Context, d *deliveries.Delivery) error {
	defer s.lock()()
	d.ID = s.d.id()
	d.CreatedAt = stamp(d.CreatedAt)
	s.d.delivs[d.ID] = *d
	return nil
}

func (s *Store) SaveDeliveryStatus(_ context.Context, id int64, status deliveries.Status) error {
	defer s.lock()()
	d, ok := s.d.delivs[id]
	if !ok {
		return requests.ErrNotFound
	}
	d.Status = status
	s.d.delivs[id] = d
	return nil
}

func (s *Store) DeliveryByID(_ context.Context, id int64) (*deliveries.Delivery, error) {
	defer s.lock()()
	d, ok := s.d.delivs[id]
	if !ok {
		return nil, requests.ErrNotFound
	}
	return &d, nil
}

func (s *Store) AddDeliveryLine(_ context.Context, l *deliveries.Line) error {
	defer s.lock()()
	l.ID = s.d.id()
	s.d.delivLines = append(s.d.delivLines, *l)
	return nil
}

func (s *Store) DeliveryLines(_ context.Context, deliveryID int64) ([]deliveries.Line, error) {
	defer s.lock()()
	var out []deliveries.Line
	for _, l := range s.d.delivLines {
		if l.DeliveryID == deliveryID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) LastDeliveryNumber(_ context.Context, prefix string) (string, error) {
	defer s.lock()()
	var last string
	for _, d := range s.d.delivs {
		if strings.HasPrefix(d.Number, prefix+"-") && d.Number > last {
			last = d.Number
		}
	}
	return last, nil
}

/* Stock movement ledger */

func (s *Store) AppendMovement(_ context.Context, m *inventory.Movement) error {
	defer s.lock()()
	m.ID = s.d.id()
	m.CreatedAt = stamp(m.CreatedAt)
	s.d.movements = append(s.d.movements, *m)
	return nil
}

func (s *Store) MovementsByArticle(_ context.Context, articleID int64, limit int) ([]inventory.Movement, error) {
	defer s.lock()()
	var out []inventory.Movement
	for i := len(s.d.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if s.d.movements[i].ArticleID == articleID {
			out = append(out, s.d.movements[i])
		}
	}
	return out, nil
}

func (s *Store) Movements(_ context.Context) ([]inventory.Movement, error) {
	defer s.lock()()
	return append([]inventory.Movement(nil), s.d.movements...), nil
}

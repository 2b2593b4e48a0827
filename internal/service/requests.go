package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/requests"
	"github.com/mcontrerasv/almacen/internal/storage"
)

// Requests drives the request lifecycle: creation, approval, rejection,
// purchasing, cancellation and line maintenance. Every state change is
// persisted together with its audit row in one transaction.
type Requests struct {
	db  storage.DB
	log *slog.Logger
}

func NewRequests(db storage.DB, log *slog.Logger) *Requests {
	return &Requests{db: db, log: log}
}

// NewLine is one row of demand on a new request.
type NewLine struct {
	Item     requests.ItemRef
	Quantity int64
	Notes    string
}

// CreateRequest carries everything needed to open a request.
type CreateRequest struct {
	Kind         requests.Kind
	RequestorID  int64
	RequiredBy   time.Time
	WarehouseID  *int64
	DepartmentID *int64
	Reason       string
	Notes        string
	Lines        []NewLine

	// Number overrides the generated request number when set.
	Number string
}

func (in CreateRequest) validate() error {
	if in.Kind != requests.KindArticle && in.Kind != requests.KindAsset {
		return &requests.ValidationError{Field: "kind", Code: requests.CodeRequired,
			Message: fmt.Sprintf("unknown kind %q", in.Kind)}
	}
	if in.Kind == requests.KindArticle && in.WarehouseID == nil {
		return &requests.ValidationError{Field: "warehouse_id", Code: requests.CodeMissingWarehouse,
			Message: "article requests need a source warehouse"}
	}
	if len(in.Lines) == 0 {
		return &requests.ValidationError{Field: "lines", Code: requests.CodeEmptyLines,
			Message: "a request needs at least one line"}
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
				Message: fmt.Sprintf("%s line on a %s request", l.Item.Kind, in.Kind)}
		}
	}
	return nil
}

// Create opens a request in the initial state with its lines and the
// creation audit row.
func (s *Requests) Create(ctx context.Context, in CreateRequest) (*requests.Request, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var req *requests.Request
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		initial, err := st.InitialState(ctx)
		if err != nil {
			return fmt.Errorf("resolve initial state: %w", err)
		}

		number := in.Number
		if number == "" {
			if number, err = s.newNumber(ctx, st); err != nil {
				return err
			}
		}

		req = &requests.Request{
			Number:       number,
			Kind:         in.Kind,
			State:        initial.Code,
			RequestorID:  in.RequestorID,
			RequiredBy:   in.RequiredBy,
			WarehouseID:  in.WarehouseID,
			DepartmentID: in.DepartmentID,
			Reason:       in.Reason,
			Notes:        in.Notes,
		}
		if err := st.CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		for _, nl := range in.Lines {
			line := &requests.Line{
				RequestID: req.ID,
				Item:      nl.Item,
				Requested: nl.Quantity,
				Notes:     nl.Notes,
			}
			if err := st.AddLine(ctx, line); err != nil {
				return fmt.Errorf("add line: %w", err)
			}
		}

		return recordHistory(ctx, st, req.ID, nil, req.State, in.RequestorID, "created")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("request created",
		slog.String("number", req.Number),
		slog.String("kind", string(req.Kind)),
		slog.Int("lines", len(in.Lines)))
	return req, nil
}

// newNumber draws random request numbers until one is free. Collisions on
// 8 hex characters are rare enough that a handful of attempts suffices.
func (s *Requests) newNumber(ctx context.Context, st storage.Store) (string, error) {
	for range 5 {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", err
		}
		number := "SOL-" + hex.EncodeToString(b[:])
		exists, err := st.RequestNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("request number space exhausted")
}

// Approve records per-line approved quantities and moves the request to
// APPROVED. Lines absent from approvals keep their current approved
// quantity. Re-approval before any dispatch is allowed and overwrites the
// previous decision.
func (s *Requests) Approve(ctx context.Context, id int64, approvals map[int64]int64, actorID int64, notes string) error {
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		req, err := s.mutable(ctx, st, id)
		if err != nil {
			return err
		}

		for lineID, qty := range approvals {
			line, err := st.LineForUpdate(ctx, lineID)
			if err != nil {
				return err
			}
			if line.RequestID != req.ID {
				return requests.ErrNotFound
			}
			if err := requests.ApproveQuantity(line, qty); err != nil {
				return err
			}
			if err := st.SaveLine(ctx, line); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		req.ApproverID = &actorID
		req.ApprovedAt = &now
		req.ApprovalNotes = notes
		return applyTransition(ctx, st, req, requests.StateApproved, actorID, notes)
	})
	if err != nil {
		return err
	}
	s.log.Info("request approved", slog.Int64("request_id", id), slog.Int64("approver_id", actorID))
	return nil
}

// Reject moves the request to the final REJECTED state. A reason is
// mandatory; it goes to both the request and the audit row.
func (s *Requests) Reject(ctx context.Context, id int64, actorID int64, reason string) error {
	if reason == "" {
		return &requests.ValidationError{Field: "reason", Code: requests.CodeRequired,
			Message: "rejection needs a reason"}
	}
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		req, err := s.mutable(ctx, st, id)
		if err != nil {
			return err
		}
		req.ApprovalNotes = reason
		return applyTransition(ctx, st, req, requests.StateRejected, actorID, reason)
	})
	if err != nil {
		return err
	}
	s.log.Info("request rejected", slog.Int64("request_id", id), slog.Int64("actor_id", actorID))
	return nil
}

// RouteToPurchasing parks the request while missing stock is procured.
// Allowed from any non-final state, including after a partial dispatch.
func (s *Requests) RouteToPurchasing(ctx context.Context, id int64, actorID int64, notes string) error {
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		req, err := s.mutable(ctx, st, id)
		if err != nil {
			return err
		}
		return applyTransition(ctx, st, req, requests.StatePurchasing, actorID, notes)
	})
	if err != nil {
		return err
	}
	s.log.Info("request routed to purchasing", slog.Int64("request_id", id))
	return nil
}

// Cancel moves the request to the final CANCELLED state. Like Reject it
// demands a reason.
func (s *Requests) Cancel(ctx context.Context, id int64, actorID int64, reason string) error {
	if reason == "" {
		return &requests.ValidationError{Field: "reason", Code: requests.CodeRequired,
			Message: "cancellation needs a reason"}
	}
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		req, err := s.mutable(ctx, st, id)
		if err != nil {
			return err
		}
		return applyTransition(ctx, st, req, requests.StateCancelled, actorID, reason)
	})
	if err != nil {
		return err
	}
	s.log.Info("request cancelled", slog.Int64("request_id", id))
	return nil
}

// AddLine appends a line to a request that is still open.
func (s *Requests) AddLine(ctx context.Context, id int64, nl NewLine, actorID int64) (*requests.Line, error) {
	if nl.Quantity <= 0 {
		return nil, &requests.ValidationError{Field: "quantity", Code: requests.CodeNegative,
			Message: fmt.Sprintf("quantity must be positive, got %d", nl.Quantity)}
	}
	if !nl.Item.Valid() {
		return nil, &requests.ValidationError{Field: "item", Code: requests.CodeRequired,
			Message: "line references no item"}
	}

	var line *requests.Line
	err := s.db.WithinTx(ctx, func(st storage.Store) error {
		req, err := s.mutable(ctx, st, id)
		if err != nil {
			return err
		}
		if nl.Item.Kind != req.Kind {
			return &requests.ValidationError{Field: "item", Code: requests.CodeKindMismatch,
				Message: fmt.Sprintf("%s line on a %s request", nl.Item.Kind, req.Kind)}
		}
		line = &requests.Line{
			RequestID: req.ID,
			Item:      nl.Item,
			Requested: nl.Quantity,
			Notes:     nl.Notes,
		}
		return st.AddLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("line added", slog.Int64("request_id", id), slog.Int64("line_id", line.ID))
	return line, nil
}

// RemoveLine soft-retires a line. Lines with dispatched quantity stay: the
// ledger already references them.
func (s *Requests) RemoveLine(ctx context.Context, requestID, lineID int64, actorID int64) error {
	return s.db.WithinTx(ctx, func(st storage.Store) error {
		if _, err := s.mutable(ctx, st, requestID); err != nil {
			return err
		}
		line, err := st.LineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		if line.RequestID != requestID {
			return requests.ErrNotFound
		}
		if line.Dispatched > 0 {
			return &requests.ValidationError{Field: "line", Code: requests.CodeExceedsPending,
				Message: "line has dispatched quantity and cannot be removed"}
		}
		line.Retired = true
		return st.SaveLine(ctx, line)
	})
}

// PendingLines returns live lines that still have approved, undispatched
// quantity.
func (s *Requests) PendingLines(ctx context.Context, requestID int64) ([]requests.Line, error) {
	lines, err := s.db.LinesByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	var out []requests.Line
	for _, l := range lines {
		if !l.Retired && l.Pending() > 0 {
			out = append(out, l)
		}
	}
	return out, nil
}

// History returns the audit trail of a request in write order.
func (s *Requests) History(ctx context.Context, requestID int64) ([]requests.History, error) {
	return s.db.HistoryByRequest(ctx, requestID)
}

// Get returns a request with its lines.
func (s *Requests) Get(ctx context.Context, id int64) (*requests.Request, []requests.Line, error) {
	req, err := s.db.RequestByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.db.LinesByRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return req, lines, nil
}

// mutable loads and locks a request, refusing requests whose state is
// final.
func (s *Requests) mutable(ctx context.Context, st storage.Store, id int64) (*requests.Request, error) {
	req, err := st.RequestForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := st.StateByCode(ctx, req.State)
	if err != nil {
		return nil, err
	}
	if state.IsFinal {
		return nil, fmt.Errorf("request %s in state %s: %w", req.Number, req.State, requests.ErrAlreadyFinal)
	}
	return req, nil
}

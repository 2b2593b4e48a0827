package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

func (s *Store) StateByCode(ctx context.Context, code requests.StateCode) (*requests.State, error) {
	row := s.q.QueryRow(ctx, `
		SELECT code, name, is_initial, is_final, requires_action
		FROM request_states WHERE code = $1
	`, code)
	var st requests.State
	err := row.Scan(&st.Code, &st.Name, &st.IsInitial, &st.IsFinal, &st.RequiresAction)
	if err == pgx.ErrNoRows {
		return nil, requests.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) InitialState(ctx context.Context) (*requests.State, error) {
	row := s.q.QueryRow(ctx, `
		SELECT code, name, is_initial, is_final, requires_action
		FROM request_states WHERE is_initial
	`)
	var st requests.State
	err := row.Scan(&st.Code, &st.Name, &st.IsInitial, &st.IsFinal, &st.RequiresAction)
	if err == pgx.ErrNoRows {
		return nil, requests.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const requestCols = `id, number, kind, state, requestor_id, required_by,
	approver_id, approved_at, dispatcher_id, dispatched_at,
	warehouse_id, department_id, reason, notes, approval_notes, retired, created_at`

func scanRequest(row pgx.Row) (*requests.Request, error) {
	var r requests.Request
	err := row.Scan(&r.ID, &r.Number, &r.Kind, &r.State, &r.RequestorID, &r.RequiredBy,
		&r.ApproverID, &r.ApprovedAt, &r.DispatcherID, &r.DispatchedAt,
		&r.WarehouseID, &r.DepartmentID, &r.Reason, &r.Notes, &r.ApprovalNotes,
		&r.Retired, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, requests.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateRequest(ctx context.Context, r *requests.Request) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO requests (number, kind, state, requestor_id, required_by,
			warehouse_id, department_id, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at
	`, r.Number, r.Kind, r.State, r.RequestorID, r.RequiredBy,
		r.WarehouseID, r.DepartmentID, r.Reason, r.Notes)
	return row.Scan(&r.ID, &r.CreatedAt)
}

func (s *Store) RequestByID(ctx context.Context, id int64) (*requests.Request, error) {
	return scanRequest(s.q.QueryRow(ctx, `
		SELECT `+requestCols+` FROM requests WHERE id = $1
	`, id))
}

func (s *Store) RequestForUpdate(ctx context.Context, id int64) (*requests.Request, error) {
	return scanRequest(s.q.QueryRow(ctx, `
		SELECT `+requestCols+` FROM requests WHERE id = $1 FOR UPDATE
	`, id))
}

func (s *Store) SaveRequest(ctx context.Context, r *requests.Request) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE requests SET
			state = $2, approver_id = $3, approved_at = $4,
			dispatcher_id = $5, dispatched_at = $6,
			reason = $7, notes = $8, approval_notes = $9, retired = $10
		WHERE id = $1
	`, r.ID, r.State, r.ApproverID, r.ApprovedAt,
		r.DispatcherID, r.DispatchedAt,
		r.Reason, r.Notes, r.ApprovalNotes, r.Retired)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return requests.ErrNotFound
	}
	return nil
}

func (s *Store) RequestNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM requests WHERE number = $1)`, number).Scan(&exists)
	return exists, err
}

const lineCols = `id, request_id, article_id, asset_id, qty_requested, qty_approved, qty_dispatched, notes, retired`

func scanLine(row pgx.Row) (*requests.Line, error) {
	var (
		l         requests.Line
		articleID *int64
		assetID   *int64
	)
	err := row.Scan(&l.ID, &l.RequestID, &articleID, &assetID,
		&l.Requested, &l.Approved, &l.Dispatched, &l.Notes, &l.Retired)
	if err == pgx.ErrNoRows {
		return nil, requests.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if articleID != nil {
		l.Item = requests.ArticleRef(*articleID)
	} else if assetID != nil {
		l.Item = requests.AssetRef(*assetID)
	}
	return &l, nil
}

func itemColumns(item requests.ItemRef) (articleID, assetID *int64) {
	if item.Kind == requests.KindArticle {
		return &item.ArticleID, nil
	}
	return nil, &item.AssetID
}

func (s *Store) AddLine(ctx context.Context, l *requests.Line) error {
	articleID, assetID := itemColumns(l.Item)
	row := s.q.QueryRow(ctx, `
		INSERT INTO request_lines (request_id, article_id, asset_id,
			qty_requested, qty_approved, qty_dispatched, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, l.RequestID, articleID, assetID, l.Requested, l.Approved, l.Dispatched, l.Notes)
	return row.Scan(&l.ID)
}

func (s *Store) LinesByRequest(ctx context.Context, requestID int64) ([]requests.Line, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+lineCols+` FROM request_lines WHERE request_id = $1 ORDER BY id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []requests.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// LineForUpdate locks the line row so the quantity read-check-increment
// sequence cannot race a concurrent delivery against the same line.
func (s *Store) LineForUpdate(ctx context.Context, id int64) (*requests.Line, error) {
	return scanLine(s.q.QueryRow(ctx, `
		SELECT `+lineCols+` FROM request_lines WHERE id = $1 FOR UPDATE
	`, id))
}

func (s *Store) SaveLine(ctx context.Context, l *requests.Line) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE request_lines SET
			qty_approved = $2, qty_dispatched = $3, notes = $4, retired = $5
		WHERE id = $1
	`, l.ID, l.Approved, l.Dispatched, l.Notes, l.Retired)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return requests.ErrNotFound
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, h *requests.History) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO request_history (request_id, state_before, state_after, actor_id, notes, changed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, h.RequestID, h.StateBefore, h.StateAfter, h.ActorID, h.Notes, h.ChangedAt)
	return row.Scan(&h.ID)
}

func (s *Store) HistoryByRequest(ctx context.Context, requestID int64) ([]requests.History, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, request_id, state_before, state_after, actor_id, notes, changed_at
		FROM request_history WHERE request_id = $1 ORDER BY id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []requests.History
	for rows.Next() {
		var h requests.History
		if err := rows.Scan(&h.ID, &h.RequestID, &h.StateBefore, &h.StateAfter,
			&h.ActorID, &h.Notes, &h.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

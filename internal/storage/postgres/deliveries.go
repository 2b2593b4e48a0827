package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mcontrerasv/almacen/internal/domain/deliveries"
	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

func (s *Store) CreateDelivery(ctx context.Context, d *deliveries.Delivery) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO deliveries (number, kind, status, warehouse_id, department_id,
			delivered_by, received_by, request_id, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`, d.Number, d.Kind, d.Status, d.WarehouseID, d.DepartmentID,
		d.DeliveredBy, d.ReceivedBy, d.RequestID, d.Reason, d.Notes)
	return row.Scan(&d.ID, &d.CreatedAt)
}

func (s *Store) SaveDeliveryStatus(ctx context.Context, id int64, status deliveries.Status) error {
	tag, err := s.q.Exec(ctx, `UPDATE deliveries SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return requests.ErrNotFound
	}
	return nil
}

func (s *Store) DeliveryByID(ctx context.Context, id int64) (*deliveries.Delivery, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, number, kind, status, warehouse_id, department_id,
			delivered_by, received_by, request_id, reason, notes, created_at
		FROM deliveries WHERE id = $1
	`, id)
	var d deliveries.Delivery
	err := row.Scan(&d.ID, &d.Number, &d.Kind, &d.Status, &d.WarehouseID, &d.DepartmentID,
		&d.DeliveredBy, &d.ReceivedBy, &d.RequestID, &d.Reason, &d.Notes, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, requests.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) AddDeliveryLine(ctx context.Context, l *deliveries.Line) error {
	articleID, assetID := itemColumns(l.Item)
	row := s.q.QueryRow(ctx, `
		INSERT INTO delivery_lines (delivery_id, article_id, asset_id,
			request_line_id, qty, lot, serial_number, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, l.DeliveryID, articleID, assetID, l.RequestLineID, l.Quantity, l.Lot, l.SerialNumber, l.Notes)
	return row.Scan(&l.ID)
}

func (s *Store) DeliveryLines(ctx context.Context, deliveryID int64) ([]deliveries.Line, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, delivery_id, article_id, asset_id, request_line_id, qty, lot, serial_number, notes
		FROM delivery_lines WHERE delivery_id = $1 ORDER BY id
	`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []deliveries.Line
	for rows.Next() {
		var (
			l         deliveries.Line
			articleID *int64
			assetID   *int64
		)
		if err := rows.Scan(&l.ID, &l.DeliveryID, &articleID, &assetID,
			&l.RequestLineID, &l.Quantity, &l.Lot, &l.SerialNumber, &l.Notes); err != nil {
			return nil, err
		}
		if articleID != nil {
			l.Item = requests.ArticleRef(*articleID)
		} else if assetID != nil {
			l.Item = requests.AssetRef(*assetID)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LastDeliveryNumber returns the highest number under prefix, "" if the
// day's sequence has not started. The zero-padded suffix sorts correctly
// as text.
func (s *Store) LastDeliveryNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := s.q.QueryRow(ctx, `
		SELECT number FROM deliveries
		WHERE number LIKE $1 || '-%'
		ORDER BY number DESC LIMIT 1
	`, prefix).Scan(&number)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

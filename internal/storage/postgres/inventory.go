package postgres

import (
	"context"

	"github.com/mcontrerasv/almacen/internal/domain/inventory"
)

func (s *Store) AppendMovement(ctx context.Context, m *inventory.Movement) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO stock_movements (article_id, qty, op, actor_id, reason, stock_before, stock_after, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, m.ArticleID, m.Qty, m.Op, m.ActorID, m.Reason, m.StockBefore, m.StockAfter, m.CreatedAt)
	return row.Scan(&m.ID)
}

func (s *Store) MovementsByArticle(ctx context.Context, articleID int64, limit int) ([]inventory.Movement, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, article_id, qty, op, actor_id, reason, stock_before, stock_after, created_at
		FROM stock_movements WHERE article_id = $1
		ORDER BY id DESC LIMIT $2
	`, articleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovements(rows)
}

func (s *Store) Movements(ctx context.Context) ([]inventory.Movement, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, article_id, qty, op, actor_id, reason, stock_before, stock_after, created_at
		FROM stock_movements ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMovements(rows)
}

func collectMovements(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]inventory.Movement, error) {
	var out []inventory.Movement
	for rows.Next() {
		var m inventory.Movement
		if err := rows.Scan(&m.ID, &m.ArticleID, &m.Qty, &m.Op, &m.ActorID,
			&m.Reason, &m.StockBefore, &m.StockAfter, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

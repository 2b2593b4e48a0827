package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mcontrerasv/almacen/internal/domain/catalog"
)

const articleCols = `id, code, name, unit, warehouse_id, stock, min_stock, max_stock, active, created_at`

func scanArticle(row pgx.Row) (*catalog.Article, error) {
	var a catalog.Article
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Unit, &a.WarehouseID,
		&a.Stock, &a.MinStock, &a.MaxStock, &a.Active, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateArticle(ctx context.Context, a *catalog.Article) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO articles (code, name, unit, warehouse_id, stock, min_stock, max_stock, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE)
		RETURNING id, created_at
	`, a.Code, a.Name, a.Unit, a.WarehouseID, a.Stock, a.MinStock, a.MaxStock)
	a.Active = true
	return row.Scan(&a.ID, &a.CreatedAt)
}

func (s *Store) ArticleByID(ctx context.Context, id int64) (*catalog.Article, error) {
	return scanArticle(s.q.QueryRow(ctx, `
		SELECT `+articleCols+` FROM articles WHERE id = $1
	`, id))
}

// ArticleForUpdate locks the article row for the rest of the transaction so
// the read-check-decrement sequence cannot race another delivery.
func (s *Store) ArticleForUpdate(ctx context.Context, id int64) (*catalog.Article, error) {
	return scanArticle(s.q.QueryRow(ctx, `
		SELECT `+articleCols+` FROM articles WHERE id = $1 FOR UPDATE
	`, id))
}

func (s *Store) SaveArticleStock(ctx context.Context, id, stock int64) error {
	tag, err := s.q.Exec(ctx, `UPDATE articles SET stock = $2 WHERE id = $1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) ArticlesBelowMinimum(ctx context.Context) ([]catalog.Article, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+articleCols+` FROM articles
		WHERE active AND stock < min_stock
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Article
	for rows.Next() {
		var a catalog.Article
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Unit, &a.WarehouseID,
			&a.Stock, &a.MinStock, &a.MaxStock, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateAsset(ctx context.Context, a *catalog.Asset) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO assets (code, name, requires_serial, active)
		VALUES ($1,$2,$3,TRUE)
		RETURNING id, created_at
	`, a.Code, a.Name, a.RequiresSerial)
	a.Active = true
	return row.Scan(&a.ID, &a.CreatedAt)
}

func (s *Store) AssetByID(ctx context.Context, id int64) (*catalog.Asset, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, code, name, requires_serial, active, created_at
		FROM assets WHERE id = $1
	`, id)
	var a catalog.Asset
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.RequiresSerial, &a.Active, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateWarehouse(ctx context.Context, w *catalog.Warehouse) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO warehouses (code, name, active) VALUES ($1,$2,TRUE)
		RETURNING id, created_at
	`, w.Code, w.Name)
	w.Active = true
	return row.Scan(&w.ID, &w.CreatedAt)
}

func (s *Store) WarehouseByID(ctx context.Context, id int64) (*catalog.Warehouse, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, code, name, active, created_at FROM warehouses WHERE id = $1
	`, id)
	var w catalog.Warehouse
	err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Active, &w.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d *catalog.Department) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO departments (code, name, active) VALUES ($1,$2,TRUE)
		RETURNING id, created_at
	`, d.Code, d.Name)
	d.Active = true
	return row.Scan(&d.ID, &d.CreatedAt)
}

func (s *Store) DepartmentByID(ctx context.Context, id int64) (*catalog.Department, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, code, name, active, created_at FROM departments WHERE id = $1
	`, id)
	var d catalog.Department
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Active, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

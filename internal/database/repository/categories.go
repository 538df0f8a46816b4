package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// CategoryRepo handles categories and subcategories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories(name) VALUES(?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert category %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (r *CategoryRepo) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return c, err
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateSubcategory validates the parent category before inserting.
func (r *CategoryRepo) CreateSubcategory(ctx context.Context, categoryID int64, name string) (int64, error) {
	if _, err := r.Get(ctx, categoryID); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO subcategories(category_id, name) VALUES(?, ?);
	`, categoryID, name)
	if err != nil {
		return 0, fmt.Errorf("insert subcategory %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (r *CategoryRepo) GetSubcategory(ctx context.Context, id int64) (Subcategory, error) {
	var s Subcategory
	err := r.db.QueryRowContext(ctx, `
	SELECT id, category_id, name FROM subcategories WHERE id = ?;
	`, id).Scan(&s.ID, &s.CategoryID, &s.Name)
	if err == sql.ErrNoRows {
		return Subcategory{}, fmt.Errorf("subcategory %d: %w", id, ErrNotFound)
	}
	return s, err
}

func (r *CategoryRepo) ListSubcategories(ctx context.Context, categoryID int64) ([]Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, category_id, name FROM subcategories WHERE category_id = ? ORDER BY name;
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subcategory
	for rows.Next() {
		var s Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

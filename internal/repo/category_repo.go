package repo

import (
	"context"
	"fmt"

	dom "github.com/bryan-kier/productivity/internal/domain"
)

const categoryColumns = `id, user_id, name`

func scanCategory(row rowScanner) (dom.Category, error) {
	var c dom.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name)
	return c, err
}

func (r *pgScope) ListCategories(ctx context.Context) ([]dom.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories WHERE user_id = $1 ORDER BY name, id`, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	list := []dom.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *pgScope) GetCategory(ctx context.Context, id string) (dom.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `
		SELECT `+categoryColumns+`
		FROM categories WHERE id = $1 AND user_id = $2`, id, r.owner))
	return c, notFound(err)
}

func (r *pgScope) CreateCategory(ctx context.Context, name string) (dom.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `
		INSERT INTO categories (id, name, user_id)
		VALUES ($1, $2, $3)
		RETURNING `+categoryColumns, r.id(), name, r.owner))
	if err != nil {
		return dom.Category{}, wrapWrite("create category", err)
	}
	return c, nil
}

func (r *pgScope) UpdateCategory(ctx context.Context, id, name string) (dom.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `
		UPDATE categories SET name = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+categoryColumns, id, r.owner, name))
	return c, notFound(err)
}

// DeleteCategory removes the category; tasks and notes keep existing with a
// NULL category_id (ON DELETE SET NULL).
func (r *pgScope) DeleteCategory(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, r.owner)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

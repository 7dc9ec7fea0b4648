package repo

import (
	"context"
	"fmt"

	dom "github.com/bryan-kier/productivity/internal/domain"
)

const noteColumns = `id, user_id, title, content, category_id, "order"`

func scanNote(row rowScanner, extra ...any) (dom.Note, error) {
	var n dom.Note
	dest := []any{&n.ID, &n.UserID, &n.Title, &n.Content, &n.CategoryID, &n.Order}
	err := row.Scan(append(dest, extra...)...)
	return n, err
}

func (r *pgScope) ListNotes(ctx context.Context) ([]dom.Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT n.id, n.user_id, n.title, n.content, n.category_id, n."order", c.name
		FROM notes n
		LEFT JOIN categories c ON c.id = n.category_id AND c.user_id = n.user_id
		WHERE n.user_id = $1
		ORDER BY n."order" ASC, n.id ASC`, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	list := []dom.Note{}
	for rows.Next() {
		var name *string
		n, err := scanNote(rows, &name)
		if err != nil {
			return nil, err
		}
		n.CategoryName = name
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *pgScope) GetNote(ctx context.Context, id string) (dom.Note, error) {
	n, err := scanNote(r.db.QueryRow(ctx, `
		SELECT `+noteColumns+`
		FROM notes WHERE id = $1 AND user_id = $2`, id, r.owner))
	return n, notFound(err)
}

func (r *pgScope) CreateNote(ctx context.Context, in NewNote) (dom.Note, error) {
	if err := r.ownCategory(ctx, in.CategoryID); err != nil {
		return dom.Note{}, err
	}
	n, err := scanNote(r.db.QueryRow(ctx, `
		INSERT INTO notes (id, title, content, category_id, "order", user_id)
		VALUES ($1, $2, $3, $4,
		        (SELECT COALESCE(MAX("order"), -1) + 1 FROM notes WHERE user_id = $5), $5)
		RETURNING `+noteColumns,
		r.id(), in.Title, in.Content, in.CategoryID, r.owner))
	if err != nil {
		return dom.Note{}, wrapWrite("create note", err)
	}
	return n, nil
}

func (r *pgScope) UpdateNote(ctx context.Context, id string, p NotePatch) (dom.Note, error) {
	if p.CategoryID.Set {
		if err := r.ownCategory(ctx, p.CategoryID.Value); err != nil {
			return dom.Note{}, err
		}
	}
	var b setBuilder
	if p.Title != nil {
		b.add("title", *p.Title)
	}
	if p.Content != nil {
		b.add("content", *p.Content)
	}
	if p.CategoryID.Set {
		b.add("category_id", p.CategoryID.Value)
	}
	if b.empty() {
		return r.GetNote(ctx, id)
	}
	query := `UPDATE notes SET ` + b.clause() +
		` WHERE id = ` + b.next(id) + ` AND user_id = ` + b.next(r.owner) +
		` RETURNING ` + noteColumns
	n, err := scanNote(r.db.QueryRow(ctx, query, b.args...))
	if err != nil {
		return dom.Note{}, wrapWrite("update note", err)
	}
	return n, nil
}

func (r *pgScope) DeleteNote(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, r.owner)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (r *pgScope) ReorderNotes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE notes n SET "order" = v.pos - 1
		FROM unnest($1::text[]) WITH ORDINALITY AS v(id, pos)
		WHERE n.id = v.id AND n.user_id = $2`, ids, r.owner)
	if err != nil {
		return fmt.Errorf("reorder notes: %w", err)
	}
	return nil
}

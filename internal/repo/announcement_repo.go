package repo

import (
	"context"
	"fmt"

	dom "github.com/bryan-kier/productivity/internal/domain"

	"github.com/jackc/pgx/v5"
)

const announcementColumns = `id, user_id, message, updated_at`

func scanAnnouncement(row rowScanner) (dom.Announcement, error) {
	var a dom.Announcement
	err := row.Scan(&a.ID, &a.UserID, &a.Message, &a.UpdatedAt)
	return a, err
}

// GetAnnouncement returns the owner's most recently updated announcement.
func (r *pgScope) GetAnnouncement(ctx context.Context) (dom.Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRow(ctx, `
		SELECT `+announcementColumns+`
		FROM announcements WHERE user_id = $1
		ORDER BY updated_at DESC LIMIT 1`, r.owner))
	return a, notFound(err)
}

// UpsertAnnouncement replaces the current announcement's message, creating
// the row on first use.
func (r *pgScope) UpsertAnnouncement(ctx context.Context, message string) (dom.Announcement, error) {
	var out dom.Announcement
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		out, err = scanAnnouncement(tx.QueryRow(ctx, `
			UPDATE announcements SET message = $1, updated_at = NOW()
			WHERE id = (SELECT id FROM announcements WHERE user_id = $2 ORDER BY updated_at DESC LIMIT 1)
			RETURNING `+announcementColumns, message, r.owner))
		if err == nil {
			return nil
		}
		if notFound(err) != ErrNotFound {
			return err
		}
		out, err = scanAnnouncement(tx.QueryRow(ctx, `
			INSERT INTO announcements (id, message, user_id, updated_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING `+announcementColumns, r.id(), message, r.owner))
		return err
	})
	if err != nil {
		return dom.Announcement{}, fmt.Errorf("upsert announcement: %w", err)
	}
	return out, nil
}

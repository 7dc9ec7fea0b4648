package service

import (
	"context"
	"errors"

	"github.com/bryan-kier/productivity/internal/cache"
	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/repo"

	"go.uber.org/zap"
)

// NoteService covers notes and the owner's announcement banner.
type NoteService struct {
	store repo.Store
	lists *lists
}

// NewNoteService creates a NoteService. If c is nil, caching is disabled.
func NewNoteService(s repo.Store, c *cache.ListCache, log *zap.Logger) *NoteService {
	return &NoteService{store: s, lists: newLists(c, log)}
}

func (s *NoteService) List(ctx context.Context, owner string) ([]dom.Note, error) {
	return cachedList(ctx, s.lists, owner, cache.KindNotes, func() ([]dom.Note, error) {
		return s.store.ForOwner(owner).ListNotes(ctx)
	})
}

func (s *NoteService) Create(ctx context.Context, owner string, in repo.NewNote) (dom.Note, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return dom.Note{}, err
	}
	in.Title = title
	in.CategoryID = blankToNil(in.CategoryID)
	n, err := s.store.ForOwner(owner).CreateNote(ctx, in)
	if err != nil {
		return dom.Note{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindNotes)
	return n, nil
}

func (s *NoteService) Update(ctx context.Context, owner, id string, p repo.NotePatch) (dom.Note, error) {
	if p.Title != nil {
		title, err := requireText("title", *p.Title)
		if err != nil {
			return dom.Note{}, err
		}
		p.Title = &title
	}
	if p.CategoryID.Set {
		p.CategoryID.Value = blankToNil(p.CategoryID.Value)
	}
	n, err := s.store.ForOwner(owner).UpdateNote(ctx, id, p)
	if err != nil {
		return dom.Note{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindNotes)
	return n, nil
}

func (s *NoteService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.ForOwner(owner).DeleteNote(ctx, id); err != nil {
		return err
	}
	s.lists.invalidate(ctx, owner, cache.KindNotes)
	return nil
}

func (s *NoteService) Reorder(ctx context.Context, owner string, ids []string) error {
	if err := s.store.ForOwner(owner).ReorderNotes(ctx, ids); err != nil {
		return err
	}
	s.lists.invalidate(ctx, owner, cache.KindNotes)
	return nil
}

// Announcement returns the current announcement, or nil when the owner has none.
func (s *NoteService) Announcement(ctx context.Context, owner string) (*dom.Announcement, error) {
	a, err := s.store.ForOwner(owner).GetAnnouncement(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *NoteService) SetAnnouncement(ctx context.Context, owner, message string) (dom.Announcement, error) {
	return s.store.ForOwner(owner).UpsertAnnouncement(ctx, message)
}

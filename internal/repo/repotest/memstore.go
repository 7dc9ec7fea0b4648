// Package repotest provides an in-memory repo.Store for tests of the layers
// above the database.
package repotest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/repo"
)

// MemStore mirrors the Postgres semantics of repo.PGStore: owner filtering,
// ON DELETE SET NULL for categories, ON DELETE CASCADE for subtasks.
type MemStore struct {
	mu  sync.Mutex
	seq int

	categories    map[string]dom.Category
	tasks         map[string]dom.Task
	subtasks      map[string]memSubtask
	notes         map[string]dom.Note
	announcements map[string]dom.Announcement

	// Now stamps completed_at and updated_at. Defaults to time.Now.
	Now func() time.Time
	// Fail, when set, is returned by every accessor call for that owner.
	Fail map[string]error
	// PingErr is returned by Ping.
	PingErr error
}

type memSubtask struct {
	dom.Subtask
	created int
}

var _ repo.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		categories:    map[string]dom.Category{},
		tasks:         map[string]dom.Task{},
		subtasks:      map[string]memSubtask{},
		notes:         map[string]dom.Note{},
		announcements: map[string]dom.Announcement{},
		Now:           time.Now,
		Fail:          map[string]error{},
	}
}

func (m *MemStore) ForOwner(owner string) repo.Accessor {
	return &memScope{m: m, owner: owner}
}

func (m *MemStore) Ping(ctx context.Context) error { return m.PingErr }

func (m *MemStore) Owners(ctx context.Context) ([]string, error) {
	return m.owners(func(dom.Task) bool { return true }), nil
}

func (m *MemStore) OwnersWithRefresh(ctx context.Context, rt dom.RefreshType) ([]string, error) {
	return m.owners(func(t dom.Task) bool { return t.RefreshType == rt }), nil
}

func (m *MemStore) owners(match func(dom.Task) bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, t := range m.tasks {
		if match(t) && !seen[t.UserID] {
			seen[t.UserID] = true
			out = append(out, t.UserID)
		}
	}
	sort.Strings(out)
	return out
}

// Subtask returns the stored subtask regardless of owner; ok is false when absent.
func (m *MemStore) Subtask(id string) (dom.Subtask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subtasks[id]
	return s.Subtask, ok
}

// Task returns the stored task regardless of owner.
func (m *MemStore) Task(id string) (dom.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// SetCompletedAt overrides a task's completion stamp, for purge tests.
func (m *MemStore) SetCompletedAt(taskID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[taskID]
	t.Completed = true
	t.CompletedAt = &at
	m.tasks[taskID] = t
}

// SetSubtaskCompletedAt overrides a subtask's completion stamp.
func (m *MemStore) SetSubtaskCompletedAt(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subtasks[id]
	s.Completed = true
	s.CompletedAt = &at
	m.subtasks[id] = s
}

func (m *MemStore) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

type memScope struct {
	m     *MemStore
	owner string
}

func (s *memScope) lock() (func(), error) {
	s.m.mu.Lock()
	if err := s.m.Fail[s.owner]; err != nil {
		s.m.mu.Unlock()
		return nil, err
	}
	return s.m.mu.Unlock, nil
}

func (s *memScope) now() time.Time { return s.m.Now().UTC() }

// ownsCategory reports whether id is nil or one of the owner's categories.
func (s *memScope) ownsCategory(id *string) bool {
	if id == nil {
		return true
	}
	c, ok := s.m.categories[*id]
	return ok && c.UserID == s.owner
}

func (s *memScope) categoryName(id *string) *string {
	if id == nil {
		return nil
	}
	c, ok := s.m.categories[*id]
	if !ok || c.UserID != s.owner {
		return nil
	}
	name := c.Name
	return &name
}

func (s *memScope) ListCategories(ctx context.Context) ([]dom.Category, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	list := []dom.Category{}
	for _, c := range s.m.categories {
		if c.UserID == s.owner {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *memScope) GetCategory(ctx context.Context, id string) (dom.Category, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Category{}, err
	}
	defer unlock()
	c, ok := s.m.categories[id]
	if !ok || c.UserID != s.owner {
		return dom.Category{}, repo.ErrNotFound
	}
	return c, nil
}

func (s *memScope) CreateCategory(ctx context.Context, name string) (dom.Category, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Category{}, err
	}
	defer unlock()
	c := dom.Category{ID: s.m.nextID("cat"), UserID: s.owner, Name: name}
	s.m.categories[c.ID] = c
	return c, nil
}

func (s *memScope) UpdateCategory(ctx context.Context, id, name string) (dom.Category, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Category{}, err
	}
	defer unlock()
	c, ok := s.m.categories[id]
	if !ok || c.UserID != s.owner {
		return dom.Category{}, repo.ErrNotFound
	}
	c.Name = name
	s.m.categories[id] = c
	return c, nil
}

func (s *memScope) DeleteCategory(ctx context.Context, id string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	c, ok := s.m.categories[id]
	if !ok || c.UserID != s.owner {
		return nil
	}
	delete(s.m.categories, id)
	for tid, t := range s.m.tasks {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			s.m.tasks[tid] = t
		}
	}
	for nid, n := range s.m.notes {
		if n.CategoryID != nil && *n.CategoryID == id {
			n.CategoryID = nil
			s.m.notes[nid] = n
		}
	}
	return nil
}

func (s *memScope) ListTasks(ctx context.Context) ([]dom.Task, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	list := []dom.Task{}
	for _, t := range s.m.tasks {
		if t.UserID != s.owner {
			continue
		}
		t.CategoryName = s.categoryName(t.CategoryID)
		t.Subtasks = s.subtasksOf(t.ID)
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		di, dj := list[i].RefreshType == dom.RefreshDaily, list[j].RefreshType == dom.RefreshDaily
		if di != dj {
			return di
		}
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *memScope) subtasksOf(taskID string) []dom.Subtask {
	var rows []memSubtask
	for _, st := range s.m.subtasks {
		if st.TaskID == taskID {
			rows = append(rows, st)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].created < rows[j].created })
	out := make([]dom.Subtask, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Subtask)
	}
	return out
}

func (s *memScope) getTask(id string) (dom.Task, bool) {
	t, ok := s.m.tasks[id]
	if !ok || t.UserID != s.owner {
		return dom.Task{}, false
	}
	return t, true
}

func (s *memScope) GetTask(ctx context.Context, id string) (dom.Task, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Task{}, err
	}
	defer unlock()
	t, ok := s.getTask(id)
	if !ok {
		return dom.Task{}, repo.ErrNotFound
	}
	return t, nil
}

func (s *memScope) CreateTask(ctx context.Context, in repo.NewTask) (dom.Task, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Task{}, err
	}
	defer unlock()
	if !s.ownsCategory(in.CategoryID) {
		return dom.Task{}, repo.ErrInvalidReference
	}
	order := 0
	first := true
	for _, t := range s.m.tasks {
		if t.UserID == s.owner && (first || t.Order+1 > order) {
			order = t.Order + 1
			first = false
		}
	}
	t := dom.Task{
		ID:          s.m.nextID("task"),
		UserID:      s.owner,
		Title:       in.Title,
		RefreshType: in.RefreshType,
		CategoryID:  in.CategoryID,
		Deadline:    in.Deadline,
		Order:       order,
	}
	s.m.tasks[t.ID] = t
	return t, nil
}

func (s *memScope) completion(completed bool, at *time.Time, to bool) *time.Time {
	switch {
	case !to:
		return nil
	case completed:
		return at
	default:
		now := s.now()
		return &now
	}
}

func (s *memScope) UpdateTask(ctx context.Context, id string, p repo.TaskPatch) (dom.Task, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Task{}, err
	}
	defer unlock()
	t, ok := s.getTask(id)
	if !ok {
		return dom.Task{}, repo.ErrNotFound
	}
	if p.CategoryID.Set && !s.ownsCategory(p.CategoryID.Value) {
		return dom.Task{}, repo.ErrInvalidReference
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.RefreshType != nil {
		t.RefreshType = *p.RefreshType
	}
	if p.CategoryID.Set {
		t.CategoryID = p.CategoryID.Value
	}
	if p.Deadline.Set {
		t.Deadline = p.Deadline.Value
	}
	if p.Completed != nil {
		t.CompletedAt = s.completion(t.Completed, t.CompletedAt, *p.Completed)
		t.Completed = *p.Completed
	}
	s.m.tasks[id] = t
	return t, nil
}

func (s *memScope) DeleteTask(ctx context.Context, id string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.getTask(id); !ok {
		return nil
	}
	s.deleteTask(id)
	return nil
}

func (s *memScope) deleteTask(id string) {
	delete(s.m.tasks, id)
	for sid, st := range s.m.subtasks {
		if st.TaskID == id {
			delete(s.m.subtasks, sid)
		}
	}
}

func (s *memScope) ReorderTasks(ctx context.Context, ids []string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for i, id := range ids {
		if t, ok := s.getTask(id); ok {
			t.Order = i
			s.m.tasks[id] = t
		}
	}
	return nil
}

func (s *memScope) ResetTasks(ctx context.Context, rt dom.RefreshType, now time.Time) (repo.ResetResult, error) {
	unlock, err := s.lock()
	if err != nil {
		return repo.ResetResult{}, err
	}
	defer unlock()
	var res repo.ResetResult
	for id, t := range s.m.tasks {
		if t.UserID != s.owner || t.RefreshType != rt {
			continue
		}
		t.Completed = false
		t.CompletedAt = nil
		stamp := now
		t.LastRefreshed = &stamp
		s.m.tasks[id] = t
		res.Tasks++
		for sid, st := range s.m.subtasks {
			if st.TaskID == id {
				st.Completed = false
				st.CompletedAt = nil
				s.m.subtasks[sid] = st
				res.Subtasks++
			}
		}
	}
	return res, nil
}

func (s *memScope) DeleteCompletedTasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	unlock, err := s.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, t := range s.m.tasks {
		if t.UserID == s.owner && t.Completed && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			s.deleteTask(id)
			n++
		}
	}
	return n, nil
}

func (s *memScope) ownedSubtask(id string) (memSubtask, bool) {
	st, ok := s.m.subtasks[id]
	if !ok {
		return memSubtask{}, false
	}
	if _, ok := s.getTask(st.TaskID); !ok {
		return memSubtask{}, false
	}
	return st, true
}

func (s *memScope) ListSubtasks(ctx context.Context, taskID string) ([]dom.Subtask, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	if _, ok := s.getTask(taskID); !ok {
		return []dom.Subtask{}, nil
	}
	return s.subtasksOf(taskID), nil
}

func (s *memScope) CreateSubtask(ctx context.Context, in repo.NewSubtask) (dom.Subtask, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Subtask{}, err
	}
	defer unlock()
	if _, ok := s.getTask(in.TaskID); !ok {
		return dom.Subtask{}, repo.ErrNotFound
	}
	s.m.seq++
	st := memSubtask{
		Subtask: dom.Subtask{ID: "sub-" + strconv.Itoa(s.m.seq), TaskID: in.TaskID, Title: in.Title, Deadline: in.Deadline},
		created: s.m.seq,
	}
	s.m.subtasks[st.ID] = st
	return st.Subtask, nil
}

func (s *memScope) UpdateSubtask(ctx context.Context, id string, p repo.SubtaskPatch) (dom.Subtask, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Subtask{}, err
	}
	defer unlock()
	st, ok := s.ownedSubtask(id)
	if !ok {
		return dom.Subtask{}, repo.ErrNotFound
	}
	if p.Title != nil {
		st.Title = *p.Title
	}
	if p.Deadline.Set {
		st.Deadline = p.Deadline.Value
	}
	if p.Completed != nil {
		st.CompletedAt = s.completion(st.Completed, st.CompletedAt, *p.Completed)
		st.Completed = *p.Completed
	}
	s.m.subtasks[id] = st
	return st.Subtask, nil
}

func (s *memScope) DeleteSubtask(ctx context.Context, id string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.ownedSubtask(id); ok {
		delete(s.m.subtasks, id)
	}
	return nil
}

func (s *memScope) DeleteCompletedSubtasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	unlock, err := s.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id := range s.m.subtasks {
		st, ok := s.ownedSubtask(id)
		if ok && st.Completed && st.CompletedAt != nil && st.CompletedAt.Before(cutoff) {
			delete(s.m.subtasks, id)
			n++
		}
	}
	return n, nil
}

func (s *memScope) ListNotes(ctx context.Context) ([]dom.Note, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	list := []dom.Note{}
	for _, n := range s.m.notes {
		if n.UserID == s.owner {
			n.CategoryName = s.categoryName(n.CategoryID)
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *memScope) GetNote(ctx context.Context, id string) (dom.Note, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Note{}, err
	}
	defer unlock()
	n, ok := s.m.notes[id]
	if !ok || n.UserID != s.owner {
		return dom.Note{}, repo.ErrNotFound
	}
	return n, nil
}

func (s *memScope) CreateNote(ctx context.Context, in repo.NewNote) (dom.Note, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Note{}, err
	}
	defer unlock()
	if !s.ownsCategory(in.CategoryID) {
		return dom.Note{}, repo.ErrInvalidReference
	}
	order := 0
	first := true
	for _, n := range s.m.notes {
		if n.UserID == s.owner && (first || n.Order+1 > order) {
			order = n.Order + 1
			first = false
		}
	}
	n := dom.Note{
		ID:         s.m.nextID("note"),
		UserID:     s.owner,
		Title:      in.Title,
		Content:    in.Content,
		CategoryID: in.CategoryID,
		Order:      order,
	}
	s.m.notes[n.ID] = n
	return n, nil
}

func (s *memScope) UpdateNote(ctx context.Context, id string, p repo.NotePatch) (dom.Note, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Note{}, err
	}
	defer unlock()
	n, ok := s.m.notes[id]
	if !ok || n.UserID != s.owner {
		return dom.Note{}, repo.ErrNotFound
	}
	if p.CategoryID.Set && !s.ownsCategory(p.CategoryID.Value) {
		return dom.Note{}, repo.ErrInvalidReference
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.CategoryID.Set {
		n.CategoryID = p.CategoryID.Value
	}
	s.m.notes[id] = n
	return n, nil
}

func (s *memScope) DeleteNote(ctx context.Context, id string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if n, ok := s.m.notes[id]; ok && n.UserID == s.owner {
		delete(s.m.notes, id)
	}
	return nil
}

func (s *memScope) ReorderNotes(ctx context.Context, ids []string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	for i, id := range ids {
		if n, ok := s.m.notes[id]; ok && n.UserID == s.owner {
			n.Order = i
			s.m.notes[id] = n
		}
	}
	return nil
}

func (s *memScope) GetAnnouncement(ctx context.Context) (dom.Announcement, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Announcement{}, err
	}
	defer unlock()
	a, ok := s.m.announcements[s.owner]
	if !ok {
		return dom.Announcement{}, repo.ErrNotFound
	}
	return a, nil
}

func (s *memScope) UpsertAnnouncement(ctx context.Context, message string) (dom.Announcement, error) {
	unlock, err := s.lock()
	if err != nil {
		return dom.Announcement{}, err
	}
	defer unlock()
	a, ok := s.m.announcements[s.owner]
	if !ok {
		a = dom.Announcement{ID: s.m.nextID("ann"), UserID: s.owner}
	}
	a.Message = message
	a.UpdatedAt = s.now()
	s.m.announcements[s.owner] = a
	return a, nil
}

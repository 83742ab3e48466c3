package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	dom "Tasklist/internal/domain"
	"Tasklist/internal/storage"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// taskInput is the rule shared by create and update.
type taskInput struct {
	Text string `validate:"required"`
	Date string `validate:"required,datetime=2006-01-02"`
}

// Mutation is the outcome of a successful change. SaveErr is the result of
// the one save attempt that followed it; the change stands either way.
type Mutation struct {
	Task    dom.Task
	Created bool
	// Editing reports whether Task is the edit target after the change.
	Editing bool
	SaveErr error
}

// Snapshot is a consistent read of the store taken under one lock.
type Snapshot struct {
	Filter  dom.Filter
	EditID  dom.TaskID
	Editing bool
	Counts  dom.Counts
	Items   []dom.Task
}

// TaskStore owns the ordered task list (newest first), the current filter
// and the edit target. Every mutation is followed by one best-effort save
// of the full snapshot; a failed save never undoes the mutation.
//
// Calls are serialized, so each operation runs to completion before the next.
type TaskStore struct {
	mu       sync.Mutex
	slot     storage.Slot
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time

	tasks   []dom.Task
	filter  dom.Filter
	editID  dom.TaskID
	editing bool
	lastID  dom.TaskID

	loadErr error
	saveErr error
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.now = now }
}

// NewTaskStore restores the saved snapshot from slot. Load failures leave an
// empty, usable store and are reported by LoadError.
func NewTaskStore(ctx context.Context, slot storage.Slot, log *slog.Logger, opts ...Option) *TaskStore {
	if log == nil {
		log = slog.Default()
	}
	s := &TaskStore{
		slot:     slot,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
		filter:   dom.FilterAll,
	}
	for _, opt := range opts {
		opt(s)
	}

	tasks, err := slot.Load(ctx)
	if err != nil {
		s.loadErr = err
		s.log.Warn("task snapshot not restored, starting empty", "error", err)
		tasks = nil
	}
	s.tasks = append([]dom.Task(nil), tasks...)
	for _, t := range s.tasks {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.log.Info("task store ready", "tasks", len(s.tasks))
	return s
}

// Create validates the input and puts a new task at the front of the list.
func (s *TaskStore) Create(ctx context.Context, text, date string) (Mutation, error) {
	text, date, err := s.checkInput(text, date)
	if err != nil {
		return Mutation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, text, date), nil
}

// Update replaces text and date in place. The task keeps its position,
// id, completion state and creation time. Updating the edit target ends the edit.
func (s *TaskStore) Update(ctx context.Context, id dom.TaskID, text, date string) (Mutation, error) {
	text, date, err := s.checkInput(text, date)
	if err != nil {
		return Mutation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, text, date)
}

// Submit handles the task form: it updates the edit target when there is one
// and creates a new task otherwise. Mutation.Created tells the two apart.
func (s *TaskStore) Submit(ctx context.Context, text, date string) (Mutation, error) {
	text, date, err := s.checkInput(text, date)
	if err != nil {
		return Mutation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing {
		return s.update(ctx, s.editID, text, date)
	}
	return s.create(ctx, text, date), nil
}

// Toggle flips the completion state.
func (s *TaskStore) Toggle(ctx context.Context, id dom.TaskID) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Mutation{}, ErrNotFound
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	saveErr := s.persist(ctx, "toggle")
	return s.mutation(s.tasks[i], false, saveErr), nil
}

// Remove deletes one task, keeping the order of the rest.
// Mutation.Task is the removed task.
func (s *TaskStore) Remove(ctx context.Context, id dom.TaskID) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Mutation{}, ErrNotFound
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	if s.editing && s.editID == id {
		s.clearEdit()
	}
	saveErr := s.persist(ctx, "remove")
	return Mutation{Task: removed, SaveErr: saveErr}, nil
}

// Clear deletes every task and ends any edit. It returns how many tasks were
// removed and the outcome of the save that followed.
// Asking the user for confirmation is the caller's job.
func (s *TaskStore) Clear(ctx context.Context) (removed int, saveErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed = len(s.tasks)
	s.tasks = nil
	s.clearEdit()
	return removed, s.persist(ctx, "clear")
}

// BeginEdit makes id the edit target and returns the task to edit.
// An unknown id leaves the current target as it was.
func (s *TaskStore) BeginEdit(id dom.TaskID) (dom.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return dom.Task{}, ErrNotFound
	}
	s.editID = id
	s.editing = true
	return s.tasks[i], nil
}

// CancelEdit clears the edit target. It is a no-op when nothing is being edited.
func (s *TaskStore) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearEdit()
}

// EditTarget returns the id being edited, if any.
func (s *TaskStore) EditTarget() (dom.TaskID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editID, s.editing
}

// SetFilter switches the filter. Unknown modes are rejected and the filter stays unchanged.
func (s *TaskStore) SetFilter(mode string) error {
	f, err := dom.ParseFilter(mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	return nil
}

// Filter returns the current filter.
func (s *TaskStore) Filter() dom.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Filtered returns a fresh copy of the tasks matching the current filter, in store order.
func (s *TaskStore) Filtered() []dom.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Apply(s.tasks)
}

// FilteredBy is Filtered for an explicit mode; the current filter is not touched.
func (s *TaskStore) FilteredBy(f dom.Filter) []dom.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.tasks)
}

// Snapshot returns the tasks matching f together with the current filter,
// edit target and counts. An empty f means the current filter; it is not switched.
func (s *TaskStore) Snapshot(f dom.Filter) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f == "" {
		f = s.filter
	}
	return Snapshot{
		Filter:  f,
		EditID:  s.editID,
		Editing: s.editing,
		Counts:  dom.CountTasks(s.tasks),
		Items:   f.Apply(s.tasks),
	}
}

// Tasks returns a copy of the whole list.
func (s *TaskStore) Tasks() []dom.Task {
	return s.FilteredBy(dom.FilterAll)
}

// Get returns one task by id.
func (s *TaskStore) Get(id dom.TaskID) (dom.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return dom.Task{}, ErrNotFound
	}
	return s.tasks[i], nil
}

// Counts returns total, active and completed counts.
func (s *TaskStore) Counts() dom.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dom.CountTasks(s.tasks)
}

// LastSaveError is the result of the most recent save attempt by any caller.
// Per-call outcomes are in Mutation.SaveErr.
func (s *TaskStore) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// LoadError is the error met while restoring the snapshot, if any.
func (s *TaskStore) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *TaskStore) create(ctx context.Context, text, date string) Mutation {
	t := dom.Task{
		ID:        s.nextID(),
		Text:      text,
		Date:      date,
		CreatedAt: s.now().UTC(),
	}
	s.tasks = append([]dom.Task{t}, s.tasks...)
	saveErr := s.persist(ctx, "create")
	return s.mutation(t, true, saveErr)
}

func (s *TaskStore) update(ctx context.Context, id dom.TaskID, text, date string) (Mutation, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Mutation{}, ErrNotFound
	}
	s.tasks[i].Text = text
	s.tasks[i].Date = date
	if s.editing && s.editID == id {
		s.clearEdit()
	}
	saveErr := s.persist(ctx, "update")
	return s.mutation(s.tasks[i], false, saveErr), nil
}

// mutation builds the result of a change. Caller holds s.mu.
func (s *TaskStore) mutation(t dom.Task, created bool, saveErr error) Mutation {
	return Mutation{
		Task:    t,
		Created: created,
		Editing: s.editing && s.editID == t.ID,
		SaveErr: saveErr,
	}
}

func (s *TaskStore) checkInput(text, date string) (string, string, error) {
	in := taskInput{Text: strings.TrimSpace(text), Date: strings.TrimSpace(date)}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return "", "", fmt.Errorf("%w: %s", ErrValidation, describe(verrs[0]))
		}
		return "", "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return in.Text, in.Date, nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return field + " must be a date like 2006-01-02"
}

// nextID is wall-clock milliseconds, bumped past the last id so two tasks
// created in the same tick still get distinct, increasing ids.
func (s *TaskStore) nextID() dom.TaskID {
	id := dom.TaskID(s.now().UnixMilli())
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *TaskStore) indexOf(id dom.TaskID) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) clearEdit() {
	s.editID = 0
	s.editing = false
}

// persist makes a single save attempt and returns its outcome. Caller holds s.mu.
func (s *TaskStore) persist(ctx context.Context, op string) error {
	snapshot := append([]dom.Task(nil), s.tasks...)
	err := s.slot.Save(ctx, snapshot)
	s.saveErr = err
	if err != nil {
		s.log.Warn("task snapshot not saved, keeping in-memory state", "op", op, "error", err)
		return err
	}
	s.log.Debug("task snapshot saved", "op", op, "tasks", len(snapshot))
	return nil
}

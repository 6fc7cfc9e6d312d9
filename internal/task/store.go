package task

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process memory, the only storage this agent
// has. All reads and writes operate on clones so callers can never mutate
// stored state directly.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Task)}
}

// Create stores a new task.
func (s *MemoryStore) Create(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("%w: %s", ErrConflict, t.ID)
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

// Get returns a copy of the task with the given ID.
func (s *MemoryStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Clone(), nil
}

// List returns up to limit tasks, most recently updated first.
func (s *MemoryStore) List(limit int) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].UpdatedAt != tasks[j].UpdatedAt {
			return tasks[i].UpdatedAt > tasks[j].UpdatedAt
		}
		return tasks[i].CreatedAt > tasks[j].CreatedAt
	})

	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks
}

// AppendMessage adds a conversation entry to the task.
func (s *MemoryStore) AppendMessage(id, role, text string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t.Messages = append(t.Messages, Message{Role: role, Text: text, SentAt: time.Now().Unix()})
	t.UpdatedAt = time.Now().Unix()
	return t.Clone(), nil
}

// Claim moves a task into the working state so processing can begin. Only
// submitted and input_required tasks can be claimed.
func (s *MemoryStore) Claim(id string) (*Task, error) {
	return s.transition(id, StatusWorking, func(t *Task) {})
}

// MarkCompleted finishes a task with its narrative reply.
func (s *MemoryStore) MarkCompleted(id, wallet, reply, artifactName string) (*Task, error) {
	return s.transition(id, StatusCompleted, func(t *Task) {
		t.Wallet = wallet
		t.Reply = reply
		t.ArtifactName = artifactName
		t.FailureCode = ""
	})
}

// MarkFailed finishes a task with a failure code and a user-facing reply.
func (s *MemoryStore) MarkFailed(id, code, reply string) (*Task, error) {
	return s.transition(id, StatusFailed, func(t *Task) {
		t.FailureCode = code
		t.Reply = reply
	})
}

// MarkInputRequired pauses a task until a human supplies better input.
func (s *MemoryStore) MarkInputRequired(id, reply string) (*Task, error) {
	return s.transition(id, StatusInputRequired, func(t *Task) {
		t.Reply = reply
	})
}

func (s *MemoryStore) transition(id string, next Status, update func(*Task)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !canTransition(t.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}

	t.Status = next
	update(t)
	t.UpdatedAt = time.Now().Unix()
	return t.Clone(), nil
}

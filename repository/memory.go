package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"live-class/entities"
	"live-class/errs"
)

// MemoryStore keeps sessions in process memory. It is the default when no
// database is configured and the store used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entities.LiveSession
	locks    *KeyedMutex

	chunks []*entities.RecordingChunk
	jobs   []*entities.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*entities.LiveSession),
		locks:    NewKeyedMutex(),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s *entities.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("live session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*entities.LiveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: live session %s", errs.ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) List(ctx context.Context, filter SessionFilter) ([]*entities.LiveSession, error) {
	m.mu.RLock()
	out := make([]*entities.LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if filter.CourseId != "" && s.CourseId != filter.CourseId {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

// Update applies fn to a private copy of the session under the session's lock
// and publishes the copy only if fn succeeds.
func (m *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn func(s *entities.LiveSession) error) (*entities.LiveSession, error) {
	unlock := m.locks.Lock(id.String())
	defer unlock()

	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return m.Get(ctx, id)
		}
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = current.Clone()
	m.mu.Unlock()
	return current, nil
}

func (m *MemoryStore) SaveRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.chunks {
		if c.LiveSessionId == chunk.LiveSessionId && c.ChunkIndex == chunk.ChunkIndex {
			stored := *chunk
			stored.ID = c.ID
			m.chunks[i] = &stored
			return nil
		}
	}
	stored := *chunk
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	m.chunks = append(m.chunks, &stored)
	return nil
}

func (m *MemoryStore) CountRecordingChunks(ctx context.Context, liveSessionId uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, c := range m.chunks {
		if c.LiveSessionId == liveSessionId {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *entities.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *job
	m.jobs = append(m.jobs, &stored)
	return nil
}

// Jobs returns the jobs created so far.
func (m *MemoryStore) Jobs() []entities.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out
}

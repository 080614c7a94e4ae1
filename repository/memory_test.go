package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"live-class/constant"
	"live-class/entities"
	"live-class/errs"
)

func newSession(courseID string, at time.Time) *entities.LiveSession {
	return &entities.LiveSession{
		ID:              uuid.New(),
		CourseId:        courseID,
		InstructorId:    "instructor-a",
		Title:           "Algebra",
		ScheduledAt:     at,
		DurationMinutes: 60,
		MaxParticipants: 10,
		Visibility:      constant.VisibilityPublic,
		Provider:        constant.ProviderNativeRoom,
		Status:          constant.SessionStatusScheduled,
	}
}

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newSession("course-1", time.Now())

	require.NoError(t, store.Create(ctx, s))
	require.Error(t, store.Create(ctx, s), "duplicate id")

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.Title, got.Title)

	// Snapshots are detached from the stored state.
	got.Title = "changed"
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "Algebra", again.Title)

	_, err = store.Get(ctx, uuid.New())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemoryStore_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	late := newSession("course-1", base.Add(2*time.Hour))
	early := newSession("course-1", base)
	other := newSession("course-2", base.Add(time.Hour))
	other.Status = constant.SessionStatusLive
	for _, s := range []*entities.LiveSession{late, early, other} {
		require.NoError(t, store.Create(ctx, s))
	}

	all, err := store.List(ctx, SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, early.ID, all[0].ID)
	require.Equal(t, other.ID, all[1].ID)
	require.Equal(t, late.ID, all[2].ID)

	course1, err := store.List(ctx, SessionFilter{CourseId: "course-1"})
	require.NoError(t, err)
	require.Len(t, course1, 2)

	live, err := store.List(ctx, SessionFilter{Status: constant.SessionStatusLive})
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, other.ID, live[0].ID)
}

func TestMemoryStore_UpdateCommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newSession("course-1", time.Now())
	require.NoError(t, store.Create(ctx, s))

	boom := errors.New("boom")
	_, err := store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
		s.Status = constant.SessionStatusLive
		return boom
	})
	require.ErrorIs(t, err, boom)
	got, _ := store.Get(ctx, s.ID)
	require.Equal(t, constant.SessionStatusScheduled, got.Status)

	got, err = store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
		return ErrSkipWrite
	})
	require.NoError(t, err)
	require.Equal(t, constant.SessionStatusScheduled, got.Status)

	got, err = store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
		s.Status = constant.SessionStatusLive
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, constant.SessionStatusLive, got.Status)
	got, _ = store.Get(ctx, s.ID)
	require.Equal(t, constant.SessionStatusLive, got.Status)

	_, err = store.Update(ctx, uuid.New(), func(s *entities.LiveSession) error { return nil })
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemoryStore_UpdateSerializesPerSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newSession("course-1", time.Now())
	require.NoError(t, store.Create(ctx, s))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
				// read-modify-write that would lose updates without exclusion
				s.MaxParticipants++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 10+writers, got.MaxParticipants)
	require.Equal(t, 0, store.locks.size())
}

func TestMemoryStore_Recording(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()

	require.NoError(t, store.SaveRecordingChunk(ctx, &entities.RecordingChunk{LiveSessionId: id, ChunkIndex: 0, ObjectName: "a"}))
	require.NoError(t, store.SaveRecordingChunk(ctx, &entities.RecordingChunk{LiveSessionId: id, ChunkIndex: 1, ObjectName: "b"}))
	require.NoError(t, store.SaveRecordingChunk(ctx, &entities.RecordingChunk{LiveSessionId: id, ChunkIndex: 1, ObjectName: "b2"}))

	n, err := store.CountRecordingChunks(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	require.NoError(t, store.CreateJob(ctx, &entities.Job{ID: uuid.New(), EntityId: id}))
	require.Len(t, store.Jobs(), 1)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlockA := k.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}

	unlockA()
	require.Equal(t, 0, k.size())
}

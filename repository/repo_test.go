package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
	"live-class/constant"
	"live-class/entities"
	"live-class/errs"
)

// setupPostgres connects to the database named by LIVECLASS_TEST_POSTGRES_DSN
// and skips the test when it is unset.
func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("LIVECLASS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIVECLASS_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewRepo(db, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	s := newSession("course-"+uuid.NewString(), time.Now().UTC().Truncate(time.Microsecond))
	s.ProviderConfig = entities.ProviderConfig{RoomID: "room-" + uuid.NewString()}
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ProviderConfig, got.ProviderConfig)
	require.Equal(t, constant.SessionStatusScheduled, got.Status)

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
		s.Status = constant.SessionStatusLive
		s.StartedAt = &now
		s.Participants = append(s.Participants, entities.Participant{ID: uuid.New(), UserId: "student-b", JoinedAt: now})
		return nil
	})
	require.NoError(t, err)

	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, constant.SessionStatusLive, got.Status)
	require.Len(t, got.Participants, 1)
	require.Equal(t, 1, got.ActiveCount())

	_, err = store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
		s.Participants[0].LeftAt = &now
		return nil
	})
	require.NoError(t, err)
	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.ActiveCount())

	list, err := store.List(ctx, SessionFilter{CourseId: s.CourseId})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = store.Get(ctx, uuid.New())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPostgresStore_UpdateSerializes(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	s := newSession("course-"+uuid.NewString(), time.Now().UTC())
	require.NoError(t, store.Create(ctx, s))

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, s.ID, func(s *entities.LiveSession) error {
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
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"live-class/constant"
	"live-class/entities"
)

// ErrSkipWrite may be returned by an Update callback to end the critical
// section without persisting anything. Update then returns the current state.
var ErrSkipWrite = errors.New("skip write")

type SessionFilter struct {
	CourseId string
	Status   constant.SessionStatus
}

// SessionStore is the durable record of live sessions. Update runs fn with
// exclusive access to one session; concurrent Updates of the same session are
// serialized, Updates of different sessions are not. Reads return snapshots of
// the last committed state.
type SessionStore interface {
	Create(ctx context.Context, s *entities.LiveSession) error
	Get(ctx context.Context, id uuid.UUID) (*entities.LiveSession, error)
	List(ctx context.Context, filter SessionFilter) ([]*entities.LiveSession, error)
	Update(ctx context.Context, id uuid.UUID, fn func(s *entities.LiveSession) error) (*entities.LiveSession, error)
}

type RecordingRepository interface {
	SaveRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) error
	CountRecordingChunks(ctx context.Context, liveSessionId uuid.UUID) (int64, error)
	CreateJob(ctx context.Context, job *entities.Job) error
}

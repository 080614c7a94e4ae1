package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"live-class/entities"
	"live-class/errs"
)

// PostgresStore persists sessions with gorm. Update holds a row lock on the
// session (SELECT ... FOR UPDATE) for the duration of the callback, so the
// per-session critical section also holds across service replicas.
type PostgresStore struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB, logLevel logger.LogLevel) (*PostgresStore, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logLevel),
		},
	)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{
		db: gormDB,
	}, nil
}

func (r *PostgresStore) GetDB() *gorm.DB {
	return r.db
}

// Migrate creates or updates the tables owned by this service.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&entities.LiveSession{},
		&entities.Participant{},
		&entities.RecordingChunk{},
		&entities.Job{},
	)
}

func (r *PostgresStore) Create(ctx context.Context, s *entities.LiveSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return err
		}
		for i := range s.Participants {
			if err := tx.Create(&s.Participants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*entities.LiveSession, error) {
	s := &entities.LiveSession{}
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		First(s, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, id)
	}
	return s, nil
}

func (r *PostgresStore) List(ctx context.Context, filter SessionFilter) ([]*entities.LiveSession, error) {
	var sessions []*entities.LiveSession
	q := r.db.WithContext(ctx).Preload("Participants")
	if filter.CourseId != "" {
		q = q.Where("course_id = ?", filter.CourseId)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if err := q.Order("scheduled_at ASC").Order("id ASC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresStore) Update(ctx context.Context, id uuid.UUID, fn func(s *entities.LiveSession) error) (*entities.LiveSession, error) {
	var out *entities.LiveSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := &entities.LiveSession{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(s, "id = ?", id).Error; err != nil {
			return notFound(err, id)
		}
		if err := tx.Where("live_session_id = ?", id).Order("joined_at ASC").Find(&s.Participants).Error; err != nil {
			return err
		}

		before := make(map[uuid.UUID]entities.Participant, len(s.Participants))
		for _, p := range s.Participants {
			before[p.ID] = p
		}

		if err := fn(s); err != nil {
			if errors.Is(err, ErrSkipWrite) {
				out = s
				return nil
			}
			return err
		}

		if err := tx.Omit(clause.Associations).Save(s).Error; err != nil {
			return err
		}
		for i := range s.Participants {
			p := &s.Participants[i]
			p.LiveSessionId = s.ID
			old, existed := before[p.ID]
			switch {
			case !existed:
				if err := tx.Create(p).Error; err != nil {
					return err
				}
			case participantChanged(old, *p):
				if err := tx.Save(p).Error; err != nil {
					return err
				}
			}
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresStore) SaveRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "live_session_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"object_name", "status"}),
	}).Create(chunk).Error
}

func (r *PostgresStore) CountRecordingChunks(ctx context.Context, liveSessionId uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.RecordingChunk{}).Where("live_session_id = ?", liveSessionId).Count(&n).Error
	return n, err
}

func (r *PostgresStore) CreateJob(ctx context.Context, job *entities.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func participantChanged(a, b entities.Participant) bool {
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return true
	}
	switch {
	case a.LeftAt == nil && b.LeftAt == nil:
		return false
	case a.LeftAt == nil || b.LeftAt == nil:
		return true
	}
	return !a.LeftAt.Equal(*b.LeftAt)
}

func notFound(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: live session %s", errs.ErrNotFound, id)
	}
	return err
}

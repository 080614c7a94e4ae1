package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"live-class/clock"
	"live-class/constant"
	"live-class/dto"
	"live-class/entities"
	"live-class/errs"
	"live-class/policy"
	"live-class/repository"
)

const recordingPrefix = "live-recordings"

// Presigner is the part of the object store client used to hand out upload URLs.
type Presigner interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

// MergePublisher hands merge jobs to the transcode worker.
type MergePublisher interface {
	PublishRecordingMerge(ctx context.Context, msg dto.RecordingMergeMessage) error
}

type RecordingService interface {
	ChunkUploadURL(ctx context.Context, instructorId string, sessionId uuid.UUID, chunkIndex int) (*dto.ChunkUploadResponse, error)
	EnqueueMerge(ctx context.Context, s *entities.LiveSession) error
}

type recordingService struct {
	store     repository.SessionStore
	repo      repository.RecordingRepository
	presigner Presigner
	publisher MergePublisher
	clock     clock.Clock
	bucket    string
	expiry    time.Duration
}

func NewRecordingService(
	store repository.SessionStore,
	repo repository.RecordingRepository,
	presigner Presigner,
	publisher MergePublisher,
	clk clock.Clock,
	bucket string,
	expiry time.Duration,
) RecordingService {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	if clk == nil {
		clk = clock.System()
	}
	return &recordingService{
		store:     store,
		repo:      repo,
		presigner: presigner,
		publisher: publisher,
		clock:     clk,
		bucket:    bucket,
		expiry:    expiry,
	}
}

func ChunkObjectName(sessionId uuid.UUID, chunkIndex int) string {
	return fmt.Sprintf("%s/%s/chunks/chunk_%04d.webm", recordingPrefix, sessionId, chunkIndex)
}

func (s *recordingService) ChunkUploadURL(ctx context.Context, instructorId string, sessionId uuid.UUID, chunkIndex int) (*dto.ChunkUploadResponse, error) {
	if chunkIndex < 0 {
		return nil, fmt.Errorf("%w: chunkIndex must not be negative", errs.ErrValidation)
	}

	_, err := s.store.Update(ctx, sessionId, func(ls *entities.LiveSession) error {
		if err := policy.Authorize(policy.Actor{UserID: instructorId}, ls, constant.ActionRecord); err != nil {
			return err
		}
		if ls.Status != constant.SessionStatusLive {
			return fmt.Errorf("%w: recording needs a live session, got %s", errs.ErrInvalidState, ls.Status)
		}
		if !ls.Settings.Recording {
			return fmt.Errorf("%w: recording is disabled for this session", errs.ErrInvalidState)
		}
		if ls.RecordingStatus == constant.RecordingStatusRecording {
			return repository.ErrSkipWrite
		}
		ls.RecordingStatus = constant.RecordingStatusRecording
		ls.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	objectName := ChunkObjectName(sessionId, chunkIndex)
	chunk := &entities.RecordingChunk{
		ID:            uuid.New(),
		LiveSessionId: sessionId,
		ChunkIndex:    chunkIndex,
		ObjectName:    objectName,
		Status:        constant.ChunkStatusUploaded,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.SaveRecordingChunk(ctx, chunk); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("live_session_id", sessionId.String()).Int("chunk_index", chunkIndex).Msg("failed to save recording chunk")
		return nil, err
	}

	u, err := s.presigner.PresignedPutObject(ctx, s.bucket, objectName, s.expiry)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("object", objectName).Msg("failed to presign chunk upload")
		return nil, err
	}

	return &dto.ChunkUploadResponse{
		SessionId:  sessionId,
		ChunkIndex: chunkIndex,
		ObjectName: objectName,
		UploadURL:  u.String(),
		ExpiresAt:  s.clock.Now().Add(s.expiry),
	}, nil
}

func (s *recordingService) EnqueueMerge(ctx context.Context, ls *entities.LiveSession) error {
	n, err := s.repo.CountRecordingChunks(ctx, ls.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		zerolog.Ctx(ctx).Info().Str("live_session_id", ls.ID.String()).Msg("no recording chunks, skipping merge")
		return nil
	}

	now := s.clock.Now()
	job := &entities.Job{
		ID:         uuid.New(),
		EntityId:   ls.ID,
		EntityType: "live_session",
		Status:     constant.JobStatusPending,
		JobType:    constant.JobTypeRecordingMerge,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return err
	}

	if err := s.publisher.PublishRecordingMerge(ctx, dto.RecordingMergeMessage{JobId: job.ID, LiveSessionId: ls.ID}); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID.String()).
		Str("live_session_id", ls.ID.String()).
		Int64("chunk_count", n).
		Msg("recording merge enqueued")
	return nil
}

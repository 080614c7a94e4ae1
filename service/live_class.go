package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"live-class/catalog"
	"live-class/clock"
	"live-class/constant"
	"live-class/credential"
	"live-class/dto"
	"live-class/entities"
	"live-class/errs"
	"live-class/events"
	"live-class/policy"
	"live-class/repository"
)

const tracerName = "live-class/service"

type LiveClassService interface {
	Create(ctx context.Context, instructorId string, req dto.CreateLiveClassRequest) (*entities.LiveSession, error)
	Get(ctx context.Context, userId string, sessionId uuid.UUID) (*entities.LiveSession, error)
	List(ctx context.Context, userId string, filter repository.SessionFilter) ([]*entities.LiveSession, error)
	Start(ctx context.Context, instructorId string, sessionId uuid.UUID, streamURL string) (*entities.LiveSession, error)
	End(ctx context.Context, instructorId string, sessionId uuid.UUID) (*entities.LiveSession, error)
	Cancel(ctx context.Context, instructorId string, sessionId uuid.UUID) (*entities.LiveSession, error)
	Join(ctx context.Context, userId string, sessionId uuid.UUID) (*credential.Credential, *entities.LiveSession, error)
	Leave(ctx context.Context, userId string, sessionId uuid.UUID) (bool, error)
	Roster(ctx context.Context, instructorId string, sessionId uuid.UUID) ([]entities.Participant, error)
}

type Options struct {
	MinLeadTime      time.Duration
	MaxParticipants  int
	AllowedDurations []int
	// JoinGrace extends the session window past its scheduled end. Start is
	// refused once the window has closed, matching the room token expiry.
	JoinGrace time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinLeadTime:      30 * time.Minute,
		MaxParticipants:  200,
		AllowedDurations: []int{30, 60, 90, 120, 180},
		JoinGrace:        30 * time.Minute,
	}
}

// RecordingFinalizer hands a finished session's recording over for merging.
type RecordingFinalizer interface {
	EnqueueMerge(ctx context.Context, s *entities.LiveSession) error
}

type Dependencies struct {
	Store    repository.SessionStore
	Catalog  catalog.Directory
	Issuer   credential.Issuer
	Notifier events.Notifier
	Clock    clock.Clock
	// Recording is optional.
	Recording RecordingFinalizer
	Options   Options
}

type liveClassService struct {
	store     repository.SessionStore
	catalog   catalog.Directory
	issuer    credential.Issuer
	notifier  events.Notifier
	clock     clock.Clock
	recording RecordingFinalizer
	guard     CapacityGuard
	opts      Options
	tracer    trace.Tracer
}

func NewLiveClassService(deps Dependencies) LiveClassService {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Notifier == nil {
		deps.Notifier = events.LogNotifier{}
	}
	return &liveClassService{
		store:     deps.Store,
		catalog:   deps.Catalog,
		issuer:    deps.Issuer,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		recording: deps.Recording,
		guard:     CapacityGuard{Ceiling: deps.Options.MaxParticipants},
		opts:      deps.Options,
		tracer:    otel.Tracer(tracerName),
	}
}

func (s *liveClassService) Create(ctx context.Context, instructorId string, req dto.CreateLiveClassRequest) (session *entities.LiveSession, err error) {
	ctx, span := s.startSpan(ctx, "create", uuid.Nil, instructorId)
	defer func() { endSpan(span, err) }()

	if instructorId == "" {
		return nil, fmt.Errorf("%w: creating a live class requires an instructor", errs.ErrAuthorization)
	}
	now := s.clock.Now()
	if err := s.validateCreate(now, req); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("instructor_id", instructorId).Msg("rejected live class")
		return nil, err
	}

	owns, err := s.catalog.IsInstructorOf(ctx, instructorId, req.CourseId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("course_id", req.CourseId).Msg("failed to check course ownership")
		return nil, fmt.Errorf("check course ownership: %w", err)
	}
	if !owns {
		return nil, fmt.Errorf("%w: %s does not teach course %s", errs.ErrAuthorization, instructorId, req.CourseId)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = constant.VisibilityPublic
	}
	providerConfig := entities.ProviderConfig{
		StreamURL: strings.TrimSpace(req.ProviderConfig.StreamURL),
		RoomID:    strings.TrimSpace(req.ProviderConfig.RoomID),
	}
	if req.Provider == constant.ProviderNativeRoom && providerConfig.RoomID == "" {
		providerConfig.RoomID = "room-" + uuid.NewString()
	}

	session = &entities.LiveSession{
		ID:              uuid.New(),
		CourseId:        req.CourseId,
		InstructorId:    instructorId,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		Visibility:      visibility,
		Settings:        req.Settings,
		Provider:        req.Provider,
		ProviderConfig:  providerConfig,
		Status:          constant.SessionStatusScheduled,
		RecordingStatus: constant.RecordingStatusNotStarted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, session); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to store live class")
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", session.ID.String()).
		Str("course_id", session.CourseId).
		Str("provider", session.Provider.String()).
		Time("scheduled_at", session.ScheduledAt).
		Msg("live class scheduled")
	s.emit(ctx, constant.EventSessionScheduled, session, instructorId)
	return session, nil
}

func (s *liveClassService) validateCreate(now time.Time, req dto.CreateLiveClassRequest) error {
	var problems []error
	if strings.TrimSpace(req.CourseId) == "" {
		problems = append(problems, fmt.Errorf("%w: courseId is required", errs.ErrValidation))
	}
	if strings.TrimSpace(req.Title) == "" {
		problems = append(problems, fmt.Errorf("%w: title is required", errs.ErrValidation))
	}
	if earliest := now.Add(s.opts.MinLeadTime); req.ScheduledAt.Before(earliest) {
		problems = append(problems, fmt.Errorf("%w: scheduledAt must be at least %s in the future", errs.ErrValidation, s.opts.MinLeadTime))
	}
	if req.DurationMinutes <= 0 {
		problems = append(problems, fmt.Errorf("%w: durationMinutes must be positive", errs.ErrValidation))
	} else if len(s.opts.AllowedDurations) > 0 && !slices.Contains(s.opts.AllowedDurations, req.DurationMinutes) {
		problems = append(problems, fmt.Errorf("%w: durationMinutes must be one of %v", errs.ErrValidation, s.opts.AllowedDurations))
	}
	if err := s.guard.ValidateLimit(req.MaxParticipants); err != nil {
		problems = append(problems, err)
	}
	switch req.Visibility {
	case "", constant.VisibilityPublic, constant.VisibilityPrivate:
	default:
		problems = append(problems, fmt.Errorf("%w: unknown visibility %q", errs.ErrValidation, req.Visibility))
	}
	if err := credential.ValidateProviderConfig(req.Provider, req.ProviderConfig); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}

func (s *liveClassService) Get(ctx context.Context, userId string, sessionId uuid.UUID) (session *entities.LiveSession, err error) {
	session, err = s.store.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	actor, err := s.actorFor(ctx, userId, session, constant.ActionView)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, session, constant.ActionView); err != nil {
		// private sessions are invisible to outsiders
		return nil, fmt.Errorf("%w: live session %s", errs.ErrNotFound, sessionId)
	}
	return session, nil
}

func (s *liveClassService) List(ctx context.Context, userId string, filter repository.SessionFilter) ([]*entities.LiveSession, error) {
	sessions, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[string]bool)
	visible := make([]*entities.LiveSession, 0, len(sessions))
	for _, session := range sessions {
		actor := policy.Actor{UserID: userId}
		if policy.NeedsEnrollment(userId, session, constant.ActionView) {
			ok, seen := enrolled[session.CourseId]
			if !seen {
				ok, err = s.catalog.IsEnrolled(ctx, userId, session.CourseId)
				if err != nil {
					return nil, fmt.Errorf("check enrollment: %w", err)
				}
				enrolled[session.CourseId] = ok
			}
			actor.Enrolled = ok
		}
		if policy.Authorize(actor, session, constant.ActionView) == nil {
			visible = append(visible, session)
		}
	}
	return visible, nil
}

func (s *liveClassService) Start(ctx context.Context, instructorId string, sessionId uuid.UUID, streamURL string) (session *entities.LiveSession, err error) {
	ctx, span := s.startSpan(ctx, "start", sessionId, instructorId)
	defer func() { endSpan(span, err) }()

	transitioned := false
	session, err = s.store.Update(ctx, sessionId, func(ls *entities.LiveSession) error {
		if err := policy.Authorize(policy.Actor{UserID: instructorId}, ls, constant.ActionStart); err != nil {
			return err
		}
		switch ls.Status {
		case constant.SessionStatusLive:
			return repository.ErrSkipWrite
		case constant.SessionStatusScheduled:
		default:
			return fmt.Errorf("%w: cannot start a %s session", errs.ErrInvalidState, ls.Status)
		}
		if closes := ls.EndsAt().Add(s.opts.JoinGrace); !s.clock.Now().Before(closes) {
			return fmt.Errorf("%w: session window closed at %s", errs.ErrInvalidState, closes.Format(time.RFC3339))
		}

		if ls.Provider == constant.ProviderYouTube && ls.ProviderConfig.StreamURL == "" {
			streamURL = strings.TrimSpace(streamURL)
			if streamURL == "" {
				return fmt.Errorf("%w: youtube sessions need a stream URL to start", errs.ErrProviderConfig)
			}
			if err := credential.ValidateURL(streamURL); err != nil {
				return err
			}
			ls.ProviderConfig.StreamURL = streamURL
		}

		now := s.clock.Now()
		ls.Status = constant.SessionStatusLive
		ls.StartedAt = &now
		ls.UpdatedAt = now
		transitioned = true
		return nil
	})
	if err != nil {
		s.logRejected(ctx, "start", sessionId, instructorId, err)
		return nil, err
	}

	if transitioned {
		zerolog.Ctx(ctx).Info().Str("live_session_id", sessionId.String()).Msg("live class started")
		s.emit(ctx, constant.EventSessionStarted, session, instructorId)
	}
	return session, nil
}

func (s *liveClassService) End(ctx context.Context, instructorId string, sessionId uuid.UUID) (session *entities.LiveSession, err error) {
	ctx, span := s.startSpan(ctx, "end", sessionId, instructorId)
	defer func() { endSpan(span, err) }()

	transitioned := false
	session, err = s.store.Update(ctx, sessionId, func(ls *entities.LiveSession) error {
		if err := policy.Authorize(policy.Actor{UserID: instructorId}, ls, constant.ActionEnd); err != nil {
			return err
		}
		switch ls.Status {
		case constant.SessionStatusEnded:
			return repository.ErrSkipWrite
		case constant.SessionStatusLive:
		default:
			return fmt.Errorf("%w: cannot end a %s session", errs.ErrInvalidState, ls.Status)
		}

		now := s.clock.Now()
		ls.Status = constant.SessionStatusEnded
		ls.EndedAt = &now
		ls.UpdatedAt = now
		for i := range ls.Participants {
			if ls.Participants[i].Active() {
				left := now
				ls.Participants[i].LeftAt = &left
			}
		}
		if ls.RecordingStatus == constant.RecordingStatusRecording {
			ls.RecordingStatus = constant.RecordingStatusProcessing
		}
		transitioned = true
		return nil
	})
	if err != nil {
		s.logRejected(ctx, "end", sessionId, instructorId, err)
		return nil, err
	}

	if transitioned {
		zerolog.Ctx(ctx).Info().Str("live_session_id", sessionId.String()).Msg("live class ended")
		s.emit(ctx, constant.EventSessionEnded, session, instructorId)
		if s.recording != nil && session.RecordingStatus == constant.RecordingStatusProcessing {
			if err := s.recording.EnqueueMerge(ctx, session); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Str("live_session_id", sessionId.String()).Msg("failed to enqueue recording merge")
			}
		}
	}
	return session, nil
}

func (s *liveClassService) Cancel(ctx context.Context, instructorId string, sessionId uuid.UUID) (session *entities.LiveSession, err error) {
	ctx, span := s.startSpan(ctx, "cancel", sessionId, instructorId)
	defer func() { endSpan(span, err) }()

	session, err = s.store.Update(ctx, sessionId, func(ls *entities.LiveSession) error {
		if err := policy.Authorize(policy.Actor{UserID: instructorId}, ls, constant.ActionCancel); err != nil {
			return err
		}
		if ls.Status != constant.SessionStatusScheduled {
			return fmt.Errorf("%w: cannot cancel a %s session", errs.ErrInvalidState, ls.Status)
		}
		now := s.clock.Now()
		ls.Status = constant.SessionStatusCancelled
		ls.UpdatedAt = now
		// nobody is in a session that will never happen
		for i := range ls.Participants {
			if ls.Participants[i].Active() {
				left := now
				ls.Participants[i].LeftAt = &left
			}
		}
		return nil
	})
	if err != nil {
		s.logRejected(ctx, "cancel", sessionId, instructorId, err)
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("live_session_id", sessionId.String()).Msg("live class cancelled")
	s.emit(ctx, constant.EventSessionCancelled, session, instructorId)
	return session, nil
}

func (s *liveClassService) Join(ctx context.Context, userId string, sessionId uuid.UUID) (cred *credential.Credential, session *entities.LiveSession, err error) {
	ctx, span := s.startSpan(ctx, "join", sessionId, userId)
	defer func() { endSpan(span, err) }()

	// Enrollment is looked up before taking the session lock; courseId never
	// changes and a terminal status is final, so the early state check holds.
	snapshot, err := s.store.Get(ctx, sessionId)
	if err != nil {
		return nil, nil, err
	}
	if !snapshot.Status.Joinable() {
		return nil, nil, fmt.Errorf("%w: cannot join a %s session", errs.ErrInvalidState, snapshot.Status)
	}
	actor, err := s.actorFor(ctx, userId, snapshot, constant.ActionJoin)
	if err != nil {
		return nil, nil, err
	}

	session, err = s.store.Update(ctx, sessionId, func(ls *entities.LiveSession) error {
		if !ls.Status.Joinable() {
			return fmt.Errorf("%w: cannot join a %s session", errs.ErrInvalidState, ls.Status)
		}
		if err := policy.Authorize(actor, ls, constant.ActionJoin); err != nil {
			return err
		}
		if err := s.guard.Admit(ls, userId); err != nil {
			return err
		}

		issued, err := s.issuer.Issue(ctx, ls, userId)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if p := ls.Participant(userId); p != nil {
			p.JoinedAt = now
			p.LeftAt = nil
		} else {
			ls.Participants = append(ls.Participants, entities.Participant{
				ID:            uuid.New(),
				LiveSessionId: ls.ID,
				UserId:        userId,
				JoinedAt:      now,
			})
		}
		cred = issued
		return nil
	})
	if err != nil {
		s.logRejected(ctx, "join", sessionId, userId, err)
		return nil, nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", sessionId.String()).
		Str("user_id", userId).
		Int("active", session.ActiveCount()).
		Msg("participant joined")
	s.emit(ctx, constant.EventParticipantJoined, session, userId)
	return cred, session, nil
}

func (s *liveClassService) Leave(ctx context.Context, userId string, sessionId uuid.UUID) (left bool, err error) {
	ctx, span := s.startSpan(ctx, "leave", sessionId, userId)
	defer func() { endSpan(span, err) }()

	member := false
	session, err := s.store.Update(ctx, sessionId, func(ls *entities.LiveSession) error {
		member = ls.Participant(userId) != nil
		p := ls.ActiveParticipant(userId)
		if p == nil {
			return repository.ErrSkipWrite
		}
		now := s.clock.Now()
		p.LeftAt = &now
		left = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if !member {
		// a no-op must not reveal a private session the caller cannot see
		actor, err := s.actorFor(ctx, userId, session, constant.ActionView)
		if err != nil {
			return false, err
		}
		if err := policy.Authorize(actor, session, constant.ActionView); err != nil {
			return false, fmt.Errorf("%w: live session %s", errs.ErrNotFound, sessionId)
		}
	}

	if left {
		zerolog.Ctx(ctx).Info().Str("live_session_id", sessionId.String()).Str("user_id", userId).Msg("participant left")
		s.emit(ctx, constant.EventParticipantLeft, session, userId)
	}
	return left, nil
}

func (s *liveClassService) Roster(ctx context.Context, instructorId string, sessionId uuid.UUID) ([]entities.Participant, error) {
	session, err := s.store.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.Actor{UserID: instructorId}, session, constant.ActionRoster); err != nil {
		return nil, err
	}
	if session.Participants == nil {
		return []entities.Participant{}, nil
	}
	return session.Participants, nil
}

// actorFor resolves the caller's relation to the session, asking the catalog
// only when the decision depends on enrollment.
func (s *liveClassService) actorFor(ctx context.Context, userId string, session *entities.LiveSession, action constant.Action) (policy.Actor, error) {
	actor := policy.Actor{UserID: userId}
	if !policy.NeedsEnrollment(userId, session, action) {
		return actor, nil
	}
	enrolled, err := s.catalog.IsEnrolled(ctx, userId, session.CourseId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("course_id", session.CourseId).Msg("failed to check enrollment")
		return actor, fmt.Errorf("check enrollment: %w", err)
	}
	actor.Enrolled = enrolled
	return actor, nil
}

// emit publishes after the mutation has committed. A failed publish is logged
// and never undoes the mutation.
func (s *liveClassService) emit(ctx context.Context, t constant.EventType, session *entities.LiveSession, actorId string) {
	e := events.Event{
		ID:          uuid.New(),
		Type:        t,
		SessionID:   session.ID,
		CourseID:    session.CourseId,
		ActorID:     actorId,
		Title:       session.Title,
		Status:      session.Status,
		ScheduledAt: session.ScheduledAt,
		OccurredAt:  s.clock.Now(),
	}
	if err := s.notifier.Publish(ctx, e); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("event", string(t)).Str("live_session_id", session.ID.String()).Msg("failed to publish event")
	}
}

func (s *liveClassService) logRejected(ctx context.Context, op string, sessionId uuid.UUID, actorId string, err error) {
	ev := zerolog.Ctx(ctx).Debug()
	if !errs.IsDomain(err) {
		ev = zerolog.Ctx(ctx).Error()
	}
	ev.Err(err).Str("op", op).Str("live_session_id", sessionId.String()).Str("actor_id", actorId).Msg("live class operation rejected")
}

func (s *liveClassService) startSpan(ctx context.Context, op string, sessionId uuid.UUID, actorId string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("liveclass.actor_id", actorId)}
	if sessionId != uuid.Nil {
		attrs = append(attrs, attribute.String("liveclass.session_id", sessionId.String()))
	}
	return s.tracer.Start(ctx, "liveclass."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errs.Kind(err))
	}
	span.End()
}

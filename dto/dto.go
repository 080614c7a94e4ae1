package dto

import (
	"time"

	"github.com/google/uuid"
	"live-class/constant"
	"live-class/credential"
	"live-class/entities"
)

type CreateLiveClassRequest struct {
	CourseId        string                  `json:"courseId" binding:"required,max=64"`
	Title           string                  `json:"title" binding:"required,max=255"`
	Description     string                  `json:"description"`
	ScheduledAt     time.Time               `json:"scheduledAt" binding:"required"`
	DurationMinutes int                     `json:"durationMinutes" binding:"required,gt=0"`
	MaxParticipants int                     `json:"maxParticipants" binding:"required,gt=0"`
	Visibility      constant.Visibility     `json:"visibility" binding:"omitempty,oneof=public private"`
	Settings        entities.Settings       `json:"settings"`
	Provider        constant.Provider       `json:"provider" binding:"required"`
	ProviderConfig  entities.ProviderConfig `json:"providerConfig"`
}

type StartLiveClassRequest struct {
	StreamURL string `json:"streamUrl"`
}

type ChunkUploadRequest struct {
	ChunkIndex *int `json:"chunkIndex" binding:"required,gte=0"`
}

type ListLiveClassesQuery struct {
	CourseId string                 `form:"courseId"`
	Status   constant.SessionStatus `form:"status" binding:"omitempty,oneof=scheduled live ended cancelled"`
}

// LiveClassResponse is the API view of a session. The stream URL of link
// providers is the join credential itself, so only the instructor sees it;
// everyone else gets it from Join.
type LiveClassResponse struct {
	ID                 uuid.UUID                `json:"id"`
	CourseId           string                   `json:"courseId"`
	InstructorId       string                   `json:"instructorId"`
	Title              string                   `json:"title"`
	Description        string                   `json:"description"`
	ScheduledAt        time.Time                `json:"scheduledAt"`
	DurationMinutes    int                      `json:"durationMinutes"`
	MaxParticipants    int                      `json:"maxParticipants"`
	Visibility         constant.Visibility      `json:"visibility"`
	Settings           entities.Settings        `json:"settings"`
	Provider           constant.Provider        `json:"provider"`
	ProviderConfig     entities.ProviderConfig  `json:"providerConfig"`
	Status             constant.SessionStatus   `json:"status"`
	StartedAt          *time.Time               `json:"startedAt"`
	EndedAt            *time.Time               `json:"endedAt"`
	RecordingStatus    constant.RecordingStatus `json:"recordingStatus"`
	ActiveParticipants int                      `json:"activeParticipants"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

// NewLiveClassResponse renders s for viewerId.
func NewLiveClassResponse(s *entities.LiveSession, viewerId string) LiveClassResponse {
	cfg := entities.ProviderConfig{RoomID: s.ProviderConfig.RoomID}
	if viewerId != "" && viewerId == s.InstructorId {
		cfg.StreamURL = s.ProviderConfig.StreamURL
	}
	return LiveClassResponse{
		ID:                 s.ID,
		CourseId:           s.CourseId,
		InstructorId:       s.InstructorId,
		Title:              s.Title,
		Description:        s.Description,
		ScheduledAt:        s.ScheduledAt,
		DurationMinutes:    s.DurationMinutes,
		MaxParticipants:    s.MaxParticipants,
		Visibility:         s.Visibility,
		Settings:           s.Settings,
		Provider:           s.Provider,
		ProviderConfig:     cfg,
		Status:             s.Status,
		StartedAt:          s.StartedAt,
		EndedAt:            s.EndedAt,
		RecordingStatus:    s.RecordingStatus,
		ActiveParticipants: s.ActiveCount(),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func NewLiveClassResponses(sessions []*entities.LiveSession, viewerId string) []LiveClassResponse {
	out := make([]LiveClassResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, NewLiveClassResponse(s, viewerId))
	}
	return out
}

// LeaveResponse reports whether the call closed an open attendance.
type LeaveResponse struct {
	SessionId uuid.UUID `json:"sessionId"`
	Left      bool      `json:"left"`
}

type JoinResponse struct {
	SessionId  uuid.UUID              `json:"sessionId"`
	Status     constant.SessionStatus `json:"status"`
	Credential *credential.Credential `json:"credential"`
}

type ParticipantsResponse struct {
	SessionId    uuid.UUID              `json:"sessionId"`
	Participants []entities.Participant `json:"participants"`
}

type ChunkUploadResponse struct {
	SessionId  uuid.UUID `json:"sessionId"`
	ChunkIndex int       `json:"chunkIndex"`
	ObjectName string    `json:"objectName"`
	UploadURL  string    `json:"uploadUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// RecordingMergeMessage asks the transcode worker to merge a session's chunks.
type RecordingMergeMessage struct {
	JobId         uuid.UUID `json:"jobId"`
	LiveSessionId uuid.UUID `json:"liveSessionId"`
}

// MembershipChangedMessage is published by the course catalog when an
// instructor assignment or an enrollment changes. An empty UserId means every
// membership of the course may have changed.
type MembershipChangedMessage struct {
	CourseId string `json:"courseId"`
	UserId   string `json:"userId"`
	Kind     string `json:"kind"`
}

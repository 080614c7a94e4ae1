package entities

import (
	"time"

	"github.com/google/uuid"
	"live-class/constant"
)

type LiveSession struct {
	ID              uuid.UUID                `json:"id" gorm:"type:uuid;primary_key"`
	CourseId        string                   `json:"courseId" gorm:"type:varchar(64);not null;index:idx_live_sessions_course_id"`
	InstructorId    string                   `json:"instructorId" gorm:"type:varchar(64);not null;index:idx_live_sessions_instructor_id"`
	Title           string                   `json:"title" gorm:"type:varchar(255);not null"`
	Description     string                   `json:"description" gorm:"type:text"`
	ScheduledAt     time.Time                `json:"scheduledAt" gorm:"type:timestamptz;not null;index:idx_live_sessions_scheduled_at"`
	DurationMinutes int                      `json:"durationMinutes" gorm:"type:integer;not null"`
	MaxParticipants int                      `json:"maxParticipants" gorm:"type:integer;not null"`
	Visibility      constant.Visibility      `json:"visibility" gorm:"type:varchar(20);not null;default:'public'"`
	Settings        Settings                 `json:"settings" gorm:"embedded"`
	Provider        constant.Provider        `json:"provider" gorm:"type:varchar(20);not null"`
	ProviderConfig  ProviderConfig           `json:"providerConfig" gorm:"type:jsonb;serializer:json"`
	Status          constant.SessionStatus   `json:"status" gorm:"type:varchar(20);not null;default:'scheduled';index:idx_live_sessions_status"`
	StartedAt       *time.Time               `json:"startedAt" gorm:"type:timestamptz"`
	EndedAt         *time.Time               `json:"endedAt" gorm:"type:timestamptz"`
	Participants    []Participant            `json:"-" gorm:"foreignKey:LiveSessionId"`
	RecordingStatus constant.RecordingStatus `json:"recordingStatus" gorm:"type:varchar(20);default:'NOT_STARTED'"`
	CreatedAt       time.Time                `json:"createdAt" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time                `json:"updatedAt" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (LiveSession) TableName() string {
	return "live_sessions"
}

// Settings are passed through to the provider and UI untouched.
type Settings struct {
	Chat        bool `json:"allowChat" gorm:"column:allow_chat;not null"`
	Recording   bool `json:"allowRecording" gorm:"column:allow_recording;not null"`
	ScreenShare bool `json:"allowScreenShare" gorm:"column:allow_screen_share;not null"`
	HandRaise   bool `json:"allowHandRaise" gorm:"column:allow_hand_raise;not null"`
}

type ProviderConfig struct {
	StreamURL string `json:"streamUrl,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
}

// EndsAt is the scheduled end of the session window.
func (s *LiveSession) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// ActiveParticipant returns the caller's roster entry if it has not left.
func (s *LiveSession) ActiveParticipant(userId string) *Participant {
	for i := range s.Participants {
		p := &s.Participants[i]
		if p.UserId == userId && p.Active() {
			return p
		}
	}
	return nil
}

// Participant returns the caller's roster entry whether or not it is active.
func (s *LiveSession) Participant(userId string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].UserId == userId {
			return &s.Participants[i]
		}
	}
	return nil
}

func (s *LiveSession) ActiveCount() int {
	n := 0
	for i := range s.Participants {
		if s.Participants[i].Active() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand out as a read snapshot.
func (s *LiveSession) Clone() *LiveSession {
	c := *s
	c.StartedAt = cloneTime(s.StartedAt)
	c.EndedAt = cloneTime(s.EndedAt)
	if s.Participants != nil {
		c.Participants = make([]Participant, len(s.Participants))
		for i, p := range s.Participants {
			p.LeftAt = cloneTime(p.LeftAt)
			c.Participants[i] = p
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

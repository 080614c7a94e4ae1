package entities

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one user's roster entry. A user has at most one entry per
// session; re-joining reactivates it.
type Participant struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	LiveSessionId uuid.UUID  `json:"liveSessionId" gorm:"type:uuid;not null;uniqueIndex:unique_participant_session_user"`
	UserId        string     `json:"userId" gorm:"type:varchar(64);not null;uniqueIndex:unique_participant_session_user"`
	JoinedAt      time.Time  `json:"joinedAt" gorm:"type:timestamptz;not null"`
	LeftAt        *time.Time `json:"leftAt" gorm:"type:timestamptz"`
}

func (Participant) TableName() string {
	return "live_session_participants"
}

func (p Participant) Active() bool {
	return p.LeftAt == nil
}

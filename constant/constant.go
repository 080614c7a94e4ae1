package constant

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusEnded     SessionStatus = "ended"
	SessionStatusCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusLive, SessionStatusEnded, SessionStatusCancelled:
		return true
	}
	return false
}

// Joinable reports whether participants may join a session in this status.
func (s SessionStatus) Joinable() bool {
	return s == SessionStatusScheduled || s == SessionStatusLive
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type Provider string

const (
	ProviderNativeRoom Provider = "native-room"
	ProviderYouTube    Provider = "youtube"
	ProviderMeet       Provider = "meet"
	ProviderCustom     Provider = "custom"
)

func (p Provider) String() string {
	return string(p)
}

type RoomRole string

const (
	RoomRoleHost     RoomRole = "host"
	RoomRoleAudience RoomRole = "audience"
)

type Action string

const (
	ActionStart  Action = "start"
	ActionEnd    Action = "end"
	ActionCancel Action = "cancel"
	ActionJoin   Action = "join"
	ActionView   Action = "view"
	ActionRoster Action = "roster"
	ActionRecord Action = "record"
)

type EventType string

const (
	EventSessionScheduled  EventType = "SessionScheduled"
	EventSessionStarted    EventType = "SessionStarted"
	EventSessionEnded      EventType = "SessionEnded"
	EventSessionCancelled  EventType = "SessionCancelled"
	EventParticipantJoined EventType = "ParticipantJoined"
	EventParticipantLeft   EventType = "ParticipantLeft"
)

type RecordingStatus string

const (
	RecordingStatusNotStarted RecordingStatus = "NOT_STARTED"
	RecordingStatusRecording  RecordingStatus = "RECORDING"
	RecordingStatusProcessing RecordingStatus = "PROCESSING"
)

type ChunkStatus string

const (
	ChunkStatusUploaded ChunkStatus = "UPLOADED"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
)

type JobType string

const (
	JobTypeRecordingMerge JobType = "recording_merge"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

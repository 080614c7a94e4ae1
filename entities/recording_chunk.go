package entities

import (
	"time"

	"github.com/google/uuid"
	"live-class/constant"
)

type RecordingChunk struct {
	ID            uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LiveSessionId uuid.UUID            `json:"live_session_id" gorm:"type:uuid;not null;index:idx_recording_chunks_session;uniqueIndex:unique_recording_chunk_index"`
	ChunkIndex    int                  `json:"chunk_index" gorm:"not null;uniqueIndex:unique_recording_chunk_index"`
	ObjectName    string               `json:"object_name" gorm:"type:varchar(500);not null"`
	Status        constant.ChunkStatus `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time            `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (RecordingChunk) TableName() string {
	return "recording_chunks"
}

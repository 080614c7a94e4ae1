package entities

import (
	"time"

	"github.com/google/uuid"
	"live-class/constant"
)

// Job is a unit of work handed to the transcode worker.
type Job struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primary_key"`
	EntityId   uuid.UUID          `json:"entity_id" gorm:"type:uuid;not null"`
	EntityType string             `json:"entity_type" gorm:"type:varchar(50);not null"`
	Status     constant.JobStatus `json:"status" gorm:"type:varchar(20);not null"`
	JobType    constant.JobType   `json:"job_type" gorm:"type:varchar(50);not null"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

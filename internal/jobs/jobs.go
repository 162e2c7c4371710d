// Package jobs defines the asynchronous work items handed to the cleanup
// worker over the redis queue.
package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	// JobFileDelete removes a superseded upload (old profile image).
	JobFileDelete JobType = "file_delete"
)

func (t JobType) IsValid() bool {
	return t == JobFileDelete
}

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type does not match job type")
)

// FileDeletePayload names the upload ref to remove.
type FileDeletePayload struct {
	Ref string `json:"ref"`
}

// Job is one unit of asynchronous work, serialized as JSON onto the queue.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	Payload   []byte    `json:"payload"` // raw json
	CreatedAt time.Time `json:"createdAt"`
}

func NewJob(t JobType, payloadJSON []byte) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}

	return Job{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payloadJSON,
		CreatedAt: time.Now().UTC(),
	}, nil
}

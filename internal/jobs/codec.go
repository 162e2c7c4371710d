package jobs

import (
	"encoding/json"
	"fmt"
)

// EncodePayload checks that the payload matches the job type before
// serializing, so the queue never carries a mislabeled body.
func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobFileDelete:
		switch payload.(type) {
		case FileDeletePayload, *FileDeletePayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals a job body into its typed payload.
func DecodePayload(j Job) (any, error) {
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case JobFileDelete:
		var p FileDeletePayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil
	}

	return nil, ErrInvalidJobType
}

package jobs

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b, err := EncodePayload(JobFileDelete, FileDeletePayload{Ref: "/uploads/123-456.png"})
	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	j, err := NewJob(JobFileDelete, b)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if j.ID == "" {
		t.Error("expected a job id")
	}

	decoded, err := DecodePayload(j)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}

	p, ok := decoded.(FileDeletePayload)
	if !ok {
		t.Fatalf("expected FileDeletePayload, got %T", decoded)
	}
	if p.Ref != "/uploads/123-456.png" {
		t.Errorf("ref mismatch: %s", p.Ref)
	}
}

func TestEncodeRejectsMismatchedPayload(t *testing.T) {
	if _, err := EncodePayload(JobFileDelete, struct{ X int }{1}); !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestNewJobRejectsUnknownType(t *testing.T) {
	if _, err := NewJob(JobType("bogus"), nil); !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	j := Job{ID: "x", Type: JobFileDelete}
	if _, err := DecodePayload(j); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// OperationState is the lifecycle state of one tool invocation as shown to
// the user. An operation is created in progress and transitions exactly once
// to success or failure; it is never reopened.
type OperationState string

const (
	OperationInProgress OperationState = "in_progress"
	OperationSuccess    OperationState = "success"
	OperationFailure    OperationState = "failure"
)

// OperationStatus is the user-facing progress record for one tool
// invocation, independent of what is reported back to the model. It renders
// as a feed attached to the assistant message that triggered it.
type OperationStatus struct {
	ID              string         `json:"id"`
	ParentMessageID string         `json:"parent_message_id"`
	Kind            string         `json:"kind"`
	State           OperationState `json:"state"`
	Detail          string         `json:"detail,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewOperationStatus creates an in-progress status for a tool invocation.
func NewOperationStatus(parentMessageID, kind string) OperationStatus {
	return OperationStatus{
		ID:              uuid.New().String(),
		ParentMessageID: parentMessageID,
		Kind:            kind,
		State:           OperationInProgress,
		UpdatedAt:       time.Now(),
	}
}

// Resolve returns a terminal copy of the status. Detail carries the error
// text on failure and is empty on success.
func (s OperationStatus) Resolve(err error) OperationStatus {
	s.UpdatedAt = time.Now()
	if err != nil {
		s.State = OperationFailure
		s.Detail = err.Error()
	} else {
		s.State = OperationSuccess
		s.Detail = ""
	}
	return s
}

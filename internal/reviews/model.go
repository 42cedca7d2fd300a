package reviews

import (
	"time"

	"resume-review/internal/review"
)

// Status is the lifecycle state of a review session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session is one review of one document. Result only ever holds successfully completed
// stages; a failed stage is recorded in ErrorCode and ErrorMessage and can be advanced again.
type Session struct {
	ID                 string        `json:"id"`
	DocumentID         string        `json:"documentId"`
	BaseVersionID      string        `json:"baseVersionId"`
	CommittedVersionID *string       `json:"committedVersionId,omitempty"`
	Content            string        `json:"-"`
	TargetDescription  string        `json:"targetDescription,omitempty"`
	DomainTag          string        `json:"domainTag,omitempty"`
	Result             review.Result `json:"result"`
	Status             Status        `json:"status"`
	ErrorCode          *string       `json:"errorCode,omitempty"`
	ErrorMessage       *string       `json:"errorMessage,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Input returns the engine input for the session's document.
func (s Session) Input() review.Input {
	return review.Input{
		DocumentText:      s.Content,
		TargetDescription: s.TargetDescription,
		DomainTag:         s.DomainTag,
	}
}

func (s Session) clone() Session {
	out := s
	out.Result = s.Result.Clone()
	if s.CommittedVersionID != nil {
		id := *s.CommittedVersionID
		out.CommittedVersionID = &id
	}
	if s.ErrorCode != nil {
		code := *s.ErrorCode
		out.ErrorCode = &code
	}
	if s.ErrorMessage != nil {
		msg := *s.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}

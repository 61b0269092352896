// Package audit is the append-only record of every access decision.
package audit

import "time"

type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDeny  Decision = "DENY"
)

type DoorStatus string

const (
	DoorOpened  DoorStatus = "OPENED"
	DoorFailed  DoorStatus = "FAILED"
	DoorUnknown DoorStatus = "UNKNOWN"
)

// AnnotationPriorSessionAutoClosed marks a decision whose ENTRY closed a
// session the user never exited.
const AnnotationPriorSessionAutoClosed = "PRIOR_SESSION_AUTO_CLOSED"

type Event struct {
	ID                  string     `json:"id" db:"id"`
	Timestamp           time.Time  `json:"ts" db:"ts"`
	UserID              *string    `json:"userId" db:"user_id"`
	CompanyID           *string    `json:"companyId" db:"company_id"`
	GateID              string     `json:"gateId" db:"gate_id"`
	ReaderID            string     `json:"readerId" db:"reader_id"`
	Decision            Decision   `json:"decision" db:"decision"`
	Reason              string     `json:"reason" db:"reason"`
	Detail              string     `json:"detail" db:"detail"`
	DoorStatus          DoorStatus `json:"doorStatus" db:"door_status"`
	DelegatedBy         *string    `json:"delegatedBy" db:"delegated_by"`
	VisitorPassID       *string    `json:"visitorPassId" db:"visitor_pass_id"`
	Annotation          *string    `json:"annotation,omitempty" db:"annotation"`
	AutoClosedSessionID *string    `json:"autoClosedSessionId,omitempty" db:"auto_closed_session_id"`
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

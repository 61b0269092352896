package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccessDecided        = "access.decided"
	EventTypeSessionStarted       = "timesession.started"
	EventTypeSessionCompleted     = "timesession.completed"
	EventTypeSessionAutoClosed    = "timesession.auto_closed"
	EventTypeDelegationCreated    = "delegation.created"
	EventTypeDelegationRevoked    = "delegation.revoked"
	EventTypeVisitorPassCreated   = "visitorpass.created"
	EventTypeVisitorPassRevoked   = "visitorpass.revoked"
	EventTypeVisitorPassExhausted = "visitorpass.exhausted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []string{
	EventTypeAccessDecided,
	EventTypeSessionStarted,
	EventTypeSessionCompleted,
	EventTypeSessionAutoClosed,
	EventTypeDelegationCreated,
	EventTypeDelegationRevoked,
	EventTypeVisitorPassCreated,
	EventTypeVisitorPassRevoked,
	EventTypeVisitorPassExhausted,
}

func newBase(eventType string, at time.Time, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}
}

type AccessDecidedEvent struct {
	BaseEvent
	GateID        string `json:"gate_id"`
	ReaderID      string `json:"reader_id"`
	UserID        string `json:"user_id,omitempty"`
	CompanyID     string `json:"company_id,omitempty"`
	Decision      string `json:"decision"`
	Reason        string `json:"reason"`
	DoorStatus    string `json:"door_status"`
	DelegatedBy   string `json:"delegated_by,omitempty"`
	VisitorPassID string `json:"visitor_pass_id,omitempty"`
}

type AccessDecision struct {
	GateID        string
	ReaderID      string
	UserID        string
	CompanyID     string
	Decision      string
	Reason        string
	DoorStatus    string
	DelegatedBy   string
	VisitorPassID string
}

func NewAccessDecidedEvent(d AccessDecision, at time.Time) *AccessDecidedEvent {
	return &AccessDecidedEvent{
		BaseEvent: newBase(EventTypeAccessDecided, at, map[string]interface{}{
			"gate_id":         d.GateID,
			"reader_id":       d.ReaderID,
			"user_id":         d.UserID,
			"company_id":      d.CompanyID,
			"decision":        d.Decision,
			"reason":          d.Reason,
			"door_status":     d.DoorStatus,
			"delegated_by":    d.DelegatedBy,
			"visitor_pass_id": d.VisitorPassID,
		}),
		GateID:        d.GateID,
		ReaderID:      d.ReaderID,
		UserID:        d.UserID,
		CompanyID:     d.CompanyID,
		Decision:      d.Decision,
		Reason:        d.Reason,
		DoorStatus:    d.DoorStatus,
		DelegatedBy:   d.DelegatedBy,
		VisitorPassID: d.VisitorPassID,
	}
}

type SessionEvent struct {
	BaseEvent
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	GateID          string `json:"gate_id"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

func NewSessionEvent(eventType, sessionID, userID, gateID string, durationSeconds int64, at time.Time) *SessionEvent {
	return &SessionEvent{
		BaseEvent: newBase(eventType, at, map[string]interface{}{
			"session_id":       sessionID,
			"user_id":          userID,
			"gate_id":          gateID,
			"duration_seconds": durationSeconds,
		}),
		SessionID:       sessionID,
		UserID:          userID,
		GateID:          gateID,
		DurationSeconds: durationSeconds,
	}
}

// GrantEvent covers delegation and visitor pass lifecycle changes.
type GrantEvent struct {
	BaseEvent
	GrantID   string   `json:"grant_id"`
	CreatedBy string   `json:"created_by"`
	GateIDs   []string `json:"gate_ids,omitempty"`
}

func NewGrantEvent(eventType, grantID, createdBy string, gateIDs []string, at time.Time) *GrantEvent {
	return &GrantEvent{
		BaseEvent: newBase(eventType, at, map[string]interface{}{
			"grant_id":   grantID,
			"created_by": createdBy,
			"gate_ids":   gateIDs,
		}),
		GrantID:   grantID,
		CreatedBy: createdBy,
		GateIDs:   gateIDs,
	}
}

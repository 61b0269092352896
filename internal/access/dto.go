package access

import (
	"time"

	"github.com/frahmantamala/oneaccess/internal/audit"
)

type QRTokenDTO struct {
	GateID      string `json:"gateId"`
	ReaderNonce string `json:"readerNonce"`
	DeviceID    string `json:"deviceId,omitempty"`
}

type VisitorTokenDTO struct {
	PassID      string `json:"passId"`
	GateID      string `json:"gateId"`
	ReaderNonce string `json:"readerNonce"`
}

type TokenResponse struct {
	Token           string `json:"token"`
	ExpEpochSeconds int64  `json:"expEpochSeconds"`
}

type VisitorTokenResponse struct {
	Token           string `json:"token"`
	ExpEpochSeconds int64  `json:"expEpochSeconds"`
	VisitorName     string `json:"visitorName"`
	RemainingUses   int    `json:"remainingUses"`
}

// VerifyRequest is what a reader submits. DoorOpened is nil when the reader
// did not report the door state.
type VerifyRequest struct {
	ReaderID   string `json:"readerId"`
	GateID     string `json:"gateId"`
	Token      string `json:"token"`
	DoorOpened *bool  `json:"doorOpened,omitempty"`
	Direction  string `json:"direction,omitempty"`
}

// SessionAction names what a decision did to the subject's time session.
type SessionAction string

const (
	SessionStarted   SessionAction = "STARTED"
	SessionCompleted SessionAction = "COMPLETED"
)

type SessionSummary struct {
	Action              SessionAction `json:"action"`
	SessionID           string        `json:"sessionId"`
	GateIDEntry         string        `json:"gateIdEntry"`
	EntryTime           time.Time     `json:"entryTime"`
	ExitTime            *time.Time    `json:"exitTime,omitempty"`
	DurationSeconds     *int64        `json:"durationSeconds,omitempty"`
	DurationFormatted   string        `json:"durationFormatted,omitempty"`
	AutoClosedSessionID string        `json:"autoClosedSessionId,omitempty"`
}

type VerifyResponse struct {
	Decision audit.Decision  `json:"decision"`
	Reason   Reason          `json:"reason"`
	Session  *SessionSummary `json:"session,omitempty"`
}

// Package timetracking derives entry/exit occupancy sessions from ALLOW
// decisions at building gates where the door opened.
package timetracking

import (
	"fmt"
	"strings"
	"time"

	timesessionDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/timesession"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

// ParseDirection defaults to ENTRY when raw is empty.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", DirectionEntry:
		return DirectionEntry, true
	case DirectionExit:
		return DirectionExit, true
	default:
		return "", false
	}
}

type Session struct {
	ID              string     `json:"sessionId"`
	UserID          string     `json:"userId"`
	CompanyID       string     `json:"companyId"`
	GateIDEntry     string     `json:"gateIdEntry"`
	GateIDExit      *string    `json:"gateIdExit,omitempty"`
	EntryTime       time.Time  `json:"entryTime"`
	ExitTime        *time.Time `json:"exitTime,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
	Status          Status     `json:"status"`
}

func (s *Session) IsActive() bool {
	return s.Status == StatusActive
}

// Complete closes the session at exit. Duration is whole seconds and never
// negative.
func (s *Session) Complete(gateIDExit string, at time.Time) {
	gate := gateIDExit
	exit := at
	d := int64(at.Sub(s.EntryTime) / time.Second)
	if d < 0 {
		d = 0
	}
	s.GateIDExit = &gate
	s.ExitTime = &exit
	s.DurationSeconds = &d
	s.Status = StatusCompleted
}

// Duration returns the completed duration or zero.
func (s *Session) Duration() time.Duration {
	if s.DurationSeconds == nil {
		return 0
	}
	return time.Duration(*s.DurationSeconds) * time.Second
}

// FormatDuration renders d as "Hh MMm SSs", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func ToDataModel(s *Session) *timesessionDatamodel.TimeSession {
	row := &timesessionDatamodel.TimeSession{
		ID:              s.ID,
		UserID:          s.UserID,
		CompanyID:       s.CompanyID,
		GateIDEntry:     s.GateIDEntry,
		GateIDExit:      s.GateIDExit,
		EntryTime:       s.EntryTime.UTC(),
		DurationSeconds: s.DurationSeconds,
		Status:          string(s.Status),
	}
	if s.ExitTime != nil {
		exit := s.ExitTime.UTC()
		row.ExitTime = &exit
	}
	return row
}

func FromDataModel(row *timesessionDatamodel.TimeSession) *Session {
	return &Session{
		ID:              row.ID,
		UserID:          row.UserID,
		CompanyID:       row.CompanyID,
		GateIDEntry:     row.GateIDEntry,
		GateIDExit:      row.GateIDExit,
		EntryTime:       row.EntryTime,
		ExitTime:        row.ExitTime,
		DurationSeconds: row.DurationSeconds,
		Status:          Status(row.Status),
	}
}

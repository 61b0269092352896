package access

import (
	"context"
	"strings"
	"time"

	errors "github.com/frahmantamala/oneaccess/internal"
	"github.com/frahmantamala/oneaccess/internal/audit"
	"github.com/frahmantamala/oneaccess/internal/core/common/validation"
	"github.com/frahmantamala/oneaccess/internal/core/events"
	"github.com/frahmantamala/oneaccess/internal/directory"
	"github.com/frahmantamala/oneaccess/internal/timetracking"
	"github.com/frahmantamala/oneaccess/internal/token"
	"github.com/frahmantamala/oneaccess/internal/visitor"
)

// subject is who the token speaks for once resolved: a directory user, or the
// visitor behind pass.
type subject struct {
	id        string
	companyID string
	pass      *visitor.Pass
}

// outcome accumulates one verification so exactly one audit record and one
// event are produced per call.
type outcome struct {
	req        VerifyRequest
	gate       *directory.Gate
	claims     *token.AccessClaims
	subject    *subject
	decision   audit.Decision
	reason     Reason
	door       audit.DoorStatus
	session    *SessionSummary
	autoClosed string
}

func (o *outcome) deny(reason Reason, door audit.DoorStatus) {
	o.decision = audit.DecisionDeny
	o.reason = reason
	o.door = door
}

// reportedDoor is the door status for DENY paths where the reader's report
// is still worth keeping: OPENED when it opened, UNKNOWN otherwise.
func (o *outcome) reportedDoor() audit.DoorStatus {
	if o.req.DoorOpened != nil && *o.req.DoorOpened {
		return audit.DoorOpened
	}
	return audit.DoorUnknown
}

func (o *outcome) allowDoor() audit.DoorStatus {
	switch {
	case o.req.DoorOpened == nil:
		return audit.DoorUnknown
	case *o.req.DoorOpened:
		return audit.DoorOpened
	default:
		return audit.DoorFailed
	}
}

// Verify decides a reader's request. Malformed requests and unknown gates are
// errors and leave no trace. Every other outcome, ALLOW or DENY, is audited
// and returned as a decision.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	req.ReaderID = strings.TrimSpace(req.ReaderID)
	req.GateID = strings.TrimSpace(req.GateID)
	req.Token = strings.TrimSpace(req.Token)

	v := validation.NewValidator()
	v.Field("readerId", req.ReaderID).Required()
	v.Field("gateId", req.GateID).Required()
	v.Field("token", req.Token).Required()
	if err := v.Validate(); err != nil {
		return nil, err
	}
	direction, ok := timetracking.ParseDirection(req.Direction)
	if !ok {
		return nil, errors.NewValidationFieldError("direction", "direction must be ENTRY or EXIT", errors.ErrCodeInvalidDirection)
	}

	gate, err := s.Directory.Gate(ctx, req.GateID)
	if err != nil {
		return nil, err
	}

	o := &outcome{req: req, gate: gate}
	if err := s.decide(ctx, o, direction); err != nil {
		return nil, err
	}
	s.record(ctx, o)

	resp := &VerifyResponse{Decision: o.decision, Reason: o.reason, Session: o.session}
	if o.decision == audit.DecisionDeny && !s.exposeDenyReasons {
		resp.Reason = ReasonDenied
	}
	return resp, nil
}

// decide walks the decision steps in order and stops at the first DENY.
// Errors are infrastructure failures only.
func (s *Service) decide(ctx context.Context, o *outcome, direction timetracking.Direction) error {
	now := s.now()

	claims, err := s.Codec.Verify(o.req.Token)
	if err != nil {
		s.logger.Info("token rejected", "gate_id", o.gate.ID, "reader_id", o.req.ReaderID, "error", err)
		o.deny(ReasonInvalidToken, audit.DoorUnknown)
		return nil
	}
	o.claims = claims

	if s.ledger != nil {
		first, err := s.ledger.Claim(ctx, claims.ID, claims.ExpiresAt.Time)
		if err != nil {
			return errors.NewInternalError("failed to check token replay", err)
		}
		if !first {
			s.logger.Warn("token replayed", "gate_id", o.gate.ID, "reader_id", o.req.ReaderID, "jti", claims.ID)
			o.deny(ReasonTokenReplayed, audit.DoorUnknown)
			return nil
		}
	}

	if claims.IsVisitor() {
		pass, err := s.Visitors.Lookup(ctx, claims.VisitorPassID)
		if err != nil {
			return errors.NewInternalError("failed to load visitor pass", err)
		}
		passID, _ := token.PassIDFromSubject(claims.Subject)
		if pass == nil || !pass.Active || !pass.IsValidAt(now) || passID != pass.ID {
			o.deny(ReasonInvalidVisitorPass, audit.DoorUnknown)
			return nil
		}
		if pass.IsExhausted() {
			o.subject = &subject{companyID: pass.HostCompanyID, pass: pass}
			o.deny(ReasonUsageExceeded, audit.DoorUnknown)
			return nil
		}
		o.subject = &subject{id: claims.Subject, companyID: pass.HostCompanyID, pass: pass}
	} else {
		u, err := s.Directory.LookupUser(ctx, claims.Subject)
		if err != nil {
			return errors.NewInternalError("failed to load user", err)
		}
		if !u.IsActiveUser() {
			o.subject = &subject{id: claims.Subject, companyID: claims.CompanyID}
			o.deny(ReasonUserInactive, o.reportedDoor())
			return nil
		}
		o.subject = &subject{id: u.ID, companyID: u.CompanyID}
	}

	if claims.GateID != o.gate.ID {
		o.deny(ReasonGateMismatch, o.reportedDoor())
		return nil
	}

	allowed, err := s.authorized(ctx, o, now)
	if err != nil {
		return err
	}
	if !allowed {
		o.deny(ReasonNotAllowed, o.reportedDoor())
		return nil
	}

	if o.subject.pass != nil {
		consumed, err := s.Visitors.ConsumeUse(ctx, o.subject.pass.ID, claims.ID, now)
		if err != nil {
			appErr, ok := errors.IsAppError(err)
			if !ok || appErr.StatusCode >= 500 {
				return err
			}
			if appErr.Code == errors.ErrCodePassExhausted {
				o.deny(ReasonUsageExceeded, audit.DoorUnknown)
			} else {
				o.deny(ReasonInvalidVisitorPass, audit.DoorUnknown)
			}
			return nil
		}
		o.subject.pass = consumed.Pass
	}

	o.decision = audit.DecisionAllow
	o.reason = ReasonOK
	o.door = o.allowDoor()

	if o.door == audit.DoorOpened && o.gate.IsBuilding() {
		s.track(ctx, o, direction, now)
	}
	return nil
}

// authorized applies the gate rules. MAIN gates always pass. BUILDING gates
// pass for the owning company, for a delegatee holding a live grant from the
// token's grantor, or for a visitor whose pass names the gate.
func (s *Service) authorized(ctx context.Context, o *outcome, now time.Time) (bool, error) {
	if !o.gate.IsBuilding() {
		return true, nil
	}
	if pass := o.subject.pass; pass != nil {
		return pass.Covers(o.gate.ID), nil
	}
	if o.gate.OwnedBy(o.subject.companyID) {
		return true, nil
	}
	if o.claims.DelegatedBy == "" {
		return false, nil
	}
	grant, err := s.Delegations.FindGrant(ctx, o.subject.id, o.claims.DelegatedBy, o.gate.ID, now)
	if err != nil {
		return false, errors.NewInternalError("failed to load delegations", err)
	}
	return grant != nil, nil
}

// track feeds the session state machine. The decision is already final, so
// failures are logged and the session summary is left out.
func (s *Service) track(ctx context.Context, o *outcome, direction timetracking.Direction, now time.Time) {
	switch direction {
	case timetracking.DirectionExit:
		done, err := s.Sessions.End(ctx, o.subject.id, o.gate.ID, now)
		if err != nil {
			s.logger.Error("failed to end session", "user_id", o.subject.id, "gate_id", o.gate.ID, "error", err)
			return
		}
		if done != nil {
			o.session = summarize(SessionCompleted, done)
		}
	default:
		started, err := s.Sessions.Start(ctx, o.subject.id, o.subject.companyID, o.gate.ID, now)
		if err != nil {
			s.logger.Error("failed to start session", "user_id", o.subject.id, "gate_id", o.gate.ID, "error", err)
			return
		}
		o.session = summarize(SessionStarted, started.Session)
		if started.AutoClosed != nil {
			o.autoClosed = started.AutoClosed.ID
			o.session.AutoClosedSessionID = started.AutoClosed.ID
		}
	}
}

func summarize(action SessionAction, sess *timetracking.Session) *SessionSummary {
	sum := &SessionSummary{
		Action:          action,
		SessionID:       sess.ID,
		GateIDEntry:     sess.GateIDEntry,
		EntryTime:       sess.EntryTime,
		ExitTime:        sess.ExitTime,
		DurationSeconds: sess.DurationSeconds,
	}
	if sess.DurationSeconds != nil {
		sum.DurationFormatted = timetracking.FormatDuration(sess.Duration())
	}
	return sum
}

// record appends the audit event and publishes the decision. An audit failure
// does not change a decision that has already been committed.
func (s *Service) record(ctx context.Context, o *outcome) {
	e := &audit.Event{
		GateID:     o.gate.ID,
		ReaderID:   o.req.ReaderID,
		Decision:   o.decision,
		Reason:     string(o.reason),
		Detail:     o.reason.Detail(),
		DoorStatus: o.door,
	}
	if o.subject != nil {
		e.UserID = audit.StringPtr(o.subject.id)
		e.CompanyID = audit.StringPtr(o.subject.companyID)
		e.DelegatedBy = audit.StringPtr(o.claims.DelegatedBy)
		if o.subject.pass != nil {
			e.VisitorPassID = audit.StringPtr(o.subject.pass.ID)
		}
	}
	if o.autoClosed != "" {
		e.Annotation = audit.StringPtr(audit.AnnotationPriorSessionAutoClosed)
		e.AutoClosedSessionID = audit.StringPtr(o.autoClosed)
	}

	if err := s.Audit.Record(ctx, e); err != nil {
		s.logger.Error("failed to record decision", "gate_id", e.GateID, "reason", e.Reason, "error", err)
	}

	s.logger.Info("access decided",
		"gate_id", e.GateID,
		"reader_id", e.ReaderID,
		"decision", e.Decision,
		"reason", e.Reason,
		"door_status", e.DoorStatus)

	decided := events.AccessDecision{
		GateID:     e.GateID,
		ReaderID:   e.ReaderID,
		Decision:   string(e.Decision),
		Reason:     e.Reason,
		DoorStatus: string(e.DoorStatus),
	}
	if e.UserID != nil {
		decided.UserID = *e.UserID
	}
	if e.CompanyID != nil {
		decided.CompanyID = *e.CompanyID
	}
	if e.DelegatedBy != nil {
		decided.DelegatedBy = *e.DelegatedBy
	}
	if e.VisitorPassID != nil {
		decided.VisitorPassID = *e.VisitorPassID
	}
	_ = s.publisher.Publish(ctx, events.NewAccessDecidedEvent(decided, e.Timestamp))
}

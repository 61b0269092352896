package token

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsVersion = 1

	UnknownDevice = "UNKNOWN_DEVICE"
	VisitorDevice = "VISITOR_DEVICE"

	visitorSubjectPrefix = "VISITOR_"
)

// AccessClaims is the fixed claim set of a gate access token.
type AccessClaims struct {
	Version       int    `json:"v"`
	CompanyID     string `json:"cid"`
	GateID        string `json:"gid"`
	ReaderNonce   string `json:"rnonce"`
	DeviceID      string `json:"did"`
	DelegatedBy   string `json:"delegated_by,omitempty"`
	VisitorPassID string `json:"visitor_pass_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) IsVisitor() bool {
	return c.VisitorPassID != ""
}

// VisitorSubject is the synthetic subject bound to a visitor pass.
func VisitorSubject(passID string) string {
	return visitorSubjectPrefix + passID
}

// PassIDFromSubject returns the pass id of a visitor subject.
func PassIDFromSubject(subject string) (string, bool) {
	if !strings.HasPrefix(subject, visitorSubjectPrefix) {
		return "", false
	}
	return strings.TrimPrefix(subject, visitorSubjectPrefix), true
}

// EmployeeTokenID derives the token id from subject, nonce and issue time.
func EmployeeTokenID(subject, nonce string, issuedAt int64) string {
	return fmt.Sprintf("%s:%s:%d", subject, nonce, issuedAt)
}

func VisitorTokenID(passID, nonce string, issuedAt int64) string {
	return fmt.Sprintf("visitor:%s:%s:%d", passID, nonce, issuedAt)
}

// Package access decides ALLOW or DENY for tokens presented at gate readers
// and mints the tokens in the first place.
package access

type Reason string

const (
	ReasonOK                 Reason = "OK"
	ReasonInvalidToken       Reason = "INVALID_TOKEN"
	ReasonTokenReplayed      Reason = "TOKEN_REPLAYED"
	ReasonInvalidVisitorPass Reason = "INVALID_VISITOR_PASS"
	ReasonUsageExceeded      Reason = "USAGE_EXCEEDED"
	ReasonUserInactive       Reason = "USER_INACTIVE"
	ReasonGateMismatch       Reason = "GATE_MISMATCH"
	ReasonNotAllowed         Reason = "NOT_ALLOWED"

	// ReasonDenied replaces every specific DENY reason in responses when deny
	// reasons are hidden from readers.
	ReasonDenied Reason = "DENIED"
)

var reasonDetails = map[Reason]string{
	ReasonOK:                 "OK",
	ReasonInvalidToken:       "Invalid token",
	ReasonTokenReplayed:      "Token already redeemed",
	ReasonInvalidVisitorPass: "Invalid visitor pass",
	ReasonUsageExceeded:      "Visitor pass usage exceeded",
	ReasonUserInactive:       "Unknown/inactive user",
	ReasonGateMismatch:       "Token gate mismatch",
	ReasonNotAllowed:         "Not allowed for building",
}

// Detail is the human-readable text stored next to the reason code.
func (r Reason) Detail() string {
	if d, ok := reasonDetails[r]; ok {
		return d
	}
	return string(r)
}

// Package ids mints prefixed registry identifiers such as DEL_1A2B3C4D.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DelegationPrefix  = "DEL_"
	VisitorPassPrefix = "VIS_"
	SessionPrefix     = "SES_"
)

// New returns prefix followed by n upper-case hex characters of a random UUID.
// n is capped at 32.
func New(prefix string, n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(raw) {
		n = len(raw)
	}
	return prefix + strings.ToUpper(raw[:n])
}

func Delegation() string  { return New(DelegationPrefix, 8) }
func VisitorPass() string { return New(VisitorPassPrefix, 8) }
func Session() string     { return New(SessionPrefix, 12) }

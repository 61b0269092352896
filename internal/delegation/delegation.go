// Package delegation holds time-bounded grants that extend one user's
// building-gate authorization to another user.
package delegation

import (
	"slices"
	"time"

	delegationDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/delegation"
)

type Delegation struct {
	ID          string
	DelegatorID string
	DelegateeID string
	GateIDs     []string
	ValidUntil  time.Time
	CreatedBy   string
	Active      bool
	CreatedAt   time.Time
}

// IsValidAt is the single validity predicate: not revoked and not expired.
func (d *Delegation) IsValidAt(now time.Time) bool {
	return d.Active && d.ValidUntil.After(now)
}

func (d *Delegation) Covers(gateID string) bool {
	return slices.Contains(d.GateIDs, gateID)
}

// Grants reports whether the delegation authorizes gateID at now. An empty
// grantor matches any delegator.
func (d *Delegation) Grants(grantorID, gateID string, now time.Time) bool {
	if grantorID != "" && d.DelegatorID != grantorID {
		return false
	}
	return d.IsValidAt(now) && d.Covers(gateID)
}

func (d *Delegation) Revoke() {
	d.Active = false
}

func ToDataModel(d *Delegation) *delegationDatamodel.Delegation {
	gates := make([]delegationDatamodel.DelegationGate, 0, len(d.GateIDs))
	for _, g := range d.GateIDs {
		gates = append(gates, delegationDatamodel.DelegationGate{DelegationID: d.ID, GateID: g})
	}
	return &delegationDatamodel.Delegation{
		ID:          d.ID,
		DelegatorID: d.DelegatorID,
		DelegateeID: d.DelegateeID,
		ValidUntil:  d.ValidUntil.UTC(),
		CreatedBy:   d.CreatedBy,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt.UTC(),
		Gates:       gates,
	}
}

func FromDataModel(d *delegationDatamodel.Delegation) *Delegation {
	gateIDs := make([]string, 0, len(d.Gates))
	for _, g := range d.Gates {
		gateIDs = append(gateIDs, g.GateID)
	}
	slices.Sort(gateIDs)
	return &Delegation{
		ID:          d.ID,
		DelegatorID: d.DelegatorID,
		DelegateeID: d.DelegateeID,
		GateIDs:     gateIDs,
		ValidUntil:  d.ValidUntil,
		CreatedBy:   d.CreatedBy,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
	}
}

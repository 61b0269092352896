// Package visitor manages usage-capped passes that give a non-employee a
// bounded identity at a host company's gates.
package visitor

import (
	"slices"
	"time"

	visitorDatamodel "github.com/frahmantamala/oneaccess/internal/core/datamodel/visitor"
)

const DefaultMaxUses = 5

const (
	MaxVisitorNameLength  = 100
	MaxVisitorPhoneLength = 32
)

type Pass struct {
	ID            string
	CreatedBy     string
	VisitorName   string
	VisitorPhone  string
	GateIDs       []string
	ValidUntil    time.Time
	HostCompanyID string
	Active        bool
	UsedCount     int
	MaxUses       int
	CreatedAt     time.Time
}

// IsValidAt reports whether the pass is active and not past valid_until.
func (p *Pass) IsValidAt(now time.Time) bool {
	return p.Active && p.ValidUntil.After(now)
}

func (p *Pass) IsExhausted() bool {
	return p.UsedCount >= p.MaxUses
}

// Usable is the predicate a redemption has to satisfy.
func (p *Pass) Usable(now time.Time) bool {
	return p.IsValidAt(now) && !p.IsExhausted()
}

func (p *Pass) Remaining() int {
	if p.IsExhausted() {
		return 0
	}
	return p.MaxUses - p.UsedCount
}

func (p *Pass) Covers(gateID string) bool {
	return slices.Contains(p.GateIDs, gateID)
}

func (p *Pass) Revoke() {
	p.Active = false
}

func ToDataModel(p *Pass) *visitorDatamodel.Pass {
	gates := make([]visitorDatamodel.PassGate, 0, len(p.GateIDs))
	for _, g := range p.GateIDs {
		gates = append(gates, visitorDatamodel.PassGate{PassID: p.ID, GateID: g})
	}
	return &visitorDatamodel.Pass{
		ID:            p.ID,
		CreatedBy:     p.CreatedBy,
		VisitorName:   p.VisitorName,
		VisitorPhone:  p.VisitorPhone,
		ValidUntil:    p.ValidUntil.UTC(),
		HostCompanyID: p.HostCompanyID,
		Active:        p.Active,
		UsedCount:     p.UsedCount,
		MaxUses:       p.MaxUses,
		CreatedAt:     p.CreatedAt.UTC(),
		Gates:         gates,
	}
}

func FromDataModel(p *visitorDatamodel.Pass) *Pass {
	gateIDs := make([]string, 0, len(p.Gates))
	for _, g := range p.Gates {
		gateIDs = append(gateIDs, g.GateID)
	}
	slices.Sort(gateIDs)
	return &Pass{
		ID:            p.ID,
		CreatedBy:     p.CreatedBy,
		VisitorName:   p.VisitorName,
		VisitorPhone:  p.VisitorPhone,
		GateIDs:       gateIDs,
		ValidUntil:    p.ValidUntil,
		HostCompanyID: p.HostCompanyID,
		Active:        p.Active,
		UsedCount:     p.UsedCount,
		MaxUses:       p.MaxUses,
		CreatedAt:     p.CreatedAt,
	}
}

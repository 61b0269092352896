package visitor

import "time"

type CreatePassDTO struct {
	VisitorName  string   `json:"visitorName"`
	VisitorPhone string   `json:"visitorPhone"`
	GateIDs      []string `json:"gateIds"`
	Hours        *int     `json:"hours,omitempty"`
}

type CreatePassResponse struct {
	PassID     string    `json:"passId"`
	Status     string    `json:"status"`
	ValidUntil time.Time `json:"validUntil"`
	MaxUses    int       `json:"maxUses"`
}

type PassView struct {
	PassID       string    `json:"passId"`
	VisitorName  string    `json:"visitorName"`
	VisitorPhone string    `json:"visitorPhone"`
	GateIDs      []string  `json:"gateIds"`
	ValidUntil   time.Time `json:"validUntil"`
	CreatedAt    time.Time `json:"createdAt"`
	UsedCount    int       `json:"usedCount"`
	MaxUses      int       `json:"maxUses"`
}

type ListResponse struct {
	VisitorPasses []PassView `json:"visitorPasses"`
}

func ToView(p *Pass) PassView {
	return PassView{
		PassID:       p.ID,
		VisitorName:  p.VisitorName,
		VisitorPhone: p.VisitorPhone,
		GateIDs:      p.GateIDs,
		ValidUntil:   p.ValidUntil,
		CreatedAt:    p.CreatedAt,
		UsedCount:    p.UsedCount,
		MaxUses:      p.MaxUses,
	}
}

package delegation

import "time"

type CreateDelegationDTO struct {
	DelegateeEmail string   `json:"delegateeEmail"`
	GateIDs        []string `json:"gateIds"`
	Hours          *int     `json:"hours,omitempty"`
}

type CreateDelegationResponse struct {
	DelegationID string    `json:"delegationId"`
	Status       string    `json:"status"`
	ValidUntil   time.Time `json:"validUntil"`
}

type CreatedDelegationView struct {
	DelegationID   string    `json:"delegationId"`
	DelegateeEmail string    `json:"delegateeEmail"`
	GateIDs        []string  `json:"gateIds"`
	ValidUntil     time.Time `json:"validUntil"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ReceivedDelegationView struct {
	DelegationID   string    `json:"delegationId"`
	DelegatorEmail string    `json:"delegatorEmail"`
	GateIDs        []string  `json:"gateIds"`
	ValidUntil     time.Time `json:"validUntil"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ListResponse struct {
	Created  []CreatedDelegationView  `json:"created"`
	Received []ReceivedDelegationView `json:"received"`
}

package delegation

import "time"

type Delegation struct {
	ID          string           `gorm:"primaryKey;column:id"`
	DelegatorID string           `gorm:"column:delegator_id;index;not null"`
	DelegateeID string           `gorm:"column:delegatee_id;index:idx_delegations_delegatee_active;not null"`
	ValidUntil  time.Time        `gorm:"column:valid_until;index:idx_delegations_delegatee_active;not null"`
	CreatedBy   string           `gorm:"column:created_by;not null"`
	Active      bool             `gorm:"column:active;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;not null"`
	Gates       []DelegationGate `gorm:"foreignKey:DelegationID;constraint:OnDelete:CASCADE"`
}

func (Delegation) TableName() string {
	return "delegations"
}

type DelegationGate struct {
	DelegationID string `gorm:"primaryKey;column:delegation_id"`
	GateID       string `gorm:"primaryKey;column:gate_id"`
}

func (DelegationGate) TableName() string {
	return "delegation_gates"
}

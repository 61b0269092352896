package visitor

import "time"

type Pass struct {
	ID            string     `gorm:"primaryKey;column:id"`
	CreatedBy     string     `gorm:"column:created_by;index;not null"`
	VisitorName   string     `gorm:"column:visitor_name;not null"`
	VisitorPhone  string     `gorm:"column:visitor_phone;not null"`
	ValidUntil    time.Time  `gorm:"column:valid_until;not null"`
	HostCompanyID string     `gorm:"column:host_company_id;not null"`
	Active        bool       `gorm:"column:active;not null"`
	UsedCount     int        `gorm:"column:used_count;not null"`
	MaxUses       int        `gorm:"column:max_uses;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	Gates         []PassGate `gorm:"foreignKey:PassID;constraint:OnDelete:CASCADE"`
}

func (Pass) TableName() string {
	return "visitor_passes"
}

type PassGate struct {
	PassID string `gorm:"primaryKey;column:pass_id"`
	GateID string `gorm:"primaryKey;column:gate_id"`
}

func (PassGate) TableName() string {
	return "visitor_pass_gates"
}

// Redemption records a token id that already consumed a use of a pass.
type Redemption struct {
	PassID     string    `gorm:"primaryKey;column:pass_id"`
	JTI        string    `gorm:"primaryKey;column:jti"`
	RedeemedAt time.Time `gorm:"column:redeemed_at;not null"`
}

func (Redemption) TableName() string {
	return "visitor_pass_redemptions"
}

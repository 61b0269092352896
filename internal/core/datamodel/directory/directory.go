package directory

import "time"

type User struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Email     string    `gorm:"column:email;uniqueIndex;not null"`
	CompanyID string    `gorm:"column:company_id;not null"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

type Gate struct {
	ID        string  `gorm:"primaryKey;column:id"`
	Kind      string  `gorm:"column:kind;not null"`
	CompanyID *string `gorm:"column:company_id"`
}

func (Gate) TableName() string {
	return "gates"
}

type RevokedDevice struct {
	DeviceID  string    `gorm:"primaryKey;column:device_id"`
	RevokedAt time.Time `gorm:"column:revoked_at;not null"`
}

func (RevokedDevice) TableName() string {
	return "revoked_devices"
}

package domain

import "time"

// Account is an auth identity. It is private to the identity provider and never published.
type Account struct {
	UID              string    `gorm:"column:uid;type:varchar(64);primaryKey" json:"uid"`
	Email            string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash     string    `gorm:"column:passwordHash;not null" json:"-"`
	DisplayName      string    `gorm:"column:displayName" json:"displayName"`
	Disabled         bool      `gorm:"column:disabled;not null;default:false" json:"disabled"`
	TokensValidAfter time.Time `gorm:"column:tokensValidAfter" json:"tokensValidAfter"`
	CreatedAt        time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Account) TableName() string {
	return "authAccounts"
}

// Models lists every table the platform migrates.
func Models() []interface{} {
	return []interface{}{&Listing{}, &Appointment{}, &UserMessage{}, &Admin{}, &Counter{}, &Account{}}
}

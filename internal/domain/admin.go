package domain

import "time"

// MainAdminSentinel marks the bootstrap owner account in Admin.CreatedBy.
const MainAdminSentinel = "main admin"

// Admin is the console profile of an auth identity. UID is shared with the identity.
type Admin struct {
	UID       string    `gorm:"column:uid;type:varchar(64);primaryKey" json:"uid" validate:"required"`
	FirstName string    `gorm:"column:firstName" json:"firstName"`
	LastName  string    `gorm:"column:lastName" json:"lastName"`
	Email     string    `gorm:"column:email;not null" json:"email" validate:"required,email"`
	Role      string    `gorm:"column:role;type:varchar(20);not null" json:"role" validate:"oneof=super-admin admin moderator viewer"`
	CreatedBy string    `gorm:"column:createdBy" json:"createdBy"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Admin) TableName() string {
	return CollectionAdmins
}

func (a Admin) DocumentID() string {
	return a.UID
}

// IsMainAdmin reports whether this is the bootstrap owner record.
func (a Admin) IsMainAdmin() bool {
	return a.CreatedBy == MainAdminSentinel
}

// DisplayName is "First Last", falling back to the email.
func (a Admin) DisplayName() string {
	name := a.FirstName
	if a.LastName != "" {
		if name != "" {
			name += " "
		}
		name += a.LastName
	}
	if name == "" {
		return a.Email
	}
	return name
}

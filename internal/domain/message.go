package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserMessage is a contact-form submission.
type UserMessage struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	FirstName string    `gorm:"column:firstName;not null" json:"firstName" validate:"required"`
	LastName  string    `gorm:"column:lastName" json:"lastName"`
	Email     string    `gorm:"column:email;not null" json:"email" validate:"required,email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	Subject   string    `gorm:"column:subject" json:"subject"`
	Message   string    `gorm:"column:message;not null" json:"message" validate:"required"`
	Viewed    bool      `gorm:"column:viewed;not null;default:false" json:"viewed"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (UserMessage) TableName() string {
	return CollectionMessages
}

func (m UserMessage) DocumentID() string {
	return m.ID
}

func (m *UserMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

package models

import "time"

type NewsletterSubscriber struct {
	BaseModel
	Email       string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name        string           `gorm:"type:varchar(255)" json:"name"`
	Status      SubscriberStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
}

func (NewsletterSubscriber) TableName() string { return "newsletter_subscribers" }

package models

import "time"

// Message is an owner-less card message.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index;<-:create" json:"created_at"`
	Messages  string    `gorm:"column:messages;type:text;not null" json:"messages"`
}

func (Message) TableName() string {
	return "messages"
}

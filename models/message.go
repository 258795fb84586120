package models

import (
	"time"

	"gorm.io/gorm"
)

// OutboundMessage represents one bulk-send outcome persisted to the history database
type OutboundMessage struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID         string         `gorm:"size:36;not null;index" json:"batch_id"`
	Number          string         `gorm:"size:20;not null;index" json:"number"`
	FormattedNumber string         `gorm:"size:20;not null" json:"formatted_number"`
	Status          string         `gorm:"size:20;not null;index" json:"status"` // sent, failed
	Reason          string         `gorm:"size:500" json:"reason,omitempty"`
	Content         string         `gorm:"type:text" json:"content"`
	Timestamp       time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the OutboundMessage model
func (OutboundMessage) TableName() string {
	return "outbound_messages"
}

// MessageStats represents outbound message statistics
type MessageStats struct {
	TotalMessages     int64 `json:"total_messages"`
	TotalSent         int64 `json:"total_sent"`
	TotalFailed       int64 `json:"total_failed"`
	MessagesToday     int64 `json:"messages_today"`
	MessagesThisWeek  int64 `json:"messages_this_week"`
	MessagesThisMonth int64 `json:"messages_this_month"`
}

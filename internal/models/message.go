package models

import "time"

// Message types for incoming webhook deliveries
const (
	MessageTypeText  = "text"
	MessageTypeMedia = "media"
)

// Message directions for the audit log
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// IncomingMessage is one normalized WhatsApp message delivered by the
// Twilio webhook. Addresses are stored without the "whatsapp:" prefix.
// Instances are immutable once built and live for a single request.
type IncomingMessage struct {
	MessageSid string   `json:"message_sid"`
	AccountSid string   `json:"account_sid"`
	From       string   `json:"sender_id"`
	To         string   `json:"recipient_id"`
	Body       string   `json:"message_body"`
	NumMedia   int      `json:"num_media"`
	MediaURLs  []string `json:"media_urls"`
	Type       string   `json:"message_type"` // "text" or "media"
	Timestamp  string   `json:"timestamp"`
}

// SendResult describes the outcome of one outbound Twilio send.
type SendResult struct {
	Success    bool   `json:"success"`
	MessageSid string `json:"message_sid"`
	Status     string `json:"status"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// MessageRecord is the persisted audit entry for a relayed message,
// inbound or outbound. Chat sessions themselves are never persisted;
// this log only backs the monitoring endpoints and delivery lookups.
type MessageRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	MessageSid     string    `gorm:"uniqueIndex;size:64" json:"message_sid"`
	Direction      string    `gorm:"size:16;index" json:"direction"`
	FromNumber     string    `gorm:"size:32" json:"from_number"`
	ToNumber       string    `gorm:"size:32" json:"to_number"`
	Body           string    `gorm:"type:text" json:"body"`
	MessageType    string    `gorm:"size:16" json:"message_type"`
	DeliveryStatus string    `gorm:"size:32" json:"delivery_status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

package storage

import (
	"errors"

	"github.com/cryptolock-hq/chatbot-backend/internal/models"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("record not found")

// Store is the message audit log backing the monitoring endpoints and
// delivery-status lookups. Chat sessions are deliberately not stored
// here; the registry is in-memory only.
type Store interface {
	CreateMessage(record *models.MessageRecord) (*models.MessageRecord, error)
	GetMessageBySID(messageSid string) (*models.MessageRecord, error)
	UpdateDeliveryStatus(messageSid string, status string) error
	CountMessages(direction string) (int64, error)
	RecentMessages(limit int) ([]*models.MessageRecord, error)
}

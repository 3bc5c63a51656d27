package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/cryptolock-hq/chatbot-backend/internal/models"
)

// MemoryStore keeps the message log in memory. Intended for local
// development and tests (USE_MEMORY_STORE=true), not production.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*models.MessageRecord
	counter  uint
}

// NewMemoryStore creates an empty in-memory message log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]*models.MessageRecord),
	}
}

func (m *MemoryStore) CreateMessage(record *models.MessageRecord) (*models.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	now := time.Now()
	record.ID = m.counter
	record.CreatedAt = now
	record.UpdatedAt = now

	m.messages[record.MessageSid] = record
	return record, nil
}

func (m *MemoryStore) GetMessageBySID(messageSid string) (*models.MessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.messages[messageSid]
	if !exists {
		return nil, ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) UpdateDeliveryStatus(messageSid string, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.messages[messageSid]
	if !exists {
		return ErrNotFound
	}
	record.DeliveryStatus = status
	record.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) CountMessages(direction string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, record := range m.messages {
		if direction == "" || record.Direction == direction {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) RecentMessages(limit int) ([]*models.MessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*models.MessageRecord, 0, len(m.messages))
	for _, record := range m.messages {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

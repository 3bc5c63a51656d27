package storage

import (
	"errors"

	"gorm.io/gorm"

	"github.com/cryptolock-hq/chatbot-backend/internal/models"
)

// DatabaseStore persists the message log in PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed message log.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) CreateMessage(record *models.MessageRecord) (*models.MessageRecord, error) {
	if err := d.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (d *DatabaseStore) GetMessageBySID(messageSid string) (*models.MessageRecord, error) {
	var record models.MessageRecord
	err := d.db.Where("message_sid = ?", messageSid).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (d *DatabaseStore) UpdateDeliveryStatus(messageSid string, status string) error {
	result := d.db.Model(&models.MessageRecord{}).
		Where("message_sid = ?", messageSid).
		Update("delivery_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) CountMessages(direction string) (int64, error) {
	var count int64
	query := d.db.Model(&models.MessageRecord{})
	if direction != "" {
		query = query.Where("direction = ?", direction)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (d *DatabaseStore) RecentMessages(limit int) ([]*models.MessageRecord, error) {
	var records []*models.MessageRecord
	query := d.db.Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

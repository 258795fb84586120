package database

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anshulj/wa-checker/models"
	"github.com/anshulj/wa-checker/utils"
)

// HistoryDB persists bulk-send outcomes to MSSQL for reporting.
type HistoryDB struct {
	db *gorm.DB
}

// NewHistoryDB connects to the history database and runs migrations.
func NewHistoryDB(server, database, username, password string) (*HistoryDB, error) {
	dsn := fmt.Sprintf("sqlserver://%s:%s@%s?database=%s", username, password, server, database)

	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MSSQL: %w", err)
	}

	historyDB := &HistoryDB{db: db}
	if err := historyDB.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	utils.Logger.Info().Msg("History database connected")
	return historyDB, nil
}

// migrate runs database migrations
func (h *HistoryDB) migrate() error {
	return h.db.AutoMigrate(&models.OutboundMessage{})
}

// RecordOutcome stores one bulk-send outcome.
func (h *HistoryDB) RecordOutcome(batchID, content string, outcome models.SendOutcome) error {
	record := &models.OutboundMessage{
		BatchID:         batchID,
		Number:          outcome.Number,
		FormattedNumber: outcome.FormattedNumber,
		Status:          outcome.Status,
		Reason:          outcome.Reason,
		Content:         content,
		Timestamp:       outcome.Timestamp,
	}
	if result := h.db.Create(record); result.Error != nil {
		return fmt.Errorf("failed to store outcome: %w", result.Error)
	}
	return nil
}

// RecentMessages retrieves the most recent outbound messages.
func (h *HistoryDB) RecentMessages(limit int) ([]models.OutboundMessage, error) {
	var messages []models.OutboundMessage
	result := h.db.Order("timestamp DESC").Limit(limit).Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", result.Error)
	}
	return messages, nil
}

// MessagesByNumber retrieves outbound messages for a specific number.
func (h *HistoryDB) MessagesByNumber(number string, limit int) ([]models.OutboundMessage, error) {
	var messages []models.OutboundMessage
	result := h.db.Where("number = ? OR formatted_number = ?", number, number).
		Order("timestamp DESC").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get messages: %w", result.Error)
	}
	return messages, nil
}

// Stats retrieves outbound message statistics.
func (h *HistoryDB) Stats() (*models.MessageStats, error) {
	var stats models.MessageStats
	model := func() *gorm.DB { return h.db.Model(&models.OutboundMessage{}) }

	if err := model().Count(&stats.TotalMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to count total messages: %w", err)
	}
	if err := model().Where("status = ?", models.StatusSent).Count(&stats.TotalSent).Error; err != nil {
		return nil, fmt.Errorf("failed to count sent messages: %w", err)
	}
	if err := model().Where("status = ?", models.StatusFailed).Count(&stats.TotalFailed).Error; err != nil {
		return nil, fmt.Errorf("failed to count failed messages: %w", err)
	}

	today := time.Now().Truncate(24 * time.Hour)
	if err := model().Where("timestamp >= ?", today).Count(&stats.MessagesToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's messages: %w", err)
	}
	weekAgo := time.Now().AddDate(0, 0, -7)
	if err := model().Where("timestamp >= ?", weekAgo).Count(&stats.MessagesThisWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to count this week's messages: %w", err)
	}
	monthAgo := time.Now().AddDate(0, -1, 0)
	if err := model().Where("timestamp >= ?", monthAgo).Count(&stats.MessagesThisMonth).Error; err != nil {
		return nil, fmt.Errorf("failed to count this month's messages: %w", err)
	}

	return &stats, nil
}

// Close closes the database connection
func (h *HistoryDB) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

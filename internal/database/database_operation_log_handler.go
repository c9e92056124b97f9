package database

import (
	"essops/internal/domain"
)

const DefaultOperationLogLimit = 100

func LogOperation(entry domain.OperationLog) error {
	entry.ID = 0
	return DB.Create(&entry).Error
}

// RecentOperationLogs returns up to limit entries, newest first.
func RecentOperationLogs(limit int) ([]domain.OperationLog, error) {
	if limit <= 0 {
		limit = DefaultOperationLogLimit
	}

	var logs []domain.OperationLog
	err := DB.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

package domain

import "time"

// OperationLog is one append-only audit entry of the admin console.
type OperationLog struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminUsername string    `gorm:"not null;size:150;index" json:"admin_username"`
	Operation     string    `gorm:"not null;size:255" json:"operation"`
	Details       string    `gorm:"type:text" json:"details,omitempty"`
	Timestamp     time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	IPAddress     string    `gorm:"size:64" json:"ip_address,omitempty"`
	// Country is the ISO code of IPAddress when a GeoIP database is configured.
	Country string `gorm:"size:2" json:"country,omitempty"`
}

func (OperationLog) TableName() string {
	return "operation_logs"
}

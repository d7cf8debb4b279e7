package models

// DefaultSendingTime is installed when no schedule record exists yet.
const DefaultSendingTime = "20:00"

// ReportSendingTime is the singleton persisted trigger time for the daily
// report, a wall-clock "HH:MM" interpreted in the business time zone.
type ReportSendingTime struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Time string `gorm:"column:time"`
}

func (ReportSendingTime) TableName() string { return "ReportSendingTime" }

package models

import (
	"time"
)

// Operation types written to the audit log
const (
	OpNeedIngested   = "need_ingested"
	OpNeedVerified   = "need_verified"
	OpNeedGeocoded   = "need_geocoded"
	OpMissionDone    = "mission_completed"
	OpMissionReroute = "mission_rerouted"
	OpAlertDispatch  = "alert_dispatch"
	OpAlertCancel    = "alert_cancel"
)

// OperationLog is one audit entry for a pipeline operation
type OperationLog struct {
	BaseModel
	OperationType string    `gorm:"type:varchar(50);not null;index" json:"operation_type"`
	TargetID      string    `gorm:"type:varchar(40);index" json:"target_id"`
	Actor         string    `gorm:"type:varchar(100)" json:"actor"` // token subject, "sms" or "system"
	Details       string    `gorm:"type:text" json:"details"`
	Success       bool      `gorm:"default:true" json:"success"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	IPAddress     string    `gorm:"type:varchar(45)" json:"ip_address"`
}

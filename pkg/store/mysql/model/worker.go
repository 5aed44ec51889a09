package model

import "time"

// Worker MySQL model for workers table
type Worker struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string          `gorm:"column:name;type:varchar(255);not null;index:idx_name" json:"name"`
	Kind             string          `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	Specialization   *string         `gorm:"column:specialization;type:varchar(255)" json:"specialization"`
	Status           string          `gorm:"column:status;type:varchar(32);not null;index:idx_status" json:"status"`
	Load             int             `gorm:"column:cpu_load;not null;default:0" json:"cpu_load"`
	CurrentTaskLabel *string         `gorm:"column:current_task_label;type:varchar(255)" json:"current_task_label"`
	Progress         int             `gorm:"column:progress;not null;default:0" json:"progress"`
	Capabilities     JSONStringArray `gorm:"column:capabilities;type:json" json:"capabilities"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
}

// TableName specifies the table name for Worker
func (Worker) TableName() string {
	return "workers"
}

package models

import "time"

// AuditLog is one append-only record of a pipeline action taken on a submission.
// Seq preserves the total processing order within a run.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"size:36;not null;index" json:"run_id"`
	Seq       int       `gorm:"not null" json:"seq"`
	Identity  string    `gorm:"size:128;not null" json:"identity"`
	Action    string    `gorm:"size:32;not null" json:"action"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

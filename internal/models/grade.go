package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradeRecord is the persisted outcome of grading one submission.
type GradeRecord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	RunID           string         `gorm:"size:36;not null;index" json:"run_id"`
	Assignment      string         `gorm:"size:128;not null;index" json:"assignment"`
	Identity        string         `gorm:"size:128;not null" json:"identity"`
	SourcePath      string         `gorm:"size:512" json:"source_path"`
	TotalScore      float64        `json:"total_score"`
	MaxScore        float64        `json:"max_score"`
	Percentage      float64        `json:"percentage"`
	LetterGrade     string         `gorm:"size:2" json:"letter_grade"`
	Feedback        string         `gorm:"type:text" json:"feedback"`
	Strengths       string         `gorm:"type:text" json:"strengths"`
	Improvements    string         `gorm:"type:text" json:"improvements"`
	RubricScores    datatypes.JSON `json:"rubric_scores"`
	Confidence      float64        `json:"confidence"`
	IntegrityFlag   bool           `json:"integrity_flag"`
	IntegrityReason string         `gorm:"type:text" json:"integrity_reason"`
	Flagged         bool           `gorm:"index" json:"flagged"`
	FlagReason      string         `gorm:"type:text" json:"flag_reason"`
	ErrorKind       string         `gorm:"size:32" json:"error_kind"`
	ErrorDetail     string         `gorm:"type:text" json:"error_detail"`
	DryRun          bool           `json:"dry_run"`
	CreatedAt       time.Time      `json:"created_at"`
}

// IsFailure reports whether the record is a failure placeholder rather than a grade.
func (g GradeRecord) IsFailure() bool {
	return g.ErrorKind != ""
}

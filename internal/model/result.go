package model

import (
	"time"
)

type ResultStatus string

const (
	// ResultCompleted 已交卷但尚未全部判分
	ResultCompleted ResultStatus = "completed"
	// ResultGraded 该学生的全部作答均已判分
	ResultGraded ResultStatus = "graded"
)

// Result 学生在一场考试中的汇总成绩，(exam, student) 唯一。
// TotalMarks 是从作答得分派生的缓存，每次判分变化后重算。
// 发布与否由 IsPublished 单独记录，不混入 Status。
type Result struct {
	BaseModel
	ExamID        uint         `gorm:"uniqueIndex:idx_result_es;not null" json:"examId"`
	StudentID     uint         `gorm:"uniqueIndex:idx_result_es;not null" json:"studentId"`
	Student       *User        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	TotalMarks    float64      `gorm:"default:0" json:"totalMarks"`
	Rank          *int         `json:"rank"`
	Percentage    float64      `gorm:"default:0" json:"percentage"`
	Status        ResultStatus `gorm:"size:20;default:'completed'" json:"status"`
	IsPublished   bool         `gorm:"default:false" json:"isPublished"`
	PublishedAt   *time.Time   `json:"publishedAt"`
	EvaluatedByID *uint        `json:"evaluatedById"`
	EvaluatedAt   *time.Time   `json:"evaluatedAt"`
}

func (Result) TableName() string {
	return "results"
}

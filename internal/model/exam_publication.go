package model

import (
	"time"
)

type PublicationStatus string

const (
	PublicationPublished    PublicationStatus = "published"
	PublicationNotPublished PublicationStatus = "not_published"
)

// ExamPublication 考试成绩的发布状态，每场考试至多一行。
// 状态机：not_published → published（要求全部作答已判分）→ not_published（撤销发布）。
// 撤销发布清空发布元数据，但判分历史和成绩数值保留。
type ExamPublication struct {
	BaseModel
	ExamID            uint              `gorm:"uniqueIndex;not null" json:"examId"`
	Status            PublicationStatus `gorm:"size:20;default:'not_published'" json:"status"`
	TotalStudents     int               `gorm:"default:0" json:"totalStudents"`
	GradedStudents    int               `gorm:"default:0" json:"gradedStudents"`
	PassingPercentage float64           `gorm:"default:0" json:"passingPercentage"`
	PublishedByID     *uint             `json:"publishedById"`
	PublishedAt       *time.Time        `json:"publishedAt"`
	Notes             string            `gorm:"type:text" json:"notes"`
	AuditRef          string            `gorm:"size:36" json:"auditRef"` // 每次发布生成的审计标识
}

func (ExamPublication) TableName() string {
	return "exam_publications"
}

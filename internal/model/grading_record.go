package model

import (
	"time"
)

type GradingStatus string

const (
	GradingGraded   GradingStatus = "graded"
	GradingRegraded GradingStatus = "regraded"
)

// GradingRecord 教师对单条作答的一次判分。
// 每条作答同一时刻至多存在一条 status=graded 的记录；重判时旧记录翻转为
// regraded 并保留，新记录通过 RegradeFromID 链接，形成可审计的历史链。
type GradingRecord struct {
	BaseModel
	ResponseID      uint          `gorm:"index;not null" json:"responseId"`
	QuestionID      uint          `gorm:"index;not null" json:"questionId"`
	StudentID       uint          `gorm:"index;not null" json:"studentId"`
	GradedByID      uint          `gorm:"not null" json:"gradedById"`
	GradedBy        *User         `gorm:"foreignKey:GradedByID" json:"gradedBy,omitempty"`
	MarksObtained   float64       `gorm:"not null" json:"marksObtained"`
	Feedback        string        `gorm:"type:text" json:"feedback"`
	Comment         string        `gorm:"type:text" json:"comment"`
	IsPartialCredit bool          `gorm:"default:false" json:"isPartialCredit"`
	Status          GradingStatus `gorm:"size:20;default:'graded';index" json:"status"`
	RegradeFromID   *uint         `json:"regradeFromId"`
	RegradeReason   string        `gorm:"type:text" json:"regradeReason"`
	GradedAt        time.Time     `json:"gradedAt"`
	RegradedAt      *time.Time    `json:"regradedAt"`
}

func (GradingRecord) TableName() string {
	return "grading_records"
}

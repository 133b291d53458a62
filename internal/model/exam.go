package model

import (
	"time"
)

// Exam 一场考试；判分与发布都挂在考试的生命周期上
type Exam struct {
	BaseModel
	Title         string    `gorm:"size:200;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	CreatorID     uint      `gorm:"index;not null" json:"creatorId"`
	Creator       *User     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	AccessCode    string    `gorm:"size:16;uniqueIndex" json:"accessCode"`
	ScheduleStart time.Time `json:"scheduleStart"`
	ScheduleEnd   time.Time `json:"scheduleEnd"`
}

func (Exam) TableName() string {
	return "exams"
}

// HasEnded 考试结束后才允许判分
func (e *Exam) HasEnded(now time.Time) bool {
	return now.After(e.ScheduleEnd)
}

// InSubmissionWindow 学生只能在考试窗口内提交/修改答案
func (e *Exam) InSubmissionWindow(now time.Time) bool {
	return !now.Before(e.ScheduleStart) && !now.After(e.ScheduleEnd)
}

type Question struct {
	BaseModel
	ExamID uint    `gorm:"index;not null" json:"examId"`
	Text   string  `gorm:"type:text;not null" json:"text"`
	Marks  float64 `gorm:"not null" json:"marks"` // 本题满分
	Order  int     `gorm:"column:order_num;default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}

package model

import (
	"time"
)

// Response 学生对某一考试某一题目的作答，(exam, question, student) 唯一
type Response struct {
	BaseModel
	ExamID        uint      `gorm:"uniqueIndex:idx_resp_eqs;not null" json:"examId"`
	QuestionID    uint      `gorm:"uniqueIndex:idx_resp_eqs;not null" json:"questionId"`
	StudentID     uint      `gorm:"uniqueIndex:idx_resp_eqs;not null" json:"studentId"`
	Question      *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Student       *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	AnswerText    string    `gorm:"type:text" json:"answerText"`
	IsCorrect     *bool     `json:"isCorrect"` // 判分前为 null
	MarksObtained float64   `gorm:"default:0" json:"marksObtained"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

func (Response) TableName() string {
	return "responses"
}

package repository

import (
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) WithTx(tx *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: tx}
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *QuestionRepository) ListByExam(examID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("exam_id = ?", examID).Order("order_num asc, created_at asc").Find(&qs).Error
	return qs, err
}

// SumMarksByExam 考试总分（各题满分之和）
func (r *QuestionRepository) SumMarksByExam(examID uint) (float64, error) {
	var total float64
	err := r.DB.Model(&model.Question{}).
		Where("exam_id = ?", examID).
		Select("COALESCE(SUM(marks), 0)").
		Scan(&total).Error
	return total, err
}

package repository

import (
	"errors"
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type PublicationRepository struct {
	DB *gorm.DB
}

func NewPublicationRepository(db *gorm.DB) *PublicationRepository {
	return &PublicationRepository{DB: db}
}

func (r *PublicationRepository) WithTx(tx *gorm.DB) *PublicationRepository {
	return &PublicationRepository{DB: tx}
}

// FindByExam 不存在时返回 (nil, nil)；每场考试至多一行
func (r *PublicationRepository) FindByExam(examID uint) (*model.ExamPublication, error) {
	var p model.ExamPublication
	err := r.DB.Where("exam_id = ?", examID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PublicationRepository) Save(p *model.ExamPublication) error {
	return r.DB.Save(p).Error
}

func (r *PublicationRepository) Create(p *model.ExamPublication) error {
	return r.DB.Create(p).Error
}

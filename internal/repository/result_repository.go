package repository

import (
	"errors"
	"exam_portal_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) WithTx(tx *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: tx}
}

func (r *ResultRepository) Create(res *model.Result) error {
	return r.DB.Create(res).Error
}

func (r *ResultRepository) Update(res *model.Result) error {
	return r.DB.Save(res).Error
}

// FindByExamAndStudent 不存在时返回 (nil, nil)
func (r *ResultRepository) FindByExamAndStudent(examID, studentID uint) (*model.Result, error) {
	var res model.Result
	err := r.DB.Where("exam_id = ? AND student_id = ?", examID, studentID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ResultRepository) ListByExam(examID uint) ([]model.Result, error) {
	var rs []model.Result
	err := r.DB.Preload("Student").
		Where("exam_id = ?", examID).
		Order("total_marks desc, student_id asc").
		Find(&rs).Error
	return rs, err
}

// ClearPublishFlags 撤销发布：只动可见性，成绩与排名保留
func (r *ResultRepository) ClearPublishFlags(examID uint) error {
	return r.DB.Model(&model.Result{}).
		Where("exam_id = ?", examID).
		Updates(map[string]interface{}{
			"is_published": false,
			"published_at": nil,
		}).Error
}

// MarkPublished 发布：整场考试的成绩行统一翻转
func (r *ResultRepository) MarkPublished(examID, publisherID uint, at time.Time) error {
	return r.DB.Model(&model.Result{}).
		Where("exam_id = ?", examID).
		Updates(map[string]interface{}{
			"is_published":    true,
			"published_at":    at,
			"status":          model.ResultGraded,
			"evaluated_by_id": publisherID,
			"evaluated_at":    at,
		}).Error
}

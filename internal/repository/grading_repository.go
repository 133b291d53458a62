package repository

import (
	"errors"
	"exam_portal_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type GradingRepository struct {
	DB *gorm.DB
}

func NewGradingRepository(db *gorm.DB) *GradingRepository {
	return &GradingRepository{DB: db}
}

func (r *GradingRepository) WithTx(tx *gorm.DB) *GradingRepository {
	return &GradingRepository{DB: tx}
}

func (r *GradingRepository) Create(rec *model.GradingRecord) error {
	return r.DB.Create(rec).Error
}

// FindActiveByResponse 该作答当前生效的判分记录；不存在时返回 (nil, nil)
func (r *GradingRepository) FindActiveByResponse(responseID uint) (*model.GradingRecord, error) {
	var rec model.GradingRecord
	err := r.DB.Where("response_id = ? AND status = ?", responseID, model.GradingGraded).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkRegraded 将生效记录翻转为 regraded，保留行以供审计
func (r *GradingRepository) MarkRegraded(rec *model.GradingRecord, at time.Time) error {
	rec.Status = model.GradingRegraded
	rec.RegradedAt = &at
	return r.DB.Save(rec).Error
}

// ListHistoryByResponse 判分历史，最新在前
func (r *GradingRepository) ListHistoryByResponse(responseID uint) ([]model.GradingRecord, error) {
	var recs []model.GradingRecord
	err := r.DB.Preload("GradedBy").
		Where("response_id = ?", responseID).
		Order("created_at desc, id desc").
		Find(&recs).Error
	return recs, err
}

// CountGradedByExam 考试内有生效判分记录的作答数
func (r *GradingRepository) CountGradedByExam(examID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.GradingRecord{}).
		Joins("JOIN responses ON responses.id = grading_records.response_id").
		Where("responses.exam_id = ? AND grading_records.status = ?", examID, model.GradingGraded).
		Count(&n).Error
	return n, err
}

// CountGradedByExamAndStudent 某学生有生效判分记录的作答数
func (r *GradingRepository) CountGradedByExamAndStudent(examID, studentID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.GradingRecord{}).
		Joins("JOIN responses ON responses.id = grading_records.response_id").
		Where("responses.exam_id = ? AND responses.student_id = ? AND grading_records.status = ?",
			examID, studentID, model.GradingGraded).
		Count(&n).Error
	return n, err
}

// CountByResponse 某条作答的全部判分记录数（含已被重判的）
func (r *GradingRepository) CountByResponse(responseID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.GradingRecord{}).
		Where("response_id = ?", responseID).
		Count(&n).Error
	return n, err
}

// DistinctGradedStudentIDs 全部作答都已判分的学生数量统计用：
// 返回考试内至少有一条生效判分记录的学生
func (r *GradingRepository) DistinctGradedStudentIDs(examID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.GradingRecord{}).
		Joins("JOIN responses ON responses.id = grading_records.response_id").
		Where("responses.exam_id = ? AND grading_records.status = ?", examID, model.GradingGraded).
		Distinct("responses.student_id").
		Pluck("responses.student_id", &ids).Error
	return ids, err
}

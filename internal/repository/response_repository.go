package repository

import (
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) WithTx(tx *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: tx}
}

func (r *ResponseRepository) Create(resp *model.Response) error {
	return r.DB.Create(resp).Error
}

func (r *ResponseRepository) Update(resp *model.Response) error {
	return r.DB.Save(resp).Error
}

func (r *ResponseRepository) FindByID(id uint) (*model.Response, error) {
	var resp model.Response
	err := r.DB.Preload("Question").First(&resp, id).Error
	return &resp, err
}

func (r *ResponseRepository) FindByExamQuestionStudent(examID, questionID, studentID uint) (*model.Response, error) {
	var resp model.Response
	err := r.DB.Where("exam_id = ? AND question_id = ? AND student_id = ?", examID, questionID, studentID).
		First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByExamAndQuestion graded 过滤：nil 全部，true 只看已判分，false 只看未判分
func (r *ResponseRepository) ListByExamAndQuestion(examID, questionID uint, graded *bool) ([]model.Response, error) {
	var rs []model.Response
	query := r.DB.Preload("Student").Where("responses.exam_id = ?", examID)
	if questionID > 0 {
		query = query.Where("responses.question_id = ?", questionID)
	}
	if graded != nil {
		sub := r.DB.Model(&model.GradingRecord{}).
			Select("response_id").
			Where("status = ?", model.GradingGraded)
		if *graded {
			query = query.Where("responses.id IN (?)", sub)
		} else {
			query = query.Where("responses.id NOT IN (?)", sub)
		}
	}
	err := query.Order("responses.student_id asc, responses.question_id asc").Find(&rs).Error
	return rs, err
}

func (r *ResponseRepository) ListByExamAndStudent(examID, studentID uint) ([]model.Response, error) {
	var rs []model.Response
	err := r.DB.Where("exam_id = ? AND student_id = ?", examID, studentID).Find(&rs).Error
	return rs, err
}

func (r *ResponseRepository) CountByExam(examID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Response{}).Where("exam_id = ?", examID).Count(&n).Error
	return n, err
}

func (r *ResponseRepository) CountByExamAndStudent(examID, studentID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Response{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Count(&n).Error
	return n, err
}

// DistinctStudentIDs 交过卷的学生（至少一条作答）
func (r *ResponseRepository) DistinctStudentIDs(examID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Response{}).
		Where("exam_id = ?", examID).
		Distinct("student_id").
		Order("student_id asc").
		Pluck("student_id", &ids).Error
	return ids, err
}

// SumMarksByStudent 学生当前总得分（judged 之前 marks_obtained 为 0）
func (r *ResponseRepository) SumMarksByStudent(examID, studentID uint) (float64, error) {
	var total float64
	err := r.DB.Model(&model.Response{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Select("COALESCE(SUM(marks_obtained), 0)").
		Scan(&total).Error
	return total, err
}

// StudentTotal 一名学生的总分行，用于排名计算
type StudentTotal struct {
	StudentID uint    `gorm:"column:student_id"`
	Total     float64 `gorm:"column:total"`
}

// TotalsByStudent 按学生汇总考试得分
func (r *ResponseRepository) TotalsByStudent(examID uint) ([]StudentTotal, error) {
	var totals []StudentTotal
	err := r.DB.Model(&model.Response{}).
		Select("student_id, COALESCE(SUM(marks_obtained), 0) as total").
		Where("exam_id = ?", examID).
		Group("student_id").
		Scan(&totals).Error
	return totals, err
}

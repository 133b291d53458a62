package repository

import (
	"exam_portal_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx}
}

func (r *ExamRepository) FindByID(id uint) (*model.Exam, error) {
	var e model.Exam
	err := r.DB.First(&e, id).Error
	return &e, err
}

// FindByIDLocked 在事务内锁定考试行，判分与发布/撤销发布在这一行上串行化。
// SQLite 不支持 SELECT ... FOR UPDATE，测试库下退化为普通读。
func (r *ExamRepository) FindByIDLocked(id uint) (*model.Exam, error) {
	var e model.Exam
	query := r.DB
	if r.DB.Dialector.Name() == "mysql" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.First(&e, id).Error
	return &e, err
}

func (r *ExamRepository) FindByAccessCode(code string) (*model.Exam, error) {
	var e model.Exam
	err := r.DB.Where("access_code = ?", code).First(&e).Error
	return &e, err
}

package service

import (
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// ResultService 成绩汇总：从作答得分派生总分、百分比、排名与状态。
// 所有计算按需整体重算，不做增量维护，避免缓存不一致。
type ResultService struct {
	ExamRepo     *repository.ExamRepository
	QuestionRepo *repository.QuestionRepository
	ResponseRepo *repository.ResponseRepository
	GradingRepo  *repository.GradingRepository
	ResultRepo   *repository.ResultRepository
	DB           *gorm.DB
}

func NewResultService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	gradingRepo *repository.GradingRepository,
	resultRepo *repository.ResultRepository,
	db *gorm.DB,
) *ResultService {
	return &ResultService{
		ExamRepo:     examRepo,
		QuestionRepo: questionRepo,
		ResponseRepo: responseRepo,
		GradingRepo:  gradingRepo,
		ResultRepo:   resultRepo,
		DB:           db,
	}
}

// RecalculateStudentResult 重算一名学生的汇总成绩。幂等：判分状态不变时
// 连续调用产生相同的 TotalMarks/Percentage/Status。
func (s *ResultService) RecalculateStudentResult(examID, studentID uint) (*model.Result, error) {
	var result *model.Result
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.recalculateForStudent(tx, examID, studentID)
		return txErr
	})
	return result, err
}

// recalculateForStudent 事务内重算；判分与发布流程在各自的事务里调用
func (s *ResultService) recalculateForStudent(tx *gorm.DB, examID, studentID uint) (*model.Result, error) {
	respRepo := s.ResponseRepo.WithTx(tx)
	gradingRepo := s.GradingRepo.WithTx(tx)
	resultRepo := s.ResultRepo.WithTx(tx)

	totalObtained, err := respRepo.SumMarksByStudent(examID, studentID)
	if err != nil {
		return nil, err
	}

	totalPossible, err := s.QuestionRepo.WithTx(tx).SumMarksByExam(examID)
	if err != nil {
		return nil, err
	}

	// 总分为 0 时避免除零
	percentage := 0.0
	if totalPossible > 0 {
		percentage = totalObtained / totalPossible * 100
	}

	responseCount, err := respRepo.CountByExamAndStudent(examID, studentID)
	if err != nil {
		return nil, err
	}
	gradedCount, err := gradingRepo.CountGradedByExamAndStudent(examID, studentID)
	if err != nil {
		return nil, err
	}

	status := model.ResultCompleted
	if responseCount > 0 && responseCount == gradedCount {
		status = model.ResultGraded
	}

	rank, err := s.calculateRank(tx, examID, studentID)
	if err != nil {
		return nil, err
	}

	result, err := resultRepo.FindByExamAndStudent(examID, studentID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &model.Result{
			ExamID:    examID,
			StudentID: studentID,
		}
	}

	result.TotalMarks = totalObtained
	result.Percentage = percentage
	result.Status = status
	result.Rank = &rank

	if result.ID == 0 {
		err = resultRepo.Create(result)
	} else {
		err = resultRepo.Update(result)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CalculateRank 名次 = 1 + 总分严格高于该生的人数。
// 并列者同名次，并列之后出现跳号（1,1,3），与既有口径保持一致。
func (s *ResultService) CalculateRank(examID, studentID uint) (int, error) {
	return s.calculateRank(s.DB, examID, studentID)
}

func (s *ResultService) calculateRank(tx *gorm.DB, examID, studentID uint) (int, error) {
	totals, err := s.ResponseRepo.WithTx(tx).TotalsByStudent(examID)
	if err != nil {
		return 0, err
	}

	mine := 0.0
	for _, t := range totals {
		if t.StudentID == studentID {
			mine = t.Total
			break
		}
	}

	higher := 0
	for _, t := range totals {
		if t.StudentID != studentID && t.Total > mine {
			higher++
		}
	}
	return higher + 1, nil
}

// StudentResultView 学生端成绩视图，发布后才可见
type StudentResultView struct {
	ExamID      uint               `json:"examId"`
	TotalMarks  float64            `json:"totalMarks"`
	Percentage  float64            `json:"percentage"`
	Rank        *int               `json:"rank"`
	Status      model.ResultStatus `json:"status"`
	Passed      bool               `json:"passed"`
	PublishedAt string             `json:"publishedAt"`
}

// GetStudentResult 学生查询自己的成绩；未发布前一律不可见
func (s *ResultService) GetStudentResult(examID, studentID uint, passingPercentage float64) (*StudentResultView, error) {
	result, err := s.ResultRepo.FindByExamAndStudent(examID, studentID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, util.ErrResultNotFound
	}
	if !result.IsPublished {
		return nil, util.ErrExamNotPublished
	}

	view := &StudentResultView{
		ExamID:     result.ExamID,
		TotalMarks: result.TotalMarks,
		Percentage: result.Percentage,
		Rank:       result.Rank,
		Status:     result.Status,
		Passed:     result.Percentage >= passingPercentage,
	}
	if result.PublishedAt != nil {
		view.PublishedAt = result.PublishedAt.Format("2006-01-02 15:04:05")
	}
	return view, nil
}

// TeacherResultRow 教师端的考试成绩列表行
type TeacherResultRow struct {
	StudentID   uint               `json:"studentId"`
	StudentName string             `json:"studentName"`
	TotalMarks  float64            `json:"totalMarks"`
	Percentage  float64            `json:"percentage"`
	Rank        *int               `json:"rank"`
	Status      model.ResultStatus `json:"status"`
	IsPublished bool               `json:"isPublished"`
}

// ListExamResults 教师查看本场考试全部成绩，按总分降序
func (s *ResultService) ListExamResults(teacherID, examID uint) ([]TeacherResultRow, error) {
	exam, err := s.ExamRepo.FindByID(examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}
	if exam.CreatorID != teacherID {
		return nil, util.ErrNotExamOwner
	}

	results, err := s.ResultRepo.ListByExam(examID)
	if err != nil {
		return nil, err
	}

	rows := make([]TeacherResultRow, len(results))
	for i, r := range results {
		rows[i] = TeacherResultRow{
			StudentID:   r.StudentID,
			TotalMarks:  r.TotalMarks,
			Percentage:  r.Percentage,
			Rank:        r.Rank,
			Status:      r.Status,
			IsPublished: r.IsPublished,
		}
		if r.Student != nil {
			rows[i].StudentName = r.Student.Name
		}
	}
	return rows, nil
}

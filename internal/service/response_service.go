package service

import (
	"errors"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// ResponseService 学生作答：窗口内提交与重交，结束后锁定
type ResponseService struct {
	ExamRepo     *repository.ExamRepository
	QuestionRepo *repository.QuestionRepository
	ResponseRepo *repository.ResponseRepository
	ResultRepo   *repository.ResultRepository
	DB           *gorm.DB
}

func NewResponseService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	resultRepo *repository.ResultRepository,
	db *gorm.DB,
) *ResponseService {
	return &ResponseService{
		ExamRepo:     examRepo,
		QuestionRepo: questionRepo,
		ResponseRepo: responseRepo,
		ResultRepo:   resultRepo,
		DB:           db,
	}
}

// SubmitRequest 提交作答入参
type SubmitRequest struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	AnswerText string `json:"answerText"`
}

// SubmitResponse 窗口内提交；同一 (exam, question, student) 已有作答则覆盖。
// 首次提交时顺带建出状态为 completed 的成绩行。
func (s *ResponseService) SubmitResponse(studentID, examID uint, req SubmitRequest) (*model.Response, error) {
	exam, err := s.ExamRepo.FindByID(examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !exam.InSubmissionWindow(now) {
		return nil, util.ErrSubmissionClosed
	}

	question, err := s.QuestionRepo.FindByID(req.QuestionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	if question.ExamID != examID {
		return nil, util.ErrQuestionNotFound
	}

	var response *model.Response
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		respRepo := s.ResponseRepo.WithTx(tx)

		existing, err := respRepo.FindByExamQuestionStudent(examID, req.QuestionID, studentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			existing.AnswerText = req.AnswerText
			existing.SubmittedAt = now
			if err := respRepo.Update(existing); err != nil {
				return err
			}
			response = existing
			return nil
		}

		response = &model.Response{
			ExamID:      examID,
			QuestionID:  req.QuestionID,
			StudentID:   studentID,
			AnswerText:  req.AnswerText,
			SubmittedAt: now,
		}
		if err := respRepo.Create(response); err != nil {
			return err
		}

		// 首次作答建出成绩行；总分等判分后重算
		resultRepo := s.ResultRepo.WithTx(tx)
		result, err := resultRepo.FindByExamAndStudent(examID, studentID)
		if err != nil {
			return err
		}
		if result == nil {
			return resultRepo.Create(&model.Result{
				ExamID:    examID,
				StudentID: studentID,
				Status:    model.ResultCompleted,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListExamQuestions 学生在考试窗口内拉题目；题目不含参考答案字段，无泄露面
func (s *ResponseService) ListExamQuestions(examID uint) ([]model.Question, error) {
	exam, err := s.ExamRepo.FindByID(examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}
	if !exam.InSubmissionWindow(time.Now()) {
		return nil, util.ErrSubmissionClosed
	}

	return s.QuestionRepo.ListByExam(examID)
}

package service

import (
	"errors"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// GradingService 判分工作流的编排入口：校验归属与时间窗口，把单次/批量/重判
// 的多行写入收进一个事务，失败整体回滚，不留下半判分状态。
type GradingService struct {
	ExamRepo        *repository.ExamRepository
	QuestionRepo    *repository.QuestionRepository
	ResponseRepo    *repository.ResponseRepository
	GradingRepo     *repository.GradingRepository
	PublicationRepo *repository.PublicationRepository
	ResultService   *ResultService
	DB              *gorm.DB
	Redis           *redis.Client
}

func NewGradingService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	gradingRepo *repository.GradingRepository,
	publicationRepo *repository.PublicationRepository,
	resultService *ResultService,
	db *gorm.DB,
	rdb *redis.Client,
) *GradingService {
	return &GradingService{
		ExamRepo:        examRepo,
		QuestionRepo:    questionRepo,
		ResponseRepo:    responseRepo,
		GradingRepo:     gradingRepo,
		PublicationRepo: publicationRepo,
		ResultService:   resultService,
		DB:              db,
		Redis:           rdb,
	}
}

// GradeRequest 单条判分入参
type GradeRequest struct {
	Marks           float64 `json:"marks" binding:"min=0"`
	Feedback        string  `json:"feedback"`
	Comment         string  `json:"comment"`
	IsPartialCredit bool    `json:"isPartialCredit"`
}

// BatchGradeItem 批量判分里的一项
type BatchGradeItem struct {
	ResponseID uint    `json:"responseId" binding:"required"`
	Marks      float64 `json:"marks" binding:"min=0"`
	Feedback   string  `json:"feedback"`
	Comment    string  `json:"comment"`
}

// RegradeRequest 重判入参
type RegradeRequest struct {
	Marks    float64 `json:"marks" binding:"min=0"`
	Feedback string  `json:"feedback"`
	Reason   string  `json:"reason"`
}

// GradeSingle 对单条作答判分。已有生效记录时旧记录翻转为 regraded。
func (s *GradingService) GradeSingle(teacherID, responseID uint, req GradeRequest) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		resp, err := s.ResponseRepo.WithTx(tx).FindByID(responseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrResponseNotFound
		}
		if err != nil {
			return err
		}

		exam, err := s.validateGradingWindow(tx, resp.ExamID, teacherID)
		if err != nil {
			return err
		}

		question, err := s.QuestionRepo.WithTx(tx).FindByID(resp.QuestionID)
		if err != nil {
			return err
		}
		if err := validateMarks(req.Marks, question.Marks); err != nil {
			return err
		}

		if _, err := s.applyGrade(tx, resp, teacherID, req.Marks, req.Feedback, req.Comment, req.IsPartialCredit, nil, ""); err != nil {
			return err
		}

		_, err = s.ResultService.recalculateForStudent(tx, exam.ID, resp.StudentID)
		return err
	})
	if err != nil {
		return err
	}

	monitoring.GradingCounter.WithLabelValues("single").Inc()
	invalidateExamCaches(s.Redis, responseExamIDHint(s, responseID))
	return nil
}

// GradeBatch 同一事务内逐项判分；任一项校验失败整批回滚。
// 每名受影响的学生只在批末重算一次成绩，避免批中反复算排名。
func (s *GradingService) GradeBatch(teacherID, examID, questionID uint, items []BatchGradeItem) error {
	if len(items) == 0 {
		return util.ErrEmptyBatch
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		exam, err := s.validateGradingWindow(tx, examID, teacherID)
		if err != nil {
			return err
		}

		respRepo := s.ResponseRepo.WithTx(tx)
		questionRepo := s.QuestionRepo.WithTx(tx)
		questionCache := make(map[uint]*model.Question)
		affected := make(map[uint]struct{})

		for _, item := range items {
			resp, err := respRepo.FindByID(item.ResponseID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrResponseNotFound
			}
			if err != nil {
				return err
			}
			if resp.ExamID != examID {
				return util.ErrResponseNotFound
			}
			if questionID > 0 && resp.QuestionID != questionID {
				return util.ErrResponseNotFound
			}

			question, ok := questionCache[resp.QuestionID]
			if !ok {
				question, err = questionRepo.FindByID(resp.QuestionID)
				if err != nil {
					return err
				}
				questionCache[resp.QuestionID] = question
			}
			if err := validateMarks(item.Marks, question.Marks); err != nil {
				return err
			}

			if _, err := s.applyGrade(tx, resp, teacherID, item.Marks, item.Feedback, item.Comment, false, nil, ""); err != nil {
				return err
			}
			affected[resp.StudentID] = struct{}{}
		}

		for studentID := range affected {
			if _, err := s.ResultService.recalculateForStudent(tx, exam.ID, studentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.GradingCounter.WithLabelValues("batch").Inc()
	invalidateExamCaches(s.Redis, examID)
	return nil
}

// Regrade 修正已判分的作答：旧记录保留并通过 RegradeFrom 链接，形成审计链。
// 从未判分的作答不能重判。
func (s *GradingService) Regrade(teacherID, responseID uint, req RegradeRequest) error {
	var examID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		resp, err := s.ResponseRepo.WithTx(tx).FindByID(responseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrResponseNotFound
		}
		if err != nil {
			return err
		}

		exam, err := s.validateGradingWindow(tx, resp.ExamID, teacherID)
		if err != nil {
			return err
		}
		examID = exam.ID

		active, err := s.GradingRepo.WithTx(tx).FindActiveByResponse(responseID)
		if err != nil {
			return err
		}
		if active == nil {
			return util.ErrNotYetGraded
		}

		question, err := s.QuestionRepo.WithTx(tx).FindByID(resp.QuestionID)
		if err != nil {
			return err
		}
		if err := validateMarks(req.Marks, question.Marks); err != nil {
			return err
		}

		regradeFromID := active.ID
		if _, err := s.applyGrade(tx, resp, teacherID, req.Marks, req.Feedback, "", active.IsPartialCredit, &regradeFromID, req.Reason); err != nil {
			return err
		}

		_, err = s.ResultService.recalculateForStudent(tx, exam.ID, resp.StudentID)
		return err
	})
	if err != nil {
		return err
	}

	monitoring.GradingCounter.WithLabelValues("regrade").Inc()
	invalidateExamCaches(s.Redis, examID)
	return nil
}

// GetGradingHistory 某条作答的判分历史，最新在前
func (s *GradingService) GetGradingHistory(teacherID, responseID uint) ([]model.GradingRecord, error) {
	resp, err := s.ResponseRepo.FindByID(responseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrResponseNotFound
	}
	if err != nil {
		return nil, err
	}

	exam, err := s.ExamRepo.FindByID(resp.ExamID)
	if err != nil {
		return nil, err
	}
	if exam.CreatorID != teacherID {
		return nil, util.ErrNotExamOwner
	}

	return s.GradingRepo.ListHistoryByResponse(responseID)
}

// ListResponsesForGrading 教师按题目查看作答，graded 过滤已/未判分
func (s *GradingService) ListResponsesForGrading(teacherID, examID, questionID uint, graded *bool) ([]model.Response, error) {
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

	return s.ResponseRepo.ListByExamAndQuestion(examID, questionID, graded)
}

// validateGradingWindow 判分前置校验：考试存在、归属于调用教师、
// 已过结束时间、且当前未处于发布状态。
func (s *GradingService) validateGradingWindow(tx *gorm.DB, examID, teacherID uint) (*model.Exam, error) {
	exam, err := s.ExamRepo.WithTx(tx).FindByIDLocked(examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}

	if exam.CreatorID != teacherID {
		return nil, util.ErrNotExamOwner
	}
	if !exam.HasEnded(time.Now()) {
		return nil, util.ErrExamNotEnded
	}

	pub, err := s.PublicationRepo.WithTx(tx).FindByExam(examID)
	if err != nil {
		return nil, err
	}
	if pub != nil && pub.Status == model.PublicationPublished {
		return nil, util.ErrExamPublished
	}
	return exam, nil
}

// applyGrade 单条作答的判分写入：旧生效记录翻转为 regraded、作答得分同步、
// 新记录落库。写入顺序固定，成绩重算读到的一定是判分后的状态。
func (s *GradingService) applyGrade(
	tx *gorm.DB,
	resp *model.Response,
	teacherID uint,
	marks float64,
	feedback, comment string,
	isPartialCredit bool,
	regradeFromID *uint,
	regradeReason string,
) (*model.GradingRecord, error) {
	gradingRepo := s.GradingRepo.WithTx(tx)
	now := time.Now()

	active, err := gradingRepo.FindActiveByResponse(resp.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if err := gradingRepo.MarkRegraded(active, now); err != nil {
			return nil, err
		}
	}

	isCorrect := marks > 0
	resp.MarksObtained = marks
	resp.IsCorrect = &isCorrect
	if err := s.ResponseRepo.WithTx(tx).Update(resp); err != nil {
		return nil, err
	}

	rec := &model.GradingRecord{
		ResponseID:      resp.ID,
		QuestionID:      resp.QuestionID,
		StudentID:       resp.StudentID,
		GradedByID:      teacherID,
		MarksObtained:   marks,
		Feedback:        feedback,
		Comment:         comment,
		IsPartialCredit: isPartialCredit,
		Status:          model.GradingGraded,
		RegradeFromID:   regradeFromID,
		RegradeReason:   regradeReason,
		GradedAt:        now,
	}
	if err := gradingRepo.Create(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func validateMarks(marks, max float64) error {
	if marks < 0 {
		return util.ErrNegativeMarks
	}
	if marks > max {
		return util.ErrMarksExceedMax
	}
	return nil
}

// responseExamIDHint 判分成功后查作答所属考试用于缓存失效；
// 失败只影响缓存时效，不影响已提交的事务。
func responseExamIDHint(s *GradingService, responseID uint) uint {
	resp, err := s.ResponseRepo.FindByID(responseID)
	if err != nil {
		return 0
	}
	return resp.ExamID
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PublicationService 成绩发布闸门：只有全部作答判分完成才允许发布，
// 发布把整场考试的成绩行和发布行放在一个事务里翻转，失败整体回滚。
// 撤销发布只清可见性和发布元数据，判分历史与成绩数值保留。
type PublicationService struct {
	ExamRepo        *repository.ExamRepository
	ResponseRepo    *repository.ResponseRepository
	GradingRepo     *repository.GradingRepository
	ResultRepo      *repository.ResultRepository
	PublicationRepo *repository.PublicationRepository
	ResultService   *ResultService
	Config          *config.Config
	DB              *gorm.DB
	Redis           *redis.Client
}

func NewPublicationService(
	examRepo *repository.ExamRepository,
	responseRepo *repository.ResponseRepository,
	gradingRepo *repository.GradingRepository,
	resultRepo *repository.ResultRepository,
	publicationRepo *repository.PublicationRepository,
	resultService *ResultService,
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
) *PublicationService {
	return &PublicationService{
		ExamRepo:        examRepo,
		ResponseRepo:    responseRepo,
		GradingRepo:     gradingRepo,
		ResultRepo:      resultRepo,
		PublicationRepo: publicationRepo,
		ResultService:   resultService,
		Config:          cfg,
		DB:              db,
		Redis:           rdb,
	}
}

// AreAllResponsesGraded 零作答的考试不算"已全部判分"，防止发布没人参加的考试。
// 只读辅助查询，出错记日志并返回 false。
func (s *PublicationService) AreAllResponsesGraded(examID uint) bool {
	total, err := s.ResponseRepo.CountByExam(examID)
	if err != nil {
		logger.Log.Error("count responses failed", zap.Uint("examId", examID), zap.Error(err))
		return false
	}
	if total == 0 {
		return false
	}
	graded, err := s.GradingRepo.CountGradedByExam(examID)
	if err != nil {
		logger.Log.Error("count graded responses failed", zap.Uint("examId", examID), zap.Error(err))
		return false
	}
	return total == graded
}

// PublicationResult 发布操作的返回视图
type PublicationResult struct {
	ExamID            uint                    `json:"examId"`
	Status            model.PublicationStatus `json:"status"`
	TotalStudents     int                     `json:"totalStudents"`
	GradedStudents    int                     `json:"gradedStudents"`
	PassingPercentage float64                 `json:"passingPercentage"`
	PublishedAt       *time.Time              `json:"publishedAt"`
	AuditRef          string                  `json:"auditRef"`
}

// Publish 发布考试成绩。系统里风险最高的事务：为缺行学生补建成绩、
// 重算所有人的总分与排名、统一置为已发布，再落发布行。任一步失败全部回滚。
func (s *PublicationService) Publish(teacherID, examID uint, passingPercentage float64, notes string) (*PublicationResult, error) {
	if passingPercentage < 0 || passingPercentage > 100 {
		return nil, util.ErrInvalidPercentage
	}

	var view *PublicationResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		exam, err := s.ExamRepo.WithTx(tx).FindByIDLocked(examID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrExamNotFound
		}
		if err != nil {
			return err
		}
		if exam.CreatorID != teacherID {
			return util.ErrNotExamOwner
		}

		pubRepo := s.PublicationRepo.WithTx(tx)
		pub, err := pubRepo.FindByExam(examID)
		if err != nil {
			return err
		}
		// 已发布状态下重复发布被拒绝，必须先撤销发布
		if pub != nil && pub.Status == model.PublicationPublished {
			return util.ErrAlreadyPublished
		}

		respRepo := s.ResponseRepo.WithTx(tx)
		total, err := respRepo.CountByExam(examID)
		if err != nil {
			return err
		}
		if total == 0 {
			return util.ErrNoResponses
		}
		graded, err := s.GradingRepo.WithTx(tx).CountGradedByExam(examID)
		if err != nil {
			return err
		}
		if graded < total {
			return &util.PendingGradingError{Total: int(total), Graded: int(graded)}
		}

		studentIDs, err := respRepo.DistinctStudentIDs(examID)
		if err != nil {
			return err
		}

		// 逐个重算：缺行的学生在这里补建成绩行
		for _, studentID := range studentIDs {
			if _, err := s.ResultService.recalculateForStudent(tx, examID, studentID); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := s.ResultRepo.WithTx(tx).MarkPublished(examID, teacherID, now); err != nil {
			return err
		}

		if pub == nil {
			pub = &model.ExamPublication{ExamID: examID}
		}
		pub.Status = model.PublicationPublished
		pub.TotalStudents = len(studentIDs)
		pub.GradedStudents = len(studentIDs)
		pub.PassingPercentage = passingPercentage
		pub.PublishedByID = &teacherID
		pub.PublishedAt = &now
		pub.Notes = notes
		pub.AuditRef = uuid.New().String()

		if pub.ID == 0 {
			err = pubRepo.Create(pub)
		} else {
			err = pubRepo.Save(pub)
		}
		if err != nil {
			return err
		}

		view = &PublicationResult{
			ExamID:            examID,
			Status:            pub.Status,
			TotalStudents:     pub.TotalStudents,
			GradedStudents:    pub.GradedStudents,
			PassingPercentage: pub.PassingPercentage,
			PublishedAt:       pub.PublishedAt,
			AuditRef:          pub.AuditRef,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.PublishCounter.WithLabelValues("publish").Inc()
	invalidateExamCaches(s.Redis, examID)
	return view, nil
}

// Unpublish 撤销发布，是重新开放判分修改的唯一途径
func (s *PublicationService) Unpublish(teacherID, examID uint, reason string) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		exam, err := s.ExamRepo.WithTx(tx).FindByIDLocked(examID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrExamNotFound
		}
		if err != nil {
			return err
		}
		if exam.CreatorID != teacherID {
			return util.ErrNotExamOwner
		}

		pubRepo := s.PublicationRepo.WithTx(tx)
		pub, err := pubRepo.FindByExam(examID)
		if err != nil {
			return err
		}
		if pub == nil || pub.Status != model.PublicationPublished {
			return util.ErrExamNotPublished
		}

		if err := s.ResultRepo.WithTx(tx).ClearPublishFlags(examID); err != nil {
			return err
		}

		pub.Status = model.PublicationNotPublished
		pub.PublishedAt = nil
		pub.PublishedByID = nil
		pub.Notes = reason
		return pubRepo.Save(pub)
	})
	if err != nil {
		return err
	}

	monitoring.PublishCounter.WithLabelValues("unpublish").Inc()
	invalidateExamCaches(s.Redis, examID)
	return nil
}

// PublicationStatusView 发布状态视图；没有发布行时视为未发布
type PublicationStatusView struct {
	ExamID            uint                    `json:"examId"`
	Status            model.PublicationStatus `json:"status"`
	TotalStudents     int                     `json:"totalStudents"`
	GradedStudents    int                     `json:"gradedStudents"`
	PassingPercentage float64                 `json:"passingPercentage"`
	PublishedAt       *time.Time              `json:"publishedAt"`
	Notes             string                  `json:"notes"`
}

func (s *PublicationService) GetPublicationStatus(examID uint) (*PublicationStatusView, error) {
	if cached := s.readStatusCache(examID); cached != nil {
		return cached, nil
	}

	pub, err := s.PublicationRepo.FindByExam(examID)
	if err != nil {
		return nil, err
	}

	view := &PublicationStatusView{
		ExamID: examID,
		Status: model.PublicationNotPublished,
	}
	if pub != nil {
		view.Status = pub.Status
		view.TotalStudents = pub.TotalStudents
		view.GradedStudents = pub.GradedStudents
		view.PassingPercentage = pub.PassingPercentage
		view.PublishedAt = pub.PublishedAt
		view.Notes = pub.Notes
	}

	s.writeStatusCache(examID, view)
	return view, nil
}

// GradingProgress 判分进度视图
type GradingProgress struct {
	TotalStudents   int     `json:"totalStudents"`
	GradedStudents  int     `json:"gradedStudents"`
	PendingStudents int     `json:"pendingStudents"`
	Percentage      float64 `json:"percentage"`
}

// GetGradingProgress 一名学生算"已判分"当且仅当其全部作答都有生效判分记录
func (s *PublicationService) GetGradingProgress(teacherID, examID uint) (*GradingProgress, error) {
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

	if cached := s.readProgressCache(examID); cached != nil {
		return cached, nil
	}

	studentIDs, err := s.ResponseRepo.DistinctStudentIDs(examID)
	if err != nil {
		return nil, err
	}

	gradedStudents := 0
	for _, studentID := range studentIDs {
		total, err := s.ResponseRepo.CountByExamAndStudent(examID, studentID)
		if err != nil {
			return nil, err
		}
		graded, err := s.GradingRepo.CountGradedByExamAndStudent(examID, studentID)
		if err != nil {
			return nil, err
		}
		if total > 0 && total == graded {
			gradedStudents++
		}
	}

	progress := &GradingProgress{
		TotalStudents:   len(studentIDs),
		GradedStudents:  gradedStudents,
		PendingStudents: len(studentIDs) - gradedStudents,
	}
	if len(studentIDs) > 0 {
		progress.Percentage = float64(gradedStudents) / float64(len(studentIDs)) * 100
	}

	s.writeProgressCache(examID, progress)
	return progress, nil
}

// --- redis 只读缓存，失败只记日志，读写都不致命 ---

func statusCacheKey(examID uint) string {
	return fmt.Sprintf("exam:%d:publication", examID)
}

func progressCacheKey(examID uint) string {
	return fmt.Sprintf("exam:%d:grading_progress", examID)
}

func invalidateExamCaches(rdb *redis.Client, examID uint) {
	if rdb == nil || examID == 0 {
		return
	}
	ctx := context.Background()
	if err := rdb.Del(ctx, statusCacheKey(examID), progressCacheKey(examID)).Err(); err != nil {
		logger.Log.Warn("failed to invalidate exam caches", zap.Uint("examId", examID), zap.Error(err))
	}
}

func (s *PublicationService) cacheTTL() time.Duration {
	return time.Duration(s.Config.Grading.ProgressCacheSeconds) * time.Second
}

func (s *PublicationService) readStatusCache(examID uint) *PublicationStatusView {
	if s.Redis == nil {
		return nil
	}
	raw, err := s.Redis.Get(context.Background(), statusCacheKey(examID)).Result()
	if err != nil {
		return nil
	}
	var view PublicationStatusView
	if json.Unmarshal([]byte(raw), &view) != nil {
		return nil
	}
	return &view
}

func (s *PublicationService) writeStatusCache(examID uint, view *PublicationStatusView) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.Redis.Set(context.Background(), statusCacheKey(examID), raw, s.cacheTTL()).Err(); err != nil {
		logger.Log.Warn("failed to cache publication status", zap.Uint("examId", examID), zap.Error(err))
	}
}

func (s *PublicationService) readProgressCache(examID uint) *GradingProgress {
	if s.Redis == nil {
		return nil
	}
	raw, err := s.Redis.Get(context.Background(), progressCacheKey(examID)).Result()
	if err != nil {
		return nil
	}
	var progress GradingProgress
	if json.Unmarshal([]byte(raw), &progress) != nil {
		return nil
	}
	return &progress
}

func (s *PublicationService) writeProgressCache(examID uint, progress *GradingProgress) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(progress)
	if err != nil {
		return
	}
	if err := s.Redis.Set(context.Background(), progressCacheKey(examID), raw, s.cacheTTL()).Err(); err != nil {
		logger.Log.Warn("failed to cache grading progress", zap.Uint("examId", examID), zap.Error(err))
	}
}

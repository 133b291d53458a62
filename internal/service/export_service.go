package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// ExportService 把已发布的成绩单渲染成 CSV 并归档到对象存储
type ExportService struct {
	ExamRepo        *repository.ExamRepository
	ResultRepo      *repository.ResultRepository
	PublicationRepo *repository.PublicationRepository
	Storage         *StorageService
}

func NewExportService(
	examRepo *repository.ExamRepository,
	resultRepo *repository.ResultRepository,
	publicationRepo *repository.PublicationRepository,
	storage *StorageService,
) *ExportService {
	return &ExportService{
		ExamRepo:        examRepo,
		ResultRepo:      resultRepo,
		PublicationRepo: publicationRepo,
		Storage:         storage,
	}
}

// ExportResult 导出结果：归档地址与行数
type ExportResult struct {
	URL      string `json:"url"`
	RowCount int    `json:"rowCount"`
}

// ExportPublishedResults 仅对已发布的考试可用
func (s *ExportService) ExportPublishedResults(ctx context.Context, teacherID, examID uint) (*ExportResult, error) {
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

	pub, err := s.PublicationRepo.FindByExam(examID)
	if err != nil {
		return nil, err
	}
	if pub == nil || pub.Status != model.PublicationPublished {
		return nil, util.ErrExamNotPublished
	}

	results, err := s.ResultRepo.ListByExam(examID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"rank", "student", "email", "total_marks", "percentage", "status", "passed"})
	for _, r := range results {
		rank := ""
		if r.Rank != nil {
			rank = strconv.Itoa(*r.Rank)
		}
		name, email := "", ""
		if r.Student != nil {
			name = r.Student.Name
			email = r.Student.Email
		}
		passed := "no"
		if r.Percentage >= pub.PassingPercentage {
			passed = "yes"
		}
		w.Write([]string{
			rank,
			name,
			email,
			strconv.FormatFloat(r.TotalMarks, 'f', 2, 64),
			strconv.FormatFloat(r.Percentage, 'f', 2, 64),
			string(r.Status),
			passed,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("exports/exam_%d_results_%s.csv", examID, time.Now().Format("20060102_150405"))
	url, err := s.Storage.Provider.Upload(ctx, filename, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv")
	if err != nil {
		return nil, err
	}

	return &ExportResult{URL: url, RowCount: len(results)}, nil
}

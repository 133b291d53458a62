package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/pkg/database"
	"exam_portal_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq int64

// testEnv 服务层测试环境：内存 sqlite + 预置的一场已结束考试。
// 考试两道题，满分 5 + 10 = 15。
type testEnv struct {
	DB *gorm.DB

	Responses   *ResponseService
	Grading     *GradingService
	Results     *ResultService
	Publication *PublicationService

	GradingRepo *repository.GradingRepository
	ResultRepo  *repository.ResultRepository
	PubRepo     *repository.PublicationRepository

	Teacher      *model.User
	OtherTeacher *model.User
	Students     []*model.User
	Exam         *model.Exam
	Q1, Q2       *model.Question
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger.Log = zap.NewNop()

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	gradingRepo := repository.NewGradingRepository(db)
	resultRepo := repository.NewResultRepository(db)
	pubRepo := repository.NewPublicationRepository(db)

	cfg := &config.Config{
		Grading: config.GradingConfig{
			DefaultPassingPercentage: 50,
			ProgressCacheSeconds:     30,
		},
	}

	resultSvc := NewResultService(examRepo, questionRepo, responseRepo, gradingRepo, resultRepo, db)
	gradingSvc := NewGradingService(examRepo, questionRepo, responseRepo, gradingRepo, pubRepo, resultSvc, db, nil)
	pubSvc := NewPublicationService(examRepo, responseRepo, gradingRepo, resultRepo, pubRepo, resultSvc, cfg, db, nil)
	respSvc := NewResponseService(examRepo, questionRepo, responseRepo, resultRepo, db)

	env := &testEnv{
		DB:          db,
		Responses:   respSvc,
		Grading:     gradingSvc,
		Results:     resultSvc,
		Publication: pubSvc,
		GradingRepo: gradingRepo,
		ResultRepo:  resultRepo,
		PubRepo:     pubRepo,
	}

	env.Teacher = env.addUser(t, "Ms. Chen", "chen@example.com", model.Teacher)
	env.OtherTeacher = env.addUser(t, "Mr. Gao", "gao@example.com", model.Teacher)
	for i := 1; i <= 3; i++ {
		env.Students = append(env.Students,
			env.addUser(t, fmt.Sprintf("Student %d", i), fmt.Sprintf("s%d@example.com", i), model.Student))
	}

	now := time.Now()
	env.Exam = env.addExam(t, env.Teacher.ID, now.Add(-2*time.Hour), now.Add(-time.Hour))
	env.Q1 = env.addQuestion(t, env.Exam.ID, "Define a goroutine.", 5, 1)
	env.Q2 = env.addQuestion(t, env.Exam.ID, "Explain channel select semantics.", 10, 2)

	return env
}

func (e *testEnv) addUser(t *testing.T, name, email string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: email, Password: "x", Role: role}
	require.NoError(t, e.DB.Create(u).Error)
	return u
}

func (e *testEnv) addExam(t *testing.T, creatorID uint, start, end time.Time) *model.Exam {
	t.Helper()
	exam := &model.Exam{
		Title:         "Unit Test Exam",
		CreatorID:     creatorID,
		AccessCode:    fmt.Sprintf("EX%d%d", creatorID, atomic.AddInt64(&testDBSeq, 1)),
		ScheduleStart: start,
		ScheduleEnd:   end,
	}
	require.NoError(t, e.DB.Create(exam).Error)
	return exam
}

func (e *testEnv) addQuestion(t *testing.T, examID uint, text string, marks float64, order int) *model.Question {
	t.Helper()
	q := &model.Question{ExamID: examID, Text: text, Marks: marks, Order: order}
	require.NoError(t, e.DB.Create(q).Error)
	return q
}

// addResponse 直接落库一条作答，绕过提交窗口校验
func (e *testEnv) addResponse(t *testing.T, exam *model.Exam, q *model.Question, student *model.User, answer string) *model.Response {
	t.Helper()
	resp := &model.Response{
		ExamID:      exam.ID,
		QuestionID:  q.ID,
		StudentID:   student.ID,
		AnswerText:  answer,
		SubmittedAt: exam.ScheduleStart.Add(10 * time.Minute),
	}
	require.NoError(t, e.DB.Create(resp).Error)
	return resp
}

func (e *testEnv) mustGrade(t *testing.T, responseID uint, marks float64) {
	t.Helper()
	require.NoError(t, e.Grading.GradeSingle(e.Teacher.ID, responseID, GradeRequest{Marks: marks}))
}

func (e *testEnv) reloadResponse(t *testing.T, id uint) *model.Response {
	t.Helper()
	var resp model.Response
	require.NoError(t, e.DB.First(&resp, id).Error)
	return &resp
}

func (e *testEnv) activeRecord(t *testing.T, responseID uint) *model.GradingRecord {
	t.Helper()
	rec, err := e.GradingRepo.FindActiveByResponse(responseID)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) recordCount(t *testing.T, responseID uint) int64 {
	t.Helper()
	n, err := e.GradingRepo.CountByResponse(responseID)
	require.NoError(t, err)
	return n
}

func (e *testEnv) result(t *testing.T, studentID uint) *model.Result {
	t.Helper()
	res, err := e.ResultRepo.FindByExamAndStudent(e.Exam.ID, studentID)
	require.NoError(t, err)
	return res
}

package service

import (
	"testing"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultAggregationAcrossGrading(t *testing.T) {
	env := newTestEnv(t)
	student := env.Students[0]
	r1 := env.addResponse(t, env.Exam, env.Q1, student, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, student, "b")

	// 判了一题：总分只含已判部分，状态仍是 completed
	env.mustGrade(t, r1.ID, 3)
	res := env.result(t, student.ID)
	require.NotNil(t, res)
	assert.Equal(t, 3.0, res.TotalMarks)
	assert.Equal(t, model.ResultCompleted, res.Status)
	assert.False(t, res.IsPublished)

	// 两题判完：13/15
	env.mustGrade(t, r2.ID, 10)
	res = env.result(t, student.ID)
	require.NotNil(t, res)
	assert.Equal(t, 13.0, res.TotalMarks)
	assert.Equal(t, model.ResultGraded, res.Status)
	assert.InDelta(t, 86.67, res.Percentage, 0.01)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	student := env.Students[0]
	resp := env.addResponse(t, env.Exam, env.Q2, student, "x")
	env.mustGrade(t, resp.ID, 7)

	first, err := env.Results.RecalculateStudentResult(env.Exam.ID, student.ID)
	require.NoError(t, err)
	second, err := env.Results.RecalculateStudentResult(env.Exam.ID, student.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.TotalMarks, second.TotalMarks)
	assert.Equal(t, first.Percentage, second.Percentage)
	assert.Equal(t, first.Status, second.Status)

	var rows int64
	require.NoError(t, env.DB.Model(&model.Result{}).
		Where("exam_id = ? AND student_id = ?", env.Exam.ID, student.ID).
		Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestRankTiesShareRankAndSkip(t *testing.T) {
	env := newTestEnv(t)
	s1, s2, s3 := env.Students[0], env.Students[1], env.Students[2]
	r1 := env.addResponse(t, env.Exam, env.Q2, s1, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, s2, "b")
	r3 := env.addResponse(t, env.Exam, env.Q2, s3, "c")

	env.mustGrade(t, r1.ID, 10)
	env.mustGrade(t, r2.ID, 10)
	env.mustGrade(t, r3.ID, 5)

	// 已有成绩行在后续判分中会被重算，最后统一校验
	for _, s := range env.Students {
		_, err := env.Results.RecalculateStudentResult(env.Exam.ID, s.ID)
		require.NoError(t, err)
	}

	require.NotNil(t, env.result(t, s1.ID).Rank)
	assert.Equal(t, 1, *env.result(t, s1.ID).Rank)
	assert.Equal(t, 1, *env.result(t, s2.ID).Rank)
	assert.Equal(t, 3, *env.result(t, s3.ID).Rank)
}

func TestCalculateRankForStudentWithoutResponses(t *testing.T) {
	env := newTestEnv(t)
	r1 := env.addResponse(t, env.Exam, env.Q1, env.Students[0], "a")
	env.mustGrade(t, r1.ID, 5)

	// 没交卷的学生按 0 分参与比较
	rank, err := env.Results.CalculateRank(env.Exam.ID, env.Students[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
}

func TestGetStudentResultHiddenBeforePublish(t *testing.T) {
	env := newTestEnv(t)
	student := env.Students[0]
	resp := env.addResponse(t, env.Exam, env.Q1, student, "a")
	env.mustGrade(t, resp.ID, 5)

	_, err := env.Results.GetStudentResult(env.Exam.ID, student.ID, 50)
	assert.ErrorIs(t, err, util.ErrExamNotPublished)

	_, err = env.Results.GetStudentResult(env.Exam.ID, env.Students[2].ID, 50)
	assert.ErrorIs(t, err, util.ErrResultNotFound)
}

func TestGetStudentResultAfterPublish(t *testing.T) {
	env := newTestEnv(t)
	s1, s2 := env.Students[0], env.Students[1]
	r1 := env.addResponse(t, env.Exam, env.Q2, s1, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, s2, "b")
	env.mustGrade(t, r1.ID, 9)
	env.mustGrade(t, r2.ID, 4)

	_, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	require.NoError(t, err)

	view, err := env.Results.GetStudentResult(env.Exam.ID, s1.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 9.0, view.TotalMarks)
	assert.InDelta(t, 60.0, view.Percentage, 0.01)
	assert.True(t, view.Passed)
	require.NotNil(t, view.Rank)
	assert.Equal(t, 1, *view.Rank)
	assert.NotEmpty(t, view.PublishedAt)

	view, err = env.Results.GetStudentResult(env.Exam.ID, s2.ID, 50)
	require.NoError(t, err)
	assert.False(t, view.Passed)
	assert.Equal(t, 2, *view.Rank)
}

func TestListExamResultsOrderedAndOwned(t *testing.T) {
	env := newTestEnv(t)
	s1, s2 := env.Students[0], env.Students[1]
	r1 := env.addResponse(t, env.Exam, env.Q2, s1, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, s2, "b")
	env.mustGrade(t, r1.ID, 4)
	env.mustGrade(t, r2.ID, 8)

	rows, err := env.Results.ListExamResults(env.Teacher.ID, env.Exam.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, s2.ID, rows[0].StudentID)
	assert.Equal(t, 8.0, rows[0].TotalMarks)
	assert.Equal(t, "Student 2", rows[0].StudentName)

	_, err = env.Results.ListExamResults(env.OtherTeacher.ID, env.Exam.ID)
	assert.ErrorIs(t, err, util.ErrNotExamOwner)
}

func TestRecalculateZeroTotalPossible(t *testing.T) {
	env := newTestEnv(t)
	empty := env.addExam(t, env.Teacher.ID, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))

	result, err := env.Results.RecalculateStudentResult(empty.ID, env.Students[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.TotalMarks)
	assert.Equal(t, 0.0, result.Percentage)
	assert.Equal(t, model.ResultCompleted, result.Status)
}

package service

import (
	"testing"
	"time"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitResponseCreatesResultRow(t *testing.T) {
	env := newTestEnv(t)
	open := env.addExam(t, env.Teacher.ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	q := env.addQuestion(t, open.ID, "open question", 5, 1)
	student := env.Students[0]

	resp, err := env.Responses.SubmitResponse(student.ID, open.ID, SubmitRequest{
		QuestionID: q.ID,
		AnswerText: "first attempt",
	})
	require.NoError(t, err)
	assert.Equal(t, "first attempt", resp.AnswerText)
	assert.Nil(t, resp.IsCorrect)

	res, err := env.ResultRepo.FindByExamAndStudent(open.ID, student.ID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, model.ResultCompleted, res.Status)
	assert.Equal(t, 0.0, res.TotalMarks)
}

func TestSubmitResponseOverwritesWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	open := env.addExam(t, env.Teacher.ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	q := env.addQuestion(t, open.ID, "open question", 5, 1)
	student := env.Students[0]

	first, err := env.Responses.SubmitResponse(student.ID, open.ID, SubmitRequest{QuestionID: q.ID, AnswerText: "draft"})
	require.NoError(t, err)
	second, err := env.Responses.SubmitResponse(student.ID, open.ID, SubmitRequest{QuestionID: q.ID, AnswerText: "final"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, env.DB.Model(&model.Response{}).
		Where("exam_id = ? AND student_id = ?", open.ID, student.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, "final", env.reloadResponse(t, first.ID).AnswerText)
}

func TestSubmitResponseRejectedOutsideWindow(t *testing.T) {
	env := newTestEnv(t)
	// 预置考试已经结束
	_, err := env.Responses.SubmitResponse(env.Students[0].ID, env.Exam.ID, SubmitRequest{
		QuestionID: env.Q1.ID,
		AnswerText: "too late",
	})
	assert.ErrorIs(t, err, util.ErrSubmissionClosed)
}

func TestSubmitResponseRejectsForeignQuestion(t *testing.T) {
	env := newTestEnv(t)
	open := env.addExam(t, env.Teacher.ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	env.addQuestion(t, open.ID, "own question", 5, 1)

	_, err := env.Responses.SubmitResponse(env.Students[0].ID, open.ID, SubmitRequest{
		QuestionID: env.Q1.ID, // 属于另一场考试
		AnswerText: "x",
	})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestListExamQuestionsRespectsWindow(t *testing.T) {
	env := newTestEnv(t)
	open := env.addExam(t, env.Teacher.ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	env.addQuestion(t, open.ID, "q1", 5, 2)
	env.addQuestion(t, open.ID, "q2", 5, 1)

	questions, err := env.Responses.ListExamQuestions(open.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q2", questions[0].Text)

	_, err = env.Responses.ListExamQuestions(env.Exam.ID)
	assert.ErrorIs(t, err, util.ErrSubmissionClosed)
}

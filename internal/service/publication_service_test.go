package service

import (
	"errors"
	"testing"

	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreAllResponsesGraded(t *testing.T) {
	env := newTestEnv(t)

	// 零作答不算全部判分，防止发布空考试
	assert.False(t, env.Publication.AreAllResponsesGraded(env.Exam.ID))

	r1 := env.addResponse(t, env.Exam, env.Q1, env.Students[0], "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, env.Students[0], "b")
	assert.False(t, env.Publication.AreAllResponsesGraded(env.Exam.ID))

	env.mustGrade(t, r1.ID, 3)
	assert.False(t, env.Publication.AreAllResponsesGraded(env.Exam.ID))

	env.mustGrade(t, r2.ID, 8)
	assert.True(t, env.Publication.AreAllResponsesGraded(env.Exam.ID))
}

func TestPublishRejectsPendingGrading(t *testing.T) {
	env := newTestEnv(t)
	s1, s2, s3 := env.Students[0], env.Students[1], env.Students[2]
	r1 := env.addResponse(t, env.Exam, env.Q1, s1, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, s1, "b")
	r3 := env.addResponse(t, env.Exam, env.Q1, s2, "c")
	env.addResponse(t, env.Exam, env.Q2, s2, "d")
	env.addResponse(t, env.Exam, env.Q1, s3, "e")

	env.mustGrade(t, r1.ID, 3)
	env.mustGrade(t, r2.ID, 8)
	env.mustGrade(t, r3.ID, 4)

	_, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	var pending *util.PendingGradingError
	require.True(t, errors.As(err, &pending))
	assert.Equal(t, 5, pending.Total)
	assert.Equal(t, 3, pending.Graded)
	assert.Equal(t, 2, pending.Pending())
	assert.Equal(t, "2 out of 5 responses pending grading", err.Error())

	// 发布被拒后没有任何可见性变化
	res := env.result(t, s1.ID)
	require.NotNil(t, res)
	assert.False(t, res.IsPublished)
	pub, perr := env.PubRepo.FindByExam(env.Exam.ID)
	require.NoError(t, perr)
	assert.Nil(t, pub)
}

func TestPublishFlipsAllResultsAtomically(t *testing.T) {
	env := newTestEnv(t)
	s1, s2 := env.Students[0], env.Students[1]
	r1 := env.addResponse(t, env.Exam, env.Q2, s1, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, s2, "b")
	env.mustGrade(t, r1.ID, 10)
	env.mustGrade(t, r2.ID, 6)

	view, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 60, "autumn term")
	require.NoError(t, err)
	assert.Equal(t, model.PublicationPublished, view.Status)
	assert.Equal(t, 2, view.TotalStudents)
	assert.Equal(t, 2, view.GradedStudents)
	assert.Equal(t, 60.0, view.PassingPercentage)
	require.NotNil(t, view.PublishedAt)
	assert.Len(t, view.AuditRef, 36)

	for _, s := range []*model.User{s1, s2} {
		res := env.result(t, s.ID)
		require.NotNil(t, res)
		assert.True(t, res.IsPublished)
		assert.NotNil(t, res.PublishedAt)
		assert.Equal(t, model.ResultGraded, res.Status)
		require.NotNil(t, res.EvaluatedByID)
		assert.Equal(t, env.Teacher.ID, *res.EvaluatedByID)
	}

	status, err := env.Publication.GetPublicationStatus(env.Exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PublicationPublished, status.Status)
	assert.Equal(t, "autumn term", status.Notes)
}

func TestPublishRejectsDoublePublish(t *testing.T) {
	env := newTestEnv(t)
	resp := env.addResponse(t, env.Exam, env.Q1, env.Students[0], "a")
	env.mustGrade(t, resp.ID, 5)

	_, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	require.NoError(t, err)

	_, err = env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	assert.ErrorIs(t, err, util.ErrAlreadyPublished)
}

func TestPublishRejectsNoResponses(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	assert.ErrorIs(t, err, util.ErrNoResponses)
}

func TestPublishValidatesPercentageAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	resp := env.addResponse(t, env.Exam, env.Q1, env.Students[0], "a")
	env.mustGrade(t, resp.ID, 5)

	_, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, -1, "")
	assert.ErrorIs(t, err, util.ErrInvalidPercentage)
	_, err = env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 101, "")
	assert.ErrorIs(t, err, util.ErrInvalidPercentage)

	_, err = env.Publication.Publish(env.OtherTeacher.ID, env.Exam.ID, 50, "")
	assert.ErrorIs(t, err, util.ErrNotExamOwner)

	_, err = env.Publication.Publish(env.Teacher.ID, 9999, 50, "")
	assert.ErrorIs(t, err, util.ErrExamNotFound)
}

func TestUnpublishClearsVisibilityOnly(t *testing.T) {
	env := newTestEnv(t)
	student := env.Students[0]
	resp := env.addResponse(t, env.Exam, env.Q2, student, "a")
	env.mustGrade(t, resp.ID, 8)

	_, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	require.NoError(t, err)
	recordsBefore := env.recordCount(t, resp.ID)

	require.NoError(t, env.Publication.Unpublish(env.Teacher.ID, env.Exam.ID, "clerical error"))

	// 可见性清掉，成绩数值和判分历史原样保留
	res := env.result(t, student.ID)
	require.NotNil(t, res)
	assert.False(t, res.IsPublished)
	assert.Nil(t, res.PublishedAt)
	assert.Equal(t, 8.0, res.TotalMarks)
	assert.Equal(t, model.ResultGraded, res.Status)
	assert.Equal(t, recordsBefore, env.recordCount(t, resp.ID))

	pub, err := env.PubRepo.FindByExam(env.Exam.ID)
	require.NoError(t, err)
	require.NotNil(t, pub)
	assert.Equal(t, model.PublicationNotPublished, pub.Status)
	assert.Nil(t, pub.PublishedAt)
	assert.Nil(t, pub.PublishedByID)
	assert.Equal(t, "clerical error", pub.Notes)

	_, err = env.Results.GetStudentResult(env.Exam.ID, student.ID, 50)
	assert.ErrorIs(t, err, util.ErrExamNotPublished)
}

func TestUnpublishReopensGradingAndRepublish(t *testing.T) {
	env := newTestEnv(t)
	resp := env.addResponse(t, env.Exam, env.Q2, env.Students[0], "a")
	env.mustGrade(t, resp.ID, 6)

	first, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	require.NoError(t, err)
	require.NoError(t, env.Publication.Unpublish(env.Teacher.ID, env.Exam.ID, "regrade needed"))

	// 撤销发布后判分重新开放
	require.NoError(t, env.Grading.Regrade(env.Teacher.ID, resp.ID, RegradeRequest{Marks: 9, Reason: "recount"}))

	second, err := env.Publication.Publish(env.Teacher.ID, env.Exam.ID, 50, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.AuditRef, second.AuditRef)
	assert.Equal(t, 9.0, env.result(t, env.Students[0].ID).TotalMarks)
}

func TestUnpublishRequiresPublishedState(t *testing.T) {
	env := newTestEnv(t)
	err := env.Publication.Unpublish(env.Teacher.ID, env.Exam.ID, "")
	assert.ErrorIs(t, err, util.ErrExamNotPublished)

	err = env.Publication.Unpublish(env.OtherTeacher.ID, env.Exam.ID, "")
	assert.ErrorIs(t, err, util.ErrNotExamOwner)
}

func TestGetPublicationStatusDefaultsToNotPublished(t *testing.T) {
	env := newTestEnv(t)
	status, err := env.Publication.GetPublicationStatus(env.Exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PublicationNotPublished, status.Status)
	assert.Nil(t, status.PublishedAt)
}

func TestGetGradingProgressCountsFullyGradedStudents(t *testing.T) {
	env := newTestEnv(t)
	s1, s2, s3 := env.Students[0], env.Students[1], env.Students[2]
	r1 := env.addResponse(t, env.Exam, env.Q1, s1, "a")
	r2 := env.addResponse(t, env.Exam, env.Q2, s1, "b")
	r3 := env.addResponse(t, env.Exam, env.Q1, s2, "c")
	env.addResponse(t, env.Exam, env.Q2, s2, "d")
	env.addResponse(t, env.Exam, env.Q1, s3, "e")

	env.mustGrade(t, r1.ID, 3)
	env.mustGrade(t, r2.ID, 7)
	env.mustGrade(t, r3.ID, 2) // s2 还有一题未判

	progress, err := env.Publication.GetGradingProgress(env.Teacher.ID, env.Exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalStudents)
	assert.Equal(t, 1, progress.GradedStudents)
	assert.Equal(t, 2, progress.PendingStudents)
	assert.InDelta(t, 33.33, progress.Percentage, 0.01)

	_, err = env.Publication.GetGradingProgress(env.OtherTeacher.ID, env.Exam.ID)
	assert.ErrorIs(t, err, util.ErrNotExamOwner)
}

package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrPermissionDenied = errors.New("permission denied")

	ErrExamNotFound        = errors.New("exam not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrResponseNotFound    = errors.New("response not found")
	ErrResultNotFound      = errors.New("result not found")
	ErrPublicationNotFound = errors.New("publication not found")

	// 仅创建该考试的教师可以判分/发布/撤销发布
	ErrNotExamOwner = errors.New("caller does not own this exam")

	ErrExamNotEnded      = errors.New("exam has not ended yet")
	ErrExamPublished     = errors.New("exam results are published, unpublish before grading")
	ErrExamNotPublished  = errors.New("exam results are not published")
	ErrAlreadyPublished  = errors.New("exam results are already published")
	ErrNotYetGraded      = errors.New("response has no grading record to regrade")
	ErrSubmissionClosed  = errors.New("exam is not open for submission")
	ErrNoResponses       = errors.New("exam has no responses to publish")
	ErrMarksExceedMax    = errors.New("marks exceed the question's maximum")
	ErrNegativeMarks     = errors.New("marks must not be negative")
	ErrInvalidPercentage = errors.New("passing percentage must be between 0 and 100")
	ErrEmptyBatch        = errors.New("batch contains no grading items")
)

// PendingGradingError 发布被拒时携带未判分数量，供前端提示
type PendingGradingError struct {
	Total  int
	Graded int
}

func (e *PendingGradingError) Error() string {
	return fmt.Sprintf("%d out of %d responses pending grading", e.Pending(), e.Total)
}

func (e *PendingGradingError) Pending() int {
	return e.Total - e.Graded
}

package controller

import (
	"errors"
	"net/http"

	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// handleServiceError 把领域错误映射到 HTTP 状态码
func handleServiceError(ctx *gin.Context, err error) {
	var pending *util.PendingGradingError
	if errors.As(err, &pending) {
		util.Error(ctx, http.StatusConflict, err.Error())
		return
	}

	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrExamNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrResponseNotFound),
		errors.Is(err, util.ErrResultNotFound),
		errors.Is(err, util.ErrPublicationNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrNotExamOwner),
		errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrExamNotEnded),
		errors.Is(err, util.ErrExamPublished),
		errors.Is(err, util.ErrExamNotPublished),
		errors.Is(err, util.ErrAlreadyPublished),
		errors.Is(err, util.ErrNotYetGraded),
		errors.Is(err, util.ErrSubmissionClosed),
		errors.Is(err, util.ErrNoResponses):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrMarksExceedMax),
		errors.Is(err, util.ErrNegativeMarks),
		errors.Is(err, util.ErrInvalidPercentage),
		errors.Is(err, util.ErrEmptyBatch):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

package controller

import (
	"strconv"

	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResponseController struct {
	ResponseService *service.ResponseService
}

func NewResponseController(responseService *service.ResponseService) *ResponseController {
	return &ResponseController{ResponseService: responseService}
}

// @Summary 学生提交/修改作答（仅考试窗口内）
// @Tags 作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body service.SubmitRequest true "作答内容"
// @Success 201 {object} util.Response
// @Router /api/exams/{id}/responses [post]
func (c *ResponseController) SubmitResponse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	examID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid exam id")
		return
	}

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	response, err := c.ResponseService.SubmitResponse(user.UserID, uint(examID), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, response)
}

// @Summary 学生获取考试题目（仅考试窗口内）
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id}/questions [get]
func (c *ResponseController) ListExamQuestions(ctx *gin.Context) {
	examID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid exam id")
		return
	}

	questions, err := c.ResponseService.ListExamQuestions(uint(examID))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

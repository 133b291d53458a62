package controller

import (
	"strconv"

	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradingController struct {
	GradingService *service.GradingService
}

func NewGradingController(gradingService *service.GradingService) *GradingController {
	return &GradingController{GradingService: gradingService}
}

// @Summary 教师对单条作答判分
// @Tags 判分
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Param body body service.GradeRequest true "判分内容"
// @Success 200 {object} util.Response
// @Router /api/teacher/responses/{id}/grade [post]
func (c *GradingController) GradeSingle(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	responseID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid response id")
		return
	}

	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.GradingService.GradeSingle(user.UserID, uint(responseID), req); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"graded": true})
}

type batchGradeBody struct {
	QuestionID uint                     `json:"questionId"`
	Items      []service.BatchGradeItem `json:"items" binding:"required"`
}

// @Summary 教师批量判分（一个事务，任一项失败整批回滚）
// @Tags 判分
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body batchGradeBody true "判分列表"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/grade-batch [post]
func (c *GradingController) GradeBatch(ctx *gin.Context) {
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

	var body batchGradeBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.GradingService.GradeBatch(user.UserID, uint(examID), body.QuestionID, body.Items); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"graded": len(body.Items)})
}

// @Summary 教师重判（保留旧记录并链接审计链）
// @Tags 判分
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Param body body service.RegradeRequest true "重判内容"
// @Success 200 {object} util.Response
// @Router /api/teacher/responses/{id}/regrade [post]
func (c *GradingController) Regrade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	responseID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid response id")
		return
	}

	var req service.RegradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.GradingService.Regrade(user.UserID, uint(responseID), req); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"regraded": true})
}

// @Summary 教师按题目查看作答列表
// @Tags 判分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param questionId query int false "题目ID"
// @Param graded query bool false "只看已判分/未判分"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/responses [get]
func (c *GradingController) ListResponses(ctx *gin.Context) {
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

	questionID := 0
	if q := ctx.Query("questionId"); q != "" {
		questionID, err = strconv.Atoi(q)
		if err != nil {
			util.BadRequest(ctx, "invalid question id")
			return
		}
	}

	var graded *bool
	if g := ctx.Query("graded"); g != "" {
		val, err := strconv.ParseBool(g)
		if err != nil {
			util.BadRequest(ctx, "invalid graded filter")
			return
		}
		graded = &val
	}

	responses, err := c.GradingService.ListResponsesForGrading(user.UserID, uint(examID), uint(questionID), graded)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, responses)
}

// @Summary 某条作答的判分历史
// @Tags 判分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/responses/{id}/history [get]
func (c *GradingController) GetGradingHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	responseID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid response id")
		return
	}

	history, err := c.GradingService.GetGradingHistory(user.UserID, uint(responseID))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

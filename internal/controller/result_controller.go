package controller

import (
	"strconv"

	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	ResultService      *service.ResultService
	PublicationService *service.PublicationService
	ExportService      *service.ExportService
}

func NewResultController(
	resultService *service.ResultService,
	publicationService *service.PublicationService,
	exportService *service.ExportService,
) *ResultController {
	return &ResultController{
		ResultService:      resultService,
		PublicationService: publicationService,
		ExportService:      exportService,
	}
}

// @Summary 学生查询自己的成绩（发布后可见）
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id}/result [get]
func (c *ResultController) GetMyResult(ctx *gin.Context) {
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

	status, err := c.PublicationService.GetPublicationStatus(uint(examID))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	result, err := c.ResultService.GetStudentResult(uint(examID), user.UserID, status.PassingPercentage)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 教师查看考试全部成绩
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/results [get]
func (c *ResultController) ListExamResults(ctx *gin.Context) {
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

	rows, err := c.ResultService.ListExamResults(user.UserID, uint(examID))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// @Summary 导出已发布的成绩单（CSV 归档到对象存储）
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/results/export [get]
func (c *ResultController) ExportResults(ctx *gin.Context) {
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

	result, err := c.ExportService.ExportPublishedResults(ctx.Request.Context(), user.UserID, uint(examID))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

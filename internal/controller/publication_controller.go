package controller

import (
	"strconv"

	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PublicationController struct {
	PublicationService *service.PublicationService
}

func NewPublicationController(publicationService *service.PublicationService) *PublicationController {
	return &PublicationController{PublicationService: publicationService}
}

type publishBody struct {
	PassingPercentage float64 `json:"passingPercentage"`
	Notes             string  `json:"notes"`
}

// @Summary 发布考试成绩（要求全部作答已判分）
// @Tags 发布
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body publishBody true "发布参数"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/publish [post]
func (c *PublicationController) Publish(ctx *gin.Context) {
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

	var body publishBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.PublicationService.Publish(user.UserID, uint(examID), body.PassingPercentage, body.Notes)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type unpublishBody struct {
	Reason string `json:"reason"`
}

// @Summary 撤销发布（保留判分历史，仅清可见性）
// @Tags 发布
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body unpublishBody true "撤销原因"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/unpublish [post]
func (c *PublicationController) Unpublish(ctx *gin.Context) {
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

	var body unpublishBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.PublicationService.Unpublish(user.UserID, uint(examID), body.Reason); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"unpublished": true})
}

// @Summary 查询发布状态
// @Tags 发布
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/publication [get]
func (c *PublicationController) GetPublicationStatus(ctx *gin.Context) {
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
	util.Success(ctx, status)
}

// @Summary 判分进度
// @Tags 发布
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/grading-progress [get]
func (c *PublicationController) GetGradingProgress(ctx *gin.Context) {
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

	progress, err := c.PublicationService.GetGradingProgress(user.UserID, uint(examID))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

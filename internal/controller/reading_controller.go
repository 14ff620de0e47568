package controller

import (
	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/service"
	"reading_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReadingController struct {
	ReadingService *service.ReadingService
}

func NewReadingController(readingService *service.ReadingService) *ReadingController {
	return &ReadingController{ReadingService: readingService}
}

// GetProgress godoc
// @Summary 获取阅读进度状态
// @Description 解析当前学生的阅读状态：进行中返回当前题目，文章完成或课程完结返回对应标记。首次访问自动建立初始会话。
// @Tags 阅读
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressView} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/reading/progress [get]
func (c *ReadingController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.ReadingService.GetProgress(claims.UserID)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// SubmitAnswerRequest 答题请求，answer 为所选选项标识
type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// SubmitAnswer godoc
// @Summary 提交当前题目答案
// @Description 对会话指针指向的题目判分并推进状态机。指针越过文章最后一题时触发文章流转、轮次流转或课程完结。
// @Tags 阅读
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response{data=service.AnswerResult} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 409 {object} util.Response "没有进行中的会话"
// @Failure 503 {object} util.Response "事务冲突，可稍后重试"
// @Router /api/reading/answers [post]
func (c *ReadingController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ReadingService.ProcessAnswer(claims.UserID, req.Answer)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// CheckAnswerRequest 按题目ID判题的请求
type CheckAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// CheckAnswer godoc
// @Summary 判题（不推进指针）
// @Description 对指定题目判分并留下答题记录，但不移动会话指针。练习题答错时附带对应的补充题。
// @Tags 阅读
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CheckAnswerRequest true "题目与答案"
// @Success 200 {object} util.Response{data=service.CheckResult} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "题目不存在"
// @Failure 409 {object} util.Response "会话状态不允许判题"
// @Router /api/reading/questions/check [post]
func (c *ReadingController) CheckAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ReadingService.CheckAnswer(claims.UserID, req.QuestionID, req.Answer)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetRoundScore godoc
// @Summary 当前轮次得分
// @Description 返回当前轮次的累计得分、满分、答题数与正确数。还没有轮次时返回全零。
// @Tags 阅读
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.RoundScore} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/reading/round-score [get]
func (c *ReadingController) GetRoundScore(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	score, err := c.ReadingService.GetRoundScore(claims.UserID)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, score)
}

// GetCurrentArticle godoc
// @Summary 当前应阅读的文章
// @Description 进行中返回当前文章，单篇完成返回下一篇，课程完结返回最后一篇。
// @Tags 阅读
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Article} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/reading/article [get]
func (c *ReadingController) GetCurrentArticle(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	article, err := c.ReadingService.GetArticle(claims.UserID)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, article)
}

// GetArticleQuestions godoc
// @Summary 文章题目列表
// @Description 按题型返回文章的题目。练习题附带其补充题映射，补充题附带它补救的练习题。
// @Tags 阅读
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "文章ID"
// @Param type query string false "题型（EXERCISE 或 SUPPLEMENTARY，默认 EXERCISE）"
// @Success 200 {object} util.Response{data=[]service.QuestionView} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/reading/articles/{id}/questions [get]
func (c *ReadingController) GetArticleQuestions(ctx *gin.Context) {
	articleID := ctx.Param("id")

	qType := model.QuestionType(ctx.DefaultQuery("type", string(model.QuestionExercise)))
	if qType != model.QuestionExercise && qType != model.QuestionSupplementary {
		util.BadRequest(ctx, "invalid question type")
		return
	}

	questions, err := c.ReadingService.GetArticleQuestions(articleID, qType)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

package controller

import (
	"reading_edu_backend/internal/service"
	"reading_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	AgentService *service.AgentService
}

func NewChatController(agentService *service.AgentService) *ChatController {
	return &ChatController{AgentService: agentService}
}

// ChatMessageRequest 学生提问
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SendMessage godoc
// @Summary 向当前文章的机器人提问
// @Description 把学生的提问转发给当前文章绑定的机器人，续接最近的会话并回写会话ID。
// @Tags 聊天
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ChatMessageRequest true "提问内容"
// @Success 200 {object} util.Response{data=service.ChatMessageReply} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 409 {object} util.Response "没有进行中的阅读会话"
// @Router /api/chat/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ChatMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.AgentService.Message(claims.UserID, req.Message)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, reply)
}

// GetCurrentBot godoc
// @Summary 当前文章绑定的机器人
// @Description 返回活跃会话指向的文章所绑定的机器人、文章与进度上下文。
// @Tags 聊天
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.CurrentBotInfo} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 409 {object} util.Response "没有进行中的阅读会话"
// @Router /api/chat/bot [get]
func (c *ChatController) GetCurrentBot(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	info, err := c.AgentService.GetCurrentBot(claims.UserID)
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Success(ctx, info)
}

package controller

import (
	"bytes"
	"io"

	"reading_edu_backend/internal/service"
	"reading_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ArticleController struct {
	ContentService *service.ContentService
}

func NewArticleController(contentService *service.ContentService) *ArticleController {
	return &ArticleController{ContentService: contentService}
}

// Upload godoc
// @Summary 上传课件
// @Description 解析纯文本课件（标题、正文、练习题目、跟踪练习）并入库。文章与题目在同一事务中落库。
// @Tags 课件
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "课件文件"
// @Param botId formData string false "绑定的机器人ID"
// @Success 201 {object} util.Response{data=service.UploadResult} "创建成功"
// @Failure 400 {object} util.Response "课件格式错误"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/articles/upload [post]
func (c *ArticleController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少课件文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if _, err := util.ValidateMimeType(bytes.NewReader(data), util.AllowedCoursewareTypes); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ContentService.UploadArticle(ctx.Request.Context(), fileHeader.Filename, data, ctx.PostForm("botId"))
	if err != nil {
		util.FailWithError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// UploadBatch godoc
// @Summary 批量上传课件
// @Description 逐份解析并入库多份课件，单份失败不影响其余，逐份返回结果。
// @Tags 课件
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param files formData file true "课件文件（可多份）"
// @Param botId formData string false "绑定的机器人ID"
// @Success 200 {object} util.Response{data=[]service.BatchItemResult} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/articles/upload/batch [post]
func (c *ArticleController) UploadBatch(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		util.BadRequest(ctx, "缺少课件文件")
		return
	}

	botID := ctx.PostForm("botId")
	files := make([]service.BatchFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		if _, err := util.ValidateMimeType(bytes.NewReader(data), util.AllowedCoursewareTypes); err != nil {
			util.BadRequest(ctx, fh.Filename+": "+err.Error())
			return
		}
		files = append(files, service.BatchFile{Filename: fh.Filename, Data: data, BotID: botID})
	}

	results := c.ContentService.UploadBatch(ctx.Request.Context(), files)
	util.Success(ctx, results)
}

// GetArticle godoc
// @Summary 按ID获取文章
// @Description 带缓存的文章读取。
// @Tags 课件
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "文章ID"
// @Success 200 {object} util.Response{data=model.Article} "成功"
// @Failure 404 {object} util.Response "文章不存在"
// @Router /api/articles/{id} [get]
func (c *ArticleController) GetArticle(ctx *gin.Context) {
	article, err := c.ContentService.CachedArticle(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, article)
}

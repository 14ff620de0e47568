package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/repository"
	"reading_edu_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sectionExercises = "练习题目"
	sectionTracking  = "跟踪练习"

	articleCacheTTL = 10 * time.Minute
)

var (
	questionLineRe = regexp.MustCompile(`^\d+\.`)
	optionLineRe   = regexp.MustCompile(`^[A-D]\)`)
)

// ParsedQuestion 课件中解析出的一道题目
type ParsedQuestion struct {
	OrderNumber int                    `json:"orderNumber"`
	Content     string                 `json:"content"`
	Options     []model.QuestionOption `json:"options"`
	Answer      string                 `json:"answer"`
	Explanation string                 `json:"explanation"`
}

// ParsedDocument 课件文本的完整解析结果：标题、正文、两层题目
type ParsedDocument struct {
	Title     string           `json:"title"`
	Article   string           `json:"article"`
	Exercises []ParsedQuestion `json:"exercises"`
	Tracking  []ParsedQuestion `json:"tracking"`
}

// UploadResult 单份课件的入库结果
type UploadResult struct {
	ArticleID     string `json:"articleId"`
	Title         string `json:"title"`
	Order         int    `json:"order"`
	ExerciseCount int    `json:"exerciseCount"`
	TrackingCount int    `json:"trackingCount"`
	ArchiveURL    string `json:"archiveUrl,omitempty"`
}

// ContentService 课件导入：解析纯文本课件、事务化入库、归档原始文件、开通知识库
type ContentService struct {
	DB           *gorm.DB
	ArticleRepo  *repository.ArticleRepository
	QuestionRepo *repository.QuestionRepository
	Agent        *AgentService
	Storage      *StorageService
	Redis        *redis.Client
	Logger       *zap.Logger
}

func NewContentService(db *gorm.DB, articleRepo *repository.ArticleRepository, questionRepo *repository.QuestionRepository, agent *AgentService, storage *StorageService, redisClient *redis.Client, logger *zap.Logger) *ContentService {
	return &ContentService{
		DB:           db,
		ArticleRepo:  articleRepo,
		QuestionRepo: questionRepo,
		Agent:        agent,
		Storage:      storage,
		Redis:        redisClient,
		Logger:       logger,
	}
}

// ParseSections 按行解析课件文本。格式约定：
// 可选的「阅读文章」头行，其后第一行是标题，正文持续到「练习题目」，
// 「跟踪练习」之后是补充题。题目行形如 "1. ..."，选项行形如 "A) ..."，
// "Correct Answer:" 与 "Explanation:" 行收尾一道题。
func (s *ContentService) ParseSections(text string) (*ParsedDocument, error) {
	doc := &ParsedDocument{}

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 && lines[0] == "阅读文章" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return nil, util.NewInvalidState("课件内容为空")
	}

	doc.Title = lines[0]
	section := "article"
	var current *ParsedQuestion
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		if section == "exercises" {
			doc.Exercises = append(doc.Exercises, *current)
		} else {
			doc.Tracking = append(doc.Tracking, *current)
		}
		current = nil
	}

	for _, line := range lines[1:] {
		switch line {
		case sectionExercises:
			flush()
			section = "exercises"
			continue
		case sectionTracking:
			flush()
			section = "tracking"
			continue
		}

		if section == "article" {
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}

		switch {
		case questionLineRe.MatchString(line):
			flush()
			num, _ := strconv.Atoi(strings.SplitN(line, ".", 2)[0])
			current = &ParsedQuestion{
				OrderNumber: num,
				Content:     strings.TrimSpace(questionLineRe.ReplaceAllString(line, "")),
			}
		case current != nil && optionLineRe.MatchString(line):
			current.Options = append(current.Options, model.QuestionOption{
				Key:  line[:1],
				Text: strings.TrimSpace(line[2:]),
			})
		case current != nil && strings.HasPrefix(line, "Correct Answer:"):
			current.Answer = strings.TrimSpace(strings.TrimPrefix(line, "Correct Answer:"))
		case current != nil && strings.HasPrefix(line, "Explanation:"):
			current.Explanation = strings.TrimSpace(strings.TrimPrefix(line, "Explanation:"))
			flush()
		}
	}
	flush()

	doc.Article = body.String()
	if doc.Article == "" {
		return nil, util.NewInvalidState("课件缺少文章正文")
	}
	if len(doc.Exercises) == 0 {
		return nil, util.NewInvalidState("课件缺少练习题目")
	}
	return doc, nil
}

// RenderHTML 正文按段落渲染为 HTML，供前端直接展示
func (s *ContentService) RenderHTML(doc *ParsedDocument) string {
	var buf bytes.Buffer
	buf.WriteString("<h2>")
	buf.WriteString(html.EscapeString(doc.Title))
	buf.WriteString("</h2>")
	for _, para := range strings.Split(doc.Article, "\n") {
		if para = strings.TrimSpace(para); para == "" {
			continue
		}
		buf.WriteString("<p>")
		buf.WriteString(html.EscapeString(para))
		buf.WriteString("</p>")
	}
	return buf.String()
}

// UploadArticle 解析并入库一份课件。文章与全部题目在同一事务中落库，
// 顺序号取当前最大值加一；原始文件归档与知识库开通在事务外尽力完成。
func (s *ContentService) UploadArticle(ctx context.Context, filename string, data []byte, botID string) (*UploadResult, error) {
	doc, err := s.ParseSections(string(data))
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		Title:       doc.Title,
		Content:     doc.Article,
		ContentHTML: s.RenderHTML(doc),
		Level:       1,
		Category:    "reading",
		BotID:       botID,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var max *int
		if err := tx.Model(&model.Article{}).Select("MAX(article_order)").Scan(&max).Error; err != nil {
			return err
		}
		if max != nil {
			article.Order = *max + 1
		} else {
			article.Order = 1
		}

		if err := tx.Create(article).Error; err != nil {
			return err
		}

		// 练习题先落库，补充题按同题号回指对应练习题
		exerciseIDs := make(map[int]string, len(doc.Exercises))
		for _, pq := range doc.Exercises {
			q, err := buildQuestion(article.ID, model.QuestionExercise, pq, nil)
			if err != nil {
				return err
			}
			if err := tx.Create(q).Error; err != nil {
				return err
			}
			exerciseIDs[pq.OrderNumber] = q.ID
		}

		for _, pq := range doc.Tracking {
			var related *string
			if id, ok := exerciseIDs[pq.OrderNumber]; ok {
				related = &id
			}
			q, err := buildQuestion(article.ID, model.QuestionSupplementary, pq, related)
			if err != nil {
				return err
			}
			if err := tx.Create(q).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		ArticleID:     article.ID,
		Title:         article.Title,
		Order:         article.Order,
		ExerciseCount: len(doc.Exercises),
		TrackingCount: len(doc.Tracking),
	}

	if s.Storage != nil {
		archiveName := fmt.Sprintf("articles/%s%s", article.ID, filepath.Ext(filename))
		url, err := s.Storage.Upload(ctx, archiveName, bytes.NewReader(data), int64(len(data)), "text/plain")
		if err != nil {
			s.Logger.Warn("课件原始文件归档失败", zap.String("articleId", article.ID), zap.Error(err))
		} else {
			result.ArchiveURL = url
		}
	}

	if s.Agent != nil && s.Agent.Cfg.BaseURL != "" {
		kbID, err := s.Agent.ProvisionKnowledgeBase(doc.Title, doc.Article)
		if err != nil {
			s.Logger.Warn("知识库开通失败", zap.String("articleId", article.ID), zap.Error(err))
		} else if err := s.DB.Model(&model.Article{}).Where("id = ?", article.ID).
			Update("knowledge_base_id", kbID).Error; err != nil {
			return nil, err
		}
	}

	return result, nil
}

// BatchFile 批量上传中的一份课件
type BatchFile struct {
	Filename string
	Data     []byte
	BotID    string
}

// BatchItemResult 批量上传中单份课件的结果
type BatchItemResult struct {
	Filename string        `json:"filename"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Result   *UploadResult `json:"result,omitempty"`
}

// UploadBatch 逐份处理课件，单份失败不影响其余
func (s *ContentService) UploadBatch(ctx context.Context, files []BatchFile) []BatchItemResult {
	results := make([]BatchItemResult, 0, len(files))
	for _, f := range files {
		item := BatchItemResult{Filename: f.Filename}
		res, err := s.UploadArticle(ctx, f.Filename, f.Data, f.BotID)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Success = true
			item.Result = res
		}
		results = append(results, item)
	}
	return results
}

// CachedArticle 带 Redis 缓存的文章读取，未配置缓存时直查数据库
func (s *ContentService) CachedArticle(ctx context.Context, id string) (*model.Article, error) {
	cacheKey := "article:" + id

	if s.Redis != nil {
		if data, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var article model.Article
			if err := json.Unmarshal([]byte(data), &article); err == nil {
				return &article, nil
			}
		}
	}

	article, err := s.ArticleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(article); err == nil {
			s.Redis.Set(ctx, cacheKey, data, articleCacheTTL)
		}
	}
	return article, nil
}

func buildQuestion(articleID string, qType model.QuestionType, pq ParsedQuestion, related *string) (*model.Question, error) {
	q := &model.Question{
		ArticleID:         articleID,
		Type:              qType,
		OrderNumber:       pq.OrderNumber,
		Content:           pq.Content,
		Answer:            pq.Answer,
		Explanation:       pq.Explanation,
		RelatedQuestionID: related,
	}
	if err := q.SetOptions(pq.Options); err != nil {
		return nil, err
	}
	return q, nil
}

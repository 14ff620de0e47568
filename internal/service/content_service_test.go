package service

import (
	"context"
	"testing"

	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sampleCourseware = `阅读文章
The Little Red Hen

Once upon a time there was a little red hen.
She lived on a farm with her friends.

练习题目
1. Where did the hen live?
A) On a farm
B) In a city
C) In a forest
D) On a boat
Correct Answer: A
Explanation: The story says she lived on a farm.
2. Who lived with the hen?
A) Nobody
B) Her friends
C) A wolf
D) A farmer
Correct Answer: B
Explanation: She lived with her friends.

跟踪练习
1. What color was the hen?
A) Blue
B) Red
C) Green
D) Yellow
Correct Answer: B
Explanation: She is the little red hen.
`

func newContentService(t *testing.T, db *gorm.DB) *ContentService {
	t.Helper()
	return NewContentService(
		db,
		repository.NewArticleRepository(db),
		repository.NewQuestionRepository(db),
		nil,
		nil,
		nil,
		zap.NewNop(),
	)
}

func TestParseSections(t *testing.T) {
	svc := newContentService(t, newTestDB(t))

	doc, err := svc.ParseSections(sampleCourseware)
	require.NoError(t, err)

	assert.Equal(t, "The Little Red Hen", doc.Title)
	assert.Contains(t, doc.Article, "little red hen")
	assert.Contains(t, doc.Article, "her friends")

	require.Len(t, doc.Exercises, 2)
	q := doc.Exercises[0]
	assert.Equal(t, 1, q.OrderNumber)
	assert.Equal(t, "Where did the hen live?", q.Content)
	require.Len(t, q.Options, 4)
	assert.Equal(t, "A", q.Options[0].Key)
	assert.Equal(t, "On a farm", q.Options[0].Text)
	assert.Equal(t, "A", q.Answer)
	assert.Equal(t, "The story says she lived on a farm.", q.Explanation)

	require.Len(t, doc.Tracking, 1)
	assert.Equal(t, "B", doc.Tracking[0].Answer)
}

func TestParseSectionsRejectsInvalidContent(t *testing.T) {
	svc := newContentService(t, newTestDB(t))

	_, err := svc.ParseSections("")
	require.Error(t, err)

	// 只有正文没有练习题
	_, err = svc.ParseSections("标题\n正文第一段\n正文第二段")
	require.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	svc := newContentService(t, newTestDB(t))

	html := svc.RenderHTML(&ParsedDocument{
		Title:   "A <Tale>",
		Article: "First paragraph.\nSecond & third.\n",
	})
	assert.Contains(t, html, "<h2>A &lt;Tale&gt;</h2>")
	assert.Contains(t, html, "<p>First paragraph.</p>")
	assert.Contains(t, html, "<p>Second &amp; third.</p>")
}

func TestUploadArticleAssignsOrderAndLinksQuestions(t *testing.T) {
	db := newTestDB(t)
	svc := newContentService(t, db)

	result, err := svc.UploadArticle(context.Background(), "hen.txt", []byte(sampleCourseware), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Order)
	assert.Equal(t, 2, result.ExerciseCount)
	assert.Equal(t, 1, result.TrackingCount)

	// 第二次上传顺延顺序号
	second, err := svc.UploadArticle(context.Background(), "hen2.txt", []byte(sampleCourseware), "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Order)

	// 补充题回指同题号的练习题
	var sup model.Question
	require.NoError(t, db.Where("article_id = ? AND type = ?", result.ArticleID, model.QuestionSupplementary).
		First(&sup).Error)
	require.NotNil(t, sup.RelatedQuestionID)

	var ex model.Question
	require.NoError(t, db.Where("id = ?", *sup.RelatedQuestionID).First(&ex).Error)
	assert.Equal(t, model.QuestionExercise, ex.Type)
	assert.Equal(t, sup.OrderNumber, ex.OrderNumber)

	var article model.Article
	require.NoError(t, db.Where("id = ?", result.ArticleID).First(&article).Error)
	assert.Equal(t, "The Little Red Hen", article.Title)
	assert.Contains(t, article.ContentHTML, "<h2>")
}

func TestUploadBatchContinuesPastFailures(t *testing.T) {
	db := newTestDB(t)
	svc := newContentService(t, db)

	results := svc.UploadBatch(context.Background(), []BatchFile{
		{Filename: "good.txt", Data: []byte(sampleCourseware)},
		{Filename: "bad.txt", Data: []byte("只有标题没有题目")},
		{Filename: "good2.txt", Data: []byte(sampleCourseware)},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Success)

	var count int64
	db.Model(&model.Article{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestCachedArticleWithoutRedisFallsThrough(t *testing.T) {
	db := newTestDB(t)
	svc := newContentService(t, db)

	result, err := svc.UploadArticle(context.Background(), "hen.txt", []byte(sampleCourseware), "")
	require.NoError(t, err)

	article, err := svc.CachedArticle(context.Background(), result.ArticleID)
	require.NoError(t, err)
	assert.Equal(t, result.ArticleID, article.ID)

	_, err = svc.CachedArticle(context.Background(), "missing")
	require.Error(t, err)
}

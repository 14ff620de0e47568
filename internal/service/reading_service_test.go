package service

import (
	"fmt"
	"strings"
	"testing"

	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/repository"
	"reading_edu_backend/internal/util"
	"reading_edu_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testCurriculum() config.CurriculumConfig {
	return config.CurriculumConfig{
		TotalRounds:      2,
		ScorePerQuestion: 20,
		ProgressStep:     20,
		PointsPerArticle: 5,
	}
}

func newTestService(t *testing.T, db *gorm.DB, curriculum config.CurriculumConfig) *ReadingService {
	t.Helper()
	return NewReadingService(
		repository.NewUserRepository(db),
		repository.NewArticleRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewProgressRepository(db),
		repository.NewSessionRepository(db),
		repository.NewRoundRepository(db),
		repository.NewAnswerRecordRepository(db),
		curriculum,
		db,
	)
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{
		Code:     "000042",
		Nickname: "小明",
		Email:    "xiaoming@example.com",
		Password: "hashed",
		Role:     model.Student,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedCourse 写入 articleCount 篇文章，每篇 perType 道练习题（答案 A）
// 和 perType 道对应的跟踪练习（答案 B）
func seedCourse(t *testing.T, db *gorm.DB, articleCount, perType int) []model.Article {
	t.Helper()
	articles := make([]model.Article, 0, articleCount)
	for i := 1; i <= articleCount; i++ {
		article := model.Article{
			Order:   i,
			Title:   fmt.Sprintf("Article %d", i),
			Content: fmt.Sprintf("Body of article %d.", i),
		}
		require.NoError(t, db.Create(&article).Error)

		for n := 1; n <= perType; n++ {
			ex := model.Question{
				ArticleID:   article.ID,
				Type:        model.QuestionExercise,
				OrderNumber: n,
				Content:     fmt.Sprintf("Exercise %d of article %d", n, i),
				Answer:      "A",
			}
			require.NoError(t, ex.SetOptions([]model.QuestionOption{
				{Key: "A", Text: "right"},
				{Key: "B", Text: "wrong"},
			}))
			require.NoError(t, db.Create(&ex).Error)

			sup := model.Question{
				ArticleID:         article.ID,
				Type:              model.QuestionSupplementary,
				OrderNumber:       n,
				Content:           fmt.Sprintf("Supplementary %d of article %d", n, i),
				Answer:            "B",
				RelatedQuestionID: &ex.ID,
			}
			require.NoError(t, sup.SetOptions([]model.QuestionOption{
				{Key: "A", Text: "wrong"},
				{Key: "B", Text: "right"},
			}))
			require.NoError(t, db.Create(&sup).Error)
		}
		articles = append(articles, article)
	}
	return articles
}

func TestGetProgressBootstrapsFirstSession(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	articles := seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	view, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusInProgress, view.Status)
	require.NotNil(t, view.Session)
	assert.Equal(t, articles[0].ID, view.Session.CurrentArticleID)
	assert.Equal(t, model.QuestionExercise, view.Session.CurrentQuestionType)
	assert.Equal(t, 1, view.Session.CurrentQuestionIndex)
	assert.Equal(t, 1, view.Session.CurrentRound)

	require.NotNil(t, view.CurrentQuestion)
	assert.Equal(t, 1, view.CurrentQuestion.QuestionNumber)
	assert.Equal(t, model.QuestionExercise, view.CurrentQuestion.QuestionType)
	assert.Len(t, view.CurrentQuestion.Options, 2)

	require.NotNil(t, view.Progress)
	assert.Equal(t, 0, view.Progress.ProgressPercent)

	// 首轮记录已建立
	var round model.StudyRound
	require.NoError(t, db.Where("session_id = ? AND round_number = ?", view.Session.ID, 1).First(&round).Error)
	assert.Equal(t, 0, round.TotalScore)
}

func TestGetProgressIsIdempotentWithoutNewAnswers(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	first, err := svc.GetProgress(user.ID)
	require.NoError(t, err)
	second, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Equal(t, first.Session.CurrentQuestionIndex, second.Session.CurrentQuestionIndex)
	assert.Equal(t, first.CurrentQuestion.ID, second.CurrentQuestion.ID)

	var sessionCount int64
	db.Model(&model.ReadingSession{}).Where("user_id = ?", user.ID).Count(&sessionCount)
	assert.EqualValues(t, 1, sessionCount)
}

func TestProcessAnswerCorrectExercise(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	result, err := svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)

	assert.Equal(t, StatusAnswerProcessed, result.Status)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 20, result.Score)
	assert.Equal(t, 20, result.NewProgressPercent)
	assert.Equal(t, model.QuestionExercise, result.NextQuestionType)
	assert.Equal(t, 2, result.Session.CurrentQuestionIndex)
	assert.Equal(t, 20, result.Round.TotalScore)

	require.NotNil(t, result.AnswerRecord)
	assert.Equal(t, 1, result.AnswerRecord.ArticleOrder)
	assert.Equal(t, 60, result.AnswerRecord.TimeSpent)
}

func TestProcessAnswerWrongExerciseInsertsRemediation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	// 练习题答错：进度不动，切到同题号补充题
	result, err := svc.ProcessAnswer(user.ID, "B")
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0, result.NewProgressPercent)
	assert.Equal(t, model.QuestionSupplementary, result.NextQuestionType)
	assert.Equal(t, 1, result.Session.CurrentQuestionIndex)
	assert.Equal(t, 0, result.Round.TotalScore)

	// 补充题答错也回练习层并计进度
	result, err = svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 20, result.NewProgressPercent)
	assert.Equal(t, model.QuestionExercise, result.NextQuestionType)
	assert.Equal(t, 2, result.Session.CurrentQuestionIndex)
}

func TestProcessAnswerSupplementaryCorrectScores(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	_, err = svc.ProcessAnswer(user.ID, "B") // 练习题答错
	require.NoError(t, err)
	result, err := svc.ProcessAnswer(user.ID, "B") // 补充题答对
	require.NoError(t, err)

	assert.True(t, result.IsCorrect)
	assert.Equal(t, 20, result.Score)
	assert.Equal(t, 20, result.NewProgressPercent)
	assert.Equal(t, 20, result.Round.TotalScore)
	assert.Equal(t, model.QuestionExercise, result.NextQuestionType)
}

// 做完一篇文章的所有练习题后，下一次提交触发文章流转
func TestProcessAnswerAdvancesToNextArticle(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	articles := seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := svc.ProcessAnswer(user.ID, "A")
		require.NoError(t, err)
		assert.Equal(t, StatusAnswerProcessed, result.Status)
	}

	// 指针已越界，这次提交只做流转不判分
	result, err := svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, StatusNextArticle, result.Status)
	require.NotNil(t, result.NextArticle)
	assert.Equal(t, articles[1].ID, result.NextArticle.ID)
	assert.Equal(t, model.QuestionExercise, result.Session.CurrentQuestionType)
	assert.Equal(t, 1, result.Session.CurrentQuestionIndex)
	assert.Equal(t, 1, result.Session.CurrentRound)

	// 新文章的进度记录已建立
	var progress model.ReadingProgress
	require.NoError(t, db.Where("user_id = ? AND article_id = ?", user.ID, articles[1].ID).First(&progress).Error)
	assert.Equal(t, 0, progress.ProgressPercent)
}

func TestProcessAnswerRoundAndSessionCompletion(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	articles := seedCourse(t, db, 1, 1)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	// 第一轮：做完唯一一题，下一次提交触发轮次流转（TotalRounds=2）
	_, err = svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	result, err := svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, StatusNextRound, result.Status)
	require.NotNil(t, result.NewRound)
	assert.Equal(t, 2, result.NewRound.RoundNumber)
	assert.Equal(t, 2, result.Session.CurrentRound)
	assert.Equal(t, articles[0].ID, result.Session.CurrentArticleID)
	assert.Equal(t, 1, result.Session.CurrentQuestionIndex)

	// 第二轮：再做完，会话完结
	_, err = svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	result, err = svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, StatusSessionCompleted, result.Status)
	assert.Equal(t, model.SessionCompleted, result.Session.Status)
	require.NotNil(t, result.Session.EndTime)

	// 之后的状态解析返回课程完结
	view, err := svc.GetProgress(user.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAllCompleted, view.Status)

	// 完结后继续提交被拒绝
	_, err = svc.ProcessAnswer(user.ID, "A")
	require.Error(t, err)
	appErr := util.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, util.KindInvalidState, appErr.Kind)
}

func TestProgressPercentNeverDecreasesAndCapsAt100(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 1, 6)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	last := 0
	for i := 0; i < 6; i++ {
		result, err := svc.ProcessAnswer(user.ID, "A")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.NewProgressPercent, last)
		assert.LessOrEqual(t, result.NewProgressPercent, 100)
		last = result.NewProgressPercent
	}
	assert.Equal(t, 100, last)
}

func TestProcessAnswerUnknownUser(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, 1, 1)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.ProcessAnswer("no-such-user", "A")
	require.Error(t, err)
	appErr := util.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, util.KindNotFound, appErr.Kind)
}

func TestGetRoundScore(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	// 还没有会话：全零但满分已知（5 分 × 2 篇）
	score, err := svc.GetRoundScore(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, score.TotalScore)
	assert.Equal(t, 10, score.MaxPossibleScore)
	assert.Equal(t, 0, score.AnsweredQuestions)

	_, err = svc.GetProgress(user.ID)
	require.NoError(t, err)
	_, err = svc.ProcessAnswer(user.ID, "A") // 对
	require.NoError(t, err)
	_, err = svc.ProcessAnswer(user.ID, "B") // 错
	require.NoError(t, err)

	score, err = svc.GetRoundScore(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, score.TotalScore)
	assert.Equal(t, 10, score.MaxPossibleScore)
	assert.Equal(t, 2, score.AnsweredQuestions)
	assert.Equal(t, 1, score.CorrectAnswers)
}

func TestCheckAnswerDoesNotAdvancePointer(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	view, err := svc.GetProgress(user.ID)
	require.NoError(t, err)
	questionID := view.CurrentQuestion.ID

	result, err := svc.CheckAnswer(user.ID, questionID, "B")
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0, result.Score)
	require.NotNil(t, result.SupplementaryQuestion)
	assert.Equal(t, model.QuestionSupplementary, result.SupplementaryQuestion.Type)
	assert.Equal(t, 1, result.SupplementaryQuestion.OrderNumber)

	// 指针原地不动
	after, err := svc.GetProgress(user.ID)
	require.NoError(t, err)
	assert.Equal(t, questionID, after.CurrentQuestion.ID)

	// 答题记录照常落库
	var count int64
	db.Model(&model.AnswerRecord{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCheckAnswerCorrectIncrementsRoundScore(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	seedCourse(t, db, 2, 2)
	svc := newTestService(t, db, testCurriculum())

	view, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	result, err := svc.CheckAnswer(user.ID, view.CurrentQuestion.ID, "A")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 20, result.Score)
	assert.Nil(t, result.SupplementaryQuestion)

	score, err := svc.GetRoundScore(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, score.TotalScore)
}

func TestGetArticleFollowsSessionState(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	articles := seedCourse(t, db, 2, 1)
	svc := newTestService(t, db, testCurriculum())

	_, err := svc.GetProgress(user.ID)
	require.NoError(t, err)

	article, err := svc.GetArticle(user.ID)
	require.NoError(t, err)
	assert.Equal(t, articles[0].ID, article.ID)

	// 做完第一篇的练习题：指针越界但尚未流转，应预告下一篇
	_, err = svc.ProcessAnswer(user.ID, "A")
	require.NoError(t, err)
	article, err = svc.GetArticle(user.ID)
	require.NoError(t, err)
	assert.Equal(t, articles[1].ID, article.ID)
}

func TestGetArticleQuestionsMapping(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db)
	articles := seedCourse(t, db, 1, 2)
	svc := newTestService(t, db, testCurriculum())

	exercises, err := svc.GetArticleQuestions(articles[0].ID, model.QuestionExercise)
	require.NoError(t, err)
	require.Len(t, exercises, 2)
	require.Len(t, exercises[0].MappedQuestions, 1)
	assert.Equal(t, model.QuestionSupplementary, exercises[0].MappedQuestions[0].Type)
	assert.Equal(t, exercises[0].OrderNumber, exercises[0].MappedQuestions[0].OrderNumber)

	supplementary, err := svc.GetArticleQuestions(articles[0].ID, model.QuestionSupplementary)
	require.NoError(t, err)
	require.Len(t, supplementary, 2)
	require.NotNil(t, supplementary[0].RelatedQuestion)
	assert.Equal(t, exercises[0].ID, supplementary[0].RelatedQuestion.ID)
}

func TestNextPointer(t *testing.T) {
	cases := []struct {
		name       string
		qType      model.QuestionType
		isCorrect  bool
		index      int
		wantType   model.QuestionType
		wantIndex  int
		wantCredit bool
	}{
		{"练习题答对", model.QuestionExercise, true, 1, model.QuestionExercise, 2, true},
		{"练习题答错", model.QuestionExercise, false, 3, model.QuestionSupplementary, 3, false},
		{"补充题答对", model.QuestionSupplementary, true, 2, model.QuestionExercise, 3, true},
		{"补充题答错", model.QuestionSupplementary, false, 2, model.QuestionExercise, 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotType, gotIndex, gotCredit := nextPointer(tc.qType, tc.isCorrect, tc.index)
			assert.Equal(t, tc.wantType, gotType)
			assert.Equal(t, tc.wantIndex, gotIndex)
			assert.Equal(t, tc.wantCredit, gotCredit)
		})
	}
}

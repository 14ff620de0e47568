package service

import (
	"testing"

	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/repository"
	"reading_edu_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAgentService(db *gorm.DB) *AgentService {
	return NewAgentService(
		config.AgentConfig{BaseURL: "http://agent.invalid"},
		repository.NewSessionRepository(db),
		repository.NewProgressRepository(db),
		repository.NewBotRepository(db),
	)
}

func TestGetCurrentBotResolvesBoundBot(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)

	bot := &model.Bot{Name: "Reading Bot", ChatKey: "app-key-1"}
	require.NoError(t, db.Create(bot).Error)

	article := &model.Article{Order: 1, Title: "Article 1", Content: "Body.", BotID: bot.ID}
	require.NoError(t, db.Create(article).Error)

	session := &model.ReadingSession{
		UserID:               user.ID,
		Status:               model.SessionInProgress,
		CurrentArticleID:     article.ID,
		CurrentQuestionType:  model.QuestionExercise,
		CurrentQuestionIndex: 1,
		CurrentRound:         1,
		StartTime:            nowFunc(),
	}
	require.NoError(t, db.Create(session).Error)

	progress := &model.ReadingProgress{
		UserID:          user.ID,
		ArticleID:       article.ID,
		ProgressPercent: 40,
		ConversationID:  "conv_123",
		LastReadAt:      nowFunc(),
	}
	require.NoError(t, db.Create(progress).Error)

	svc := newAgentService(db)
	info, err := svc.GetCurrentBot(user.ID)
	require.NoError(t, err)

	assert.Equal(t, bot.ID, info.Bot.ID)
	assert.Equal(t, article.ID, info.Article.ID)
	assert.Equal(t, "conv_123", info.ConversationID)
	assert.Equal(t, 40, info.ProgressPercent)
}

func TestGetCurrentBotWithoutActiveSession(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)

	svc := newAgentService(db)
	_, err := svc.GetCurrentBot(user.ID)
	require.Error(t, err)

	appErr := util.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, util.KindInvalidState, appErr.Kind)
}

// 会话存在但尚未指向任何文章时拒绝定位机器人
func TestGetCurrentBotWithDetachedArticlePointer(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)

	session := &model.ReadingSession{
		UserID:       user.ID,
		Status:       model.SessionInProgress,
		CurrentRound: 1,
		StartTime:    nowFunc(),
	}
	require.NoError(t, db.Create(session).Error)

	svc := newAgentService(db)
	_, err := svc.GetCurrentBot(user.ID)
	require.Error(t, err)

	appErr := util.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, util.KindInvalidState, appErr.Kind)
}

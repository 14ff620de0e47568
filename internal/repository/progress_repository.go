package repository

import (
	"time"

	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// FindLatestByUser 用户最近一次阅读的进度记录（含文章）
func (r *ProgressRepository) FindLatestByUser(userID string) (*model.ReadingProgress, error) {
	var progress model.ReadingProgress
	err := r.DB.Where("user_id = ?", userID).
		Order("last_read_at desc").
		Preload("Article").
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) FindByUserAndArticle(userID, articleID string) (*model.ReadingProgress, error) {
	var progress model.ReadingProgress
	err := r.DB.Where("user_id = ? AND article_id = ?", userID, articleID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) Create(progress *model.ReadingProgress) error {
	return r.DB.Create(progress).Error
}

func (r *ProgressRepository) Save(progress *model.ReadingProgress) error {
	return r.DB.Save(progress).Error
}

// UpdateConversationID 聊天集成模块回写外部会话引用，引擎不解释其内容
func (r *ProgressRepository) UpdateConversationID(progressID, conversationID string) error {
	return r.DB.Model(&model.ReadingProgress{}).
		Where("id = ?", progressID).
		Updates(map[string]interface{}{
			"conversation_id": conversationID,
			"last_read_at":    time.Now(),
		}).Error
}

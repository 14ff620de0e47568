package model

import "time"

// ReadingProgress 学生在单篇文章上的累计进度，(user_id, article_id) 唯一。
// ConversationID 由聊天集成模块读写，引擎只负责保存。
// swagger:model ReadingProgress
type ReadingProgress struct {
	UUIDBase

	UserID          string    `gorm:"type:varchar(36);index:idx_user_article,unique" json:"userId"`
	ArticleID       string    `gorm:"type:varchar(36);index:idx_user_article,unique" json:"articleId"`
	ProgressPercent int       `gorm:"default:0" json:"progressPercent"`
	LastReadAt      time.Time `gorm:"index" json:"lastReadAt"`
	ConversationID  string    `gorm:"type:varchar(64)" json:"conversationId"`

	Article *Article `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
}

func (ReadingProgress) TableName() string {
	return "reading_progresses"
}

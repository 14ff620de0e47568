package model

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
)

// ReadingSession 每个学生同一时刻只有一条 IN_PROGRESS 会话，
// 指针四元组（文章、题型、题号、轮次）是"下一题是什么"的唯一事实来源。
// swagger:model ReadingSession
type ReadingSession struct {
	UUIDBase

	UserID               string        `gorm:"type:varchar(36);index" json:"userId"`
	Status               SessionStatus `gorm:"type:varchar(16);default:IN_PROGRESS;index" json:"status"`
	CurrentArticleID     string        `gorm:"type:varchar(36)" json:"currentArticleId"`
	CurrentQuestionType  QuestionType  `gorm:"type:varchar(16);default:EXERCISE" json:"currentQuestionType"`
	CurrentQuestionIndex int           `gorm:"default:1" json:"currentQuestionIndex"`
	CurrentRound         int           `gorm:"default:1" json:"currentRound"`
	StartTime            time.Time     `json:"startTime"`
	EndTime              *time.Time    `json:"endTime,omitempty"`

	CurrentArticle *Article `gorm:"foreignKey:CurrentArticleID" json:"currentArticle,omitempty"`
}

func (ReadingSession) TableName() string {
	return "reading_sessions"
}

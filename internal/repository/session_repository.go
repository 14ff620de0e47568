package repository

import (
	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// FindActiveByUser 用户当前的 IN_PROGRESS 会话（含当前文章）
func (r *SessionRepository) FindActiveByUser(userID string) (*model.ReadingSession, error) {
	var session model.ReadingSession
	err := r.DB.Where("user_id = ? AND status = ?", userID, model.SessionInProgress).
		Preload("CurrentArticle").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLatestByUser 不限状态的最近一条会话，用于判断课程是否已全部完成
func (r *SessionRepository) FindLatestByUser(userID string) (*model.ReadingSession, error) {
	var session model.ReadingSession
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at desc").
		Preload("CurrentArticle").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(session *model.ReadingSession) error {
	return r.DB.Create(session).Error
}

func (r *SessionRepository) Save(session *model.ReadingSession) error {
	return r.DB.Save(session).Error
}

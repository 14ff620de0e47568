package repository

import (
	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type RoundRepository struct {
	DB *gorm.DB
}

func NewRoundRepository(db *gorm.DB) *RoundRepository {
	return &RoundRepository{DB: db}
}

func (r *RoundRepository) FindByID(id string) (*model.StudyRound, error) {
	var round model.StudyRound
	err := r.DB.Where("id = ?", id).First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *RoundRepository) FindBySessionAndNumber(sessionID string, roundNumber int) (*model.StudyRound, error) {
	var round model.StudyRound
	err := r.DB.Where("session_id = ? AND round_number = ?", sessionID, roundNumber).
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *RoundRepository) Create(round *model.StudyRound) error {
	return r.DB.Create(round).Error
}

// IncrementScore 用 SQL 表达式原子加分，重试下不会重复累计
func (r *RoundRepository) IncrementScore(roundID string, delta int) error {
	return r.DB.Model(&model.StudyRound{}).
		Where("id = ?", roundID).
		Update("total_score", gorm.Expr("total_score + ?", delta)).Error
}

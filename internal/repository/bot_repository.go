package repository

import (
	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type BotRepository struct {
	DB *gorm.DB
}

func NewBotRepository(db *gorm.DB) *BotRepository {
	return &BotRepository{DB: db}
}

func (r *BotRepository) FindByID(id string) (*model.Bot, error) {
	var bot model.Bot
	err := r.DB.Where("id = ?", id).First(&bot).Error
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *BotRepository) FindByChatKey(chatKey string) (*model.Bot, error) {
	var bot model.Bot
	err := r.DB.Where("chat_key = ?", chatKey).First(&bot).Error
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *BotRepository) Create(bot *model.Bot) error {
	return r.DB.Create(bot).Error
}

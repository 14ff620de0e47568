package repository

import (
	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) FindByID(id string) (*model.Question, error) {
	var question model.Question
	err := r.DB.Where("id = ?", id).First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// FindByPointer 按会话指针 (文章, 题型, 题号) 定位当前题目
func (r *QuestionRepository) FindByPointer(articleID string, qType model.QuestionType, orderNumber int) (*model.Question, error) {
	var question model.Question
	err := r.DB.Where("article_id = ? AND type = ? AND order_number = ?", articleID, qType, orderNumber).
		First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) ListByArticle(articleID string, qType model.QuestionType) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("article_id = ? AND type = ?", articleID, qType).
		Order("order_number asc").
		Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) CountByArticleAndType(articleID string, qType model.QuestionType) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).
		Where("article_id = ? AND type = ?", articleID, qType).
		Count(&count).Error
	return count, err
}

// MappedSupplementary 练习题对应的补充题列表，按题号排序
func (r *QuestionRepository) MappedSupplementary(questionID string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("related_question_id = ?", questionID).
		Order("order_number asc").
		Find(&questions).Error
	return questions, err
}

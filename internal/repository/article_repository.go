package repository

import (
	"reading_edu_backend/internal/model"

	"gorm.io/gorm"
)

type ArticleRepository struct {
	DB *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{DB: db}
}

func (r *ArticleRepository) FindByID(id string) (*model.Article, error) {
	var article model.Article
	err := r.DB.Where("id = ?", id).First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// FindFirst 按阅读顺序返回课程的第一篇文章
func (r *ArticleRepository) FindFirst() (*model.Article, error) {
	var article model.Article
	err := r.DB.Order("article_order asc").First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// FindNextAfter 返回顺序号严格大于 order 的下一篇文章
func (r *ArticleRepository) FindNextAfter(order int) (*model.Article, error) {
	var article model.Article
	err := r.DB.Where("article_order > ?", order).
		Order("article_order asc").
		First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *ArticleRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Article{}).Count(&count).Error
	return count, err
}

// MaxOrder 当前最大顺序号，空课程返回 0
func (r *ArticleRepository) MaxOrder() (int, error) {
	var max *int
	err := r.DB.Model(&model.Article{}).
		Select("MAX(article_order)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

package model

import "encoding/json"

type QuestionType string

const (
	QuestionExercise      QuestionType = "EXERCISE"
	QuestionSupplementary QuestionType = "SUPPLEMENTARY"
)

// QuestionOption 单个选项，Key 为选项标识（如 "A"），Text 为选项内容
type QuestionOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question 文章题目。(article_id, type, order_number) 唯一定位一道题。
// 补充题通过 related_question_id 指回它所补救的练习题。
// swagger:model Question
type Question struct {
	UUIDBase

	ArticleID   string       `gorm:"type:varchar(36);index:idx_article_type_order,unique" json:"articleId"`
	Type        QuestionType `gorm:"type:varchar(16);index:idx_article_type_order,unique" json:"type"`
	OrderNumber int          `gorm:"index:idx_article_type_order,unique" json:"orderNumber"`
	Content     string       `gorm:"type:text" json:"content"`
	Options     string       `gorm:"type:json" json:"-"`
	Answer      string       `gorm:"type:varchar(16)" json:"-"`
	Explanation string       `gorm:"type:text" json:"explanation"`

	RelatedQuestionID *string `gorm:"type:varchar(36);index" json:"relatedQuestionId,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) SetOptions(opts []QuestionOption) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	q.Options = string(data)
	return nil
}

func (q *Question) GetOptions() ([]QuestionOption, error) {
	if q.Options == "" {
		return nil, nil
	}
	var opts []QuestionOption
	if err := json.Unmarshal([]byte(q.Options), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

package model

// AnswerRecord 答题流水，只追加，创建后不再修改
// swagger:model AnswerRecord
type AnswerRecord struct {
	UUIDBase

	RoundID      string `gorm:"type:varchar(36);index" json:"roundId"`
	QuestionID   string `gorm:"type:varchar(36);index" json:"questionId"`
	ProgressID   string `gorm:"type:varchar(36);index" json:"progressId"`
	Answer       string `gorm:"type:varchar(255)" json:"answer"`
	IsCorrect    bool   `json:"isCorrect"`
	Score        int    `json:"score"`
	ArticleOrder int    `json:"articleOrder"`
	TimeSpent    int    `json:"timeSpent"`
}

func (AnswerRecord) TableName() string {
	return "answer_records"
}

package model

// StudyRound 会话内的一轮学习，(session_id, round_number) 唯一，
// total_score 只按答对一次 +20 递增
// swagger:model StudyRound
type StudyRound struct {
	UUIDBase

	SessionID   string `gorm:"type:varchar(36);index:idx_session_round,unique" json:"sessionId"`
	RoundNumber int    `gorm:"index:idx_session_round,unique" json:"roundNumber"`
	TotalScore  int    `gorm:"default:0" json:"totalScore"`
}

func (StudyRound) TableName() string {
	return "study_rounds"
}

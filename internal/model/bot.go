package model

// Bot 文章绑定的对话机器人（外部智能体平台上的应用）
// swagger:model Bot
type Bot struct {
	UUIDBase

	Name        string `gorm:"type:varchar(64)" json:"name"`
	ChatKey     string `gorm:"uniqueIndex;type:varchar(128)" json:"chatKey"`
	Description string `gorm:"type:varchar(255)" json:"description"`
}

func (Bot) TableName() string {
	return "bots"
}

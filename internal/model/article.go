package model

// Article 阅读文章，order 定义全课程的阅读顺序，由导入模块创建后只读
// swagger:model Article
type Article struct {
	UUIDBase

	Order       int    `gorm:"uniqueIndex;column:article_order" json:"order"`
	Title       string `gorm:"type:varchar(255)" json:"title"`
	Content     string `gorm:"type:longtext" json:"content"`
	ContentHTML string `gorm:"type:longtext" json:"contentHtml"`
	Level       int    `gorm:"default:1" json:"level"`
	Category    string `gorm:"type:varchar(64)" json:"category"`

	// 外部智能体平台侧的知识库与机器人引用，引擎只保存不解释
	KnowledgeBaseID string `gorm:"type:varchar(64)" json:"knowledgeBaseId"`
	BotID           string `gorm:"type:varchar(36);index" json:"botId"`
}

func (Article) TableName() string {
	return "articles"
}

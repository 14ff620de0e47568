package database

import (
	"fmt"
	"log"

	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := SeedDefaults(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Bot{},
		&model.Article{},
		&model.Question{},
		&model.ReadingProgress{},
		&model.ReadingSession{},
		&model.StudyRound{},
		&model.AnswerRecord{},
	)
}

// SeedDefaults 空库时写入示例课程：两个机器人、两篇文章、每篇五道练习题和
// 五道对应的跟踪练习，以及一个学生测试账号
func SeedDefaults(db *gorm.DB) error {
	var botCount int64
	db.Model(&model.Bot{}).Count(&botCount)
	if botCount == 0 {
		bots := []model.Bot{
			{Name: "Reading Bot 1", ChatKey: "app-reading-bot-1", Description: "第一篇文章的讲解机器人"},
			{Name: "Reading Bot 2", ChatKey: "app-reading-bot-2", Description: "第二篇文章的讲解机器人"},
		}
		for i := range bots {
			if err := db.Create(&bots[i]).Error; err != nil {
				return err
			}
		}

		articles := []model.Article{
			{
				Order:           1,
				Title:           "Introduction to English",
				Content:         "This is the first article content...",
				ContentHTML:     "<p>This is the first article content...</p>",
				Level:           1,
				Category:        "Basic",
				KnowledgeBaseID: "kb_001",
				BotID:           bots[0].ID,
			},
			{
				Order:           2,
				Title:           "Intermediate English",
				Content:         "This is the second article content...",
				ContentHTML:     "<p>This is the second article content...</p>",
				Level:           2,
				Category:        "Intermediate",
				KnowledgeBaseID: "kb_002",
				BotID:           bots[1].ID,
			},
		}
		for i := range articles {
			if err := db.Create(&articles[i]).Error; err != nil {
				return err
			}
			if err := seedQuestions(db, &articles[i]); err != nil {
				return err
			}
		}
	}

	var userCount int64
	db.Model(&model.User{}).Count(&userCount)
	if userCount == 0 {
		// 默认口令 123456，仅用于开发环境
		hashed, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		users := []model.User{
			{Code: "000001", Nickname: "Admin", Email: "admin@example.com", Password: string(hashed), Role: model.Admin},
			{Code: "000002", Nickname: "Teacher", Email: "teacher@example.com", Password: string(hashed), Role: model.Teacher},
			{Code: "000003", Nickname: "Student", Email: "student@example.com", Password: string(hashed), Role: model.Student},
		}
		for i := range users {
			if err := db.Create(&users[i]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func seedQuestions(db *gorm.DB, article *model.Article) error {
	options := []model.QuestionOption{
		{Key: "A", Text: "Option A"},
		{Key: "B", Text: "Option B"},
		{Key: "C", Text: "Option C"},
		{Key: "D", Text: "Option D"},
	}

	for i := 1; i <= 5; i++ {
		exercise := model.Question{
			ArticleID:   article.ID,
			Type:        model.QuestionExercise,
			OrderNumber: i,
			Content:     fmt.Sprintf("Exercise question %d for %s", i, article.Title),
			Answer:      "A",
			Explanation: fmt.Sprintf("Explanation for exercise question %d", i),
		}
		if err := exercise.SetOptions(options); err != nil {
			return err
		}
		if err := db.Create(&exercise).Error; err != nil {
			return err
		}

		supplementary := model.Question{
			ArticleID:         article.ID,
			Type:              model.QuestionSupplementary,
			OrderNumber:       i,
			Content:           fmt.Sprintf("Supplementary question %d for %s", i, article.Title),
			Answer:            "B",
			Explanation:       fmt.Sprintf("Explanation for supplementary question %d", i),
			RelatedQuestionID: &exercise.ID,
		}
		if err := supplementary.SetOptions(options); err != nil {
			return err
		}
		if err := db.Create(&supplementary).Error; err != nil {
			return err
		}
	}

	return nil
}

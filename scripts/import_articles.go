// 手动批量导入课件脚本
//
// 课件导入已有 HTTP 接口（/api/articles/upload/batch），此脚本用于
// 首次部署时从本地目录灌入课件，不经过 HTTP 层。
//
// 用法: go run scripts/import_articles.go <课件目录>

package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/repository"
	"reading_edu_backend/internal/service"
	"reading_edu_backend/pkg/database"
	"reading_edu_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("用法: go run scripts/import_articles.go <课件目录>")
	}
	dir := os.Args[1]

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	content := service.NewContentService(
		db,
		repository.NewArticleRepository(db),
		repository.NewQuestionRepository(db),
		nil,
		nil,
		nil,
		logger.Log,
	)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("无法读取课件目录: %v", err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("跳过 %s: %v", entry.Name(), err)
			continue
		}
		result, err := content.UploadArticle(context.Background(), entry.Name(), raw, "")
		if err != nil {
			log.Printf("导入 %s 失败: %v", entry.Name(), err)
			continue
		}
		log.Printf("已导入 %s (order=%d, 练习题=%d, 跟踪练习=%d)",
			result.Title, result.Order, result.ExerciseCount, result.TrackingCount)
		imported++
	}

	log.Printf("完成，共导入 %d 篇课件", imported)
}

package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/repository"
	"reading_edu_backend/internal/util"
)

// AgentService 对接外部对话智能体平台：学生端消息中转、文章知识库与机器人的开通
type AgentService struct {
	Cfg          config.AgentConfig
	SessionRepo  *repository.SessionRepository
	ProgressRepo *repository.ProgressRepository
	BotRepo      *repository.BotRepository
	client       *http.Client
}

func NewAgentService(cfg config.AgentConfig, sessionRepo *repository.SessionRepository, progressRepo *repository.ProgressRepository, botRepo *repository.BotRepository) *AgentService {
	return &AgentService{
		Cfg:          cfg,
		SessionRepo:  sessionRepo,
		ProgressRepo: progressRepo,
		BotRepo:      botRepo,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

// ChatMessageReply 平台的阻塞式应答
type ChatMessageReply struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Answer         string `json:"answer"`
}

// CurrentBotInfo 当前会话指针指向的文章所绑定的机器人及上下文
type CurrentBotInfo struct {
	Bot     *model.Bot            `json:"bot"`
	Article *model.Article        `json:"article"`
	Session *model.ReadingSession `json:"session"`

	ConversationID  string `json:"conversationId"`
	ProgressPercent int    `json:"progressPercent"`
}

// GetCurrentBot 根据活跃会话定位当前文章绑定的机器人
func (s *AgentService) GetCurrentBot(userID string) (*CurrentBotInfo, error) {
	session, err := s.SessionRepo.FindActiveByUser(userID)
	if err != nil {
		return nil, util.NewInvalidState("没有进行中的阅读会话")
	}
	if session.CurrentArticleID == "" || session.CurrentArticle == nil {
		return nil, util.NewInvalidState("当前会话没有指向任何文章")
	}

	article := session.CurrentArticle
	bot, err := s.BotRepo.FindByID(article.BotID)
	if err != nil {
		return nil, util.NewNotFound("当前文章未绑定机器人")
	}

	info := &CurrentBotInfo{
		Bot:     bot,
		Article: article,
		Session: session,
	}

	progress, err := s.ProgressRepo.FindByUserAndArticle(userID, article.ID)
	if err == nil {
		info.ConversationID = progress.ConversationID
		info.ProgressPercent = progress.ProgressPercent
	}

	return info, nil
}

// Message 学生提问的完整流程：定位机器人 -> 续接会话 -> 回写会话ID
func (s *AgentService) Message(userID, message string) (*ChatMessageReply, error) {
	info, err := s.GetCurrentBot(userID)
	if err != nil {
		return nil, err
	}

	conversationID := ""
	latest, err := s.ProgressRepo.FindLatestByUser(userID)
	if err == nil {
		conversationID = latest.ConversationID
	}

	reply, err := s.sendMessage(message, userID, info.Bot.ChatKey, conversationID)
	if err != nil {
		return nil, err
	}

	if latest != nil && reply.ConversationID != "" {
		if err := s.ProgressRepo.UpdateConversationID(latest.ID, reply.ConversationID); err != nil {
			return nil, err
		}
	}

	return reply, nil
}

func (s *AgentService) sendMessage(message, userName, chatKey, conversationID string) (*ChatMessageReply, error) {
	reqBody := map[string]interface{}{
		"inputs":          map[string]interface{}{},
		"query":           message,
		"response_mode":   "blocking",
		"conversation_id": conversationID,
		"user":            userName,
		"files":           []interface{}{},
	}

	body, err := s.post("/v1/chat-messages", chatKey, reqBody)
	if err != nil {
		return nil, err
	}

	var reply ChatMessageReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

type datasetReply struct {
	ID string `json:"id"`
}

type appReply struct {
	ID string `json:"id"`
}

// ProvisionKnowledgeBase 为一篇文章开通平台知识库并写入全文，返回知识库ID
func (s *AgentService) ProvisionKnowledgeBase(title, content string) (string, error) {
	body, err := s.post("/v1/datasets", s.Cfg.DatasetKey, map[string]interface{}{
		"name":       title,
		"permission": "all_team_members",
	})
	if err != nil {
		return "", err
	}

	var dataset datasetReply
	if err := json.Unmarshal(body, &dataset); err != nil {
		return "", err
	}
	if dataset.ID == "" {
		return "", fmt.Errorf("agent platform returned empty dataset id")
	}

	_, err = s.post(fmt.Sprintf("/v1/datasets/%s/document/create-by-text", dataset.ID), s.Cfg.DatasetKey, map[string]interface{}{
		"name":               title,
		"text":               content,
		"indexing_technique": "economy",
		"process_rule": map[string]interface{}{
			"mode": "automatic",
		},
	})
	if err != nil {
		return "", err
	}

	return dataset.ID, nil
}

// ProvisionBot 创建空白聊天机器人并绑定知识库，返回平台侧应用ID
func (s *AgentService) ProvisionBot(name, datasetID string) (string, error) {
	body, err := s.post("/console/api/apps", s.Cfg.ConsoleKey, map[string]interface{}{
		"name":            name,
		"icon_type":       "emoji",
		"icon":            "📖",
		"icon_background": "#FFEAD5",
		"mode":            "chat",
		"description":     "read",
	})
	if err != nil {
		return "", err
	}

	var app appReply
	if err := json.Unmarshal(body, &app); err != nil {
		return "", err
	}
	if app.ID == "" {
		return "", fmt.Errorf("agent platform returned empty app id")
	}

	if err := s.bindDataset(app.ID, datasetID); err != nil {
		return "", err
	}
	return app.ID, nil
}

func (s *AgentService) bindDataset(appID, datasetID string) error {
	prePrompt := "现在你是一个中国小学生的英文阅读理解题目讲解老师，向你提问的用户都是你教授的小学生，请你仅根据提供的英文短文内容以及小学生对你的提问进行题目和语法知识的讲解。但是，需要注意的是:\n" +
		"1. 你不能直接为小学生们提供太长的翻译服务（一次最多只能翻译文中一个句子），你需要耐心的告诉他们你只能告诉他们大意不能直接提供大段翻译，因为这样不利于提高孩子们的阅读理解水平。\n" +
		"2. 为了便于小学生阅读和理解，你必须回答得言简意赅、格式工整。每次回答的内容尽量不要超过200字（需要引用原文的部分除外）；内容比较多或者是有选项的内容的话最好能够另起一行。\n" +
		"3. 如果学生向你提出「原文依据」或者「在原文哪里可以找到答案」之类的问题，请尽可能给出原文。"

	_, err := s.post(fmt.Sprintf("/console/api/apps/%s/model-config", appID), s.Cfg.ConsoleKey, map[string]interface{}{
		"pre_prompt":        prePrompt,
		"prompt_type":       "simple",
		"user_input_form":   []interface{}{},
		"retriever_resource": map[string]interface{}{
			"enabled": true,
		},
		"model": map[string]interface{}{
			"provider": s.Cfg.ModelVendor,
			"name":     s.Cfg.Model,
			"mode":     "chat",
			"completion_params": map[string]interface{}{},
		},
		"dataset_configs": map[string]interface{}{
			"retrieval_model": "multiple",
			"top_k":           4,
			"datasets": map[string]interface{}{
				"datasets": []interface{}{
					map[string]interface{}{
						"dataset": map[string]interface{}{
							"enabled": true,
							"id":      datasetID,
						},
					},
				},
			},
		},
	})
	return err
}

func (s *AgentService) post(path, token string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", s.Cfg.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("agent API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

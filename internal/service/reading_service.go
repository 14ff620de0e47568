package service

import (
	"errors"

	"reading_edu_backend/internal/config"
	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/repository"
	"reading_edu_backend/internal/util"

	"gorm.io/gorm"
)

// ProgressStatus 阅读状态机对外暴露的状态标签
type ProgressStatus string

const (
	StatusAllCompleted     ProgressStatus = "ALL_COMPLETED"
	StatusArticleCompleted ProgressStatus = "ARTICLE_COMPLETED"
	StatusInProgress       ProgressStatus = "IN_PROGRESS"
	StatusNextArticle      ProgressStatus = "NEXT_ARTICLE"
	StatusNextRound        ProgressStatus = "NEXT_ROUND"
	StatusSessionCompleted ProgressStatus = "SESSION_COMPLETED"
	StatusAnswerProcessed  ProgressStatus = "ANSWER_PROCESSED"
)

type ReadingService struct {
	UserRepo     *repository.UserRepository
	ArticleRepo  *repository.ArticleRepository
	QuestionRepo *repository.QuestionRepository
	ProgressRepo *repository.ProgressRepository
	SessionRepo  *repository.SessionRepository
	RoundRepo    *repository.RoundRepository
	AnswerRepo   *repository.AnswerRecordRepository
	Curriculum   config.CurriculumConfig
	DB           *gorm.DB
}

func NewReadingService(
	userRepo *repository.UserRepository,
	articleRepo *repository.ArticleRepository,
	questionRepo *repository.QuestionRepository,
	progressRepo *repository.ProgressRepository,
	sessionRepo *repository.SessionRepository,
	roundRepo *repository.RoundRepository,
	answerRepo *repository.AnswerRecordRepository,
	curriculum config.CurriculumConfig,
	db *gorm.DB,
) *ReadingService {
	return &ReadingService{
		UserRepo:     userRepo,
		ArticleRepo:  articleRepo,
		QuestionRepo: questionRepo,
		ProgressRepo: progressRepo,
		SessionRepo:  sessionRepo,
		RoundRepo:    roundRepo,
		AnswerRepo:   answerRepo,
		Curriculum:   curriculum,
		DB:           db,
	}
}

// CurrentQuestionInfo 进行中状态下的当前题目视图（不含答案）
type CurrentQuestionInfo struct {
	ID                     string                 `json:"id"`
	QuestionNumber         int                    `json:"questionNumber"`
	QuestionType           model.QuestionType     `json:"questionType"`
	Content                string                 `json:"content"`
	Options                []model.QuestionOption `json:"options"`
	TotalQuestions         int                    `json:"totalQuestions"`
	RemainingExercises     int                    `json:"remainingExercises"`
	RemainingSupplementary int                    `json:"remainingSupplementary"`
}

// ProgressView 状态解析结果
type ProgressView struct {
	Status          ProgressStatus         `json:"status"`
	Message         string                 `json:"message,omitempty"`
	Progress        *model.ReadingProgress `json:"progress"`
	Session         *model.ReadingSession  `json:"session"`
	CurrentQuestion *CurrentQuestionInfo   `json:"currentQuestionInfo"`
}

// GetProgress 状态解析（只读路径）。首次接触的用户会自动建立
// 初始会话、首轮和零进度记录，之后重复调用在没有新答题时返回相同状态。
func (s *ReadingService) GetProgress(userID string) (*ProgressView, error) {
	if _, err := s.UserRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	session, err := s.SessionRepo.FindActiveByUser(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// 没有进行中的会话：要么课程已全部完成，要么是首次接触
		latest, lerr := s.SessionRepo.FindLatestByUser(userID)
		if lerr == nil && latest.Status == model.SessionCompleted {
			progress, _ := s.ProgressRepo.FindLatestByUser(userID)
			return &ProgressView{
				Status:   StatusAllCompleted,
				Message:  "恭喜！你已完成所有学习内容",
				Progress: progress,
				Session:  latest,
			}, nil
		}
		if lerr != nil && !errors.Is(lerr, gorm.ErrRecordNotFound) {
			return nil, lerr
		}

		session, err = s.bootstrapSession(userID)
		if err != nil {
			return nil, err
		}
	}

	progress, err := s.ProgressRepo.FindByUserAndArticle(userID, session.CurrentArticleID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// 进度记录惰性创建：会话指向的文章第一次被读到时补建
		progress = &model.ReadingProgress{
			UserID:     userID,
			ArticleID:  session.CurrentArticleID,
			LastReadAt: nowFunc(),
		}
		if cerr := s.ProgressRepo.Create(progress); cerr != nil {
			return nil, cerr
		}
	}
	if progress.Article == nil {
		if article, aerr := s.ArticleRepo.FindByID(session.CurrentArticleID); aerr == nil {
			progress.Article = article
		}
	}

	exerciseCount, err := s.QuestionRepo.CountByArticleAndType(session.CurrentArticleID, model.QuestionExercise)
	if err != nil {
		return nil, err
	}
	supplementaryCount, err := s.QuestionRepo.CountByArticleAndType(session.CurrentArticleID, model.QuestionSupplementary)
	if err != nil {
		return nil, err
	}

	if pointerExhausted(session, exerciseCount, supplementaryCount) {
		return &ProgressView{
			Status:   StatusArticleCompleted,
			Message:  "当前文章的所有题目已完成",
			Progress: progress,
			Session:  session,
		}, nil
	}

	question, err := s.QuestionRepo.FindByPointer(session.CurrentArticleID, session.CurrentQuestionType, session.CurrentQuestionIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 指针落在题号空洞上，说明导入数据破坏了题号连续性
			return nil, util.NewIntegrityViolation("会话指针指向不存在的题目", err)
		}
		return nil, err
	}

	options, err := question.GetOptions()
	if err != nil {
		return nil, util.NewIntegrityViolation("题目选项格式损坏", err)
	}

	return &ProgressView{
		Status:   StatusInProgress,
		Progress: progress,
		Session:  session,
		CurrentQuestion: &CurrentQuestionInfo{
			ID:                     question.ID,
			QuestionNumber:         question.OrderNumber,
			QuestionType:           question.Type,
			Content:                question.Content,
			Options:                options,
			TotalQuestions:         int(exerciseCount + supplementaryCount),
			RemainingExercises:     int(exerciseCount) - session.CurrentQuestionIndex + 1,
			RemainingSupplementary: int(supplementaryCount),
		},
	}, nil
}

// pointerExhausted 当前题型的题号越过该层题目总数即视为文章做完
func pointerExhausted(session *model.ReadingSession, exerciseCount, supplementaryCount int64) bool {
	switch session.CurrentQuestionType {
	case model.QuestionSupplementary:
		return session.CurrentQuestionIndex > int(supplementaryCount)
	default:
		return session.CurrentQuestionIndex > int(exerciseCount)
	}
}

// bootstrapSession 首次接触：round 1、顺序第一篇文章、练习题第 1 题
func (s *ReadingService) bootstrapSession(userID string) (*model.ReadingSession, error) {
	first, err := s.ArticleRepo.FindFirst()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewIntegrityViolation("课程中没有任何文章", err)
		}
		return nil, err
	}

	var session *model.ReadingSession
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// 以用户行为锁对象串行化同一用户的并发首次接触，
		// 两个同时到达的请求不会各建一条 IN_PROGRESS 会话
		var owner model.User
		if lerr := lockForUpdate(tx).Where("id = ?", userID).First(&owner).Error; lerr != nil {
			return lerr
		}

		var existing model.ReadingSession
		ferr := tx.Where("user_id = ? AND status = ?", userID, model.SessionInProgress).
			First(&existing).Error
		if ferr == nil {
			session = &existing
			return nil
		}
		if !errors.Is(ferr, gorm.ErrRecordNotFound) {
			return ferr
		}

		session = &model.ReadingSession{
			UserID:               userID,
			Status:               model.SessionInProgress,
			CurrentArticleID:     first.ID,
			CurrentQuestionType:  model.QuestionExercise,
			CurrentQuestionIndex: 1,
			CurrentRound:         1,
			StartTime:            nowFunc(),
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		round := &model.StudyRound{
			SessionID:   session.ID,
			RoundNumber: 1,
		}
		if err := tx.Create(round).Error; err != nil {
			return err
		}

		progress := &model.ReadingProgress{
			UserID:     userID,
			ArticleID:  first.ID,
			LastReadAt: nowFunc(),
		}
		return tx.Create(progress).Error
	})
	if err != nil {
		return nil, err
	}

	if session.CurrentArticleID == first.ID {
		session.CurrentArticle = first
	} else if article, aerr := s.ArticleRepo.FindByID(session.CurrentArticleID); aerr == nil {
		session.CurrentArticle = article
	}
	return session, nil
}

// RoundScore 当前轮次的得分汇总
type RoundScore struct {
	TotalScore        int     `json:"totalScore"`
	MaxPossibleScore  int     `json:"maxPossibleScore"`
	CompletionRate    float64 `json:"completionRate"`
	AnsweredQuestions int     `json:"answeredQuestions"`
	CorrectAnswers    int     `json:"correctAnswers"`
}

// GetRoundScore 当前轮次得分。满分按每篇文章分值 × 文章数推导，
// 还没有轮次时返回全零而不是报错。
func (s *ReadingService) GetRoundScore(userID string) (*RoundScore, error) {
	articleCount, err := s.ArticleRepo.Count()
	if err != nil {
		return nil, err
	}
	maxPossible := s.Curriculum.PointsPerArticle * int(articleCount)

	empty := &RoundScore{MaxPossibleScore: maxPossible}

	session, err := s.SessionRepo.FindActiveByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return empty, nil
		}
		return nil, err
	}

	round, err := s.RoundRepo.FindBySessionAndNumber(session.ID, session.CurrentRound)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return empty, nil
		}
		return nil, err
	}

	total, correct, err := s.AnswerRepo.CountByRound(round.ID)
	if err != nil {
		return nil, err
	}

	score := &RoundScore{
		TotalScore:        round.TotalScore,
		MaxPossibleScore:  maxPossible,
		AnsweredQuestions: int(total),
		CorrectAnswers:    int(correct),
	}
	if maxPossible > 0 {
		score.CompletionRate = float64(round.TotalScore) / float64(maxPossible) * 100
	}
	return score, nil
}

// GetArticle 当前应该呈现的文章：进行中取当前文章，单篇做完取下一篇，
// 课程完结取最后一篇
func (s *ReadingService) GetArticle(userID string) (*model.Article, error) {
	view, err := s.GetProgress(userID)
	if err != nil {
		return nil, err
	}

	switch view.Status {
	case StatusAllCompleted:
		if view.Progress != nil && view.Progress.Article != nil {
			return view.Progress.Article, nil
		}
		return s.ArticleRepo.FindByID(view.Session.CurrentArticleID)
	case StatusArticleCompleted:
		current, err := s.ArticleRepo.FindByID(view.Session.CurrentArticleID)
		if err != nil {
			return nil, err
		}
		next, err := s.ArticleRepo.FindNextAfter(current.Order)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return current, nil
	default:
		return s.ArticleRepo.FindByID(view.Session.CurrentArticleID)
	}
}

// QuestionView 题目列表视图。练习题带出其补充题，补充题带出它补救的练习题。
type QuestionView struct {
	ID              string                 `json:"id"`
	OrderNumber     int                    `json:"orderNumber"`
	Type            model.QuestionType     `json:"type"`
	Content         string                 `json:"content"`
	Options         []model.QuestionOption `json:"options"`
	Explanation     string                 `json:"explanation"`
	MappedQuestions []QuestionView         `json:"mappedQuestions,omitempty"`
	RelatedQuestion *QuestionView          `json:"relatedQuestion,omitempty"`
}

func (s *ReadingService) GetArticleQuestions(articleID string, qType model.QuestionType) ([]QuestionView, error) {
	questions, err := s.QuestionRepo.ListByArticle(articleID, qType)
	if err != nil {
		return nil, err
	}

	views := make([]QuestionView, 0, len(questions))
	for i := range questions {
		view, err := toQuestionView(&questions[i])
		if err != nil {
			return nil, err
		}

		if qType == model.QuestionExercise {
			mapped, err := s.QuestionRepo.MappedSupplementary(questions[i].ID)
			if err != nil {
				return nil, err
			}
			for j := range mapped {
				mv, err := toQuestionView(&mapped[j])
				if err != nil {
					return nil, err
				}
				view.MappedQuestions = append(view.MappedQuestions, *mv)
			}
		} else if questions[i].RelatedQuestionID != nil {
			related, err := s.QuestionRepo.FindByID(*questions[i].RelatedQuestionID)
			if err == nil {
				rv, verr := toQuestionView(related)
				if verr != nil {
					return nil, verr
				}
				view.RelatedQuestion = rv
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}

		views = append(views, *view)
	}
	return views, nil
}

func toQuestionView(q *model.Question) (*QuestionView, error) {
	options, err := q.GetOptions()
	if err != nil {
		return nil, util.NewIntegrityViolation("题目选项格式损坏", err)
	}
	return &QuestionView{
		ID:          q.ID,
		OrderNumber: q.OrderNumber,
		Type:        q.Type,
		Content:     q.Content,
		Options:     options,
		Explanation: q.Explanation,
	}, nil
}

// CheckResult 直接按题目ID判题的结果，不推进会话指针
type CheckResult struct {
	IsCorrect             bool                `json:"isCorrect"`
	Score                 int                 `json:"score"`
	SupplementaryQuestion *QuestionView       `json:"supplementaryQuestion"`
	Explanation           string              `json:"explanation"`
	AnswerRecord          *model.AnswerRecord `json:"answerRecord"`
}

// CheckAnswer 轻量判题入口：同样的判分策略、同样的答题记录，
// 但不移动会话指针；练习题答错时附带第一道对应的补充题。
func (s *ReadingService) CheckAnswer(userID, questionID, answer string) (*CheckResult, error) {
	view, err := s.GetProgress(userID)
	if err != nil {
		return nil, err
	}
	if view.Status != StatusInProgress {
		return nil, util.NewInvalidState("会话或当前文章已完成，无法提交答案")
	}

	round, err := s.RoundRepo.FindBySessionAndNumber(view.Session.ID, view.Session.CurrentRound)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewIntegrityViolation("当前轮次记录缺失", err)
		}
		return nil, err
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	isCorrect := question.Answer == answer
	score := 0
	if isCorrect {
		score = s.Curriculum.ScorePerQuestion
	}

	article, err := s.ArticleRepo.FindByID(view.Session.CurrentArticleID)
	if err != nil {
		return nil, err
	}

	record := &model.AnswerRecord{
		RoundID:      round.ID,
		QuestionID:   question.ID,
		ProgressID:   view.Progress.ID,
		Answer:       answer,
		IsCorrect:    isCorrect,
		Score:        score,
		ArticleOrder: article.Order,
		TimeSpent:    defaultTimeSpent,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if isCorrect {
			return tx.Model(&model.StudyRound{}).
				Where("id = ?", round.ID).
				Update("total_score", gorm.Expr("total_score + ?", score)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		IsCorrect:    isCorrect,
		Score:        score,
		Explanation:  question.Explanation,
		AnswerRecord: record,
	}

	if question.Type == model.QuestionExercise && !isCorrect {
		mapped, err := s.QuestionRepo.MappedSupplementary(question.ID)
		if err != nil {
			return nil, err
		}
		if len(mapped) > 0 {
			mv, err := toQuestionView(&mapped[0])
			if err != nil {
				return nil, err
			}
			result.SupplementaryQuestion = mv
		}
	}

	return result, nil
}

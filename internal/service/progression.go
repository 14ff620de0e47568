package service

import (
	"errors"
	"strings"
	"time"

	"reading_edu_backend/internal/model"
	"reading_edu_backend/internal/util"
	"reading_edu_backend/pkg/monitoring"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// maxGradingRetries 整个答题事务在冲突时最多重跑的次数
	maxGradingRetries = 3
	// defaultTimeSpent 占位用时（秒），前端尚未上报真实答题耗时
	defaultTimeSpent = 60
)

var nowFunc = time.Now

// AnswerResult 答题处理结果。Status 为 ANSWER_PROCESSED 时填充判题字段，
// 为 NEXT_ARTICLE / NEXT_ROUND / SESSION_COMPLETED 时填充对应的流转字段。
type AnswerResult struct {
	Status             ProgressStatus         `json:"status"`
	IsCorrect          bool                   `json:"isCorrect"`
	Score              int                    `json:"score"`
	NewProgressPercent int                    `json:"newProgressPercent"`
	NextQuestionType   model.QuestionType     `json:"nextQuestionType,omitempty"`
	Explanation        string                 `json:"explanation,omitempty"`
	AnswerRecord       *model.AnswerRecord    `json:"answerRecord,omitempty"`
	Progress           *model.ReadingProgress `json:"updatedProgress,omitempty"`
	Session            *model.ReadingSession  `json:"updatedSession,omitempty"`
	Round              *model.StudyRound      `json:"updatedRound,omitempty"`
	NextArticle        *model.Article         `json:"nextArticle,omitempty"`
	NewRound           *model.StudyRound      `json:"newRound,omitempty"`

	gradedType model.QuestionType
}

// ProcessAnswer 答题与流转协议。整个协议在一个数据库事务里执行，
// 会话行加锁串行化同一用户的并发提交；检测到冲突时有限次重跑，
// 失败的事务不留下任何部分推进。
func (s *ReadingService) ProcessAnswer(userID, answer string) (*AnswerResult, error) {
	if _, err := s.UserRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	var result *AnswerResult
	var err error
	for attempt := 0; attempt < maxGradingRetries; attempt++ {
		result = nil
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			r, txErr := s.processAnswerTx(tx, userID, answer)
			if txErr != nil {
				return txErr
			}
			result = r
			return nil
		})
		if err == nil {
			break
		}
		if !isRetryableDBError(err) {
			return nil, err
		}
		monitoring.GradingRetryCounter.Inc()
	}
	if err != nil {
		return nil, util.NewTransactionConflict("答题事务冲突，请稍后重试", err)
	}

	if result.Status == StatusAnswerProcessed {
		outcome := "incorrect"
		if result.IsCorrect {
			outcome = "correct"
		}
		monitoring.AnswerCounter.WithLabelValues(string(result.gradedType), outcome).Inc()
	} else {
		monitoring.TransitionCounter.WithLabelValues(string(result.Status)).Inc()
	}

	return result, nil
}

func (s *ReadingService) processAnswerTx(tx *gorm.DB, userID, answer string) (*AnswerResult, error) {
	// 会话行是唯一的写热点，必须先锁住再读，指针推进才不会丢失或翻倍
	var session model.ReadingSession
	err := lockForUpdate(tx).
		Where("user_id = ? AND status = ?", userID, model.SessionInProgress).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewInvalidState("没有进行中的阅读会话，无法提交答案")
		}
		return nil, err
	}

	var round model.StudyRound
	err = tx.Where("session_id = ? AND round_number = ?", session.ID, session.CurrentRound).
		First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewIntegrityViolation("当前轮次记录缺失", err)
		}
		return nil, err
	}

	var article model.Article
	err = tx.Where("id = ?", session.CurrentArticleID).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewIntegrityViolation("会话指向的文章不存在", err)
		}
		return nil, err
	}

	var question model.Question
	err = tx.Where("article_id = ? AND type = ? AND order_number = ?",
		session.CurrentArticleID, session.CurrentQuestionType, session.CurrentQuestionIndex).
		First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 指针越过当前层的最后一题：文章做完，进入流转分支
			return s.transitionExhausted(tx, &session, &article)
		}
		return nil, err
	}

	return s.gradeAndAdvance(tx, &session, &round, &article, &question, answer)
}

// transitionExhausted 三种收尾情形：还有下一篇文章、整轮读完但轮次未用尽、
// 第四轮也读完
func (s *ReadingService) transitionExhausted(tx *gorm.DB, session *model.ReadingSession, article *model.Article) (*AnswerResult, error) {
	var next model.Article
	err := tx.Where("article_order > ?", article.Order).
		Order("article_order asc").
		First(&next).Error
	if err == nil {
		return s.advanceToNextArticle(tx, session, &next)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if session.CurrentRound < s.Curriculum.TotalRounds {
		return s.advanceToNextRound(tx, session)
	}
	return s.completeSession(tx, session)
}

func (s *ReadingService) advanceToNextArticle(tx *gorm.DB, session *model.ReadingSession, next *model.Article) (*AnswerResult, error) {
	err := tx.Model(&model.ReadingSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"current_article_id":     next.ID,
			"current_question_type":  model.QuestionExercise,
			"current_question_index": 1,
		}).Error
	if err != nil {
		return nil, err
	}
	session.CurrentArticleID = next.ID
	session.CurrentQuestionType = model.QuestionExercise
	session.CurrentQuestionIndex = 1
	session.CurrentArticle = next

	progress, err := ensureProgress(tx, session.UserID, next.ID)
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		Status:             StatusNextArticle,
		NewProgressPercent: progress.ProgressPercent,
		NextArticle:        next,
		Progress:           progress,
		Session:            session,
	}, nil
}

func (s *ReadingService) advanceToNextRound(tx *gorm.DB, session *model.ReadingSession) (*AnswerResult, error) {
	var first model.Article
	err := tx.Order("article_order asc").First(&first).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewIntegrityViolation("课程中没有任何文章", err)
		}
		return nil, err
	}

	newRound := &model.StudyRound{
		SessionID:   session.ID,
		RoundNumber: session.CurrentRound + 1,
	}
	if err := tx.Create(newRound).Error; err != nil {
		return nil, err
	}

	err = tx.Model(&model.ReadingSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"current_round":          session.CurrentRound + 1,
			"current_article_id":     first.ID,
			"current_question_type":  model.QuestionExercise,
			"current_question_index": 1,
		}).Error
	if err != nil {
		return nil, err
	}
	session.CurrentRound++
	session.CurrentArticleID = first.ID
	session.CurrentQuestionType = model.QuestionExercise
	session.CurrentQuestionIndex = 1
	session.CurrentArticle = &first

	progress, err := ensureProgress(tx, session.UserID, first.ID)
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		Status:      StatusNextRound,
		NextArticle: &first,
		NewRound:    newRound,
		Progress:    progress,
		Session:     session,
	}, nil
}

func (s *ReadingService) completeSession(tx *gorm.DB, session *model.ReadingSession) (*AnswerResult, error) {
	now := nowFunc()
	err := tx.Model(&model.ReadingSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"status":   model.SessionCompleted,
			"end_time": now,
		}).Error
	if err != nil {
		return nil, err
	}
	session.Status = model.SessionCompleted
	session.EndTime = &now

	return &AnswerResult{
		Status:  StatusSessionCompleted,
		Session: session,
	}, nil
}

func (s *ReadingService) gradeAndAdvance(tx *gorm.DB, session *model.ReadingSession, round *model.StudyRound, article *model.Article, question *model.Question, answer string) (*AnswerResult, error) {
	isCorrect := question.Answer == answer
	score := 0
	if isCorrect {
		score = s.Curriculum.ScorePerQuestion
	}

	var progress model.ReadingProgress
	err := tx.Where("user_id = ? AND article_id = ?", session.UserID, session.CurrentArticleID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewIntegrityViolation("当前文章的进度记录缺失", err)
		}
		return nil, err
	}

	nextType, nextIndex, credit := nextPointer(question.Type, isCorrect, session.CurrentQuestionIndex)
	newPercent := progress.ProgressPercent
	if credit {
		newPercent = capPercent(progress.ProgressPercent + s.Curriculum.ProgressStep)
	}

	record := &model.AnswerRecord{
		RoundID:      round.ID,
		QuestionID:   question.ID,
		ProgressID:   progress.ID,
		Answer:       answer,
		IsCorrect:    isCorrect,
		Score:        score,
		ArticleOrder: article.Order,
		TimeSpent:    defaultTimeSpent,
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}

	now := nowFunc()
	err = tx.Model(&model.ReadingProgress{}).
		Where("id = ?", progress.ID).
		Updates(map[string]interface{}{
			"progress_percent": newPercent,
			"last_read_at":     now,
		}).Error
	if err != nil {
		return nil, err
	}
	progress.ProgressPercent = newPercent
	progress.LastReadAt = now

	err = tx.Model(&model.ReadingSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"current_question_type":  nextType,
			"current_question_index": nextIndex,
		}).Error
	if err != nil {
		return nil, err
	}
	session.CurrentQuestionType = nextType
	session.CurrentQuestionIndex = nextIndex

	if isCorrect {
		err = tx.Model(&model.StudyRound{}).
			Where("id = ?", round.ID).
			Update("total_score", gorm.Expr("total_score + ?", score)).Error
		if err != nil {
			return nil, err
		}
		round.TotalScore += score
	}

	return &AnswerResult{
		Status:             StatusAnswerProcessed,
		IsCorrect:          isCorrect,
		Score:              score,
		NewProgressPercent: newPercent,
		NextQuestionType:   nextType,
		Explanation:        question.Explanation,
		AnswerRecord:       record,
		Progress:           &progress,
		Session:            session,
		Round:              round,
		gradedType:         question.Type,
	}, nil
}

// nextPointer 两层题目的不对称流转规则：
//   - 练习题答对：进度计分，留在练习层，题号 +1
//   - 练习题答错：进度不动，切到同题号的补充题
//   - 补充题不论对错：进度计分，切回练习层，题号 +1（补充题的目的
//     是讲解曝光而非惩罚）
func nextPointer(qType model.QuestionType, isCorrect bool, index int) (model.QuestionType, int, bool) {
	if qType == model.QuestionExercise {
		if isCorrect {
			return model.QuestionExercise, index + 1, true
		}
		return model.QuestionSupplementary, index, false
	}
	return model.QuestionExercise, index + 1, true
}

func capPercent(percent int) int {
	if percent > 100 {
		return 100
	}
	return percent
}

// ensureProgress 惰性建立 (用户, 文章) 进度记录；已存在时只刷新阅读时间，
// 让"最近阅读"始终指向会话当前文章
func ensureProgress(tx *gorm.DB, userID, articleID string) (*model.ReadingProgress, error) {
	var progress model.ReadingProgress
	err := tx.Where("user_id = ? AND article_id = ?", userID, articleID).
		First(&progress).Error
	if err == nil {
		now := nowFunc()
		uerr := tx.Model(&model.ReadingProgress{}).
			Where("id = ?", progress.ID).
			Update("last_read_at", now).Error
		if uerr != nil {
			return nil, uerr
		}
		progress.LastReadAt = now
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = model.ReadingProgress{
		UserID:     userID,
		ArticleID:  articleID,
		LastReadAt: nowFunc(),
	}
	if err := tx.Create(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// lockForUpdate 只在 MySQL 上生成 FOR UPDATE；SQLite 单写者自然串行
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}
	if appErr := util.AsAppError(err); appErr != nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "database is locked")
}

package util

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类，决定调用方能否重试以及映射到的 HTTP 状态码
type ErrorKind string

const (
	// KindNotFound 引用的用户/文章/题目不存在
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInvalidState 会话状态不允许当前操作（如已完成的会话继续答题）
	KindInvalidState ErrorKind = "INVALID_STATE"
	// KindTransactionConflict 同一会话的并发写冲突，可重试
	KindTransactionConflict ErrorKind = "TRANSACTION_CONFLICT"
	// KindIntegrityViolation 数据不变量被破坏，说明上游数据已损坏
	KindIntegrityViolation ErrorKind = "INTEGRITY_VIOLATION"
)

// AppError 携带分类信息的业务错误
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable 只有事务冲突允许调用方原样重试
func (e *AppError) Retryable() bool {
	return e.Kind == KindTransactionConflict
}

func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewInvalidState(message string) *AppError {
	return &AppError{Kind: KindInvalidState, Message: message}
}

func NewTransactionConflict(message string, err error) *AppError {
	return &AppError{Kind: KindTransactionConflict, Message: message, Err: err}
}

func NewIntegrityViolation(message string, err error) *AppError {
	return &AppError{Kind: KindIntegrityViolation, Message: message, Err: err}
}

// AsAppError 取出错误链上的 AppError，没有则返回 nil
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

var (
	ErrUserNotFound       = NewNotFound("用户不存在")
	ErrArticleNotFound    = NewNotFound("文章不存在")
	ErrQuestionNotFound   = NewNotFound("题目不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

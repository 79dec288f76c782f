package model

import (
	"errors"
	"fmt"
)

// 存储层统一错误：插入撞自然键、操作不存在的ID
var (
	ErrDuplicateEvent     = errors.New("event already exists")
	ErrDuplicateCharacter = errors.New("character already exists")
	ErrEventNotFound      = errors.New("event not found")
	ErrCharacterNotFound  = errors.New("character not found")
)

// ValidationError 原始记录校验失败（缺字段、时间倒置、未知属性），在边界拒绝，不入库
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError 构造校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation 判断是否为校验错误（批量处理时用于隔离单条坏记录）
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

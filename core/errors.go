package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message），可选携带底层错误（Err）
//   - 支持错误检查函数（IsXXX），兼容 errors.Is / errors.As
//
// 错误分类：
//   - 配置错误：INVALID_CONFIG（YAML 缺失/格式错误、必填 key 缺失）
//   - 资源不存在：NOT_FOUND（测试数据目录、checkpoint 路径）
//   - 形状不匹配：SHAPE_MISMATCH（batch 字段长度与 text_len/neg_size/batch_size 不符）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "SHAPE_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "config", "dataset", "checkpoint"）
	Err     error  // 底层错误，可为 nil
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Errorf 按格式创建领域错误。
func Errorf(module, code, format string, args ...any) *DomainError {
	return NewDomainError(module, code, fmt.Sprintf(format, args...))
}

// Wrap 用领域错误包装底层错误，保留错误链。
func Wrap(err error, module, code, format string, args ...any) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInvalidConfig = "INVALID_CONFIG" // 配置无效
	ErrorCodeShapeMismatch = "SHAPE_MISMATCH" // 形状不匹配
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleConfig     = "config"
	ModuleDataset    = "dataset"
	ModuleCheckpoint = "checkpoint"
	ModuleModel      = "model"
	ModuleTensor     = "tensor"
	ModuleStore      = "store"
	ModuleEval       = "eval"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsConfigError 检查错误是否为 INVALID_CONFIG
func IsConfigError(err error) bool {
	return hasCode(err, ErrorCodeInvalidConfig)
}

// IsShapeMismatch 检查错误是否为 SHAPE_MISMATCH
func IsShapeMismatch(err error) bool {
	return hasCode(err, ErrorCodeShapeMismatch)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}
